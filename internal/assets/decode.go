package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"github.com/chai2010/webp"
)

// decodeImage определяет формат по сигнатуре: JPEG, PNG или WebP.
func decodeImage(data []byte) (image.Image, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	ct := http.DetectContentType(head)

	switch {
	case strings.Contains(ct, "jpeg"):
		return jpeg.Decode(bytes.NewReader(data))
	case strings.Contains(ct, "png"):
		return png.Decode(bytes.NewReader(data))
	case strings.Contains(ct, "webp"):
		return webp.Decode(bytes.NewReader(data))
	}
	return nil, fmt.Errorf("unsupported image type %s", ct)
}
