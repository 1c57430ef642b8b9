// Package assets prepares the images embedded into rendered documents:
// student photos, school logos and verification QR codes. Everything is
// inlined as a data URI so the rasterizer never waits on the network.
package assets

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"html/template"
	"image"
	"image/png"
	"net/http"
	"time"

	"github.com/Spok95/school-office/internal/logging"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

//go:embed placeholder.svg
var placeholderSVG []byte

// Паспортный формат 3:3.85 в пикселях для печати ~300 dpi на карте.
const (
	photoW = 300
	photoH = 385
	logoW  = 256
)

// Image: картинка для шаблона. Degraded означает, что подставлена заглушка.
type Image struct {
	URI      template.URL
	Degraded bool
}

// Placeholder: заглушка аватара.
func Placeholder() Image {
	return Image{URI: svgURI(placeholderSVG), Degraded: true}
}

type Loader struct {
	client  *http.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewLoader(client *http.Client, timeout time.Duration, log *zap.Logger) *Loader {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Loader{client: client, timeout: timeout, log: logging.OrNop(log)}
}

// Photo: фото ученика, обрезанное под паспортный формат. Любая ошибка даёт заглушку.
func (l *Loader) Photo(ctx context.Context, url *string) Image {
	img, ok := l.load(ctx, url, "photo")
	if !ok {
		return Placeholder()
	}
	return pngImage(imaging.Fill(img, photoW, photoH, imaging.Center, imaging.Lanczos))
}

// Logo: логотип школы по ширине; при ошибке логотипа просто нет.
func (l *Loader) Logo(ctx context.Context, url *string) Image {
	img, ok := l.load(ctx, url, "logo")
	if !ok {
		return Image{Degraded: url != nil && *url != ""}
	}
	if img.Bounds().Dx() > logoW {
		img = imaging.Resize(img, logoW, 0, imaging.Lanczos)
	}
	return pngImage(img)
}

func (l *Loader) load(ctx context.Context, url *string, what string) (image.Image, bool) {
	if url == nil || *url == "" {
		return nil, false
	}
	data, err := fetch(ctx, l.client, *url, l.timeout)
	if err != nil {
		l.log.Warn("asset fetch failed", zap.String("asset", what), zap.String("url", *url), zap.Error(err))
		return nil, false
	}
	img, err := decodeImage(data)
	if err != nil {
		l.log.Warn("asset decode failed", zap.String("asset", what), zap.String("url", *url), zap.Error(err))
		return nil, false
	}
	return img, true
}

func pngImage(img image.Image) Image {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Placeholder()
	}
	return Image{URI: dataURI("image/png", buf.Bytes())}
}

func dataURI(mime string, b []byte) template.URL {
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b))
}

func svgURI(b []byte) template.URL { return dataURI("image/svg+xml", b) }
