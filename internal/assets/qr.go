package assets

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/Spok95/school-office/internal/models"
	qrcode "github.com/skip2/go-qrcode"
)

// QR: PNG data URI с кодом ссылки.
func QR(content string, size int) (template.URL, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return "", err
	}
	return dataURI("image/png", png), nil
}

// VerificationURL: ссылка проверки для QR. Пустая строка, если документ не проверяется.
func VerificationURL(origin string, ref models.VerifyRef) string {
	if !ref.Enabled {
		return ""
	}
	origin = strings.TrimRight(origin, "/")
	q := url.Values{}
	switch ref.Kind {
	case models.KindReportCard:
		q.Set("student", ref.ID)
		q.Set("exam", strconv.FormatInt(ref.ExamID, 10))
		return origin + "/verify/report?" + q.Encode()
	case models.KindAdmitCard:
		q.Set("student", ref.ID)
		q.Set("exam", strconv.FormatInt(ref.ExamID, 10))
		return origin + "/verify/admit?" + q.Encode()
	}
	q.Set("id", ref.ID)
	q.Set("type", string(ref.Kind))
	return origin + "/verify?" + q.Encode()
}
