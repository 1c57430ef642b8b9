package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/school-office/internal/models"
	"github.com/google/uuid"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoader_Photo(t *testing.T) {
	good := pngBytes(t, 640, 480)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write(good)
		case "/text":
			_, _ = w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(srv.Client(), time.Second, nil)
	ctx := context.Background()
	s := func(v string) *string { return &v }

	got := l.Photo(ctx, s(srv.URL+"/ok.png"))
	if got.Degraded {
		t.Fatal("нормальное фото не должно деградировать")
	}
	if !strings.HasPrefix(string(got.URI), "data:image/png;base64,") {
		t.Fatalf("ожидали PNG data URI, получили %.40s", got.URI)
	}

	for name, u := range map[string]*string{
		"nil":     nil,
		"пустой":  s(""),
		"404":     s(srv.URL + "/missing.png"),
		"не фото": s(srv.URL + "/text"),
	} {
		t.Run(name, func(t *testing.T) {
			got := l.Photo(ctx, u)
			if !got.Degraded || got.URI != Placeholder().URI {
				t.Fatalf("ожидали заглушку, получили degraded=%v", got.Degraded)
			}
		})
	}
}

func TestQR(t *testing.T) {
	uri, err := QR("https://school.example/verify?id=1", 128)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(uri), "data:image/png;base64,") {
		t.Fatalf("ожидали PNG, получили %.30s", uri)
	}
}

func TestVerificationURL(t *testing.T) {
	id := uuid.MustParse("7b0f2a8e-9c1d-4b7e-8f00-112233445566")
	tests := []struct {
		name string
		ref  models.VerifyRef
		want string
	}{
		{"сертификат", models.VerifyRef{Kind: models.KindPassingCert, ID: id.String(), Enabled: true},
			"https://s.example/verify?id=7b0f2a8e-9c1d-4b7e-8f00-112233445566&type=certificate-passing"},
		{"табель", models.VerifyRef{Kind: models.KindReportCard, ID: id.String(), ExamID: 12, Enabled: true},
			"https://s.example/verify/report?exam=12&student=7b0f2a8e-9c1d-4b7e-8f00-112233445566"},
		{"допуск", models.VerifyRef{Kind: models.KindAdmitCard, ID: id.String(), ExamID: 3, Enabled: true},
			"https://s.example/verify/admit?exam=3&student=7b0f2a8e-9c1d-4b7e-8f00-112233445566"},
		{"без проверки", models.VerifyRef{Kind: models.KindFeeReport}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerificationURL("https://s.example/", tt.ref); got != tt.want {
				t.Fatalf("получили %q, ожидали %q", got, tt.want)
			}
		})
	}
}
