package compose

import (
	"bytes"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/Spok95/school-office/internal/paper"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCompose_SingleSidedOrder(t *testing.T) {
	pages := []Bitmap{
		{Label: "A", Image: solid(20, 28, color.White)},
		{Label: "B", Image: solid(20, 28, color.Black)},
		{Label: "C", Image: solid(20, 28, color.White)},
	}
	doc, err := Compose(pages, paper.A4, false)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := doc.Pages(); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("порядок страниц нарушен: %v", got)
	}
	b, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatal("на выходе не PDF")
	}
}

func TestCompose_DualSided(t *testing.T) {
	card := func() image.Image { return solid(40, 12, color.White) }
	doc, err := Compose([]Bitmap{{Label: "A", Image: card()}, {Label: "B", Image: card()}, {Label: "C", Image: card()}}, paper.CreditCard, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A-front", "A-back", "B-front", "B-back", "C-front", "C-back"}
	if got := doc.Pages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("получили %v, ожидали %v", got, want)
	}
}

func TestCompose_MissingBitmapBecomesPlaceholderPage(t *testing.T) {
	doc, err := Compose([]Bitmap{
		{Label: "A", Image: solid(40, 12, color.White)},
		{Label: "B", Image: nil, Degraded: true},
		{Label: "C", Image: solid(40, 12, color.White)},
	}, paper.CreditCard, true)
	if err != nil {
		t.Fatalf("одна плохая запись не должна ронять пачку: %v", err)
	}
	if doc.PageCount() != 6 {
		t.Fatalf("ожидали 6 страниц, получили %d", doc.PageCount())
	}
	if _, err := doc.Bytes(); err != nil {
		t.Fatal(err)
	}
}

func TestSplitHalves(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 4))
	for y := 0; y < 4; y++ {
		for x := 5; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	front, back := split(img)
	if front.Bounds().Dx() != 5 || back.Bounds().Dx() != 5 {
		t.Fatalf("половины неравные: %v %v", front.Bounds(), back.Bounds())
	}
	if r, _, _, _ := front.At(0, 0).RGBA(); r != 0 {
		t.Fatal("лицевая сторона: левая половина")
	}
	if r, _, _, _ := back.At(0, 0).RGBA(); r == 0 {
		t.Fatal("оборот: правая половина")
	}
}

func TestCompose_Empty(t *testing.T) {
	if _, err := Compose(nil, paper.A4, false); err != ErrNoPages {
		t.Fatalf("ожидали ErrNoPages, получили %v", err)
	}
}
