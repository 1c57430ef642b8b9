// Package compose lays rasterized documents onto fixed-size PDF pages.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/Spok95/school-office/internal/paper"
	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
)

// Bitmap: растр одного получателя. Image == nil, если растр не получился даже с заглушками.
type Bitmap struct {
	Label    string
	Image    image.Image
	Degraded bool
}

type Document struct {
	pdf   *fpdf.Fpdf
	pages []string
}

// Pages возвращает подписи страниц по порядку ("A", или "A-front", "A-back" для двусторонних).
func (d *Document) Pages() []string { return append([]string(nil), d.pages...) }

func (d *Document) PageCount() int { return len(d.pages) }

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var ErrNoPages = errors.New("compose: no pages")

// Compose кладёт растры на страницы формата format в исходном порядке.
// dual: каждый растр делится пополам, слева лицевая сторона, справа оборот.
func Compose(pages []Bitmap, format paper.Format, dual bool) (*Document, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	size := fpdf.SizeType{Wd: format.WidthMM, Ht: format.HeightMM}
	pdf := fpdf.NewCustom(&fpdf.InitType{OrientationStr: "P", UnitStr: "mm", Size: size})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("school-office", true)

	d := &Document{pdf: pdf}
	for i, bm := range pages {
		label := bm.Label
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if !dual {
			if err := d.addPage(size, fmt.Sprintf("p%d", i), label, bm.Image); err != nil {
				return nil, err
			}
			continue
		}
		front, back := split(bm.Image)
		if err := d.addPage(size, fmt.Sprintf("p%d-f", i), label+"-front", front); err != nil {
			return nil, err
		}
		if err := d.addPage(size, fmt.Sprintf("p%d-b", i), label+"-back", back); err != nil {
			return nil, err
		}
	}
	if err := pdf.Error(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) addPage(size fpdf.SizeType, name, label string, img image.Image) error {
	d.pdf.AddPageFormat("P", size)
	d.pages = append(d.pages, label)
	if img == nil {
		placeholderPage(d.pdf, size, label)
		return d.pdf.Error()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", label, err)
	}
	opt := fpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, opt, &buf)
	d.pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opt, 0, "")
	return d.pdf.Error()
}

// placeholderPage: страница-заглушка, чтобы порядок страниц не сбился.
func placeholderPage(pdf *fpdf.Fpdf, size fpdf.SizeType, label string) {
	pdf.SetDrawColor(156, 163, 175)
	pdf.Rect(2, 2, size.Wd-4, size.Ht-4, "D")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(0, size.Ht/2-6)
	pdf.CellFormat(size.Wd, 6, "Document could not be rendered", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(size.Wd, 5, label, "", 0, "C", false, 0, "")
}

func split(img image.Image) (image.Image, image.Image) {
	if img == nil {
		return nil, nil
	}
	b := img.Bounds()
	mid := b.Min.X + b.Dx()/2
	front := imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, mid, b.Max.Y))
	back := imaging.Crop(img, image.Rect(mid, b.Min.Y, b.Max.X, b.Max.Y))
	return front, back
}
