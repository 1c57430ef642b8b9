package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/paper"
	"github.com/Spok95/school-office/internal/render"
	"github.com/gen2brain/go-fitz"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Rasterizer: фрагмент в растр с заданной плотностью.
type Rasterizer interface {
	Rasterize(ctx context.Context, f render.Fragment, dpi float64) (image.Image, error)
}

// Printer: табличные фрагменты сразу в один многостраничный PDF, по порядку.
type Printer interface {
	PrintPDF(ctx context.Context, frags ...render.Fragment) ([]byte, error)
}

type Options struct {
	BinPath string
	Settle  time.Duration
}

// Wkhtml печатает поверхность в PDF через wkhtmltopdf и растрирует первую страницу через MuPDF.
type Wkhtml struct {
	fs     afero.Fs
	settle time.Duration
	log    *zap.Logger
}

var setPathOnce sync.Once

func NewWkhtml(opts Options, log *zap.Logger) *Wkhtml {
	if opts.BinPath != "" {
		setPathOnce.Do(func() { wkhtmltopdf.SetPath(opts.BinPath) })
	}
	// wkhtmltopdf читает файлы с диска, поэтому только OsFs
	return &Wkhtml{fs: afero.NewOsFs(), settle: opts.Settle, log: logging.OrNop(log)}
}

func (w *Wkhtml) Rasterize(ctx context.Context, f render.Fragment, dpi float64) (image.Image, error) {
	if dpi <= 0 {
		dpi = 300
	}
	var out image.Image
	err := WithSurface(ctx, w.fs, []render.Fragment{f}, func(s *Surface) error {
		pdf, err := w.print(ctx, s, f.Format, false, dpi)
		if err != nil {
			return err
		}
		doc, err := fitz.NewFromMemory(pdf)
		if err != nil {
			return fmt.Errorf("open pdf: %w", err)
		}
		defer func() { _ = doc.Close() }()
		if doc.NumPage() < 1 {
			return fmt.Errorf("empty pdf")
		}
		img, err := doc.ImageDPI(0, dpi)
		if err != nil {
			return fmt.Errorf("rasterize page: %w", err)
		}
		out = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Wkhtml) PrintPDF(ctx context.Context, frags ...render.Fragment) ([]byte, error) {
	var out []byte
	err := WithSurface(ctx, w.fs, frags, func(s *Surface) error {
		pdf, err := w.print(ctx, s, frags[0].Format, true, 0)
		out = pdf
		return err
	})
	return out, err
}

func (w *Wkhtml) print(ctx context.Context, s *Surface, format paper.Format, flow bool, dpi float64) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, err
	}
	pdfg.MarginTop.Set(0)
	pdfg.MarginBottom.Set(0)
	pdfg.MarginLeft.Set(0)
	pdfg.MarginRight.Set(0)
	if dpi > 0 {
		pdfg.Dpi.Set(uint(dpi))
	}
	if flow {
		// таблицы: стандартный лист, переносы страниц делает wkhtmltopdf
		pdfg.PageSize.Set(pageSizeName(format))
		pdfg.Orientation.Set(orientation(format))
		pdfg.MarginTop.Set(10)
		pdfg.MarginBottom.Set(10)
	} else {
		pdfg.PageWidth.Set(uint(math.Round(format.WidthMM)))
		pdfg.PageHeight.Set(uint(math.Round(format.HeightMM)))
	}

	for _, path := range s.HTMLPaths {
		page := wkhtmltopdf.NewPage(path)
		page.EnableLocalFileAccess.Set(true)
		page.DisableSmartShrinking.Set(true)
		page.LoadErrorHandling.Set("ignore")
		page.LoadMediaErrorHandling.Set("ignore")
		if w.settle > 0 {
			page.JavascriptDelay.Set(uint(w.settle.Milliseconds()))
		}
		pdfg.AddPage(page)
	}

	start := time.Now()
	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, fmt.Errorf("wkhtmltopdf: %w", err)
	}
	w.log.Debug("printed surface",
		zap.String("kind", string(s.Fragments[0].Kind)),
		zap.Int("fragments", len(s.Fragments)),
		zap.Duration("took", time.Since(start)),
	)
	return bytes.Clone(pdfg.Bytes()), nil
}

func pageSizeName(f paper.Format) string {
	switch f.Name {
	case "A5":
		return wkhtmltopdf.PageSizeA5
	}
	return wkhtmltopdf.PageSizeA4
}

func orientation(f paper.Format) string {
	if f.Orientation == paper.Landscape {
		return wkhtmltopdf.OrientationLandscape
	}
	return wkhtmltopdf.OrientationPortrait
}
