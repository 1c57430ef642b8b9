// Package export runs the document pipeline: assets, render, rasterize,
// compose. One call produces one downloadable file for one or many
// recipients; a failing recipient degrades to placeholders and never aborts
// the batch.
package export

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/assets"
	"github.com/Spok95/school-office/internal/compose"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/metrics"
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/paper"
	"github.com/Spok95/school-office/internal/raster"
	"github.com/Spok95/school-office/internal/render"
	"go.uber.org/zap"
)

var ErrNothingSelected = errors.New("nothing selected")

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	qrSize = 256
)

// AssetSource: загрузка картинок; *assets.Loader.
type AssetSource interface {
	Photo(ctx context.Context, url *string) assets.Image
	Logo(ctx context.Context, url *string) assets.Image
}

// SavedFile: готовый файл для скачивания.
type SavedFile struct {
	Name        string
	ContentType string
	Data        []byte
	Pages       []string
	Degraded    int
}

type Options struct {
	PublicOrigin string
	Currency     string
	DPI          float64
}

type Service struct {
	assets  AssetSource
	raster  raster.Rasterizer
	printer raster.Printer
	opts    Options
	log     *zap.Logger
}

func NewService(a AssetSource, r raster.Rasterizer, p raster.Printer, opts Options, log *zap.Logger) *Service {
	if opts.DPI <= 0 {
		opts.DPI = 300
	}
	return &Service{assets: a, raster: r, printer: p, opts: opts, log: logging.OrNop(log)}
}

// Export: PDF для всех записей в исходном порядке.
func (s *Service) Export(ctx context.Context, kind models.DocumentKind, records []models.DocumentRecord) (*SavedFile, error) {
	if err := checkBatch(kind, records); err != nil {
		return nil, err
	}
	started := time.Now()
	var (
		out *SavedFile
		err error
	)
	if kind.Tabular() {
		out, err = s.exportTabular(ctx, kind, records)
	} else {
		out, err = s.exportRaster(ctx, kind, records)
	}
	s.observe(kind, started, out, err)
	if err != nil {
		return nil, err
	}
	s.log.Info("export done",
		zap.String("kind", string(kind)),
		zap.String("file", out.Name),
		zap.Int("records", len(records)),
		zap.Int("pages", len(out.Pages)),
		zap.Int("degraded", out.Degraded),
		zap.Duration("took", time.Since(started)),
	)
	return out, nil
}

// ExportXLSX: табличные отчёты как книга Excel, один лист на запись.
func (s *Service) ExportXLSX(ctx context.Context, kind models.DocumentKind, records []models.DocumentRecord) (*SavedFile, error) {
	if err := checkBatch(kind, records); err != nil {
		return nil, err
	}
	if !kind.Tabular() {
		return nil, apperr.Validation("xlsx export is available for tabular reports only",
			apperr.FieldError{Field: "kind", Error: "not tabular"})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sheets := make([]SheetSpec, 0, len(records))
	for _, rec := range records {
		sh, err := tabularSheet(rec, s.opts.Currency)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sh)
	}
	wb, err := NewWorkbook(sheets)
	if err != nil {
		return nil, err
	}
	data, err := workbookBytes(wb)
	if err != nil {
		return nil, err
	}
	metrics.Exports.WithLabelValues(string(kind)+"-xlsx", "ok").Inc()
	return &SavedFile{
		Name:        FileName(kind, records[0].PrimaryIdentifier(), len(records), "xlsx"),
		ContentType: ContentTypeXLSX,
		Data:        data,
	}, nil
}

func checkBatch(kind models.DocumentKind, records []models.DocumentRecord) error {
	if len(records) == 0 {
		return ErrNothingSelected
	}
	if _, ok := models.ParseKind(string(kind)); !ok {
		return apperr.Validation("unknown document kind", apperr.FieldError{Field: "kind", Error: string(kind)})
	}
	for _, rec := range records {
		if rec == nil || rec.Kind() != kind {
			return apperr.Validation("records do not match document kind", apperr.FieldError{Field: "records", Error: string(kind)})
		}
	}
	return nil
}

func (s *Service) exportRaster(ctx context.Context, kind models.DocumentKind, records []models.DocumentRecord) (*SavedFile, error) {
	bitmaps := make([]compose.Bitmap, 0, len(records))
	degraded := 0
	for _, rec := range records {
		bm := s.bitmap(ctx, kind, rec)
		// отмена запроса: бросаем пачку, временные поверхности уже удалены
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if bm.Degraded {
			degraded++
		}
		bitmaps = append(bitmaps, bm)
	}

	format := render.DefaultFormat(kind)
	if kind.DualSided() {
		format = paper.CreditCard
	}
	doc, err := compose.Compose(bitmaps, format, kind.DualSided())
	if err != nil {
		return nil, err
	}
	data, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	return &SavedFile{
		Name:        FileName(kind, records[0].PrimaryIdentifier(), len(records), "pdf"),
		ContentType: ContentTypePDF,
		Data:        data,
		Pages:       doc.Pages(),
		Degraded:    degraded,
	}, nil
}

// bitmap: растр одного получателя. При сбое повтор с заглушками, потом пустая страница.
func (s *Service) bitmap(ctx context.Context, kind models.DocumentKind, rec models.DocumentRecord) compose.Bitmap {
	id := rec.PrimaryIdentifier()
	a := s.loadAssets(ctx, rec)

	img, frag, err := s.renderOnce(ctx, kind, rec, a)
	if err == nil {
		return compose.Bitmap{Label: id, Image: img, Degraded: frag.Degraded || a.Logo.Degraded}
	}
	if ctx.Err() != nil {
		return compose.Bitmap{Label: id}
	}
	s.log.Warn("render failed, retrying with placeholders",
		zap.String("kind", string(kind)), zap.Error(apperr.Render(id, err)))

	fallback := render.PlaceholderAssets()
	fallback.QR = a.QR
	img, _, err = s.renderOnce(ctx, kind, rec, fallback)
	if err == nil {
		return compose.Bitmap{Label: id, Image: img, Degraded: true}
	}
	s.log.Warn("render failed with placeholders",
		zap.String("kind", string(kind)), zap.Error(apperr.Render(id, err)))
	return compose.Bitmap{Label: id, Degraded: true}
}

func (s *Service) renderOnce(ctx context.Context, kind models.DocumentKind, rec models.DocumentRecord, a render.Assets) (image.Image, render.Fragment, error) {
	frag, err := render.Render(kind, rec, s.renderOptions(kind, rec, a))
	if err != nil {
		return nil, frag, err
	}
	img, err := s.raster.Rasterize(ctx, frag, s.opts.DPI)
	return img, frag, err
}

func (s *Service) renderOptions(kind models.DocumentKind, rec models.DocumentRecord, a render.Assets) render.Options {
	return render.Options{
		Format:    render.DefaultFormat(kind),
		Assets:    a,
		Currency:  s.opts.Currency,
		VerifyURL: assets.VerificationURL(s.opts.PublicOrigin, rec.Verify()),
	}
}

func (s *Service) loadAssets(ctx context.Context, rec models.DocumentRecord) render.Assets {
	school := rec.SchoolInfo()
	a := render.Assets{
		Photo: s.assets.Photo(ctx, rec.Photo()),
		Logo:  s.assets.Logo(ctx, school.LogoURL),
	}
	if u := assets.VerificationURL(s.opts.PublicOrigin, rec.Verify()); u != "" {
		qr, err := assets.QR(u, qrSize)
		if err != nil {
			s.log.Warn("qr encode failed", zap.String("url", u), zap.Error(err))
		} else {
			a.QR = qr
		}
	}
	return a
}

func (s *Service) exportTabular(ctx context.Context, kind models.DocumentKind, records []models.DocumentRecord) (*SavedFile, error) {
	frags := make([]render.Fragment, 0, len(records))
	labels := make([]string, 0, len(records))
	degraded := 0
	for _, rec := range records {
		a := render.Assets{Logo: s.assets.Logo(ctx, rec.SchoolInfo().LogoURL)}
		if a.Logo.Degraded {
			degraded++
		}
		frag, err := render.Render(kind, rec, s.renderOptions(kind, rec, a))
		if err != nil {
			return nil, apperr.Render(rec.PrimaryIdentifier(), err)
		}
		frags = append(frags, frag)
		labels = append(labels, rec.PrimaryIdentifier())
	}
	data, err := s.printer.PrintPDF(ctx, frags...)
	if err != nil {
		return nil, apperr.Render(records[0].PrimaryIdentifier(), err)
	}
	return &SavedFile{
		Name:        FileName(kind, records[0].PrimaryIdentifier(), len(records), "pdf"),
		ContentType: ContentTypePDF,
		Data:        data,
		Pages:       labels,
		Degraded:    degraded,
	}, nil
}

func (s *Service) observe(kind models.DocumentKind, started time.Time, out *SavedFile, err error) {
	k := string(kind)
	metrics.ExportDuration.WithLabelValues(k).Observe(time.Since(started).Seconds())
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "cancelled"
		}
		metrics.Exports.WithLabelValues(k, outcome).Inc()
		s.log.Warn("export failed", zap.String("kind", k), zap.Error(err))
		return
	}
	outcome := "ok"
	if out.Degraded > 0 {
		outcome = "degraded"
	}
	metrics.Exports.WithLabelValues(k, outcome).Inc()
	metrics.ExportPages.WithLabelValues(k).Add(float64(len(out.Pages)))
	metrics.ExportDegraded.WithLabelValues(k).Add(float64(out.Degraded))
}
