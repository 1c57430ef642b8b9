package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/assets"
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/render"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type fakeAssets struct{}

func (fakeAssets) Photo(context.Context, *string) assets.Image { return assets.Placeholder() }
func (fakeAssets) Logo(context.Context, *string) assets.Image  { return assets.Image{} }

// fakeRaster падает для фрагментов, где встречается код из fail, заданное число раз.
type fakeRaster struct {
	mu    sync.Mutex
	fail  map[string]int
	calls int
}

func (f *fakeRaster) Rasterize(ctx context.Context, fr render.Fragment, dpi float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for code, n := range f.fail {
		if n != 0 && bytes.Contains(fr.HTML, []byte(code)) {
			if n > 0 {
				f.fail[code] = n - 1
			}
			return nil, errors.New("capture failed")
		}
	}
	w, h := fr.Format.PixelSize(dpi / 4)
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

type fakePrinter struct{ frags int }

func (p *fakePrinter) PrintPDF(_ context.Context, frags ...render.Fragment) ([]byte, error) {
	p.frags = len(frags)
	return []byte("%PDF-1.4 fake"), nil
}

var school = models.School{ID: 1, Name: "Model School", CurrencySymbol: "৳"}

func idCards(codes ...string) []models.DocumentRecord {
	out := make([]models.DocumentRecord, 0, len(codes))
	for i, c := range codes {
		out = append(out, models.IDCardRecord{
			School:  school,
			Student: models.Student{PublicID: uuid.New(), StudentID: "STU-" + c, NameEN: "Student " + c, Roll: i + 1},
		})
	}
	return out
}

func newTestService(r *fakeRaster, p *fakePrinter) *Service {
	return NewService(fakeAssets{}, r, p, Options{PublicOrigin: "https://school.example", Currency: "৳", DPI: 100}, nil)
}

func TestExport_NothingSelected(t *testing.T) {
	s := newTestService(&fakeRaster{}, &fakePrinter{})
	f, err := s.Export(context.Background(), models.KindIDCard, nil)
	if !errors.Is(err, ErrNothingSelected) || f != nil {
		t.Fatalf("ожидали ErrNothingSelected без файла, получили %v %v", f, err)
	}
}

func TestExport_KindMismatch(t *testing.T) {
	s := newTestService(&fakeRaster{}, &fakePrinter{})
	_, err := s.Export(context.Background(), models.KindAdmitCard, idCards("A"))
	if _, ok := apperr.AsValidation(err); !ok {
		t.Fatalf("ожидали ошибку валидации, получили %v", err)
	}
}

func TestExport_BulkDualSidedOrder(t *testing.T) {
	s := newTestService(&fakeRaster{}, &fakePrinter{})
	f, err := s.Export(context.Background(), models.KindIDCard, idCards("A", "B", "C"))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := []string{
		"STU-A-front", "STU-A-back",
		"STU-B-front", "STU-B-back",
		"STU-C-front", "STU-C-back",
	}
	if !reflect.DeepEqual(f.Pages, want) {
		t.Fatalf("порядок страниц: %v", f.Pages)
	}
	if f.Name != "ID_Card_STU-A_Bulk_3.pdf" {
		t.Fatalf("имя файла: %s", f.Name)
	}
	if f.ContentType != ContentTypePDF || !bytes.HasPrefix(f.Data, []byte("%PDF-")) {
		t.Fatalf("ожидали PDF, получили %s", f.ContentType)
	}
}

func TestExport_PartialFailure(t *testing.T) {
	t.Run("повтор с заглушками удался", func(t *testing.T) {
		r := &fakeRaster{fail: map[string]int{"STU-B": 1}}
		f, err := newTestService(r, &fakePrinter{}).Export(context.Background(), models.KindIDCard, idCards("A", "B", "C"))
		if err != nil {
			t.Fatalf("Export: %v", err)
		}
		if len(f.Pages) != 6 || f.Degraded != 1 {
			t.Fatalf("ожидали 6 страниц и 1 деградацию, получили %d/%d", len(f.Pages), f.Degraded)
		}
		if r.calls != 4 {
			t.Fatalf("ожидали 4 вызова растра, получили %d", r.calls)
		}
	})
	t.Run("получатель не отрисовался совсем", func(t *testing.T) {
		r := &fakeRaster{fail: map[string]int{"STU-B": -1}}
		f, err := newTestService(r, &fakePrinter{}).Export(context.Background(), models.KindIDCard, idCards("A", "B", "C"))
		if err != nil {
			t.Fatalf("пачка не должна прерываться: %v", err)
		}
		if len(f.Pages) != 6 || f.Pages[2] != "STU-B-front" || f.Degraded != 1 {
			t.Fatalf("ожидали 6 страниц с заглушкой для B, получили %v (деградаций %d)", f.Pages, f.Degraded)
		}
	})
}

func TestExport_SingleRecordName(t *testing.T) {
	rec := models.PassingCertificateRecord{
		School:  school,
		Student: models.Student{StudentID: "STU-1", NameEN: "Rahim"},
		Cert:    models.CertificateMeta{ID: uuid.New(), No: "PC/2024/7", IssueDate: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
	}
	f, err := newTestService(&fakeRaster{}, &fakePrinter{}).Export(context.Background(), models.KindPassingCert, []models.DocumentRecord{rec})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if f.Name != "Passing_Certificate_PC_2024_7.pdf" {
		t.Fatalf("имя файла: %s", f.Name)
	}
	if !reflect.DeepEqual(f.Pages, []string{"PC/2024/7"}) {
		t.Fatalf("страницы: %v", f.Pages)
	}
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f, err := newTestService(&fakeRaster{}, &fakePrinter{}).Export(ctx, models.KindIDCard, idCards("A", "B"))
	if !errors.Is(err, context.Canceled) || f != nil {
		t.Fatalf("ожидали context.Canceled, получили %v", err)
	}
}

func attendanceRecords() []models.DocumentRecord {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.DocumentRecord{models.AttendanceReportRecord{
		School: school, ClassName: "Six", SectionName: "A",
		From: from, To: from.AddDate(0, 0, 30),
		Rows: []models.AttendanceRow{
			{StudentID: "STU-1", Name: "Rahim", Roll: 1, Present: 20, Late: 2, Absent: 3},
			{StudentID: "STU-2", Name: "Karim", Roll: 2, Present: 25},
		},
	}}
}

func TestExport_TabularGoesToPrinter(t *testing.T) {
	r, p := &fakeRaster{}, &fakePrinter{}
	f, err := newTestService(r, p).Export(context.Background(), models.KindAttendanceReport, attendanceRecords())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if r.calls != 0 || p.frags != 1 {
		t.Fatalf("таблица должна печататься напрямую: растр %d, фрагментов %d", r.calls, p.frags)
	}
	if f.Name != "Attendance_Report_Six-A_20250301-20250331.pdf" {
		t.Fatalf("имя файла: %s", f.Name)
	}
}

func TestExportXLSX(t *testing.T) {
	s := newTestService(&fakeRaster{}, &fakePrinter{})
	f, err := s.ExportXLSX(context.Background(), models.KindAttendanceReport, attendanceRecords())
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	if !strings.HasSuffix(f.Name, ".xlsx") || f.ContentType != ContentTypeXLSX {
		t.Fatalf("ожидали xlsx, получили %s %s", f.Name, f.ContentType)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(f.Data))
	if err != nil {
		t.Fatalf("книга не читается: %v", err)
	}
	defer func() { _ = wb.Close() }()
	sheet := wb.GetSheetName(0)
	if v, _ := wb.GetCellValue(sheet, "C2"); v != "Rahim" {
		t.Fatalf("C2 = %q", v)
	}
	if v, _ := wb.GetCellValue(sheet, "E1"); v != "Present" {
		t.Fatalf("E1 = %q", v)
	}

	if _, err := s.ExportXLSX(context.Background(), models.KindIDCard, idCards("A")); err == nil {
		t.Fatal("xlsx для ID-карт должен отклоняться")
	}
}

func TestFileName(t *testing.T) {
	cases := []struct {
		kind  models.DocumentKind
		id    string
		count int
		ext   string
		want  string
	}{
		{models.KindIDCard, "STU-1", 1, "pdf", "ID_Card_STU-1.pdf"},
		{models.KindReportCard, "STU-1", 40, "pdf", "Report_Card_STU-1_Bulk_40.pdf"},
		{models.KindHifzCert, "HC 2025/01", 1, ".pdf", "Hifz_Certificate_HC_2025_01.pdf"},
		{models.KindFeeReport, "", 1, "xlsx", "Fee_Report_NA.xlsx"},
	}
	for _, c := range cases {
		if got := FileName(c.kind, c.id, c.count, c.ext); got != c.want {
			t.Errorf("FileName(%s, %q, %d) = %s, ожидали %s", c.kind, c.id, c.count, got, c.want)
		}
	}
}

func TestInFlight(t *testing.T) {
	g := NewInFlight()
	release, ok := g.Acquire(7, models.KindIDCard, "class-6")
	if !ok {
		t.Fatal("первый экспорт должен стартовать")
	}
	if _, ok := g.Acquire(7, models.KindIDCard, "class-6"); ok {
		t.Fatal("второй экспорт той же цели должен отклоняться")
	}
	if _, ok := g.Acquire(8, models.KindIDCard, "class-6"); !ok {
		t.Fatal("другой пользователь не должен блокироваться")
	}
	release()
	release()
	if _, ok := g.Acquire(7, models.KindIDCard, "class-6"); !ok {
		t.Fatal("после освобождения экспорт снова доступен")
	}
}
