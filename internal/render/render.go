// Package render turns typed document records into self-contained HTML
// fragments sized to a physical page format. Rendering is pure: records are
// taken by value and all images arrive pre-inlined through Assets.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"

	"github.com/Spok95/school-office/internal/assets"
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/paper"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// Assets: уже загруженные картинки для одного документа.
type Assets struct {
	Photo assets.Image
	Logo  assets.Image
	QR    template.URL
}

// PlaceholderAssets для второго прохода после сбоя, без внешних картинок.
func PlaceholderAssets() Assets {
	return Assets{Photo: assets.Placeholder(), Logo: assets.Image{Degraded: true}}
}

type Options struct {
	Format    paper.Format
	Assets    Assets
	Currency  string
	VerifyURL string
}

type Fragment struct {
	Kind     models.DocumentKind
	Format   paper.Format
	HTML     []byte
	Degraded bool
}

var templateFiles = map[models.DocumentKind]string{
	models.KindIDCard:           "id_card.gohtml",
	models.KindAdmitCard:        "admit_card.gohtml",
	models.KindPassingCert:      "certificate.gohtml",
	models.KindTransferCert:     "certificate.gohtml",
	models.KindCharacterCert:    "certificate.gohtml",
	models.KindHifzCert:         "certificate.gohtml",
	models.KindReportCard:       "report_card.gohtml",
	models.KindAttendanceReport: "attendance_report.gohtml",
	models.KindFeeReport:        "fee_report.gohtml",
}

var templates = func() map[models.DocumentKind]*template.Template {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}
	out := make(map[models.DocumentKind]*template.Template, len(templateFiles))
	for k, f := range templateFiles {
		out[k] = template.Must(template.New(f).Funcs(funcs).ParseFS(templateFS, "templates/layout.gohtml", "templates/"+f))
	}
	return out
}()

// DefaultFormat: формат страницы по виду документа.
func DefaultFormat(k models.DocumentKind) paper.Format {
	switch k {
	case models.KindIDCard:
		return paper.CreditCard.Spread()
	case models.KindAdmitCard:
		return paper.A5Land
	case models.KindPassingCert, models.KindTransferCert, models.KindCharacterCert, models.KindHifzCert:
		return paper.A4Land
	}
	return paper.A4
}

var certTitles = map[models.DocumentKind]string{
	models.KindPassingCert:   "Passing Certificate",
	models.KindTransferCert:  "Transfer Certificate",
	models.KindCharacterCert: "Character Certificate",
	models.KindHifzCert:      "Hifz Certificate",
}

// Render: HTML одного документа. Запись не изменяется.
func Render(kind models.DocumentKind, rec models.DocumentRecord, opts Options) (Fragment, error) {
	if rec == nil {
		return Fragment{}, fmt.Errorf("render %s: nil record", kind)
	}
	if rec.Kind() != kind {
		return Fragment{}, fmt.Errorf("render %s: record is %s", kind, rec.Kind())
	}
	tpl, ok := templates[kind]
	if !ok {
		return Fragment{}, fmt.Errorf("render: unknown kind %q", kind)
	}
	format := opts.Format
	if format.WidthMM <= 0 || format.HeightMM <= 0 {
		format = DefaultFormat(kind)
	}
	a := opts.Assets
	if a.Photo.URI == "" {
		a.Photo = assets.Placeholder()
	}
	currency := opts.Currency
	if s := rec.SchoolInfo().CurrencySymbol; s != "" {
		currency = s
	}

	p := page{
		Kind:      string(kind),
		Title:     kind.Label(),
		WidthMM:   mm(format.WidthMM),
		HeightMM:  mm(format.HeightMM),
		Flow:      kind.Tabular(),
		School:    newSchoolView(rec.SchoolInfo(), a),
		QR:        a.QR,
		VerifyURL: opts.VerifyURL,
	}

	switch r := rec.(type) {
	case models.IDCardRecord:
		p.Student = newStudentView(r.Student, a)
		p.Body = idCardBody{ValidUntil: DatePtr(r.ValidUntil)}
	case models.AdmitCardRecord:
		p.Student = newStudentView(r.Student, a)
		b := admitBody{Exam: Text(r.Exam.Name), Year: yearString(r.Exam.Year)}
		for _, s := range r.Subjects {
			b.Rows = append(b.Rows, admitRow{Subject: Text(s.SubjectName), Date: DatePtr(s.ScheduledAt), Time: Time(s.ScheduledAt), Full: Marks(s.FullMarks)})
		}
		p.Body = b
	case models.PassingCertificateRecord:
		p.Student = newStudentView(r.Student, a)
		p.Title = certTitles[kind]
		p.Body = passingBody(r)
	case models.TransferCertificateRecord:
		p.Student = newStudentView(r.Student, a)
		p.Title = certTitles[kind]
		b := certHeader(r.Cert)
		b.Reason, b.Conduct, b.LastClass, b.LeavingDate = Str(r.Details.Reason), Str(r.Details.Conduct), Str(r.Details.LastClass), DatePtr(r.Details.LeavingDate)
		p.Body = b
	case models.CharacterCertificateRecord:
		p.Student = newStudentView(r.Student, a)
		p.Title = certTitles[kind]
		b := certHeader(r.Cert)
		b.Conduct, b.Remarks = Str(r.Details.Conduct), Str(r.Details.Remarks)
		p.Body = b
	case models.HifzCertificateRecord:
		p.Student = newStudentView(r.Student, a)
		p.Title = certTitles[kind]
		b := certHeader(r.Cert)
		b.Paras, b.Teacher, b.Completion = Int(r.Details.Paras), Str(r.Details.TeacherName), DatePtr(r.Details.CompletionDate)
		p.Body = b
	case models.ReportCardRecord:
		p.Student = newStudentView(r.Student, a)
		p.Body = reportCardBody(r)
	case models.AttendanceReportRecord:
		p.Body = attendanceBody{
			Class:   Text(r.ClassName),
			Section: Text(r.SectionName),
			Period:  Date(r.From) + " - " + Date(r.To),
			Rows:    r.Rows,
		}
	case models.FeeReportRecord:
		p.Student = newStudentView(r.Student, a)
		p.Body = feeReportBody(r, currency)
	default:
		return Fragment{}, fmt.Errorf("render %s: unsupported record %T", kind, rec)
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		return Fragment{}, fmt.Errorf("render %s: %w", kind, err)
	}
	return Fragment{
		Kind:     kind,
		Format:   format,
		HTML:     buf.Bytes(),
		Degraded: a.Photo.Degraded && rec.Photo() != nil,
	}, nil
}

func certHeader(c models.CertificateMeta) certBody {
	b := certBody{No: Text(c.No), IssueDate: NA}
	if !c.IssueDate.IsZero() {
		b.IssueDate = Date(c.IssueDate)
	}
	return b
}

func feeReportBody(r models.FeeReportRecord, currency string) feeBody {
	b := feeBody{Currency: currency}
	var total, paid, due float64
	for _, row := range r.Rows {
		b.Rows = append(b.Rows, feeRow{
			Title:   Text(row.Title),
			DueDate: DatePtr(row.DueDate),
			Total:   Money(row.Total, currency),
			Paid:    Money(row.Paid, currency),
			Due:     Money(row.Due, currency),
			Status:  string(row.Status),
		})
		total += row.Total
		paid += row.Paid
		due += row.Due
	}
	b.Total, b.Paid, b.Due = Money(total, currency), Money(paid, currency), Money(due, currency)
	return b
}

func mm(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "mm" }
