package render

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/school-office/internal/assets"
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/paper"
	"github.com/google/uuid"
)

func fp(v float64) *float64 { return &v }

func school() models.School {
	return models.School{ID: 1, Name: "Green Valley School", Address: "Dhaka", Code: "108234", CurrencySymbol: "৳"}
}

func student() models.Student {
	return models.Student{
		ID: 7, PublicID: uuid.New(), StudentID: "GV-2025-007", NameEN: "Ayesha Rahman", Roll: 7,
		ClassName: "Eight", SectionName: "B", AdmissionDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRender_IDCard_PlaceholdersForMissingFields(t *testing.T) {
	rec := models.IDCardRecord{School: school(), Student: student()}
	before := rec

	frag, err := Render(models.KindIDCard, rec, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !reflect.DeepEqual(before, rec) {
		t.Fatal("рендер изменил запись")
	}
	html := string(frag.HTML)
	if !strings.Contains(html, "Ayesha Rahman") || !strings.Contains(html, "GV-2025-007") {
		t.Fatal("нет имени или ID в карточке")
	}
	if !strings.Contains(html, NA) {
		t.Fatal("нет подстановки N/A для пустого опекуна")
	}
	if !strings.Contains(html, string(assets.Placeholder().URI)) {
		t.Fatal("нет заглушки вместо фото")
	}
	if frag.Format != paper.CreditCard.Spread() {
		t.Fatalf("ID-карта рендерится разворотом, получили %+v", frag.Format)
	}
	if !strings.Contains(html, "171.20mm") {
		t.Fatal("контейнер должен быть размером с разворот в мм")
	}
}

func TestRender_KindMismatch(t *testing.T) {
	_, err := Render(models.KindAdmitCard, models.IDCardRecord{School: school(), Student: student()}, Options{})
	if err == nil {
		t.Fatal("ожидали ошибку при несовпадении вида документа")
	}
	if _, err := Render(models.KindIDCard, nil, Options{}); err == nil {
		t.Fatal("ожидали ошибку для nil")
	}
}

func TestRender_ReportCard_UsesGrading(t *testing.T) {
	sub := func(name string) models.ExamSubject {
		return models.ExamSubject{SubjectName: name, FullMarks: 100, PassMarks: 33}
	}
	rec := models.ReportCardRecord{
		School:  school(),
		Student: student(),
		Exam:    models.Exam{ID: 3, Name: "Annual", Year: 2025},
		Subjects: []models.SubjectMark{
			{Subject: sub("Bangla"), Mark: &models.Mark{Written: fp(60), MCQ: fp(25)}},      // 85 → A+ 5.0
			{Subject: sub("English"), Mark: &models.Mark{Written: fp(72)}},                  // 72 → A 4.0
			{Subject: sub("Mathematics"), Mark: &models.Mark{Written: fp(50), MCQ: fp(15)}}, // 65 → A- 3.5
			{Subject: sub("Science")}, // без оценок
		},
	}
	frag, err := Render(models.KindReportCard, rec, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(frag.HTML)
	for _, want := range []string{"4.17", "A+", "A-", "Passed"} {
		if !strings.Contains(html, want) {
			t.Errorf("в табеле нет %q", want)
		}
	}
}

func TestRender_AllKinds(t *testing.T) {
	st := student()
	recs := []models.DocumentRecord{
		models.IDCardRecord{School: school(), Student: st},
		models.AdmitCardRecord{School: school(), Student: st, Exam: models.Exam{ID: 1, Name: "Half Yearly"}},
		models.PassingCertificateRecord{School: school(), Student: st, Cert: models.CertificateMeta{ID: uuid.New(), No: "PC-1"}},
		models.TransferCertificateRecord{School: school(), Student: st},
		models.CharacterCertificateRecord{School: school(), Student: st},
		models.HifzCertificateRecord{School: school(), Student: st},
		models.ReportCardRecord{School: school(), Student: st},
		models.AttendanceReportRecord{School: school(), ClassName: "Eight", From: time.Now(), To: time.Now()},
		models.FeeReportRecord{School: school(), Student: st, Rows: []models.FeeRow{{Title: "Tuition", Total: 1250, Paid: 250, Due: 1000, Status: models.InvoicePartial}}},
	}
	for _, r := range recs {
		t.Run(string(r.Kind()), func(t *testing.T) {
			frag, err := Render(r.Kind(), r, Options{})
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if len(frag.HTML) == 0 || frag.Kind != r.Kind() {
				t.Fatal("пустой фрагмент")
			}
		})
	}
}

func TestRender_FeeReportMoney(t *testing.T) {
	rec := models.FeeReportRecord{School: school(), Student: student(), Rows: []models.FeeRow{
		{Title: "Tuition", Total: 1250, Paid: 250, Due: 1000, Status: models.InvoicePartial},
	}}
	frag, err := Render(models.KindFeeReport, rec, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(frag.HTML), "৳ 1,250.00") {
		t.Fatal("сумма должна быть с символом валюты и двумя знаками")
	}
}

func TestPassingBody_GradeFromGPA(t *testing.T) {
	gpa, stored := 4.166, "A+"
	b := passingBody(models.PassingCertificateRecord{Details: models.PassingDetails{GPA: &gpa, Grade: &stored}})
	if b.GPA != "4.17" || b.Grade != "A" {
		t.Fatalf("буква должна выводиться из GPA по шкале: %s %s", b.GPA, b.Grade)
	}

	b = passingBody(models.PassingCertificateRecord{Details: models.PassingDetails{Grade: &stored}})
	if b.GPA != NA || b.Grade != "A+" {
		t.Fatalf("без GPA остаётся сохранённая буква: %s %s", b.GPA, b.Grade)
	}
}
