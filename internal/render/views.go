package render

import (
	"html/template"
	"strconv"

	"github.com/Spok95/school-office/internal/grading"
	"github.com/Spok95/school-office/internal/models"
)

// Вью-модели содержат только строки. Подстановки N/A сделаны здесь, шаблоны их не проверяют.

type schoolView struct {
	Name      string
	NameLocal string
	Address   string
	Code      string
	Phone     string
	Principal string
	Logo      template.URL
}

type studentView struct {
	Name          string
	NameLocal     string
	StudentID     string
	Class         string
	Section       string
	Roll          string
	DateOfBirth   string
	BloodGroup    string
	Guardian      string
	GuardianRel   string
	GuardianPhone string
	Admission     string
	Photo         template.URL
}

type page struct {
	Kind      string
	Title     string
	WidthMM   string
	HeightMM  string
	Flow      bool // таблицы: высота по содержимому, многостраничность
	School    schoolView
	Student   studentView
	QR        template.URL
	VerifyURL string
	Body      any
}

func newSchoolView(s models.School, a Assets) schoolView {
	return schoolView{
		Name:      Text(s.Name),
		NameLocal: s.NameLocal,
		Address:   Text(s.Address),
		Code:      Text(s.Code),
		Phone:     Text(s.Phone),
		Principal: Text(s.PrincipalName),
		Logo:      a.Logo.URI,
	}
}

func newStudentView(st models.Student, a Assets) studentView {
	v := studentView{
		Name:          Text(st.NameEN),
		NameLocal:     Str(st.NameLocal),
		StudentID:     Text(st.StudentID),
		Class:         Text(st.ClassName),
		Section:       Text(st.SectionName),
		Roll:          NA,
		DateOfBirth:   DatePtr(st.DateOfBirth),
		BloodGroup:    Str(st.BloodGroup),
		Guardian:      NA,
		GuardianRel:   NA,
		GuardianPhone: NA,
		Admission:     NA,
		Photo:         a.Photo.URI,
	}
	if st.Roll > 0 {
		v.Roll = strconv.Itoa(st.Roll)
	}
	if !st.AdmissionDate.IsZero() {
		v.Admission = Date(st.AdmissionDate)
	}
	if g := st.Guardian; g != nil {
		v.Guardian = Text(g.Name)
		v.GuardianRel = Text(g.Relation)
		v.GuardianPhone = Text(g.Phone)
	}
	return v
}

type idCardBody struct {
	ValidUntil string
}

type admitRow struct {
	Subject string
	Date    string
	Time    string
	Full    string
}

type admitBody struct {
	Exam string
	Year string
	Rows []admitRow
}

type certBody struct {
	No        string
	IssueDate string
	// поля по типу сертификата
	ExamName    string
	Year        string
	GPA         string
	Grade       string
	Reason      string
	Conduct     string
	LastClass   string
	LeavingDate string
	Remarks     string
	Paras       string
	Teacher     string
	Completion  string
}

type reportRow struct {
	Subject   string
	Full      string
	Pass      string
	Written   string
	MCQ       string
	Practical string
	Total     string
	Letter    string
	Point     string
}

type reportBody struct {
	Exam       string
	Year       string
	Rows       []reportRow
	GPA        string
	Letter     string
	Failed     int
	Result     string
	Attendance string
	Remarks    string
}

type attendanceBody struct {
	Class   string
	Section string
	Period  string
	Rows    []models.AttendanceRow
}

type feeRow struct {
	Title   string
	DueDate string
	Total   string
	Paid    string
	Due     string
	Status  string
}

type feeBody struct {
	Rows     []feeRow
	Total    string
	Paid     string
	Due      string
	Currency string
}

// passingBody: при известном GPA буква выводится по шкале, сохранённая не используется.
func passingBody(r models.PassingCertificateRecord) certBody {
	b := certHeader(r.Cert)
	b.ExamName, b.Year = Text(r.Details.ExamName), yearString(r.Details.Year)
	b.GPA, b.Grade = NA, Str(r.Details.Grade)
	if r.Details.GPA != nil {
		gpa := grading.Round2(*r.Details.GPA)
		b.GPA, b.Grade = Point(gpa), grading.LetterForGPA(gpa, 0)
	}
	return b
}

func reportCardBody(r models.ReportCardRecord) reportBody {
	b := reportBody{
		Exam:       Text(r.Exam.Name),
		Year:       yearString(r.Exam.Year),
		Attendance: NA,
		Remarks:    Str(r.Remarks),
	}
	results := make([]grading.SubjectResult, 0, len(r.Subjects))
	for _, sm := range r.Subjects {
		row := reportRow{
			Subject:   Text(sm.Subject.SubjectName),
			Full:      Marks(sm.Subject.FullMarks),
			Pass:      Marks(sm.Subject.PassMarks),
			Written:   NA,
			MCQ:       NA,
			Practical: NA,
			Total:     NA,
			Letter:    NA,
			Point:     NA,
		}
		var res grading.SubjectResult
		if m := sm.Mark; m != nil {
			row.Written, row.MCQ, row.Practical = Num(m.Written), Num(m.MCQ), Num(m.Practical)
			res = grading.Evaluate(sm.Subject.FullMarks, sm.Subject.PassMarks, m.Written, m.MCQ, m.Practical)
			if res.Recorded {
				row.Total = Marks(res.Total)
				row.Letter = res.Result.Letter
				row.Point = Point(res.Result.Point)
			}
		}
		results = append(results, res)
		b.Rows = append(b.Rows, row)
	}
	sum := grading.GPA(results)
	b.Failed = sum.Failed
	if sum.Counted == 0 {
		b.GPA, b.Letter, b.Result = NA, NA, NA
	} else {
		b.GPA = Point(sum.GPA)
		b.Letter = sum.Letter
		b.Result = "Passed"
		if sum.Failed > 0 {
			b.Result = "Failed in " + strconv.Itoa(sum.Failed) + " subject(s)"
		}
	}
	if a := r.Attendance; a != nil && a.WorkingDays > 0 {
		b.Attendance = strconv.Itoa(a.Present+a.Late) + " / " + strconv.Itoa(a.WorkingDays)
	}
	return b
}

func yearString(y int) string {
	if y <= 0 {
		return NA
	}
	return strconv.Itoa(y)
}
