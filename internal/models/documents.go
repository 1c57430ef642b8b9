package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type DocumentKind string

const (
	KindIDCard           DocumentKind = "id-card"
	KindAdmitCard        DocumentKind = "admit-card"
	KindPassingCert      DocumentKind = "certificate-passing"
	KindTransferCert     DocumentKind = "certificate-transfer"
	KindCharacterCert    DocumentKind = "certificate-character"
	KindHifzCert         DocumentKind = "certificate-hifz"
	KindReportCard       DocumentKind = "report-card"
	KindAttendanceReport DocumentKind = "tabular-attendance"
	KindFeeReport        DocumentKind = "tabular-fee"
)

var allKinds = []DocumentKind{
	KindIDCard, KindAdmitCard,
	KindPassingCert, KindTransferCert, KindCharacterCert, KindHifzCert,
	KindReportCard, KindAttendanceReport, KindFeeReport,
}

func ParseKind(s string) (DocumentKind, bool) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Tabular: многостраничные таблицы, идут в PDF напрямую, без растра.
func (k DocumentKind) Tabular() bool {
	return k == KindAttendanceReport || k == KindFeeReport
}

// DualSided: лицевая и оборотная сторона на одном растре.
func (k DocumentKind) DualSided() bool { return k == KindIDCard }

// Label: префикс имени файла.
func (k DocumentKind) Label() string {
	switch k {
	case KindIDCard:
		return "ID_Card"
	case KindAdmitCard:
		return "Admit_Card"
	case KindPassingCert:
		return "Passing_Certificate"
	case KindTransferCert:
		return "Transfer_Certificate"
	case KindCharacterCert:
		return "Character_Certificate"
	case KindHifzCert:
		return "Hifz_Certificate"
	case KindReportCard:
		return "Report_Card"
	case KindAttendanceReport:
		return "Attendance_Report"
	case KindFeeReport:
		return "Fee_Report"
	}
	return "Document"
}

// VerifyRef: что попадает в ссылку проверки документа.
// Для сертификатов и ID-карт достаточно ID; для карточек экзамена нужен ещё ExamID.
type VerifyRef struct {
	Kind    DocumentKind
	ID      string
	ExamID  int64
	Enabled bool
}

// DocumentRecord: входные данные рендера. Реализации передаются по значению, рендер их не меняет.
type DocumentRecord interface {
	Kind() DocumentKind
	PrimaryIdentifier() string
	SchoolInfo() School
	Verify() VerifyRef
	Photo() *string
}

type CertificateMeta struct {
	ID        uuid.UUID
	No        string
	IssueDate time.Time
}

type IDCardRecord struct {
	School     School
	Student    Student
	ValidUntil *time.Time
}

func (r IDCardRecord) Kind() DocumentKind        { return KindIDCard }
func (r IDCardRecord) PrimaryIdentifier() string { return r.Student.StudentID }
func (r IDCardRecord) SchoolInfo() School        { return r.School }
func (r IDCardRecord) Photo() *string            { return r.Student.PhotoURL }
func (r IDCardRecord) Verify() VerifyRef {
	return VerifyRef{Kind: KindIDCard, ID: r.Student.PublicID.String(), Enabled: r.Student.PublicID != uuid.Nil}
}

type AdmitCardRecord struct {
	School   School
	Student  Student
	Exam     Exam
	Subjects []ExamSubject
}

func (r AdmitCardRecord) Kind() DocumentKind        { return KindAdmitCard }
func (r AdmitCardRecord) PrimaryIdentifier() string { return r.Student.StudentID }
func (r AdmitCardRecord) SchoolInfo() School        { return r.School }
func (r AdmitCardRecord) Photo() *string            { return r.Student.PhotoURL }
func (r AdmitCardRecord) Verify() VerifyRef {
	return VerifyRef{Kind: KindAdmitCard, ID: r.Student.PublicID.String(), ExamID: r.Exam.ID, Enabled: r.Student.PublicID != uuid.Nil}
}

type PassingCertificateRecord struct {
	School  School
	Student Student
	Cert    CertificateMeta
	Details PassingDetails
}

func (r PassingCertificateRecord) Kind() DocumentKind        { return KindPassingCert }
func (r PassingCertificateRecord) PrimaryIdentifier() string { return certIdent(r.Cert, r.Student) }
func (r PassingCertificateRecord) SchoolInfo() School        { return r.School }
func (r PassingCertificateRecord) Photo() *string            { return r.Student.PhotoURL }
func (r PassingCertificateRecord) Verify() VerifyRef         { return certRef(KindPassingCert, r.Cert) }

type TransferCertificateRecord struct {
	School  School
	Student Student
	Cert    CertificateMeta
	Details TransferDetails
}

func (r TransferCertificateRecord) Kind() DocumentKind        { return KindTransferCert }
func (r TransferCertificateRecord) PrimaryIdentifier() string { return certIdent(r.Cert, r.Student) }
func (r TransferCertificateRecord) SchoolInfo() School        { return r.School }
func (r TransferCertificateRecord) Photo() *string            { return r.Student.PhotoURL }
func (r TransferCertificateRecord) Verify() VerifyRef         { return certRef(KindTransferCert, r.Cert) }

type CharacterCertificateRecord struct {
	School  School
	Student Student
	Cert    CertificateMeta
	Details CharacterDetails
}

func (r CharacterCertificateRecord) Kind() DocumentKind        { return KindCharacterCert }
func (r CharacterCertificateRecord) PrimaryIdentifier() string { return certIdent(r.Cert, r.Student) }
func (r CharacterCertificateRecord) SchoolInfo() School        { return r.School }
func (r CharacterCertificateRecord) Photo() *string            { return r.Student.PhotoURL }
func (r CharacterCertificateRecord) Verify() VerifyRef         { return certRef(KindCharacterCert, r.Cert) }

type HifzCertificateRecord struct {
	School  School
	Student Student
	Cert    CertificateMeta
	Details HifzDetails
}

func (r HifzCertificateRecord) Kind() DocumentKind        { return KindHifzCert }
func (r HifzCertificateRecord) PrimaryIdentifier() string { return certIdent(r.Cert, r.Student) }
func (r HifzCertificateRecord) SchoolInfo() School        { return r.School }
func (r HifzCertificateRecord) Photo() *string            { return r.Student.PhotoURL }
func (r HifzCertificateRecord) Verify() VerifyRef         { return certRef(KindHifzCert, r.Cert) }

// SubjectMark: предмет экзамена и оценка ученика; Mark == nil, если оценок нет.
type SubjectMark struct {
	Subject ExamSubject
	Mark    *Mark
}

type AttendanceSummary struct {
	WorkingDays int
	Present     int
	Late        int
	Absent      int
}

type ReportCardRecord struct {
	School     School
	Student    Student
	Exam       Exam
	Subjects   []SubjectMark
	Attendance *AttendanceSummary
	Remarks    *string
}

func (r ReportCardRecord) Kind() DocumentKind        { return KindReportCard }
func (r ReportCardRecord) PrimaryIdentifier() string { return r.Student.StudentID }
func (r ReportCardRecord) SchoolInfo() School        { return r.School }
func (r ReportCardRecord) Photo() *string            { return r.Student.PhotoURL }
func (r ReportCardRecord) Verify() VerifyRef {
	return VerifyRef{Kind: KindReportCard, ID: r.Student.PublicID.String(), ExamID: r.Exam.ID, Enabled: r.Student.PublicID != uuid.Nil}
}

type AttendanceReportRecord struct {
	School      School
	ClassName   string
	SectionName string
	From        time.Time
	To          time.Time
	Rows        []AttendanceRow
}

func (r AttendanceReportRecord) Kind() DocumentKind { return KindAttendanceReport }
func (r AttendanceReportRecord) PrimaryIdentifier() string {
	id := r.ClassName
	if r.SectionName != "" {
		id += "-" + r.SectionName
	}
	return id + "_" + r.From.Format("20060102") + "-" + r.To.Format("20060102")
}
func (r AttendanceReportRecord) SchoolInfo() School { return r.School }
func (r AttendanceReportRecord) Photo() *string     { return nil }
func (r AttendanceReportRecord) Verify() VerifyRef  { return VerifyRef{} }

type FeeReportRecord struct {
	School  School
	Student Student
	Rows    []FeeRow
}

func (r FeeReportRecord) Kind() DocumentKind        { return KindFeeReport }
func (r FeeReportRecord) PrimaryIdentifier() string { return r.Student.StudentID }
func (r FeeReportRecord) SchoolInfo() School        { return r.School }
func (r FeeReportRecord) Photo() *string            { return nil }
func (r FeeReportRecord) Verify() VerifyRef         { return VerifyRef{} }

func certIdent(c CertificateMeta, st Student) string {
	if c.No != "" {
		return c.No
	}
	return st.StudentID
}

func certRef(k DocumentKind, c CertificateMeta) VerifyRef {
	return VerifyRef{Kind: k, ID: c.ID.String(), Enabled: c.ID != uuid.Nil}
}

// RollString: номер в списке для шаблонов.
func (s Student) RollString() string { return strconv.Itoa(s.Roll) }
