// Package documents assembles typed document records from stored rows.
// Every call re-reads the database; records are never cached between exports.
package documents

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/db"
	"github.com/Spok95/school-office/internal/models"
	"github.com/google/uuid"
)

// Store: чтения, нужные для сборки записей; *db.Store.
type Store interface {
	GetSchool(ctx context.Context, id int64) (*models.School, error)
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	GetStudentByPublicID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	ListStudents(ctx context.Context, f db.StudentFilter) ([]models.Student, error)
	GetSection(ctx context.Context, sectionID int64) (*models.Section, string, error)
	GetExam(ctx context.Context, id int64) (*models.Exam, error)
	ExamSubjects(ctx context.Context, examID, classID int64) ([]models.ExamSubject, error)
	MarksForStudent(ctx context.Context, examID, studentRef int64) ([]models.Mark, error)
	AttendanceSummary(ctx context.Context, studentRef int64, from, to time.Time) (models.AttendanceSummary, error)
	AttendanceReport(ctx context.Context, sectionID int64, from, to time.Time) ([]models.AttendanceRow, error)
	GetCertificate(ctx context.Context, id uuid.UUID) (*models.Certificate, error)
	InvoicesForStudent(ctx context.Context, studentRef int64) ([]models.Invoice, error)
}

// Selection: кому печатаем, явный список учеников или весь класс/секция.
type Selection struct {
	SchoolID   int64   `json:"school_id" validate:"required"`
	ClassID    *int64  `json:"class_id,omitempty"`
	SectionID  *int64  `json:"section_id,omitempty"`
	StudentIDs []int64 `json:"student_ids,omitempty"`
}

// Target: ключ для защиты от повторного экспорта.
func (s Selection) Target() string {
	switch {
	case len(s.StudentIDs) == 1:
		return fmt.Sprintf("student:%d", s.StudentIDs[0])
	case len(s.StudentIDs) > 1:
		return fmt.Sprintf("students:%v", s.StudentIDs)
	case s.SectionID != nil:
		return fmt.Sprintf("section:%d", *s.SectionID)
	case s.ClassID != nil:
		return fmt.Sprintf("class:%d", *s.ClassID)
	}
	return fmt.Sprintf("school:%d", s.SchoolID)
}

type Builder struct {
	store Store
	loc   *time.Location
}

func NewBuilder(store Store, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{store: store, loc: loc}
}

func (b *Builder) school(ctx context.Context, id int64) (models.School, error) {
	sc, err := b.store.GetSchool(ctx, id)
	if err != nil {
		return models.School{}, err
	}
	if sc == nil {
		return models.School{}, apperr.NotFound("school")
	}
	return *sc, nil
}

func (b *Builder) student(ctx context.Context, id int64) (models.Student, error) {
	st, err := b.store.GetStudent(ctx, id)
	if err != nil {
		return models.Student{}, err
	}
	if st == nil {
		return models.Student{}, apperr.NotFound("student")
	}
	return *st, nil
}

func (b *Builder) exam(ctx context.Context, id int64) (models.Exam, error) {
	ex, err := b.store.GetExam(ctx, id)
	if err != nil {
		return models.Exam{}, err
	}
	if ex == nil {
		return models.Exam{}, apperr.NotFound("exam")
	}
	return *ex, nil
}

// examOf: экзамен школы schoolID; чужой не отличается от несуществующего.
func (b *Builder) examOf(ctx context.Context, id, schoolID int64) (models.Exam, error) {
	ex, err := b.exam(ctx, id)
	if err != nil {
		return models.Exam{}, err
	}
	if ex.SchoolID != schoolID {
		return models.Exam{}, apperr.NotFound("exam")
	}
	return ex, nil
}

// students: выбранные ученики в порядке выбора. Пустой выбор даёт пустой список.
func (b *Builder) students(ctx context.Context, sel Selection) ([]models.Student, error) {
	if len(sel.StudentIDs) == 0 && sel.ClassID == nil && sel.SectionID == nil {
		return nil, nil
	}
	return b.store.ListStudents(ctx, db.StudentFilter{
		SchoolID:   sel.SchoolID,
		ClassID:    sel.ClassID,
		SectionID:  sel.SectionID,
		IDs:        sel.StudentIDs,
		OnlyActive: len(sel.StudentIDs) == 0,
	})
}

// IDCards: по одной карте на ученика; validUntil необязателен.
func (b *Builder) IDCards(ctx context.Context, sel Selection, validUntil *time.Time) ([]models.DocumentRecord, error) {
	sc, err := b.school(ctx, sel.SchoolID)
	if err != nil {
		return nil, err
	}
	sts, err := b.students(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]models.DocumentRecord, 0, len(sts))
	for _, st := range sts {
		out = append(out, models.IDCardRecord{School: sc, Student: st, ValidUntil: validUntil})
	}
	return out, nil
}

// IDCardByPublicID: одна карта по идентификатору из ссылки проверки.
func (b *Builder) IDCardByPublicID(ctx context.Context, id uuid.UUID) (models.DocumentRecord, error) {
	st, err := b.store.GetStudentByPublicID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, apperr.NotFound("student")
	}
	sc, err := b.school(ctx, st.SchoolID)
	if err != nil {
		return nil, err
	}
	return models.IDCardRecord{School: sc, Student: *st}, nil
}

func (b *Builder) AdmitCards(ctx context.Context, examID int64, sel Selection) ([]models.DocumentRecord, error) {
	ex, err := b.examOf(ctx, examID, sel.SchoolID)
	if err != nil {
		return nil, err
	}
	sc, err := b.school(ctx, sel.SchoolID)
	if err != nil {
		return nil, err
	}
	sts, err := b.students(ctx, sel)
	if err != nil {
		return nil, err
	}
	subjects := map[int64][]models.ExamSubject{}
	out := make([]models.DocumentRecord, 0, len(sts))
	for _, st := range sts {
		subs, ok := subjects[st.ClassID]
		if !ok {
			if subs, err = b.store.ExamSubjects(ctx, ex.ID, st.ClassID); err != nil {
				return nil, err
			}
			subjects[st.ClassID] = subs
		}
		out = append(out, models.AdmitCardRecord{School: sc, Student: st, Exam: ex, Subjects: subs})
	}
	return out, nil
}

func (b *Builder) ReportCards(ctx context.Context, examID int64, sel Selection) ([]models.DocumentRecord, error) {
	ex, err := b.examOf(ctx, examID, sel.SchoolID)
	if err != nil {
		return nil, err
	}
	sc, err := b.school(ctx, sel.SchoolID)
	if err != nil {
		return nil, err
	}
	sts, err := b.students(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]models.DocumentRecord, 0, len(sts))
	for _, st := range sts {
		rec, err := b.reportCard(ctx, sc, st, ex)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReportCard: табель одного ученика (ссылка проверки и повторная выгрузка).
func (b *Builder) ReportCard(ctx context.Context, examID, studentRef int64) (models.DocumentRecord, error) {
	ex, err := b.exam(ctx, examID)
	if err != nil {
		return nil, err
	}
	st, err := b.student(ctx, studentRef)
	if err != nil {
		return nil, err
	}
	if st.SchoolID != ex.SchoolID {
		return nil, apperr.NotFound("exam")
	}
	sc, err := b.school(ctx, st.SchoolID)
	if err != nil {
		return nil, err
	}
	return b.reportCard(ctx, sc, st, ex)
}

// AdmitCard: карточка допуска одного ученика.
func (b *Builder) AdmitCard(ctx context.Context, examID, studentRef int64) (models.DocumentRecord, error) {
	ex, err := b.exam(ctx, examID)
	if err != nil {
		return nil, err
	}
	st, err := b.student(ctx, studentRef)
	if err != nil {
		return nil, err
	}
	if st.SchoolID != ex.SchoolID {
		return nil, apperr.NotFound("exam")
	}
	sc, err := b.school(ctx, st.SchoolID)
	if err != nil {
		return nil, err
	}
	subs, err := b.store.ExamSubjects(ctx, ex.ID, st.ClassID)
	if err != nil {
		return nil, err
	}
	return models.AdmitCardRecord{School: sc, Student: st, Exam: ex, Subjects: subs}, nil
}

func (b *Builder) reportCard(ctx context.Context, sc models.School, st models.Student, ex models.Exam) (models.ReportCardRecord, error) {
	subs, err := b.store.ExamSubjects(ctx, ex.ID, st.ClassID)
	if err != nil {
		return models.ReportCardRecord{}, err
	}
	marks, err := b.store.MarksForStudent(ctx, ex.ID, st.ID)
	if err != nil {
		return models.ReportCardRecord{}, err
	}
	bySubject := make(map[int64]models.Mark, len(marks))
	for _, m := range marks {
		bySubject[m.ExamSubjectID] = m
	}
	rec := models.ReportCardRecord{School: sc, Student: st, Exam: ex}
	for _, es := range subs {
		sm := models.SubjectMark{Subject: es}
		if m, ok := bySubject[es.ID]; ok {
			sm.Mark = &m
		}
		rec.Subjects = append(rec.Subjects, sm)
	}

	if from, to, ok := b.examPeriod(ex); ok {
		sum, err := b.store.AttendanceSummary(ctx, st.ID, from, to)
		if err != nil {
			return models.ReportCardRecord{}, err
		}
		if sum.WorkingDays > 0 {
			rec.Attendance = &sum
		}
	}
	return rec, nil
}

// examPeriod: учебный период до конца экзамена, с 1 января года экзамена.
func (b *Builder) examPeriod(ex models.Exam) (time.Time, time.Time, bool) {
	if ex.Year <= 0 {
		return time.Time{}, time.Time{}, false
	}
	from := time.Date(ex.Year, time.January, 1, 0, 0, 0, 0, b.loc)
	to := time.Date(ex.Year, time.December, 31, 0, 0, 0, 0, b.loc)
	switch {
	case ex.EndDate != nil:
		to = *ex.EndDate
	case ex.StartDate != nil:
		to = *ex.StartDate
	}
	return from, to, true
}

// Certificate: сохранённый сертификат как типизированная запись.
func (b *Builder) Certificate(ctx context.Context, id uuid.UUID) (models.DocumentRecord, error) {
	c, err := b.store.GetCertificate(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("certificate")
	}
	st, err := b.student(ctx, c.StudentRef)
	if err != nil {
		return nil, err
	}
	sc, err := b.school(ctx, c.SchoolID)
	if err != nil {
		return nil, err
	}
	return models.DecodeCertificate(*c, sc, st)
}

func (b *Builder) AttendanceReport(ctx context.Context, schoolID, sectionID int64, from, to time.Time) (models.DocumentRecord, error) {
	if to.Before(from) {
		return nil, apperr.Validation("period end is before start", apperr.FieldError{Field: "to", Error: "before from"})
	}
	sc, err := b.school(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	sec, className, err := b.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if sec == nil || sec.SchoolID != schoolID {
		return nil, apperr.NotFound("section")
	}
	rows, err := b.store.AttendanceReport(ctx, sectionID, from, to)
	if err != nil {
		return nil, err
	}
	return models.AttendanceReportRecord{
		School: sc, ClassName: className, SectionName: sec.Name,
		From: from, To: to, Rows: rows,
	}, nil
}

// FeeReport: выписка по счетам ученика; суммы пересчитаны из оплат.
// Ученик другой школы не отличается от несуществующего.
func (b *Builder) FeeReport(ctx context.Context, schoolID, studentRef int64) (models.DocumentRecord, error) {
	st, err := b.student(ctx, studentRef)
	if err != nil {
		return nil, err
	}
	if st.SchoolID != schoolID {
		return nil, apperr.NotFound("student")
	}
	sc, err := b.school(ctx, st.SchoolID)
	if err != nil {
		return nil, err
	}
	invs, err := b.store.InvoicesForStudent(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	rec := models.FeeReportRecord{School: sc, Student: st}
	for _, inv := range invs {
		rec.Rows = append(rec.Rows, models.FeeRow{
			InvoiceID: inv.ID, Title: inv.Title, Total: inv.Total,
			Paid: inv.Paid, Due: inv.Due, Status: inv.Status, DueDate: inv.DueDate,
		})
	}
	return rec, nil
}
