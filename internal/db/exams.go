package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/grading"
	"github.com/Spok95/school-office/internal/models"
)

func (s *Store) GetExam(ctx context.Context, id int64) (*models.Exam, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var e models.Exam
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, school_id, name, year, start_date, end_date FROM exams WHERE id = $1`, id).
		Scan(&e.ID, &e.SchoolID, &e.Name, &e.Year, &e.StartDate, &e.EndDate)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const examSubjectColumns = `
	es.id, es.exam_id, es.class_id, es.subject_id, sb.name, es.full_marks, es.pass_marks, es.scheduled_at`

func scanExamSubject(r rowScanner) (models.ExamSubject, error) {
	var es models.ExamSubject
	err := r.Scan(&es.ID, &es.ExamID, &es.ClassID, &es.SubjectID, &es.SubjectName, &es.FullMarks, &es.PassMarks, &es.ScheduledAt)
	return es, err
}

// ExamSubjects: предметы экзамена для класса в порядке расписания.
func (s *Store) ExamSubjects(ctx context.Context, examID, classID int64) ([]models.ExamSubject, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+examSubjectColumns+`
		FROM exam_subjects es JOIN subjects sb ON sb.id = es.subject_id
		WHERE es.exam_id = $1 AND es.class_id = $2
		ORDER BY es.scheduled_at NULLS LAST, sb.name`, examID, classID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.ExamSubject
	for rows.Next() {
		es, err := scanExamSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, es)
	}
	return out, rows.Err()
}

func (s *Store) GetExamSubject(ctx context.Context, id int64) (*models.ExamSubject, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	es, err := scanExamSubject(s.DB.QueryRowContext(ctx, `
		SELECT `+examSubjectColumns+`
		FROM exam_subjects es JOIN subjects sb ON sb.id = es.subject_id
		WHERE es.id = $1`, id))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &es, nil
}

// ValidateExamSubject: FullMarks > PassMarks >= 0.
func ValidateExamSubject(es models.ExamSubject) error {
	var fields []apperr.FieldError
	if es.PassMarks < 0 {
		fields = append(fields, apperr.FieldError{Field: "pass_marks", Error: "must be >= 0"})
	}
	if es.FullMarks <= es.PassMarks {
		fields = append(fields, apperr.FieldError{Field: "full_marks", Error: "must be greater than pass_marks"})
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid exam subject", fields...)
	}
	return nil
}

func (s *Store) CreateExamSubject(ctx context.Context, es models.ExamSubject) (*models.ExamSubject, error) {
	if err := ValidateExamSubject(es); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	if err := s.DB.QueryRowContext(ctx, `
		INSERT INTO exam_subjects (exam_id, class_id, subject_id, full_marks, pass_marks, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`, es.ExamID, es.ClassID, es.SubjectID, es.FullMarks, es.PassMarks, es.ScheduledAt).Scan(&id); err != nil {
		return nil, err
	}
	return s.GetExamSubject(ctx, id)
}

func scanMarks(rows *sql.Rows) ([]models.Mark, error) {
	var out []models.Mark
	for rows.Next() {
		var m models.Mark
		if err := rows.Scan(&m.ID, &m.ExamID, &m.ExamSubjectID, &m.StudentRef, &m.Written, &m.MCQ, &m.Practical, &m.UpdatedBy, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const markColumns = `id, exam_id, exam_subject_id, student_ref, written, mcq, practical, updated_by, updated_at`

// MarksForStudent: все оценки ученика за экзамен.
func (s *Store) MarksForStudent(ctx context.Context, examID, studentRef int64) ([]models.Mark, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `SELECT `+markColumns+` FROM marks WHERE exam_id = $1 AND student_ref = $2`, examID, studentRef)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMarks(rows)
}

// MarksForSubject: оценки по предмету экзамена (экран редактирования).
func (s *Store) MarksForSubject(ctx context.Context, examSubjectID int64) ([]models.Mark, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `SELECT `+markColumns+` FROM marks WHERE exam_subject_id = $1 ORDER BY student_ref`, examSubjectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMarks(rows)
}

// UpsertMarks: пачка оценок по ключу (exam_id, exam_subject_id, student_ref) в одной транзакции.
// Компонент не может превышать полный балл предмета.
func (s *Store) UpsertMarks(ctx context.Context, es models.ExamSubject, marks []models.Mark) error {
	var fields []apperr.FieldError
	for i, m := range marks {
		parts := []struct {
			name string
			v    *float64
		}{{"written", m.Written}, {"mcq", m.MCQ}, {"practical", m.Practical}}
		for _, p := range parts {
			if p.v != nil && (*p.v < 0 || *p.v > es.FullMarks) {
				fields = append(fields, apperr.FieldError{Field: fmt.Sprintf("marks[%d].%s", i, p.name), Error: "out of range"})
			}
		}
		if total, ok := grading.Total(m.Written, m.MCQ, m.Practical); ok && total > es.FullMarks {
			fields = append(fields, apperr.FieldError{Field: fmt.Sprintf("marks[%d]", i), Error: "total exceeds full marks"})
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid marks", fields...)
	}

	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO marks (exam_id, exam_subject_id, student_ref, written, mcq, practical, updated_by, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())
			ON CONFLICT (exam_id, exam_subject_id, student_ref) DO UPDATE
			SET written = EXCLUDED.written, mcq = EXCLUDED.mcq, practical = EXCLUDED.practical,
			    updated_by = EXCLUDED.updated_by, updated_at = now()`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, m := range marks {
			if _, err := stmt.ExecContext(ctx, es.ExamID, es.ID, m.StudentRef, m.Written, m.MCQ, m.Practical, m.UpdatedBy); err != nil {
				return err
			}
		}
		return nil
	})
}
