package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const studentColumns = `
	st.id, st.public_id, st.school_id, st.student_code, st.name_en, st.name_local, st.roll,
	st.class_id, st.section_id, c.name, se.name,
	st.guardian_name, st.guardian_relation, st.guardian_phone, st.guardian_email, st.guardian_chat_id,
	st.photo_url, st.status, st.date_of_birth, st.blood_group, st.admission_date`

const studentFrom = `
	FROM students st
	JOIN classes c ON c.id = st.class_id
	JOIN sections se ON se.id = st.section_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(r rowScanner) (models.Student, error) {
	var st models.Student
	var gName, gRel, gPhone sql.NullString
	var gEmail *string
	var gChat *int64
	err := r.Scan(
		&st.ID, &st.PublicID, &st.SchoolID, &st.StudentID, &st.NameEN, &st.NameLocal, &st.Roll,
		&st.ClassID, &st.SectionID, &st.ClassName, &st.SectionName,
		&gName, &gRel, &gPhone, &gEmail, &gChat,
		&st.PhotoURL, &st.Status, &st.DateOfBirth, &st.BloodGroup, &st.AdmissionDate,
	)
	if err != nil {
		return st, err
	}
	if gName.Valid || gPhone.Valid {
		st.Guardian = &models.Guardian{
			Name:     gName.String,
			Relation: gRel.String,
			Phone:    gPhone.String,
			Email:    gEmail,
			ChatID:   gChat,
		}
	}
	return st, nil
}

func (s *Store) queryStudent(ctx context.Context, where string, args ...any) (*models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	st, err := scanStudent(s.DB.QueryRowContext(ctx, `SELECT `+studentColumns+studentFrom+` WHERE `+where, args...))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	return s.queryStudent(ctx, `st.id = $1`, id)
}

// GetStudentByCode: поиск по коду со сканера / из формы в пределах школы.
func (s *Store) GetStudentByCode(ctx context.Context, schoolID int64, code string) (*models.Student, error) {
	return s.queryStudent(ctx, `st.school_id = $1 AND st.student_code = $2`, schoolID, code)
}

// GetStudentByPublicID: поиск по непрозрачному id из ссылки проверки.
func (s *Store) GetStudentByPublicID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	return s.queryStudent(ctx, `st.public_id = $1`, id)
}

type StudentFilter struct {
	SchoolID   int64
	ClassID    *int64
	SectionID  *int64
	IDs        []int64
	OnlyActive bool
}

// ListStudents: выборка в порядке класс/секция/номер; с IDs порядок совпадает с переданным.
func (s *Store) ListStudents(ctx context.Context, f StudentFilter) ([]models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	q := `SELECT ` + studentColumns + studentFrom + ` WHERE st.school_id = $1`
	args := []any{f.SchoolID}
	idx := 2
	if f.ClassID != nil {
		q += fmt.Sprintf(" AND st.class_id = $%d", idx)
		args = append(args, *f.ClassID)
		idx++
	}
	if f.SectionID != nil {
		q += fmt.Sprintf(" AND st.section_id = $%d", idx)
		args = append(args, *f.SectionID)
		idx++
	}
	if f.OnlyActive {
		q += " AND st.status = 'active'"
	}
	if len(f.IDs) > 0 {
		q += fmt.Sprintf(" AND st.id = ANY($%d) ORDER BY array_position($%d, st.id)", idx, idx)
		args = append(args, pq.Array(f.IDs))
	} else {
		q += " ORDER BY c.level, c.name, se.name, st.roll"
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// CreateStudent: приём ученика; возвращает перечитанную строку.
func (s *Store) CreateStudent(ctx context.Context, st models.Student) (*models.Student, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var g models.Guardian
	if st.Guardian != nil {
		g = *st.Guardian
	}
	status := st.Status
	if status == "" {
		status = models.StudentActive
	}
	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO students (school_id, student_code, name_en, name_local, roll, class_id, section_id,
			guardian_name, guardian_relation, guardian_phone, guardian_email, guardian_chat_id,
			photo_url, status, date_of_birth, blood_group)
		VALUES ($1,$2,$3,$4,$5,$6,$7, NULLIF($8,''), NULLIF($9,''), NULLIF($10,''), $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		st.SchoolID, st.StudentID, st.NameEN, st.NameLocal, st.Roll, st.ClassID, st.SectionID,
		g.Name, g.Relation, g.Phone, g.Email, g.ChatID,
		st.PhotoURL, status, st.DateOfBirth, st.BloodGroup,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return s.GetStudent(ctx, id)
}

// SetStudentStatus: единственный способ «удалить» ученика.
func (s *Store) SetStudentStatus(ctx context.Context, id int64, status models.StudentStatus) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	_, err := s.DB.ExecContext(ctx, `UPDATE students SET status = $1 WHERE id = $2`, status, id)
	return err
}
