package db

import (
	"context"

	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
)

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var u models.User
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, school_id, name, email, role, is_active FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.SchoolID, &u.Name, &u.Email, &u.Role, &u.IsActive)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AssignmentsForTeacher: назначения учителя (класс/секция/предмет).
func (s *Store) AssignmentsForTeacher(ctx context.Context, teacherID int64) ([]models.TeacherAssignment, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, teacher_id, class_id, section_id, subject_id
		FROM teacher_assignments WHERE teacher_id = $1
		ORDER BY class_id, section_id`, teacherID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.TeacherAssignment
	for rows.Next() {
		var a models.TeacherAssignment
		if err := rows.Scan(&a.ID, &a.TeacherID, &a.ClassID, &a.SectionID, &a.SubjectID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListSubjects: предметы класса; класс другой школы даёт пустой список.
func (s *Store) ListSubjects(ctx context.Context, schoolID, classID int64) ([]models.Subject, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT sb.id, sb.class_id, sb.name, sb.code
		FROM subjects sb JOIN classes c ON c.id = sb.class_id
		WHERE c.school_id = $1 AND sb.class_id = $2
		ORDER BY sb.name`, schoolID, classID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Subject
	for rows.Next() {
		var sb models.Subject
		if err := rows.Scan(&sb.ID, &sb.ClassID, &sb.Name, &sb.Code); err != nil {
			return nil, err
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}

// GetSection: секция с именем класса (для заголовков отчётов). Школу проверяет вызывающий.
func (s *Store) GetSection(ctx context.Context, sectionID int64) (*models.Section, string, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var sec models.Section
	var className string
	err := s.DB.QueryRowContext(ctx, `
		SELECT se.id, c.school_id, se.class_id, se.name, c.name
		FROM sections se JOIN classes c ON c.id = se.class_id
		WHERE se.id = $1`, sectionID).Scan(&sec.ID, &sec.SchoolID, &sec.ClassID, &sec.Name, &className)
	if noRows(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &sec, className, nil
}
