package db

import (
	"context"
	"time"

	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
)

// UpsertAttendance: одна запись на (ученик, дата), последняя отметка побеждает.
func (s *Store) UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) (*models.AttendanceRecord, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	markedAt := rec.MarkedAt
	if markedAt.IsZero() {
		markedAt = time.Now()
	}
	out := rec
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO attendance (student_ref, date, status, marked_at, marked_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_ref, date) DO UPDATE
		SET status = EXCLUDED.status, marked_at = EXCLUDED.marked_at, marked_by = EXCLUDED.marked_by
		RETURNING id, date, marked_at`,
		rec.StudentRef, dateOnly(rec.Date), rec.Status, markedAt, rec.MarkedBy,
	).Scan(&out.ID, &out.Date, &out.MarkedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AttendanceForDay: все отметки школы за день, новые сверху.
func (s *Store) AttendanceForDay(ctx context.Context, schoolID int64, day time.Time) ([]models.AttendanceRecord, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT a.id, a.student_ref, a.date, a.status, a.marked_at, a.marked_by
		FROM attendance a JOIN students st ON st.id = a.student_ref
		WHERE st.school_id = $1 AND a.date = $2
		ORDER BY a.marked_at DESC`, schoolID, dateOnly(day))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.AttendanceRecord
	for rows.Next() {
		var r models.AttendanceRecord
		if err := rows.Scan(&r.ID, &r.StudentRef, &r.Date, &r.Status, &r.MarkedAt, &r.MarkedBy); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type DayCounts struct {
	Active  int
	Present int
	Late    int
	Absent  int
}

// DayCounts: сводка за день для уведомлений. Не отмеченные считаются отсутствующими.
func (s *Store) DayCounts(ctx context.Context, schoolID int64, day time.Time) (DayCounts, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var c DayCounts
	err := s.DB.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE a.status = 'present'),
		       count(*) FILTER (WHERE a.status = 'late')
		FROM students st
		LEFT JOIN attendance a ON a.student_ref = st.id AND a.date = $2
		WHERE st.school_id = $1 AND st.status = 'active'`, schoolID, dateOnly(day)).
		Scan(&c.Active, &c.Present, &c.Late)
	if err != nil {
		return c, err
	}
	c.Absent = c.Active - c.Present - c.Late
	return c, nil
}

// AttendanceSummary: итог по ученику за период (для табеля).
func (s *Store) AttendanceSummary(ctx context.Context, studentRef int64, from, to time.Time) (models.AttendanceSummary, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var sum models.AttendanceSummary
	err := s.DB.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'present'),
		       count(*) FILTER (WHERE status = 'late'),
		       count(*) FILTER (WHERE status = 'absent')
		FROM attendance
		WHERE student_ref = $1 AND date BETWEEN $2 AND $3`, studentRef, dateOnly(from), dateOnly(to)).
		Scan(&sum.WorkingDays, &sum.Present, &sum.Late, &sum.Absent)
	return sum, err
}

// AttendanceReport: строки табличного отчёта по секции за период.
func (s *Store) AttendanceReport(ctx context.Context, sectionID int64, from, to time.Time) ([]models.AttendanceRow, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT st.student_code, st.name_en, st.roll,
		       count(a.id) FILTER (WHERE a.status = 'present'),
		       count(a.id) FILTER (WHERE a.status = 'late'),
		       count(a.id) FILTER (WHERE a.status = 'absent')
		FROM students st
		LEFT JOIN attendance a ON a.student_ref = st.id AND a.date BETWEEN $2 AND $3
		WHERE st.section_id = $1 AND st.status = 'active'
		GROUP BY st.id
		ORDER BY st.roll`, sectionID, dateOnly(from), dateOnly(to))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.AttendanceRow
	for rows.Next() {
		var r models.AttendanceRow
		if err := rows.Scan(&r.StudentID, &r.Name, &r.Roll, &r.Present, &r.Late, &r.Absent); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
