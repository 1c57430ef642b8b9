package db

import (
	"context"
	"encoding/json"

	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
	"github.com/google/uuid"
)

func (s *Store) GetCertificate(ctx context.Context, id uuid.UUID) (*models.Certificate, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var c models.Certificate
	var details []byte
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, school_id, type, certificate_no, issue_date, student_ref, details, issued_by, created_at
		FROM certificates WHERE id = $1`, id).
		Scan(&c.ID, &c.SchoolID, &c.Type, &c.CertificateNo, &c.IssueDate, &c.StudentRef, &details, &c.IssuedBy, &c.CreatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Details = json.RawMessage(details)
	return &c, nil
}

// IssueCertificate: всегда новая строка; выданный сертификат не редактируется.
func (s *Store) IssueCertificate(ctx context.Context, c models.Certificate) (*models.Certificate, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	details := []byte(c.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}
	var id uuid.UUID
	if err := s.DB.QueryRowContext(ctx, `
		INSERT INTO certificates (school_id, type, certificate_no, issue_date, student_ref, details, issued_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		c.SchoolID, c.Type, c.CertificateNo, dateOnly(c.IssueDate), c.StudentRef, string(details), c.IssuedBy,
	).Scan(&id); err != nil {
		return nil, err
	}
	return s.GetCertificate(ctx, id)
}

// CertificatesForStudent: история выдачи, новые сверху.
func (s *Store) CertificatesForStudent(ctx context.Context, studentRef int64) ([]models.Certificate, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, school_id, type, certificate_no, issue_date, student_ref, details, issued_by, created_at
		FROM certificates WHERE student_ref = $1 ORDER BY created_at DESC`, studentRef)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Certificate
	for rows.Next() {
		var c models.Certificate
		var details []byte
		if err := rows.Scan(&c.ID, &c.SchoolID, &c.Type, &c.CertificateNo, &c.IssueDate, &c.StudentRef, &details, &c.IssuedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Details = json.RawMessage(details)
		out = append(out, c)
	}
	return out, rows.Err()
}
