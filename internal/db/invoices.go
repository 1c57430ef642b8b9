package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/school-office/internal/billing"
	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
	"github.com/lib/pq"
)

// GetInvoice: счёт с пересчитанными Paid/Due/Status.
func (s *Store) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var inv models.Invoice
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, school_id, student_ref, title, total, due_date, created_at
		FROM invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.SchoolID, &inv.StudentRef, &inv.Title, &inv.Total, &inv.DueDate, &inv.CreatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pays, err := s.PaymentsForInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	billing.Apply(&inv, pays)
	return &inv, nil
}

func (s *Store) PaymentsForInvoice(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, invoice_id, amount, method, transaction_id, paid_at
		FROM payments WHERE invoice_id = $1 ORDER BY paid_at`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.TransactionID, &p.PaidAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InvoicesForStudent: счета ученика с суммами оплат (одним запросом).
func (s *Store) InvoicesForStudent(ctx context.Context, studentRef int64) ([]models.Invoice, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT i.id, i.school_id, i.student_ref, i.title, i.total, i.due_date, i.created_at,
		       COALESCE(array_agg(p.amount) FILTER (WHERE p.id IS NOT NULL), '{}')
		FROM invoices i
		LEFT JOIN payments p ON p.invoice_id = i.id
		WHERE i.student_ref = $1
		GROUP BY i.id
		ORDER BY i.created_at`, studentRef)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		var amounts []float64
		if err := rows.Scan(&inv.ID, &inv.SchoolID, &inv.StudentRef, &inv.Title, &inv.Total, &inv.DueDate, &inv.CreatedAt, (*pq.Float64Array)(&amounts)); err != nil {
			return nil, err
		}
		sum := billing.Summarize(inv.Total, amounts)
		inv.Paid, inv.Due, inv.Status = sum.Paid, sum.Due, sum.Status
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) CreateInvoice(ctx context.Context, inv models.Invoice) (*models.Invoice, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	if err := s.DB.QueryRowContext(ctx, `
		INSERT INTO invoices (school_id, student_ref, title, total, due_date)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		inv.SchoolID, inv.StudentRef, inv.Title, inv.Total, inv.DueDate).Scan(&id); err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

// RecordPayment: ручной платёж (касса). Счёт перечитывается после вставки.
func (s *Store) RecordPayment(ctx context.Context, p models.Payment) (*models.Invoice, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return insertPayment(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, p.InvoiceID)
}

func insertPayment(ctx context.Context, tx *sql.Tx, p models.Payment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (invoice_id, amount, method, transaction_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id) DO NOTHING`,
		p.InvoiceID, p.Amount, p.Method, p.TransactionID)
	return err
}
