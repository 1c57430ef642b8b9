package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
)

const txColumns = `id, order_id, school_id, invoice_id, sms_order_id, amount, status, gateway_ref, created_at, updated_at`

func scanTx(r rowScanner) (models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := r.Scan(&t.ID, &t.OrderID, &t.SchoolID, &t.InvoiceID, &t.SMSOrderID, &t.Amount, &t.Status, &t.GatewayRef, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreatePendingTx: запись о заказе создаётся до редиректа в шлюз.
func (s *Store) CreatePendingTx(ctx context.Context, t models.PaymentTransaction) (*models.PaymentTransaction, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := scanTx(s.DB.QueryRowContext(ctx, `
		INSERT INTO payment_transactions (order_id, school_id, invoice_id, sms_order_id, amount, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING `+txColumns,
		t.OrderID, t.SchoolID, t.InvoiceID, t.SMSOrderID, t.Amount))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) GetTxByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	t, err := scanTx(s.DB.QueryRowContext(ctx, `SELECT `+txColumns+` FROM payment_transactions WHERE order_id = $1`, orderID))
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// PendingTxOlderThan: незавершённые заказы для фоновой сверки.
func (s *Store) PendingTxOlderThan(ctx context.Context, age time.Duration, limit int) ([]models.PaymentTransaction, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+txColumns+` FROM payment_transactions
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at LIMIT $2`, time.Now().Add(-age), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.PaymentTransaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FinishTx переводит pending-заказ в конечный статус. Повторный вызов для уже
// завершённого заказа ничего не меняет (changed=false).
// completed: платёж по счёту или пополнение SMS-баланса в той же транзакции.
func (s *Store) FinishTx(ctx context.Context, orderID string, status models.TxStatus, gatewayRef string) (*models.PaymentTransaction, bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out models.PaymentTransaction
	changed := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := scanTx(tx.QueryRowContext(ctx, `SELECT `+txColumns+` FROM payment_transactions WHERE order_id = $1 FOR UPDATE`, orderID))
		if noRows(err) {
			return apperr.NotFound("payment transaction")
		}
		if err != nil {
			return err
		}
		out = t
		if t.Status != models.TxPending || status == models.TxPending {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE payment_transactions SET status = $1, gateway_ref = NULLIF($2, ''), updated_at = now()
			WHERE id = $3`, status, gatewayRef, t.ID); err != nil {
			return err
		}
		out.Status = status
		if gatewayRef != "" {
			out.GatewayRef = &gatewayRef
		}
		changed = true

		switch {
		case t.InvoiceID != nil && status == models.TxCompleted:
			ref := t.OrderID
			return insertPayment(ctx, tx, models.Payment{InvoiceID: *t.InvoiceID, Amount: t.Amount, Method: "online", TransactionID: &ref})
		case t.SMSOrderID != nil:
			if _, err := tx.ExecContext(ctx, `UPDATE sms_orders SET payment_status = $1 WHERE id = $2`, status, *t.SMSOrderID); err != nil {
				return err
			}
			if status == models.TxCompleted {
				return creditSMS(ctx, tx, t.SchoolID, *t.SMSOrderID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, changed, nil
}
