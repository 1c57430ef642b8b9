package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
	"github.com/lib/pq"
)

// SMSBalance: текущий остаток; школы без строки в sms_credits имеют 0.
func (s *Store) SMSBalance(ctx context.Context, schoolID int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var bal int64
	err := s.DB.QueryRowContext(ctx, `SELECT balance FROM sms_credits WHERE school_id = $1`, schoolID).Scan(&bal)
	if noRows(err) {
		return 0, nil
	}
	return bal, err
}

// RecordSMS пишет лог попытки и, если debit > 0, списывает баланс в той же транзакции.
func (s *Store) RecordSMS(ctx context.Context, l models.SMSLog, debit int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sms_logs (school_id, recipients, message, outcome, provider_code, provider_message, sent_count, cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.SchoolID, pq.Array(l.Recipients), l.Message, l.Outcome, l.ProviderCode, l.ProviderMsg, l.SentCount, l.Cost,
		); err != nil {
			return err
		}
		if debit <= 0 {
			return nil
		}
		// шлюз уже отправил; баланс не уходит ниже нуля даже при гонке двух отправок
		_, err := tx.ExecContext(ctx, `
			UPDATE sms_credits SET balance = GREATEST(balance - $1, 0), updated_at = now()
			WHERE school_id = $2`, debit, l.SchoolID)
		return err
	})
}

// SMSLogs: последние попытки отправки.
func (s *Store) SMSLogs(ctx context.Context, schoolID int64, limit int) ([]models.SMSLog, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, school_id, recipients, message, outcome, provider_code, provider_message, sent_count, cost, created_at
		FROM sms_logs WHERE school_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, schoolID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.SMSLog
	for rows.Next() {
		var l models.SMSLog
		if err := rows.Scan(&l.ID, &l.SchoolID, pq.Array(&l.Recipients), &l.Message, &l.Outcome, &l.ProviderCode, &l.ProviderMsg, &l.SentCount, &l.Cost, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateSMSOrder: заказ пакета SMS; оплачивается через платёжный шлюз.
func (s *Store) CreateSMSOrder(ctx context.Context, o models.SMSOrder) (*models.SMSOrder, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out := o
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO sms_orders (school_id, package, sms_count, amount, payment_status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, payment_status, created_at`,
		o.SchoolID, o.Package, o.SMSCount, o.Amount).Scan(&out.ID, &out.PaymentStatus, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func creditSMS(ctx context.Context, tx *sql.Tx, schoolID, orderID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sms_credits (school_id, balance)
		SELECT $1, sms_count FROM sms_orders WHERE id = $2
		ON CONFLICT (school_id) DO UPDATE
		SET balance = sms_credits.balance + EXCLUDED.balance, updated_at = now()`, schoolID, orderID)
	return err
}
