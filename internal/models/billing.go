package models

import "time"

type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoicePartial InvoiceStatus = "partial"
	InvoiceUnpaid  InvoiceStatus = "unpaid"
)

// Invoice: Paid/Due/Status не хранятся, а пересчитываются из платежей.
type Invoice struct {
	ID         int64         `db:"id"`
	SchoolID   int64         `db:"school_id"`
	StudentRef int64         `db:"student_ref"`
	Title      string        `db:"title"`
	Total      float64       `db:"total"`
	DueDate    *time.Time    `db:"due_date"`
	CreatedAt  time.Time     `db:"created_at"`
	Paid       float64       `db:"-"`
	Due        float64       `db:"-"`
	Status     InvoiceStatus `db:"-"`
}

type Payment struct {
	ID            int64     `db:"id"`
	InvoiceID     int64     `db:"invoice_id"`
	Amount        float64   `db:"amount"`
	Method        string    `db:"method"`
	TransactionID *string   `db:"transaction_id"`
	PaidAt        time.Time `db:"paid_at"`
}

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
	TxCancelled TxStatus = "cancelled"
)

// PaymentTransaction: заказ в платёжном шлюзе. Ровно одно из InvoiceID/SMSOrderID.
type PaymentTransaction struct {
	ID         int64     `db:"id"`
	OrderID    string    `db:"order_id"`
	SchoolID   int64     `db:"school_id"`
	InvoiceID  *int64    `db:"invoice_id"`
	SMSOrderID *int64    `db:"sms_order_id"`
	Amount     float64   `db:"amount"`
	Status     TxStatus  `db:"status"`
	GatewayRef *string   `db:"gateway_ref"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// FeeRow: строка табличного отчёта по оплатам.
type FeeRow struct {
	InvoiceID int64
	Title     string
	Total     float64
	Paid      float64
	Due       float64
	Status    InvoiceStatus
	DueDate   *time.Time
}
