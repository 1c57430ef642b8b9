package models

import "time"

type SMSOutcome string

const (
	SMSSent     SMSOutcome = "sent"
	SMSFailed   SMSOutcome = "failed"   // шлюз ответил не кодом успеха
	SMSError    SMSOutcome = "error"    // шлюз не ответил
	SMSRejected SMSOutcome = "rejected" // не хватило баланса, шлюз не вызывался
)

type SMSPackage struct {
	Code  string
	Count int64
	Price float64
}

type SMSOrder struct {
	ID            int64     `db:"id"`
	SchoolID      int64     `db:"school_id"`
	Package       string    `db:"package"`
	SMSCount      int64     `db:"sms_count"`
	Amount        float64   `db:"amount"`
	PaymentStatus TxStatus  `db:"payment_status"`
	CreatedAt     time.Time `db:"created_at"`
}

type SMSLog struct {
	ID           int64      `db:"id"`
	SchoolID     int64      `db:"school_id"`
	Recipients   []string   `db:"recipients"`
	Message      string     `db:"message"`
	Outcome      SMSOutcome `db:"outcome"`
	ProviderCode string     `db:"provider_code"`
	ProviderMsg  string     `db:"provider_message"`
	SentCount    int64      `db:"sent_count"`
	Cost         float64    `db:"cost"`
	CreatedAt    time.Time  `db:"created_at"`
}
