// Package payment runs hosted checkout for invoices and SMS packages.
// A pending transaction row is written before the customer is redirected;
// the final state is taken only from the gateway's own status API.
package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/metrics"
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/sms"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store: транзакции, счета и заказы SMS; *db.Store.
type Store interface {
	GetInvoice(ctx context.Context, id int64) (*models.Invoice, error)
	CreateSMSOrder(ctx context.Context, o models.SMSOrder) (*models.SMSOrder, error)
	CreatePendingTx(ctx context.Context, t models.PaymentTransaction) (*models.PaymentTransaction, error)
	GetTxByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error)
	FinishTx(ctx context.Context, orderID string, status models.TxStatus, gatewayRef string) (*models.PaymentTransaction, bool, error)
	PendingTxOlderThan(ctx context.Context, age time.Duration, limit int) ([]models.PaymentTransaction, error)
}

// Notifier: что сделать после успешной оплаты (квитанция на почту).
type Notifier interface {
	PaymentCompleted(ctx context.Context, tx models.PaymentTransaction) error
}

type Checkout struct {
	OrderID     string  `json:"order_id"`
	Amount      float64 `json:"amount"`
	Token       string  `json:"token"`
	RedirectURL string  `json:"redirect_url"`
}

type Service struct {
	gw        Gateway
	store     Store
	serverKey string
	notifier  Notifier
	log       *zap.Logger
}

func NewService(gw Gateway, store Store, serverKey string, notifier Notifier, log *zap.Logger) *Service {
	return &Service{gw: gw, store: store, serverKey: serverKey, notifier: notifier, log: logging.OrNop(log)}
}

func newOrderID(prefix string, id int64) string {
	return fmt.Sprintf("%s-%d-%s", prefix, id, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// CheckoutInvoice: оплата остатка по счёту.
func (s *Service) CheckoutInvoice(ctx context.Context, invoiceID int64, c Customer) (*Checkout, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperr.NotFound("invoice")
	}
	if inv.Due <= 0 {
		return nil, apperr.Validation("invoice is already paid", apperr.FieldError{Field: "invoice_id", Error: "paid"})
	}
	tx := models.PaymentTransaction{
		OrderID:   newOrderID("INV", inv.ID),
		SchoolID:  inv.SchoolID,
		InvoiceID: &inv.ID,
		Amount:    inv.Due,
	}
	return s.start(ctx, tx, inv.Title, c)
}

// CheckoutSMS: покупка пакета SMS; баланс пополняется при завершении оплаты.
func (s *Service) CheckoutSMS(ctx context.Context, schoolID int64, packageCode string, c Customer) (*Checkout, error) {
	pkg, ok := sms.FindPackage(packageCode)
	if !ok {
		return nil, apperr.Validation("unknown SMS package", apperr.FieldError{Field: "package", Error: packageCode})
	}
	order, err := s.store.CreateSMSOrder(ctx, models.SMSOrder{
		SchoolID: schoolID, Package: pkg.Code, SMSCount: pkg.Count, Amount: pkg.Price,
	})
	if err != nil {
		return nil, err
	}
	tx := models.PaymentTransaction{
		OrderID:    newOrderID("SMS", order.ID),
		SchoolID:   schoolID,
		SMSOrderID: &order.ID,
		Amount:     pkg.Price,
	}
	return s.start(ctx, tx, fmt.Sprintf("SMS package %s (%d)", pkg.Code, pkg.Count), c)
}

// start: сначала pending-строка, потом шлюз. Сбой шлюза закрывает заказ как failed.
func (s *Service) start(ctx context.Context, tx models.PaymentTransaction, item string, c Customer) (*Checkout, error) {
	if _, err := s.store.CreatePendingTx(ctx, tx); err != nil {
		return nil, err
	}
	token, url, err := s.gw.CreateSnap(ctx, SnapRequest{OrderID: tx.OrderID, Amount: tx.Amount, ItemName: item, Customer: c})
	if err != nil {
		if _, _, ferr := s.store.FinishTx(ctx, tx.OrderID, models.TxFailed, ""); ferr != nil {
			s.log.Error("mark failed checkout", zap.String("order_id", tx.OrderID), zap.Error(ferr))
		}
		metrics.Payments.WithLabelValues(string(models.TxFailed)).Inc()
		return nil, err
	}
	s.log.Info("checkout started", zap.String("order_id", tx.OrderID), zap.Float64("amount", tx.Amount))
	return &Checkout{OrderID: tx.OrderID, Amount: tx.Amount, Token: token, RedirectURL: url}, nil
}

// Reconcile: из запроса берём только order id; статус и сумму спрашиваем у шлюза.
// Повторный вызов для завершённого заказа ничего не меняет.
func (s *Service) Reconcile(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.Validation("order id is required", apperr.FieldError{Field: "order_id", Error: "empty"})
	}
	tx, err := s.store.GetTxByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, apperr.NotFound("payment")
	}
	if tx.Status != models.TxPending {
		return tx, nil
	}

	st, err := s.gw.Status(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if st.OrderID != orderID {
		return nil, apperr.External("midtrans", "order", "status is for another order", nil)
	}
	if !VerifySignature(st, s.serverKey) {
		return nil, apperr.External("midtrans", "signature", "invalid signature", nil)
	}
	if gross, err := strconv.ParseFloat(st.GrossAmount, 64); err != nil || math.Abs(gross-math.Round(tx.Amount)) > 0.5 {
		return nil, apperr.External("midtrans", "amount", "gross amount does not match order", nil)
	}

	status := MapStatus(st.TransactionStatus, st.FraudStatus)
	if status == models.TxPending {
		return tx, nil
	}
	out, changed, err := s.store.FinishTx(ctx, orderID, status, st.TransactionID)
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.Payments.WithLabelValues(string(status)).Inc()
		s.log.Info("payment reconciled",
			zap.String("order_id", orderID),
			zap.String("status", string(status)),
			zap.String("gateway_status", st.TransactionStatus))
		if status == models.TxCompleted && s.notifier != nil {
			if err := s.notifier.PaymentCompleted(ctx, *out); err != nil {
				s.log.Warn("payment notification failed", zap.String("order_id", orderID), zap.Error(err))
			}
		}
	}
	return out, nil
}

// ReconcilePending: фоновая сверка заказов, по которым не пришёл callback.
// Ошибка по одному заказу не останавливает остальные.
func (s *Service) ReconcilePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	pending, err := s.store.PendingTxOlderThan(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		out, err := s.Reconcile(ctx, t.OrderID)
		if err != nil {
			s.log.Warn("reconcile pending", zap.String("order_id", t.OrderID), zap.Error(err))
			continue
		}
		if out.Status != models.TxPending {
			done++
		}
	}
	return done, nil
}

// VerifySignature: SHA-512(order_id + status_code + gross_amount + server_key).
func VerifySignature(st GatewayStatus, serverKey string) bool {
	if st.SignatureKey == "" || serverKey == "" {
		return false
	}
	sum := sha512.Sum512([]byte(st.OrderID + st.StatusCode + st.GrossAmount + serverKey))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(st.SignatureKey))) == 1
}

// MapStatus: статусы Midtrans в наши. capture с fraud challenge ждёт решения.
func MapStatus(transactionStatus, fraudStatus string) models.TxStatus {
	switch strings.ToLower(transactionStatus) {
	case "settlement":
		return models.TxCompleted
	case "capture":
		if strings.EqualFold(fraudStatus, "challenge") {
			return models.TxPending
		}
		if strings.EqualFold(fraudStatus, "deny") {
			return models.TxFailed
		}
		return models.TxCompleted
	case "deny", "expire", "failure":
		return models.TxFailed
	case "cancel":
		return models.TxCancelled
	}
	return models.TxPending
}
