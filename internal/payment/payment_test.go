package payment

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/models"
)

const testKey = "SB-Mid-server-test"

func sign(orderID, code, gross string) string {
	sum := sha512.Sum512([]byte(orderID + code + gross + testKey))
	return hex.EncodeToString(sum[:])
}

type fakeGateway struct {
	snapErr  error
	statuses map[string]GatewayStatus
	calls    int
}

func (g *fakeGateway) CreateSnap(_ context.Context, r SnapRequest) (string, string, error) {
	if g.snapErr != nil {
		return "", "", g.snapErr
	}
	return "tok-" + r.OrderID, "https://pay.example/" + r.OrderID, nil
}

func (g *fakeGateway) Status(_ context.Context, orderID string) (GatewayStatus, error) {
	g.calls++
	st, ok := g.statuses[orderID]
	if !ok {
		return GatewayStatus{}, apperr.External("midtrans", "404", "not found", nil)
	}
	return st, nil
}

type memStore struct {
	invoices map[int64]*models.Invoice
	txs      map[string]*models.PaymentTransaction
	orders   []models.SMSOrder
	payments int
	credited int64
}

func newMemStore() *memStore {
	return &memStore{invoices: map[int64]*models.Invoice{}, txs: map[string]*models.PaymentTransaction{}}
}

func (m *memStore) GetInvoice(_ context.Context, id int64) (*models.Invoice, error) {
	return m.invoices[id], nil
}

func (m *memStore) CreateSMSOrder(_ context.Context, o models.SMSOrder) (*models.SMSOrder, error) {
	o.ID = int64(len(m.orders) + 1)
	o.PaymentStatus = models.TxPending
	m.orders = append(m.orders, o)
	return &o, nil
}

func (m *memStore) CreatePendingTx(_ context.Context, t models.PaymentTransaction) (*models.PaymentTransaction, error) {
	t.Status = models.TxPending
	t.CreatedAt = time.Now()
	m.txs[t.OrderID] = &t
	return &t, nil
}

func (m *memStore) GetTxByOrderID(_ context.Context, orderID string) (*models.PaymentTransaction, error) {
	t, ok := m.txs[orderID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) FinishTx(_ context.Context, orderID string, status models.TxStatus, _ string) (*models.PaymentTransaction, bool, error) {
	t, ok := m.txs[orderID]
	if !ok {
		return nil, false, apperr.NotFound("payment transaction")
	}
	if t.Status != models.TxPending || status == models.TxPending {
		cp := *t
		return &cp, false, nil
	}
	t.Status = status
	if status == models.TxCompleted {
		if t.InvoiceID != nil {
			m.payments++
		}
		if t.SMSOrderID != nil {
			m.credited += m.orders[*t.SMSOrderID-1].SMSCount
		}
	}
	cp := *t
	return &cp, true, nil
}

func (m *memStore) PendingTxOlderThan(_ context.Context, _ time.Duration, _ int) ([]models.PaymentTransaction, error) {
	var out []models.PaymentTransaction
	for _, t := range m.txs {
		if t.Status == models.TxPending {
			out = append(out, *t)
		}
	}
	return out, nil
}

type countNotifier struct{ n int }

func (c *countNotifier) PaymentCompleted(context.Context, models.PaymentTransaction) error {
	c.n++
	return nil
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		status, fraud string
		want          models.TxStatus
	}{
		{"settlement", "", models.TxCompleted},
		{"capture", "accept", models.TxCompleted},
		{"capture", "challenge", models.TxPending},
		{"pending", "", models.TxPending},
		{"deny", "", models.TxFailed},
		{"expire", "", models.TxFailed},
		{"failure", "", models.TxFailed},
		{"cancel", "", models.TxCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.status+"/"+tc.fraud, func(t *testing.T) {
			if got := MapStatus(tc.status, tc.fraud); got != tc.want {
				t.Fatalf("ожидали %s, получили %s", tc.want, got)
			}
		})
	}
}

func TestVerifySignature(t *testing.T) {
	st := GatewayStatus{OrderID: "INV-1-abc", StatusCode: "200", GrossAmount: "300.00"}
	st.SignatureKey = sign(st.OrderID, st.StatusCode, st.GrossAmount)
	if !VerifySignature(st, testKey) {
		t.Fatal("верная подпись отклонена")
	}
	st.GrossAmount = "1.00"
	if VerifySignature(st, testKey) {
		t.Fatal("подпись с изменённой суммой принята")
	}
	if VerifySignature(GatewayStatus{OrderID: "x"}, testKey) {
		t.Fatal("пустая подпись принята")
	}
}

func checkoutInvoice(t *testing.T, st *memStore, gw *fakeGateway) *Checkout {
	t.Helper()
	st.invoices[7] = &models.Invoice{ID: 7, SchoolID: 1, Title: "Tuition", Total: 1000, Paid: 700, Due: 300}
	svc := NewService(gw, st, testKey, nil, nil)
	co, err := svc.CheckoutInvoice(context.Background(), 7, Customer{Name: "Guardian"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return co
}

func TestCheckoutInvoice(t *testing.T) {
	st := newMemStore()
	co := checkoutInvoice(t, st, &fakeGateway{})
	if !strings.HasPrefix(co.OrderID, "INV-7-") || co.Amount != 300 {
		t.Fatalf("неожиданный заказ: %+v", co)
	}
	tx := st.txs[co.OrderID]
	if tx == nil || tx.Status != models.TxPending {
		t.Fatalf("pending-запись не создана: %+v", tx)
	}
	if !strings.HasSuffix(co.RedirectURL, co.OrderID) {
		t.Fatalf("redirect url: %s", co.RedirectURL)
	}
}

func TestCheckoutGatewayFailureMarksFailed(t *testing.T) {
	st := newMemStore()
	st.invoices[7] = &models.Invoice{ID: 7, SchoolID: 1, Total: 100, Due: 100}
	svc := NewService(&fakeGateway{snapErr: errors.New("down")}, st, testKey, nil, nil)
	if _, err := svc.CheckoutInvoice(context.Background(), 7, Customer{Name: "G"}); err == nil {
		t.Fatal("ожидали ошибку шлюза")
	}
	for _, tx := range st.txs {
		if tx.Status != models.TxFailed {
			t.Fatalf("заказ должен стать failed, а он %s", tx.Status)
		}
	}
}

func TestCheckoutPaidInvoice(t *testing.T) {
	st := newMemStore()
	st.invoices[7] = &models.Invoice{ID: 7, Total: 100, Paid: 100}
	svc := NewService(&fakeGateway{}, st, testKey, nil, nil)
	_, err := svc.CheckoutInvoice(context.Background(), 7, Customer{Name: "G"})
	if _, ok := apperr.AsValidation(err); !ok {
		t.Fatalf("ожидали ValidationError, получили %v", err)
	}
	if _, err := svc.CheckoutInvoice(context.Background(), 99, Customer{Name: "G"}); !apperr.IsNotFound(err) {
		t.Fatalf("ожидали NotFound, получили %v", err)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	st := newMemStore()
	gw := &fakeGateway{statuses: map[string]GatewayStatus{}}
	co := checkoutInvoice(t, st, gw)
	gw.statuses[co.OrderID] = GatewayStatus{
		OrderID: co.OrderID, TransactionID: "mt-1", TransactionStatus: "settlement",
		StatusCode: "200", GrossAmount: "300.00",
		SignatureKey: sign(co.OrderID, "200", "300.00"),
	}
	n := &countNotifier{}
	svc := NewService(gw, st, testKey, n, nil)

	for i := 0; i < 3; i++ {
		tx, err := svc.Reconcile(context.Background(), co.OrderID)
		if err != nil {
			t.Fatalf("reconcile #%d: %v", i, err)
		}
		if tx.Status != models.TxCompleted {
			t.Fatalf("ожидали completed, получили %s", tx.Status)
		}
	}
	if st.payments != 1 {
		t.Fatalf("платёж должен записаться один раз, записано %d", st.payments)
	}
	if n.n != 1 {
		t.Fatalf("уведомление должно уйти один раз, ушло %d", n.n)
	}
	if gw.calls != 1 {
		t.Fatalf("завершённый заказ не должен опрашивать шлюз, вызовов %d", gw.calls)
	}
}

func TestReconcileRejectsForgedStatus(t *testing.T) {
	cases := map[string]func(co *Checkout) GatewayStatus{
		"bad signature": func(co *Checkout) GatewayStatus {
			return GatewayStatus{OrderID: co.OrderID, TransactionStatus: "settlement", StatusCode: "200", GrossAmount: "300.00", SignatureKey: "deadbeef"}
		},
		"other order": func(co *Checkout) GatewayStatus {
			return GatewayStatus{OrderID: "INV-8-x", TransactionStatus: "settlement", StatusCode: "200", GrossAmount: "300.00", SignatureKey: sign("INV-8-x", "200", "300.00")}
		},
		"amount mismatch": func(co *Checkout) GatewayStatus {
			return GatewayStatus{OrderID: co.OrderID, TransactionStatus: "settlement", StatusCode: "200", GrossAmount: "1.00", SignatureKey: sign(co.OrderID, "200", "1.00")}
		},
	}
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			st := newMemStore()
			gw := &fakeGateway{statuses: map[string]GatewayStatus{}}
			co := checkoutInvoice(t, st, gw)
			gw.statuses[co.OrderID] = mk(co)
			svc := NewService(gw, st, testKey, nil, nil)
			if _, err := svc.Reconcile(context.Background(), co.OrderID); err == nil {
				t.Fatal("ожидали ошибку")
			}
			if st.txs[co.OrderID].Status != models.TxPending || st.payments != 0 {
				t.Fatal("заказ не должен меняться")
			}
		})
	}
}

func TestReconcileUnknownOrder(t *testing.T) {
	svc := NewService(&fakeGateway{}, newMemStore(), testKey, nil, nil)
	if _, err := svc.Reconcile(context.Background(), "nope"); !apperr.IsNotFound(err) {
		t.Fatalf("ожидали NotFound, получили %v", err)
	}
}

func TestSMSOrderCreditsOnCompletion(t *testing.T) {
	st := newMemStore()
	gw := &fakeGateway{statuses: map[string]GatewayStatus{}}
	svc := NewService(gw, st, testKey, nil, nil)

	if _, err := svc.CheckoutSMS(context.Background(), 1, "gold", Customer{Name: "A"}); err == nil {
		t.Fatal("неизвестный пакет должен отклоняться")
	}
	co, err := svc.CheckoutSMS(context.Background(), 1, "starter", Customer{Name: "A"})
	if err != nil {
		t.Fatalf("checkout sms: %v", err)
	}
	gw.statuses[co.OrderID] = GatewayStatus{
		OrderID: co.OrderID, TransactionStatus: "settlement", StatusCode: "200", GrossAmount: "200.00",
		SignatureKey: sign(co.OrderID, "200", "200.00"),
	}
	n, err := svc.ReconcilePending(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("reconcile pending: %v", err)
	}
	if n != 1 || st.credited != 500 {
		t.Fatalf("ожидали 1 заказ и 500 SMS, получили %d и %d", n, st.credited)
	}
}
