package payment

import (
	"context"
	"math"
	"strconv"

	"github.com/Spok95/school-office/internal/apperr"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// GatewayStatus: авторитетный статус заказа со стороны шлюза.
type GatewayStatus struct {
	OrderID           string
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
	StatusCode        string
	GrossAmount       string
	SignatureKey      string
}

type Customer struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

type SnapRequest struct {
	OrderID  string
	Amount   float64
	ItemName string
	Customer Customer
}

type Gateway interface {
	CreateSnap(ctx context.Context, req SnapRequest) (token, redirectURL string, err error)
	Status(ctx context.Context, orderID string) (GatewayStatus, error)
}

// Midtrans: Snap для оплаты и Core API для сверки. SDK не принимает ctx.
type Midtrans struct {
	snap snap.Client
	core coreapi.Client
}

func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m
}

func (m *Midtrans) CreateSnap(_ context.Context, r SnapRequest) (string, string, error) {
	gross := int64(math.Round(r.Amount))
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{OrderID: r.OrderID, GrossAmt: gross},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: r.Customer.Name,
			Email: r.Customer.Email,
			Phone: r.Customer.Phone,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    r.OrderID,
			Name:  truncate(r.ItemName, 50),
			Price: gross,
			Qty:   1,
		}},
	}
	resp, mErr := m.snap.CreateTransaction(req)
	if mErr != nil {
		return "", "", apperr.External("midtrans", codeOf(mErr), mErr.Message, mErr.RawError)
	}
	return resp.Token, resp.RedirectURL, nil
}

func (m *Midtrans) Status(_ context.Context, orderID string) (GatewayStatus, error) {
	resp, mErr := m.core.CheckTransaction(orderID)
	if mErr != nil {
		return GatewayStatus{}, apperr.External("midtrans", codeOf(mErr), mErr.Message, mErr.RawError)
	}
	return GatewayStatus{
		OrderID:           resp.OrderID,
		TransactionID:     resp.TransactionID,
		TransactionStatus: resp.TransactionStatus,
		FraudStatus:       resp.FraudStatus,
		StatusCode:        resp.StatusCode,
		GrossAmount:       resp.GrossAmount,
		SignatureKey:      resp.SignatureKey,
	}, nil
}

func codeOf(e *midtrans.Error) string {
	if e == nil || e.StatusCode == 0 {
		return ""
	}
	return strconv.Itoa(e.StatusCode)
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
