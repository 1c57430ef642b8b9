// Package mailer sends payment receipts by email.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"time"

	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/render"
	"go.uber.org/zap"
)

type Store interface {
	GetInvoice(ctx context.Context, id int64) (*models.Invoice, error)
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	GetSchool(ctx context.Context, id int64) (*models.School, error)
}

// Receipts: квитанция опекуну после онлайн-оплаты счёта.
type Receipts struct {
	store    Store
	sender   Sender
	currency string
	loc      *time.Location
	log      *zap.Logger
}

func NewReceipts(store Store, sender Sender, currency string, loc *time.Location, log *zap.Logger) *Receipts {
	if loc == nil {
		loc = time.UTC
	}
	return &Receipts{store: store, sender: sender, currency: currency, loc: loc, log: logging.OrNop(log)}
}

var receiptHTML = template.Must(template.New("receipt").Parse(`<p>Dear {{.Guardian}},</p>
<p>We received {{.Amount}} for <b>{{.Title}}</b> ({{.Student}}).</p>
<table>
<tr><td>Order</td><td>{{.OrderID}}</td></tr>
<tr><td>Date</td><td>{{.Date}}</td></tr>
<tr><td>Paid in total</td><td>{{.Paid}}</td></tr>
<tr><td>Remaining</td><td>{{.Due}}</td></tr>
</table>
<p>{{.School}}</p>`))

type receiptView struct {
	Guardian, Student, School, Title, OrderID, Date, Amount, Paid, Due string
}

// PaymentCompleted вызывается после перевода заказа в completed.
// Заказы SMS и ученики без почты опекуна пропускаются.
func (r *Receipts) PaymentCompleted(ctx context.Context, tx models.PaymentTransaction) error {
	if tx.InvoiceID == nil {
		return nil
	}
	inv, err := r.store.GetInvoice(ctx, *tx.InvoiceID)
	if err != nil || inv == nil {
		return err
	}
	st, err := r.store.GetStudent(ctx, inv.StudentRef)
	if err != nil || st == nil {
		return err
	}
	if st.Guardian == nil || st.Guardian.Email == nil || *st.Guardian.Email == "" {
		r.log.Debug("receipt skipped: no guardian email", zap.Int64("student", st.ID))
		return nil
	}
	school, err := r.store.GetSchool(ctx, st.SchoolID)
	if err != nil || school == nil {
		return err
	}

	currency := r.currency
	if school.CurrencySymbol != "" {
		currency = school.CurrencySymbol
	}
	v := receiptView{
		Guardian: st.Guardian.Name,
		Student:  st.NameEN,
		School:   school.Name,
		Title:    inv.Title,
		OrderID:  tx.OrderID,
		Date:     render.Date(tx.UpdatedAt.In(r.loc)),
		Amount:   render.Money(tx.Amount, currency),
		Paid:     render.Money(inv.Paid, currency),
		Due:      render.Money(inv.Due, currency),
	}
	var html bytes.Buffer
	if err := receiptHTML.Execute(&html, v); err != nil {
		return err
	}
	msg := Message{
		To:      mail.Address{Name: st.Guardian.Name, Address: *st.Guardian.Email},
		Subject: fmt.Sprintf("[%s] Payment receipt %s", school.Name, tx.OrderID),
		Text: fmt.Sprintf("We received %s for %s (%s). Order %s. Remaining: %s.",
			v.Amount, v.Title, v.Student, v.OrderID, v.Due),
		HTML: html.String(),
	}
	if err := r.sender.Send(ctx, msg); err != nil {
		return err
	}
	r.log.Info("receipt sent", zap.String("order_id", tx.OrderID), zap.Int64("invoice", inv.ID))
	return nil
}
