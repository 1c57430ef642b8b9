package mailer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/school-office/internal/models"
)

type fakeSender struct{ sent []Message }

func (f *fakeSender) Send(_ context.Context, m Message) error {
	f.sent = append(f.sent, m)
	return nil
}

type memStore struct {
	inv     *models.Invoice
	student *models.Student
	school  *models.School
}

func (m memStore) GetInvoice(context.Context, int64) (*models.Invoice, error) { return m.inv, nil }
func (m memStore) GetStudent(context.Context, int64) (*models.Student, error) { return m.student, nil }
func (m memStore) GetSchool(context.Context, int64) (*models.School, error)   { return m.school, nil }

func TestReceipt(t *testing.T) {
	email := "parent@example.com"
	invID := int64(7)
	st := memStore{
		inv:     &models.Invoice{ID: 7, StudentRef: 3, Title: "Tuition <March>", Total: 1000, Paid: 1000},
		student: &models.Student{ID: 3, SchoolID: 1, NameEN: "Rahim", Guardian: &models.Guardian{Name: "Karim", Email: &email}},
		school:  &models.School{ID: 1, Name: "Green Valley"},
	}
	tx := models.PaymentTransaction{OrderID: "INV-7-abc", InvoiceID: &invID, Amount: 300, UpdatedAt: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)}

	t.Run("sent", func(t *testing.T) {
		s := &fakeSender{}
		if err := NewReceipts(st, s, "Tk ", time.UTC, nil).PaymentCompleted(context.Background(), tx); err != nil {
			t.Fatalf("receipt: %v", err)
		}
		if len(s.sent) != 1 {
			t.Fatalf("ожидали одно письмо, получили %d", len(s.sent))
		}
		m := s.sent[0]
		if m.To.Address != email || !strings.Contains(m.Subject, "INV-7-abc") {
			t.Fatalf("неожиданное письмо: %+v", m)
		}
		if !strings.Contains(m.HTML, "Tuition &lt;March&gt;") {
			t.Fatalf("html не экранирован: %s", m.HTML)
		}
	})

	t.Run("no email", func(t *testing.T) {
		noMail := st
		noMail.student = &models.Student{ID: 3, Guardian: &models.Guardian{Name: "Karim"}}
		s := &fakeSender{}
		if err := NewReceipts(noMail, s, "Tk ", nil, nil).PaymentCompleted(context.Background(), tx); err != nil {
			t.Fatalf("receipt: %v", err)
		}
		if len(s.sent) != 0 {
			t.Fatal("без адреса письмо не отправляется")
		}
	})

	t.Run("sms order", func(t *testing.T) {
		s := &fakeSender{}
		smsTx := models.PaymentTransaction{OrderID: "SMS-1-x"}
		if err := NewReceipts(st, s, "Tk ", nil, nil).PaymentCompleted(context.Background(), smsTx); err != nil {
			t.Fatalf("receipt: %v", err)
		}
		if len(s.sent) != 0 {
			t.Fatal("для заказа SMS квитанция не нужна")
		}
	})
}
