// Package billing derives invoice status from the payments recorded against it.
package billing

import (
	"math"

	"github.com/Spok95/school-office/internal/models"
)

type Summary struct {
	Paid   float64
	Due    float64
	Status models.InvoiceStatus
}

// Summarize пересчитывает оплату по счёту. Статус никогда не хранится отдельно от суммы платежей.
func Summarize(total float64, payments []float64) Summary {
	var paid float64
	for _, p := range payments {
		paid += p
	}
	paid = round2(paid)
	s := Summary{Paid: paid, Due: round2(math.Max(total-paid, 0))}
	switch {
	case paid >= total:
		s.Status = models.InvoicePaid
		s.Due = 0
	case paid > 0:
		s.Status = models.InvoicePartial
	default:
		s.Status = models.InvoiceUnpaid
	}
	return s
}

// Apply заполняет вычисляемые поля счёта.
func Apply(inv *models.Invoice, payments []models.Payment) {
	amounts := make([]float64, 0, len(payments))
	for _, p := range payments {
		amounts = append(amounts, p.Amount)
	}
	s := Summarize(inv.Total, amounts)
	inv.Paid, inv.Due, inv.Status = s.Paid, s.Due, s.Status
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
