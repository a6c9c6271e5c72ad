package billing

import (
	"time"

	"trohub/app/internal/models"
)

// DeriveInvoiceStatus is the only source of an invoice's status.
// Paid wins over overdue, and overdue wins over partially paid and unpaid.
func DeriveInvoiceStatus(total, paid int64, due, now time.Time) models.InvoiceStatus {
	remaining := total - paid
	switch {
	case remaining <= 0:
		return models.InvoicePaid
	case !due.IsZero() && due.Before(now):
		return models.InvoiceOverdue
	case paid > 0:
		return models.InvoicePartiallyPaid
	default:
		return models.InvoiceUnpaid
	}
}

// Settlement is the balance part of an invoice.
type Settlement struct {
	Total     int64
	Paid      int64
	Remaining int64
	Status    models.InvoiceStatus
	DueDate   time.Time
}

// SettlementOf reads the balance fields of an invoice.
func SettlementOf(inv *models.Invoice) Settlement {
	return Settlement{
		Total:     inv.Total,
		Paid:      inv.Paid,
		Remaining: inv.Remaining,
		Status:    inv.Status,
		DueDate:   inv.DueDate,
	}
}

// Settle recomputes Remaining and Status from Total, Paid and DueDate.
func Settle(s *Settlement, now time.Time) {
	s.Remaining = s.Total - s.Paid
	s.Status = DeriveInvoiceStatus(s.Total, s.Paid, s.DueDate, now)
}

// ApplyTo writes the settlement back onto an invoice.
func (s Settlement) ApplyTo(inv *models.Invoice) {
	inv.Total = s.Total
	inv.Paid = s.Paid
	inv.Remaining = s.Remaining
	inv.Status = s.Status
	inv.DueDate = s.DueDate
}

// SettleInvoice re-derives the invoice's remaining balance and status in place.
func SettleInvoice(inv *models.Invoice, now time.Time) {
	s := SettlementOf(inv)
	Settle(&s, now)
	s.ApplyTo(inv)
}
