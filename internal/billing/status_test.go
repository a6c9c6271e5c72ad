package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"trohub/app/internal/models"
)

func TestDeriveInvoiceStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -5)
	future := now.AddDate(0, 0, 5)

	cases := []struct {
		name  string
		total int64
		paid  int64
		due   time.Time
		want  models.InvoiceStatus
	}{
		{"unpaid before due", 2_400_000, 0, future, models.InvoiceUnpaid},
		{"partially paid before due", 2_400_000, 400_000, future, models.InvoicePartiallyPaid},
		{"paid before due", 2_400_000, 2_400_000, future, models.InvoicePaid},
		{"unpaid past due is overdue", 2_400_000, 0, past, models.InvoiceOverdue},
		{"partially paid past due is overdue", 2_400_000, 1, past, models.InvoiceOverdue},
		{"paid past due stays paid", 2_400_000, 2_400_000, past, models.InvoicePaid},
		{"overpaid is paid", 100, 150, past, models.InvoicePaid},
		{"zero total is paid", 0, 0, past, models.InvoicePaid},
		{"due exactly now is not overdue", 100, 0, now, models.InvoiceUnpaid},
		{"no due date never overdue", 100, 0, time.Time{}, models.InvoiceUnpaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveInvoiceStatus(tc.total, tc.paid, tc.due, now)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, DeriveInvoiceStatus(tc.total, tc.paid, tc.due, now), "derivation is idempotent")
		})
	}
}

func TestSettleInvoice(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	overdue := &models.Invoice{Total: 2_400_000, DueDate: now.AddDate(0, 0, -1), Status: models.InvoiceUnpaid}
	SettleInvoice(overdue, now)
	assert.Equal(t, models.InvoiceOverdue, overdue.Status)
	assert.Equal(t, int64(2_400_000), overdue.Remaining)

	paid := &models.Invoice{Total: 2_400_000, Paid: 2_400_000, DueDate: now.AddDate(0, 0, -1)}
	SettleInvoice(paid, now)
	assert.Equal(t, models.InvoicePaid, paid.Status)
	assert.Zero(t, paid.Remaining)

	before := *paid
	SettleInvoice(paid, now)
	assert.Equal(t, before, *paid)
}
