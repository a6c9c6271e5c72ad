package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

// Notifier turns billing events into email and SMS tasks for the invoice's
// representative tenant. Failures are logged; they never fail the caller.
type Notifier struct {
	enqueuer *Enqueuer
	tenants  services.ITenantService
	rooms    services.IRoomService
	loc      *time.Location
}

func NewNotifier(enqueuer *Enqueuer, tenants services.ITenantService, rooms services.IRoomService, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.Local
	}
	return &Notifier{enqueuer: enqueuer, tenants: tenants, rooms: rooms, loc: loc}
}

// invoiceData is the template data shared by every invoice email.
func (n *Notifier) invoiceData(ctx context.Context, inv *models.Invoice) (*models.Tenant, map[string]interface{}, error) {
	tenant, err := n.tenants.FindByID(ctx, inv.TenantID)
	if err != nil {
		return nil, nil, err
	}
	room := inv.RoomID.String()
	if r, err := n.rooms.FindByID(ctx, inv.RoomID); err == nil {
		room = r.Code
	}
	return tenant, map[string]interface{}{
		"code":      inv.Code,
		"period":    fmt.Sprintf("%02d/%d", inv.Month, inv.Year),
		"name":      tenant.FullName,
		"room":      room,
		"total":     FormatVND(inv.Total),
		"remaining": FormatVND(inv.Remaining),
		"due_date":  inv.DueDate.In(n.loc).Format("02/01/2006"),
	}, nil
}

func (n *Notifier) InvoiceCreated(ctx context.Context, inv *models.Invoice) {
	tenant, data, err := n.invoiceData(ctx, inv)
	if err != nil {
		zap.S().Warnf("No invoice email for %s: %v", inv.Code, err)
		return
	}
	if tenant.Email == "" {
		return
	}
	if err := n.enqueuer.Email(ctx, tenant.Email, models.TemplateInvoiceCreated, data); err != nil {
		zap.S().Errorf("Failed to enqueue invoice email for %s: %v", inv.Code, err)
	}
}

func (n *Notifier) PaymentReceived(ctx context.Context, inv *models.Invoice, p *models.Payment) {
	tenant, data, err := n.invoiceData(ctx, inv)
	if err != nil {
		zap.S().Warnf("No payment email for %s: %v", inv.Code, err)
		return
	}
	if tenant.Email == "" {
		return
	}
	data["amount"] = FormatVND(p.Amount)
	if err := n.enqueuer.Email(ctx, tenant.Email, models.TemplatePaymentReceived, data); err != nil {
		zap.S().Errorf("Failed to enqueue payment email for %s: %v", inv.Code, err)
	}
}

// OverdueReminder sends at most one reminder per invoice per day, by email
// and by SMS. It reports whether anything new was queued.
func (n *Notifier) OverdueReminder(ctx context.Context, inv *models.Invoice, now time.Time) bool {
	tenant, data, err := n.invoiceData(ctx, inv)
	if err != nil {
		zap.S().Warnf("No overdue reminder for %s: %v", inv.Code, err)
		return false
	}
	if tenant.Phone == "" {
		return false
	}
	body := fmt.Sprintf("Hoa don %s phong %s da qua han %s. Con lai %s d. Vui long thanh toan.",
		inv.Code, data["room"], data["due_date"], data["remaining"])
	key := inv.ID.String() + ":" + now.In(n.loc).Format("20060102")
	err = n.enqueuer.SMS(ctx, tenant.Phone, body, key)
	if errors.Is(err, ErrDuplicate) {
		return false
	}
	if err != nil {
		zap.S().Errorf("Failed to enqueue overdue SMS for %s: %v", inv.Code, err)
		return false
	}
	if tenant.Email != "" {
		if err := n.enqueuer.Email(ctx, tenant.Email, models.TemplateOverdueReminder, data); err != nil {
			zap.S().Errorf("Failed to enqueue overdue email for %s: %v", inv.Code, err)
		}
	}
	return true
}

// FormatVND groups thousands with dots, the way amounts are written in Vietnamese.
func FormatVND(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	sign := ""
	if amount < 0 {
		sign, s = "-", s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, s[i])
	}
	return sign + string(out)
}
