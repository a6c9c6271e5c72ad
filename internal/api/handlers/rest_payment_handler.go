package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

// PaymentResult pairs a payment with the invoice it settled.
type PaymentResult struct {
	Payment *models.Payment `json:"payment,omitempty"`
	Invoice *models.Invoice `json:"invoice"`
}

// RestPaymentHandler serves /api/thanh-toan.
type RestPaymentHandler struct {
	cfg       *config.Config
	payments  services.IPaymentService
	dashboard services.IDashboardService
	notifier  BillingNotifier
}

func NewRestPaymentHandler(cfg *config.Config, payments services.IPaymentService, dashboard services.IDashboardService, notifier BillingNotifier) *RestPaymentHandler {
	return &RestPaymentHandler{cfg: cfg, payments: payments, dashboard: dashboard, notifier: notifier}
}

// List handles GET /api/thanh-toan?invoice_id=&method=&from=&to=
func (h *RestPaymentHandler) List(c *gin.Context) {
	invoiceID, ok := queryID(c, "invoice_id")
	if !ok {
		return
	}
	from, ok := queryTime(c, "from", h.cfg.Timezone)
	if !ok {
		return
	}
	to, ok := queryTime(c, "to", h.cfg.Timezone)
	if !ok {
		return
	}
	page, ok := queryPage(c)
	if !ok {
		return
	}
	filter := services.PaymentFilter{
		InvoiceID: invoiceID,
		Method:    models.PaymentMethod(c.Query("method")),
		From:      from,
		To:        to,
	}
	payments, total, err := h.payments.List(c.Request.Context(), middleware.ActorFrom(c), filter, page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, payments, page, total)
}

func (h *RestPaymentHandler) Create(c *gin.Context) {
	var in services.PaymentInput
	if !bindJSON(c, &in) {
		return
	}
	payment, inv, err := h.payments.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	if h.notifier != nil {
		h.notifier.PaymentReceived(c.Request.Context(), inv, payment)
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusCreated, PaymentResult{Payment: payment, Invoice: inv}, "Payment recorded")
}

func (h *RestPaymentHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in services.PaymentInput
	if !bindJSON(c, &in) {
		return
	}
	payment, inv, err := h.payments.Update(c.Request.Context(), middleware.ActorFrom(c), id, in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, PaymentResult{Payment: payment, Invoice: inv}, "Payment updated")
}

func (h *RestPaymentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	inv, err := h.payments.Delete(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, PaymentResult{Invoice: inv}, "Payment deleted")
}
