package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

// BillingNotifier is told about invoices and payments so tenants can be mailed.
// tasks.Notifier implements it.
type BillingNotifier interface {
	InvoiceCreated(ctx context.Context, inv *models.Invoice)
	PaymentReceived(ctx context.Context, inv *models.Invoice, p *models.Payment)
}

// RestInvoiceHandler serves /api/hoa-don.
type RestInvoiceHandler struct {
	cfg       *config.Config
	invoices  services.IInvoiceService
	dashboard services.IDashboardService
	notifier  BillingNotifier
}

func NewRestInvoiceHandler(cfg *config.Config, invoices services.IInvoiceService, dashboard services.IDashboardService, notifier BillingNotifier) *RestInvoiceHandler {
	return &RestInvoiceHandler{cfg: cfg, invoices: invoices, dashboard: dashboard, notifier: notifier}
}

// List handles GET /api/hoa-don?contract_id=&room_id=&tenant_id=&status=&month=&year=&search=
func (h *RestInvoiceHandler) List(c *gin.Context) {
	var filter services.InvoiceFilter
	var ok bool
	if filter.ContractID, ok = queryID(c, "contract_id"); !ok {
		return
	}
	if filter.RoomID, ok = queryID(c, "room_id"); !ok {
		return
	}
	if filter.TenantID, ok = queryID(c, "tenant_id"); !ok {
		return
	}
	if filter.Month, ok = queryInt(c, "month"); !ok {
		return
	}
	if filter.Year, ok = queryInt(c, "year"); !ok {
		return
	}
	filter.Status = models.InvoiceStatus(c.Query("status"))
	filter.Search = c.Query("search")

	page, ok := queryPage(c)
	if !ok {
		return
	}
	invoices, total, err := h.invoices.List(c.Request.Context(), middleware.ActorFrom(c), filter, page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, invoices, page, total)
}

func (h *RestInvoiceHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	inv, err := h.invoices.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, inv, "")
}

// Create handles POST /api/hoa-don with explicit meter readings.
func (h *RestInvoiceHandler) Create(c *gin.Context) {
	var in services.InvoiceInput
	if !bindJSON(c, &in) {
		return
	}
	inv, err := h.invoices.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	if h.notifier != nil {
		h.notifier.InvoiceCreated(c.Request.Context(), inv)
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusCreated, inv, "Invoice created")
}

// Update handles PUT /api/hoa-don; the invoice id travels in the body.
func (h *RestInvoiceHandler) Update(c *gin.Context) {
	var in services.InvoiceInput
	if !bindJSON(c, &in) {
		return
	}
	if in.ID.IsZero() {
		sendFailure(c, http.StatusBadRequest, "id is required")
		return
	}
	inv, err := h.invoices.Update(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, inv, "Invoice updated")
}

// Delete handles DELETE /api/hoa-don?id=
func (h *RestInvoiceHandler) Delete(c *gin.Context) {
	if c.Query("id") == "" {
		sendFailure(c, http.StatusBadRequest, "id is required")
		return
	}
	id, ok := queryID(c, "id")
	if !ok {
		return
	}
	if err := h.invoices.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, nil, "Invoice deleted")
}

// Reconcile handles POST /api/hoa-don/:id/doi-soat
func (h *RestInvoiceHandler) Reconcile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	inv, err := h.invoices.Reconcile(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, inv, "Invoice reconciled")
}
