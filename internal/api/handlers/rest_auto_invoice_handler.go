package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"trohub/app/internal/config"
	"trohub/app/internal/services"
	"trohub/app/internal/tasks"
)

// InvoiceRunEnqueuer queues a generation run on the background worker.
type InvoiceRunEnqueuer interface {
	GenerateInvoices(ctx context.Context, at time.Time) (*asynq.TaskInfo, error)
}

// RestAutoInvoiceHandler serves /api/auto-invoice.
type RestAutoInvoiceHandler struct {
	cfg         *config.Config
	autoInvoice services.IAutoInvoiceService
	invoices    services.IInvoiceService
	dashboard   services.IDashboardService
	notifier    BillingNotifier
	enqueuer    InvoiceRunEnqueuer // nil disables ?async=true
	now         services.Clock
}

func NewRestAutoInvoiceHandler(cfg *config.Config, autoInvoice services.IAutoInvoiceService, invoices services.IInvoiceService,
	dashboard services.IDashboardService, notifier BillingNotifier, enqueuer InvoiceRunEnqueuer) *RestAutoInvoiceHandler {
	return &RestAutoInvoiceHandler{
		cfg:         cfg,
		autoInvoice: autoInvoice,
		invoices:    invoices,
		dashboard:   dashboard,
		notifier:    notifier,
		enqueuer:    enqueuer,
		now:         services.NewClock(cfg),
	}
}

// Precheck handles GET /api/auto-invoice
func (h *RestAutoInvoiceHandler) Precheck(c *gin.Context) {
	res, err := h.autoInvoice.Precheck(c.Request.Context(), h.now())
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, res, "")
}

// Run handles POST /api/auto-invoice. With ?async=true the run is handed to
// the worker and 202 is returned; a second request for the same period while
// one is queued gets 409.
func (h *RestAutoInvoiceHandler) Run(c *gin.Context) {
	now := h.now()
	if c.Query("async") == "true" {
		h.enqueue(c, now)
		return
	}

	res, err := h.autoInvoice.Generate(c.Request.Context(), now)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	if h.notifier != nil {
		for _, id := range res.InvoiceIDs {
			inv, err := h.invoices.FindByID(c.Request.Context(), id)
			if err != nil {
				zap.S().Warnf("Generated invoice %s could not be reloaded for notification: %v", id, err)
				continue
			}
			h.notifier.InvoiceCreated(c.Request.Context(), inv)
		}
	}
	if res.CreatedCount > 0 {
		invalidateDashboard(c, h.dashboard)
	}
	zap.S().Infof("Auto-invoice %02d/%d: %d created, %d skipped, %d errors",
		res.Month, res.Year, res.CreatedCount, res.SkippedCount, len(res.Errors))
	sendSuccess(c, http.StatusOK, res, "")
}

func (h *RestAutoInvoiceHandler) enqueue(c *gin.Context, now time.Time) {
	if h.enqueuer == nil {
		sendFailure(c, http.StatusBadRequest, "background generation is not available")
		return
	}
	info, err := h.enqueuer.GenerateInvoices(c.Request.Context(), now)
	if errors.Is(err, tasks.ErrDuplicate) {
		sendFailure(c, http.StatusConflict, "invoice generation for this period is already queued")
		return
	}
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusAccepted, gin.H{"task_id": info.ID}, "Invoice generation queued")
}
