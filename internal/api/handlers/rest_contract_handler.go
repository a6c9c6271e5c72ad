package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

// RestContractHandler serves /api/hop-dong. Room and tenant statuses are
// recomputed by the service after every write.
type RestContractHandler struct {
	cfg       *config.Config
	contracts services.IContractService
	dashboard services.IDashboardService
}

func NewRestContractHandler(cfg *config.Config, contracts services.IContractService, dashboard services.IDashboardService) *RestContractHandler {
	return &RestContractHandler{cfg: cfg, contracts: contracts, dashboard: dashboard}
}

// List handles GET /api/hop-dong?room_id=&tenant_id=&status=&search=
func (h *RestContractHandler) List(c *gin.Context) {
	roomID, ok := queryID(c, "room_id")
	if !ok {
		return
	}
	tenantID, ok := queryID(c, "tenant_id")
	if !ok {
		return
	}
	page, ok := queryPage(c)
	if !ok {
		return
	}
	filter := services.ContractFilter{
		RoomID:   roomID,
		TenantID: tenantID,
		Status:   models.ContractStatus(c.Query("status")),
		Search:   c.Query("search"),
	}
	contracts, total, err := h.contracts.List(c.Request.Context(), filter, page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, contracts, page, total)
}

func (h *RestContractHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	contract, err := h.contracts.FindByID(c.Request.Context(), id)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, contract, "")
}

func (h *RestContractHandler) Create(c *gin.Context) {
	var in services.ContractInput
	if !bindJSON(c, &in) {
		return
	}
	contract, err := h.contracts.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusCreated, contract, "Contract created")
}

func (h *RestContractHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in services.ContractInput
	if !bindJSON(c, &in) {
		return
	}
	contract, err := h.contracts.Update(c.Request.Context(), middleware.ActorFrom(c), id, in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, contract, "Contract updated")
}

// Terminate handles POST /api/hop-dong/:id/cham-dut. An empty body ends the
// contract today.
func (h *RestContractHandler) Terminate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in services.TerminateInput
	if c.Request.ContentLength != 0 && !bindJSON(c, &in) {
		return
	}
	contract, err := h.contracts.Terminate(c.Request.Context(), middleware.ActorFrom(c), id, in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, contract, "Contract terminated")
}

func (h *RestContractHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.contracts.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, nil, "Contract deleted")
}
