package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

// RestTenantHandler serves /api/khach-thue. Tenants are shared across landlords.
type RestTenantHandler struct {
	cfg     *config.Config
	tenants services.ITenantService
}

func NewRestTenantHandler(cfg *config.Config, tenants services.ITenantService) *RestTenantHandler {
	return &RestTenantHandler{cfg: cfg, tenants: tenants}
}

// List handles GET /api/khach-thue?search=&status=
func (h *RestTenantHandler) List(c *gin.Context) {
	page, ok := queryPage(c)
	if !ok {
		return
	}
	tenants, total, err := h.tenants.List(c.Request.Context(), c.Query("search"), models.TenantStatus(c.Query("status")), page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, tenants, page, total)
}

func (h *RestTenantHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tenant, err := h.tenants.FindByID(c.Request.Context(), id)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, tenant, "")
}

func (h *RestTenantHandler) Create(c *gin.Context) {
	var in services.TenantInput
	if !bindJSON(c, &in) {
		return
	}
	tenant, err := h.tenants.Create(c.Request.Context(), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusCreated, tenant, "Tenant created")
}

func (h *RestTenantHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in services.TenantInput
	if !bindJSON(c, &in) {
		return
	}
	tenant, err := h.tenants.Update(c.Request.Context(), id, in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, tenant, "Tenant updated")
}

func (h *RestTenantHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.tenants.Delete(c.Request.Context(), id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, nil, "Tenant deleted")
}
