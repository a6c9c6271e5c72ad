package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/config"
	"trohub/app/internal/services"
)

type RestDashboardHandler struct {
	cfg       *config.Config
	dashboard services.IDashboardService
}

func NewRestDashboardHandler(cfg *config.Config, dashboard services.IDashboardService) *RestDashboardHandler {
	return &RestDashboardHandler{cfg: cfg, dashboard: dashboard}
}

// Get handles GET /api/dashboard
func (h *RestDashboardHandler) Get(c *gin.Context) {
	stats, err := h.dashboard.Get(c.Request.Context())
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, stats, "")
}
