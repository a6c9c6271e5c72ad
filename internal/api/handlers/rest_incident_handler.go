package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

// RestIncidentHandler serves /api/su-co.
type RestIncidentHandler struct {
	cfg       *config.Config
	incidents services.IIncidentService
	dashboard services.IDashboardService
}

func NewRestIncidentHandler(cfg *config.Config, incidents services.IIncidentService, dashboard services.IDashboardService) *RestIncidentHandler {
	return &RestIncidentHandler{cfg: cfg, incidents: incidents, dashboard: dashboard}
}

// List handles GET /api/su-co?room_id=&status=&priority=
func (h *RestIncidentHandler) List(c *gin.Context) {
	roomID, ok := queryID(c, "room_id")
	if !ok {
		return
	}
	page, ok := queryPage(c)
	if !ok {
		return
	}
	filter := services.IncidentFilter{
		RoomID:   roomID,
		Status:   models.IncidentStatus(c.Query("status")),
		Priority: models.IncidentPriority(c.Query("priority")),
	}
	incidents, total, err := h.incidents.List(c.Request.Context(), filter, page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, incidents, page, total)
}

func (h *RestIncidentHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	incident, err := h.incidents.FindByID(c.Request.Context(), id)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, incident, "")
}

func (h *RestIncidentHandler) Create(c *gin.Context) {
	var in services.IncidentInput
	if !bindJSON(c, &in) {
		return
	}
	incident, err := h.incidents.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusCreated, incident, "Incident reported")
}

func (h *RestIncidentHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var upd services.IncidentUpdate
	if !bindJSON(c, &upd) {
		return
	}
	incident, err := h.incidents.Update(c.Request.Context(), middleware.ActorFrom(c), id, upd)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	if upd.Status != nil {
		invalidateDashboard(c, h.dashboard)
	}
	sendSuccess(c, http.StatusOK, incident, "Incident updated")
}

func (h *RestIncidentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.incidents.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, nil, "Incident deleted")
}
