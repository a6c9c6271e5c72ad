package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/config"
	"trohub/app/internal/services"
)

// RestBuildingHandler serves /api/toa-nha.
type RestBuildingHandler struct {
	cfg       *config.Config
	buildings services.IBuildingService
}

func NewRestBuildingHandler(cfg *config.Config, buildings services.IBuildingService) *RestBuildingHandler {
	return &RestBuildingHandler{cfg: cfg, buildings: buildings}
}

// List handles GET /api/toa-nha?search=
func (h *RestBuildingHandler) List(c *gin.Context) {
	page, ok := queryPage(c)
	if !ok {
		return
	}
	buildings, total, err := h.buildings.List(c.Request.Context(), middleware.ActorFrom(c), c.Query("search"), page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, buildings, page, total)
}

func (h *RestBuildingHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	building, err := h.buildings.FindByID(c.Request.Context(), id)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, building, "")
}

func (h *RestBuildingHandler) Create(c *gin.Context) {
	var in services.BuildingInput
	if !bindJSON(c, &in) {
		return
	}
	building, err := h.buildings.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusCreated, building, "Building created")
}

func (h *RestBuildingHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in services.BuildingInput
	if !bindJSON(c, &in) {
		return
	}
	building, err := h.buildings.Update(c.Request.Context(), middleware.ActorFrom(c), id, in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, building, "Building updated")
}

func (h *RestBuildingHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.buildings.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, nil, "Building deleted")
}
