package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

// RestRoomHandler serves /api/phong.
type RestRoomHandler struct {
	cfg       *config.Config
	rooms     services.IRoomService
	dashboard services.IDashboardService
}

func NewRestRoomHandler(cfg *config.Config, rooms services.IRoomService, dashboard services.IDashboardService) *RestRoomHandler {
	return &RestRoomHandler{cfg: cfg, rooms: rooms, dashboard: dashboard}
}

// List handles GET /api/phong?building_id=&status=&search=
func (h *RestRoomHandler) List(c *gin.Context) {
	buildingID, ok := queryID(c, "building_id")
	if !ok {
		return
	}
	page, ok := queryPage(c)
	if !ok {
		return
	}
	filter := services.RoomFilter{
		BuildingID: buildingID,
		Status:     models.RoomStatus(c.Query("status")),
		Search:     c.Query("search"),
	}
	rooms, total, err := h.rooms.List(c.Request.Context(), filter, page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, rooms, page, total)
}

func (h *RestRoomHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	room, err := h.rooms.FindByID(c.Request.Context(), id)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, room, "")
}

func (h *RestRoomHandler) Create(c *gin.Context) {
	var in services.RoomInput
	if !bindJSON(c, &in) {
		return
	}
	room, err := h.rooms.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusCreated, room, "Room created")
}

func (h *RestRoomHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in services.RoomInput
	if !bindJSON(c, &in) {
		return
	}
	room, err := h.rooms.Update(c.Request.Context(), middleware.ActorFrom(c), id, in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, room, "Room updated")
}

func (h *RestRoomHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.rooms.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, nil, "Room deleted")
}

type MaintenanceArgs struct {
	Maintenance *bool `json:"maintenance" binding:"required"`
}

// SetMaintenance handles PUT /api/phong/:id/bao-tri
func (h *RestRoomHandler) SetMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var args MaintenanceArgs
	if !bindJSON(c, &args) {
		return
	}
	room, err := h.rooms.SetMaintenance(c.Request.Context(), middleware.ActorFrom(c), id, *args.Maintenance)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	invalidateDashboard(c, h.dashboard)
	sendSuccess(c, http.StatusOK, room, "")
}
