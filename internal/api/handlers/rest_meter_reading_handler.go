package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/config"
	"trohub/app/internal/services"
)

// RestMeterReadingHandler serves /api/chi-so-dien-nuoc.
type RestMeterReadingHandler struct {
	cfg      *config.Config
	readings services.IMeterReadingService
}

func NewRestMeterReadingHandler(cfg *config.Config, readings services.IMeterReadingService) *RestMeterReadingHandler {
	return &RestMeterReadingHandler{cfg: cfg, readings: readings}
}

// List handles GET /api/chi-so-dien-nuoc?room_id=&month=&year=
func (h *RestMeterReadingHandler) List(c *gin.Context) {
	roomID, ok := queryID(c, "room_id")
	if !ok {
		return
	}
	month, ok := queryInt(c, "month")
	if !ok {
		return
	}
	year, ok := queryInt(c, "year")
	if !ok {
		return
	}
	page, ok := queryPage(c)
	if !ok {
		return
	}
	readings, total, err := h.readings.List(c.Request.Context(), services.MeterReadingFilter{RoomID: roomID, Month: month, Year: year}, page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, readings, page, total)
}

func (h *RestMeterReadingHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	reading, err := h.readings.FindByID(c.Request.Context(), id)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, reading, "")
}

func (h *RestMeterReadingHandler) Create(c *gin.Context) {
	var in services.MeterReadingInput
	if !bindJSON(c, &in) {
		return
	}
	reading, err := h.readings.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusCreated, reading, "Meter reading recorded")
}

func (h *RestMeterReadingHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in services.MeterReadingInput
	if !bindJSON(c, &in) {
		return
	}
	reading, err := h.readings.Update(c.Request.Context(), middleware.ActorFrom(c), id, in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, reading, "Meter reading updated")
}

func (h *RestMeterReadingHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.readings.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, nil, "Meter reading deleted")
}
