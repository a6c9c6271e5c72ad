package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/config"
	"trohub/app/internal/services"
)

// RestNotificationHandler serves /api/thong-bao for the signed-in user.
type RestNotificationHandler struct {
	cfg           *config.Config
	notifications services.INotificationService
}

func NewRestNotificationHandler(cfg *config.Config, notifications services.INotificationService) *RestNotificationHandler {
	return &RestNotificationHandler{cfg: cfg, notifications: notifications}
}

// List handles GET /api/thong-bao?unread=true
func (h *RestNotificationHandler) List(c *gin.Context) {
	page, ok := queryPage(c)
	if !ok {
		return
	}
	views, total, err := h.notifications.ListForUser(c.Request.Context(), middleware.ActorFrom(c).UserID, c.Query("unread") == "true", page)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendList(c, views, page, total)
}

func (h *RestNotificationHandler) Create(c *gin.Context) {
	var in services.NotificationInput
	if !bindJSON(c, &in) {
		return
	}
	n, err := h.notifications.Create(c.Request.Context(), middleware.ActorFrom(c), in)
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusCreated, n, "Notification sent")
}

// MarkRead handles PUT /api/thong-bao/:id/da-doc
func (h *RestNotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.ActorFrom(c).UserID, id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, nil, "")
}

func (h *RestNotificationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, nil, "Notification deleted")
}
