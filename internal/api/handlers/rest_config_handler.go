package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

// RestConfigHandler serves runtime settings and email templates.
type RestConfigHandler struct {
	cfg           *config.Config
	configService services.IConfigService
	templates     services.IEmailTemplateService
}

func NewRestConfigHandler(cfg *config.Config, configService services.IConfigService, templates services.IEmailTemplateService) *RestConfigHandler {
	return &RestConfigHandler{cfg: cfg, configService: configService, templates: templates}
}

// GetPublicConfig handles GET /api/cau-hinh
func (h *RestConfigHandler) GetPublicConfig(c *gin.Context) {
	publicConfig, err := h.configService.GetAllPublic(c.Request.Context())
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, publicConfig, "")
}

type SetConfigArgs struct {
	Key      string      `json:"key" binding:"required,max=100"`
	Value    interface{} `json:"value"`
	IsPublic bool        `json:"is_public"`
}

// SetConfig handles PUT /api/cau-hinh (admin)
func (h *RestConfigHandler) SetConfig(c *gin.Context) {
	var args SetConfigArgs
	if !bindJSON(c, &args) {
		return
	}
	if err := h.configService.SetConfigValue(c.Request.Context(), args.Key, args.Value, args.IsPublic); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, models.ConfigEntry{Key: args.Key, Value: args.Value, IsPublic: args.IsPublic}, "Setting saved")
}

// GetEmailTemplate handles GET /api/mau-email/:template_id?locale=
func (h *RestConfigHandler) GetEmailTemplate(c *gin.Context) {
	tmpl, err := h.templates.GetTemplate(c.Request.Context(), c.Param("template_id"), c.Query("locale"))
	if err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, tmpl, "")
}

// SaveEmailTemplate handles PUT /api/mau-email (admin)
func (h *RestConfigHandler) SaveEmailTemplate(c *gin.Context) {
	var tmpl models.EmailTemplate
	if !bindJSON(c, &tmpl) {
		return
	}
	if err := h.templates.SaveTemplate(c.Request.Context(), &tmpl); err != nil {
		sendError(c, err, h.cfg.DevMode)
		return
	}
	sendSuccess(c, http.StatusOK, tmpl, "Template saved")
}
