package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"trohub/app/internal/api/handlers"
	"trohub/app/internal/models"
)

func TestRestConfigHandler_GetPublicConfig(t *testing.T) {
	cfgSvc := new(MockConfigService)
	cfgSvc.On("GetAllPublic", mock.Anything).Return(map[string]interface{}{"APP_NAME": "TroHub"}, nil)
	r := newRouter()
	r.GET("/api/cau-hinh", handlers.NewRestConfigHandler(testCfg, cfgSvc, nil).GetPublicConfig)

	w := doRequest(r, http.MethodGet, "/api/cau-hinh", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"APP_NAME":"TroHub"}`, string(decode(t, w).Data))
}

func TestRestConfigHandler_GetPublicConfig_ServiceError(t *testing.T) {
	cfgSvc := new(MockConfigService)
	cfgSvc.On("GetAllPublic", mock.Anything).Return(nil, errors.New("mongo down"))
	r := newRouter()
	r.GET("/api/cau-hinh", handlers.NewRestConfigHandler(testCfg, cfgSvc, nil).GetPublicConfig)

	w := doRequest(r, http.MethodGet, "/api/cau-hinh", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w).Message)
}

func TestRestConfigHandler_SetConfig(t *testing.T) {
	cfgSvc := new(MockConfigService)
	cfgSvc.On("SetConfigValue", mock.Anything, "SMS_REMINDERS_ENABLED", true, false).Return(nil)
	r := newRouter()
	r.PUT("/api/cau-hinh", handlers.NewRestConfigHandler(testCfg, cfgSvc, nil).SetConfig)

	w := doRequest(r, http.MethodPut, "/api/cau-hinh", map[string]interface{}{"key": "SMS_REMINDERS_ENABLED", "value": true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodPut, "/api/cau-hinh", map[string]interface{}{"value": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "key is required", decode(t, w).Message)
	cfgSvc.AssertNumberOfCalls(t, "SetConfigValue", 1)
}

func TestRestConfigHandler_SaveEmailTemplate(t *testing.T) {
	templates := new(MockEmailTemplateService)
	templates.On("SaveTemplate", mock.Anything, mock.MatchedBy(func(tmpl *models.EmailTemplate) bool {
		return tmpl.TemplateID == models.TemplateInvoiceCreated && tmpl.Locale == "vi-VN"
	})).Return(nil)
	r := newRouter()
	r.PUT("/api/mau-email", handlers.NewRestConfigHandler(testCfg, nil, templates).SaveEmailTemplate)

	w := doRequest(r, http.MethodPut, "/api/mau-email", map[string]string{
		"template_id": models.TemplateInvoiceCreated,
		"locale":      "vi-VN",
		"subject":     "Hoá đơn {{.code}}",
		"body":        "Tổng: {{.total}}",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	templates.AssertExpectations(t)
}
