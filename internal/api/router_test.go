package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"trohub/app/internal/auth"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
)

func testRouter(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JwtSecret: "router-secret", JwtTTL: time.Hour, RateLimitBucketSize: 100, RateLimitRefillRate: 100}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	// Services are never reached: every request here stops in middleware.
	return SetupRouter(ctx, cfg, zap.NewNop(), &services.Registry{}, nil, nil), cfg
}

func TestRouter_Ping(t *testing.T) {
	r, _ := testRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	r, _ := testRouter(t)
	for _, route := range [][2]string{
		{http.MethodGet, "/api/phong"},
		{http.MethodPost, "/api/thanh-toan"},
		{http.MethodDelete, "/api/hoa-don?id=0000000001"},
		{http.MethodPost, "/api/auto-invoice"},
		{http.MethodGet, "/api/dashboard"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(route[0], route[1], nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, route[1])
		assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
	}
}

func TestRouter_AdminRoutesRejectStaff(t *testing.T) {
	r, cfg := testRouter(t)
	staff := &models.User{Base: models.NewBase(), Role: models.RoleStaff, ManagerID: models.NewBase().ID}
	token, err := auth.GenerateJWT(staff, cfg.JwtSecret, cfg.JwtTTL, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/cau-hinh", bytes.NewBufferString(`{"key":"X","value":1}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServiceRouter_Shutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown := make(chan struct{}, 1)
	r := SetupServiceRouter(&config.Config{}, nil, shutdown)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(`{"method":"shutdown"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdown:
	default:
		t.Fatal("shutdown was not signalled")
	}

	// A second request must not block on the full channel.
	shutdown <- struct{}{}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(`{"method":"shutdown"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceRouter_BadRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := SetupServiceRouter(&config.Config{}, nil, make(chan struct{}, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(`{"method":"reboot"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(`{"method":"getTestEmail","arguments":["a","b"]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(`{"method":"getTestSMS","arguments":["not a phone"]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
