package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"trohub/app/internal/api/handlers"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/config"
	"trohub/app/internal/email"
	"trohub/app/internal/logger"
	"trohub/app/internal/models"
	"trohub/app/internal/services"
	"trohub/app/internal/sms"
)

// SetupRouter configures and returns the main Gin engine. ctx bounds the
// rate limiter's background cleanup.
func SetupRouter(ctx context.Context, cfg *config.Config, l *zap.Logger, svc *services.Registry,
	notifier handlers.BillingNotifier, enqueuer handlers.InvoiceRunEnqueuer) *gin.Engine {
	r := gin.New()

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg, svc.Config)

	// Order matters: request ids first so every later log line can carry one.
	r.Use(logger.Middleware(l))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())

	userHandler := handlers.NewRestUserHandler(cfg, svc.Users)
	configHandler := handlers.NewRestConfigHandler(cfg, svc.Config, svc.Templates)
	buildingHandler := handlers.NewRestBuildingHandler(cfg, svc.Buildings)
	roomHandler := handlers.NewRestRoomHandler(cfg, svc.Rooms, svc.Dashboard)
	tenantHandler := handlers.NewRestTenantHandler(cfg, svc.Tenants)
	contractHandler := handlers.NewRestContractHandler(cfg, svc.Contracts, svc.Dashboard)
	readingHandler := handlers.NewRestMeterReadingHandler(cfg, svc.Readings)
	invoiceHandler := handlers.NewRestInvoiceHandler(cfg, svc.Invoices, svc.Dashboard, notifier)
	paymentHandler := handlers.NewRestPaymentHandler(cfg, svc.Payments, svc.Dashboard, notifier)
	autoInvoiceHandler := handlers.NewRestAutoInvoiceHandler(cfg, svc.AutoInvoice, svc.Invoices, svc.Dashboard, notifier, enqueuer)
	incidentHandler := handlers.NewRestIncidentHandler(cfg, svc.Incidents, svc.Dashboard)
	notificationHandler := handlers.NewRestNotificationHandler(cfg, svc.Notifications)
	dashboardHandler := handlers.NewRestDashboardHandler(cfg, svc.Dashboard)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	apiGroup := r.Group("/api")
	{
		// Public routes
		apiGroup.POST("/auth/login", rateLimiter.Limit(), userHandler.Login)
		apiGroup.GET("/cau-hinh", rateLimiter.Limit(), configHandler.GetPublicConfig)

		// Authenticated routes; the limiter runs after auth so it can key on the user.
		authRequired := apiGroup.Group("")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), rateLimiter.Limit())
		{
			authRequired.GET("/auth/me", userHandler.Me)

			authRequired.GET("/toa-nha", buildingHandler.List)
			authRequired.POST("/toa-nha", middleware.RequireRole(models.RoleAdmin, models.RoleLandlord), buildingHandler.Create)
			authRequired.GET("/toa-nha/:id", buildingHandler.Get)
			authRequired.PUT("/toa-nha/:id", buildingHandler.Update)
			authRequired.DELETE("/toa-nha/:id", buildingHandler.Delete)

			authRequired.GET("/phong", roomHandler.List)
			authRequired.POST("/phong", roomHandler.Create)
			authRequired.GET("/phong/:id", roomHandler.Get)
			authRequired.PUT("/phong/:id", roomHandler.Update)
			authRequired.DELETE("/phong/:id", roomHandler.Delete)
			authRequired.PUT("/phong/:id/bao-tri", roomHandler.SetMaintenance)

			authRequired.GET("/khach-thue", tenantHandler.List)
			authRequired.POST("/khach-thue", tenantHandler.Create)
			authRequired.GET("/khach-thue/:id", tenantHandler.Get)
			authRequired.PUT("/khach-thue/:id", tenantHandler.Update)
			authRequired.DELETE("/khach-thue/:id", tenantHandler.Delete)

			authRequired.GET("/hop-dong", contractHandler.List)
			authRequired.POST("/hop-dong", contractHandler.Create)
			authRequired.GET("/hop-dong/:id", contractHandler.Get)
			authRequired.PUT("/hop-dong/:id", contractHandler.Update)
			authRequired.DELETE("/hop-dong/:id", contractHandler.Delete)
			authRequired.POST("/hop-dong/:id/cham-dut", contractHandler.Terminate)

			authRequired.GET("/chi-so-dien-nuoc", readingHandler.List)
			authRequired.POST("/chi-so-dien-nuoc", readingHandler.Create)
			authRequired.GET("/chi-so-dien-nuoc/:id", readingHandler.Get)
			authRequired.PUT("/chi-so-dien-nuoc/:id", readingHandler.Update)
			authRequired.DELETE("/chi-so-dien-nuoc/:id", readingHandler.Delete)

			authRequired.GET("/hoa-don", invoiceHandler.List)
			authRequired.POST("/hoa-don", invoiceHandler.Create)
			authRequired.PUT("/hoa-don", invoiceHandler.Update)
			authRequired.DELETE("/hoa-don", invoiceHandler.Delete)
			authRequired.GET("/hoa-don/:id", invoiceHandler.Get)
			authRequired.POST("/hoa-don/:id/doi-soat", invoiceHandler.Reconcile)

			authRequired.GET("/thanh-toan", paymentHandler.List)
			authRequired.POST("/thanh-toan", paymentHandler.Create)
			authRequired.PUT("/thanh-toan/:id", paymentHandler.Update)
			authRequired.DELETE("/thanh-toan/:id", paymentHandler.Delete)

			authRequired.GET("/auto-invoice", autoInvoiceHandler.Precheck)
			authRequired.POST("/auto-invoice", autoInvoiceHandler.Run)

			authRequired.GET("/su-co", incidentHandler.List)
			authRequired.POST("/su-co", incidentHandler.Create)
			authRequired.GET("/su-co/:id", incidentHandler.Get)
			authRequired.PUT("/su-co/:id", incidentHandler.Update)
			authRequired.DELETE("/su-co/:id", incidentHandler.Delete)

			authRequired.GET("/thong-bao", notificationHandler.List)
			authRequired.POST("/thong-bao", notificationHandler.Create)
			authRequired.PUT("/thong-bao/:id/da-doc", notificationHandler.MarkRead)
			authRequired.DELETE("/thong-bao/:id", notificationHandler.Delete)

			authRequired.GET("/dashboard", dashboardHandler.Get)
		}

		// Admin routes
		adminRequired := apiGroup.Group("")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware(), rateLimiter.Limit())
		{
			adminRequired.PUT("/cau-hinh", configHandler.SetConfig)
			adminRequired.GET("/mau-email/:template_id", configHandler.GetEmailTemplate)
			adminRequired.PUT("/mau-email", configHandler.SaveEmailTemplate)

			adminRequired.GET("/nguoi-dung", userHandler.List)
			adminRequired.POST("/nguoi-dung", userHandler.Create)
			adminRequired.PUT("/nguoi-dung/:id/khoa", userHandler.Suspend)
			adminRequired.PUT("/nguoi-dung/:id/mo-khoa", userHandler.Unsuspend)
		}
	}

	return r
}

type serviceRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments"`
}

// SetupServiceRouter configures the internal service API: shutdown, and in
// MOCK_SERVICES mode reading back captured emails and SMS.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req serviceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			zap.S().Info("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				zap.S().Info("Shutdown channel already signaled")
			}

		case "getTestEmail":
			var args []string // ["recipient"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [email]"})
				return
			}
			captured, err := pollCaptured(c.Request.Context(), func(ctx context.Context) (interface{}, error) {
				return email.LatestCaptured(ctx, rdb, args[0])
			})
			respondCaptured(c, captured, err, "email for "+args[0])

		case "getTestSMS":
			var args []string // ["phone"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [phone]"})
				return
			}
			phone, err := sms.NormalizePhone(args[0])
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
				return
			}
			captured, err := pollCaptured(c.Request.Context(), func(ctx context.Context) (interface{}, error) {
				return rdb.LIndex(ctx, sms.MockInboxKey(phone), 0).Result()
			})
			respondCaptured(c, captured, err, "SMS for "+phone)

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// pollCaptured retries fetch for about two seconds while it reports redis.Nil,
// since delivery happens asynchronously on the worker.
func pollCaptured(ctx context.Context, fetch func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var err error
	for i := 0; i < 10; i++ {
		var v interface{}
		v, err = fetch(ctx)
		if !errors.Is(err, redis.Nil) {
			return v, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return nil, err
}

func respondCaptured(c *gin.Context, captured interface{}, err error, what string) {
	switch {
	case errors.Is(err, redis.Nil):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No captured " + what})
	case err != nil:
		zap.S().Errorf("Service API: failed to read captured %s: %v", what, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "data": captured})
	}
}
