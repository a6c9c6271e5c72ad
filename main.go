package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"trohub/app/internal/api"
	"trohub/app/internal/cache"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/email"
	"trohub/app/internal/logger"
	"trohub/app/internal/services"
	"trohub/app/internal/sms"
	"trohub/app/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background worker and scheduler), 'all' (default)")

func main() {
	flag.Parse()

	cfg, cfgErr := config.Load(*runMode)
	l, err := logger.New(cfgErr == nil && cfg.DevMode)
	if err != nil {
		panic(err)
	}
	defer func() { _ = l.Sync() }()
	log := l.Sugar()
	if cfgErr != nil {
		log.Fatalf("Failed to load configuration: %v", cfgErr)
	}
	switch cfg.RunMode {
	case "api", "bg", "all":
	default:
		log.Fatalf("Invalid run mode: %s", cfg.RunMode)
	}

	// Cancelled on shutdown; stops config pub/sub and limiter cleanup.
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Errorf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	if err := services.EnsureIndexes(appCtx, mongoDb); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Errorf("Error disconnecting from Redis: %v", err)
		}
	}()

	configSvc := services.NewConfigService(appCtx, mongoDb, cfg, redisClient)
	registry := services.NewRegistry(mongoDb, cfg, redisClient, configSvc)

	if cfg.AdminEmail != "" {
		if err := registry.Users.EnsureAdmin(appCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("Failed to bootstrap admin account: %v", err)
		}
	}

	taskClient := tasks.NewClient(cfg)
	defer func() {
		if err := taskClient.Close(); err != nil {
			log.Errorf("Error closing task client: %v", err)
		}
	}()
	enqueuer := tasks.NewEnqueuer(taskClient)
	notifier := tasks.NewNotifier(enqueuer, registry.Tenants, registry.Rooms, cfg.Timezone)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// The service API always runs
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, redisClient, shutdownChan),
	}
	serve(&wg, "Service API", serviceSrv)

	var (
		mainApiSrv *http.Server
		taskSrv    *asynq.Server
		scheduler  *asynq.Scheduler
	)

	log.Infof("Starting application in '%s' mode", cfg.RunMode)

	if cfg.RunMode == "api" || cfg.RunMode == "all" {
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(appCtx, cfg, l, registry, notifier, enqueuer),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serve(&wg, "Main API", mainApiSrv)
	}

	if cfg.RunMode == "bg" || cfg.RunMode == "all" {
		taskSrv, scheduler = startWorker(&wg, cfg, redisClient, registry, notifier)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Infof("Received signal %s, shutting down gracefully", sig)
	case <-shutdownChan:
		log.Info("Shutdown requested via Service API, shutting down gracefully")
	}
	cancelApp()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Errorf("Service API shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Errorf("Main API shutdown error: %v", err)
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	log.Info("Server gracefully stopped")
}

func serve(wg *sync.WaitGroup, name string, srv *http.Server) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		zap.S().Infof("%s listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalf("%s ListenAndServe error: %v", name, err)
		}
		zap.S().Infof("%s stopped", name)
	}()
}

// newEmailSender picks the primary sender and adds the file log when LOG_EMAILS is set.
func newEmailSender(cfg *config.Config, rdb *redis.Client) email.Sender {
	var primary email.Sender
	if cfg.MockServices {
		zap.S().Info("MOCK_SERVICES enabled: emails are captured in Redis")
		primary = email.NewRedisSender(rdb, cfg.SmtpFromAddress)
	} else {
		primary = email.NewSMTPSender(cfg)
	}

	composite := email.NewCompositeEmailSender(primary)
	if cfg.EmailLogFile != "" {
		fileSender, err := email.NewFileEmailSender(cfg.EmailLogFile)
		if err != nil {
			zap.S().Warnf("Failed to open email log %q, continuing without it: %v", cfg.EmailLogFile, err)
		} else {
			composite.AddSender(fileSender)
		}
	}
	return composite
}

func startWorker(wg *sync.WaitGroup, cfg *config.Config, rdb *redis.Client, registry *services.Registry, notifier *tasks.Notifier) (*asynq.Server, *asynq.Scheduler) {
	processor := tasks.NewTaskProcessor(
		cfg,
		newEmailSender(cfg, rdb),
		sms.NewSender(cfg, rdb),
		registry.Templates,
		registry.Config,
		registry.AutoInvoice,
		registry.Invoices,
		registry.Contracts,
		registry.Rooms,
		registry.Tenants,
		registry.Dashboard,
		notifier,
	)

	srv := tasks.NewServer(cfg)
	wg.Add(1)
	go func() {
		defer wg.Done()
		zap.S().Info("Background task server starting")
		if err := srv.Run(processor.Mux()); err != nil {
			zap.S().Fatalf("Background task server error: %v", err)
		}
		zap.S().Info("Background task server stopped")
	}()

	scheduler, err := tasks.NewScheduler(cfg)
	if err != nil {
		zap.S().Fatalf("Failed to configure scheduler: %v", err)
	}
	if scheduler != nil {
		if err := scheduler.Start(); err != nil {
			zap.S().Fatalf("Failed to start scheduler: %v", err)
		}
	}
	return srv, scheduler
}
