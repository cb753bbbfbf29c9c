package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"greendrake/estate/internal/api"
	"greendrake/estate/internal/app"
	"greendrake/estate/internal/cache"
	"greendrake/estate/internal/config"
	"greendrake/estate/internal/email"
	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'worker' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	gin.SetMode(gin.ReleaseMode)

	// Initialize storage
	st, err := app.OpenStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(ctx); err != nil {
			logger.Error("error closing store", zap.Error(err))
		}
	}()

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			logger.Error("error disconnecting from Redis", zap.Error(err))
		}
	}()

	// Initialize Email Sender
	var primaryEmailSender email.Sender
	if cfg.MockServices {
		logger.Info("MOCK_SERVICES enabled, capturing emails in Redis")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg, logger)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg, logger)
	}
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if cfg.EmailLogFile != "" {
		fileSender, err := email.NewFileEmailSender(cfg.EmailLogFile)
		if err != nil {
			logger.Warn("failed to open email log file, continuing without it",
				zap.String("path", cfg.EmailLogFile), zap.Error(err))
		} else {
			compositeSender.AddSender(fileSender)
		}
	}

	// Initialize Task Client and Services
	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	svc := app.NewServices(st, cfg, tasks.NewEnqueuer(taskClient, logger), logger)

	taskProcessor := tasks.NewTaskProcessor(cfg, compositeSender, svc.Billing, svc.Parties, svc.Properties, logger)

	// WaitGroup for managing goroutines
	var wg sync.WaitGroup

	// Channel to signal shutdown from Service API
	shutdownChan := make(chan struct{}, 1)
	fatal := make(chan error, 2)

	// Start Service API (always runs)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan, logger),
	}
	serve := func(name string, srv *http.Server) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("listening", zap.String("server", name), zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}
	serve("service api", serviceSrv)

	// --- Mode-specific servers ---
	var mainApiSrv *http.Server
	var taskSrv *asynq.Server

	logger.Info("starting application", zap.String("mode", cfg.RunMode), zap.String("db_driver", cfg.DBDriver))

	apiMode := func() {
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(cfg, svc, logger),
		}
		serve("main api", mainApiSrv)
	}

	workerMode := func() {
		taskSrv = tasks.SetupServer(redisClient, logger)
		// Start does not block; the server is stopped below with Shutdown.
		if err := taskSrv.Start(taskProcessor.Mux()); err != nil {
			logger.Fatal("failed to start task server", zap.Error(err))
		}
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "worker":
		workerMode()
	case "all":
		apiMode()
		workerMode()
	default:
		logger.Fatal("invalid run mode", zap.String("mode", cfg.RunMode))
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case <-shutdownChan:
		logger.Info("shutdown requested via service API")
	case err := <-fatal:
		logger.Error("server failed, shutting down", zap.Error(err))
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		logger.Error("service API shutdown error", zap.Error(err))
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			logger.Error("main API shutdown error", zap.Error(err))
		}
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	logger.Info("server gracefully stopped")
}
