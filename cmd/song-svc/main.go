package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yohanna4/song-manager/internal/cron"
	"github.com/yohanna4/song-manager/internal/events"
	"github.com/yohanna4/song-manager/internal/handler"
	"github.com/yohanna4/song-manager/internal/service"
	"github.com/yohanna4/song-manager/pkg/config"
	"github.com/yohanna4/song-manager/pkg/grpcserver"
	"github.com/yohanna4/song-manager/pkg/logger"
	pkgredis "github.com/yohanna4/song-manager/pkg/redis"
	"github.com/yohanna4/song-manager/pkg/telemetry"

	"github.com/gin-gonic/gin"
)

const healthCheckInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Output: os.Stdout,
	})
	log.Info("Starting song-svc",
		logger.String("store", cfg.Store.Driver),
		logger.Int("http_port", cfg.Server.HTTPPort),
		logger.Int("grpc_port", cfg.Server.GRPCPort),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("song-svc stopped with error", logger.Error(err))
	}
	log.Info("song-svc stopped")
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	tel, shutdownTelemetry, err := telemetry.Init(ctx, &telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Telemetry.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Enabled:      cfg.Telemetry.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error("Failed to shutdown telemetry", logger.Error(err))
		}
	}()

	repo, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Close(closeCtx); err != nil {
			log.Error("Failed to close record store", logger.Error(err))
		}
	}()

	// Catalog events: published to redis and fanned out to websocket
	// listeners by the subscriber, so every replica sees every change.
	var (
		publisher     service.EventPublisher = service.NoopPublisher{}
		eventsHandler *handler.EventsHandler
		hub           = events.NewHub(log)
	)
	if cfg.Redis.Enabled {
		rdb, err := pkgredis.NewClient(ctx, pkgredis.Config{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()
		log.Info("Connected to Redis", logger.String("addr", cfg.Redis.Addr()))

		publisher = events.NewPublisher(rdb, cfg.Redis.Channel, log)

		sub := events.NewSubscriber(rdb, events.DefaultSubscriberConfig(cfg.Redis.Channel), hub.HandleEvent, log)
		if err := sub.Start(ctx); err != nil {
			return fmt.Errorf("start event subscriber: %w", err)
		}
		defer sub.Stop()

		eventsHandler = handler.NewEventsHandler(ctx, hub, log)
		defer hub.CloseAll()
	}

	if tel.Enabled() {
		if err := tel.ObserveListeners(hub.Count); err != nil {
			return fmt.Errorf("register listener gauge: %w", err)
		}
	}

	songSvc := service.NewSongService(repo, publisher, log)
	statsSvc := service.NewStatsService(repo)
	exportSvc := service.NewExportService(statsSvc)

	if cfg.Cron.Enabled {
		cm := cron.NewCronManager(cfg.Cron.DigestSpec, statsSvc, publisher, log)
		if err := cm.Start(); err != nil {
			return fmt.Errorf("start cron: %w", err)
		}
		defer cm.Stop()
	}

	if cfg.Telemetry.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	routerCfg := handler.RouterConfig{
		Log:            log,
		ServiceName:    cfg.Telemetry.ServiceName,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Telemetry:      tel,
		Songs:          handler.NewSongHandler(songSvc),
		Stats:          handler.NewStatsHandler(statsSvc, exportSvc),
		Events:         eventsHandler,
		Health:         songSvc.Ping,
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimiter = &handler.RateLimit{PerSecond: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst}
	}
	router, err := handler.NewRouter(routerCfg)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var grpcSrv *grpcserver.Server
	if cfg.Server.GRPCPort > 0 {
		grpcSrv, err = grpcserver.New(grpcserver.DefaultConfig(cfg.Telemetry.ServiceName, cfg.Server.GRPCPort), log)
		if err != nil {
			return fmt.Errorf("create gRPC server: %w", err)
		}
		go func() {
			if err := grpcSrv.Serve(); err != nil {
				errCh <- err
			}
		}()
		go grpcSrv.WatchHealth(ctx, healthCheckInterval, songSvc.Ping)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Info("Received shutdown signal", logger.String("signal", sig.String()))
	case runErr = <-errCh:
		log.Error("Server failed", logger.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("gRPC server forced to shutdown", logger.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", logger.Error(err))
	}
	return runErr
}
