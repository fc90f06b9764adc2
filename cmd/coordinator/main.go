package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/openroads/roadpass/internal/adapters/http"
	natsadapter "github.com/openroads/roadpass/internal/adapters/nats"
	"github.com/openroads/roadpass/internal/adapters/osrm"
	"github.com/openroads/roadpass/internal/adapters/postgres"
	"github.com/openroads/roadpass/internal/adapters/regiongw"
	"github.com/openroads/roadpass/internal/adapters/valkey"
	"github.com/openroads/roadpass/internal/core/ports"
	"github.com/openroads/roadpass/internal/core/usecases"
	"github.com/openroads/roadpass/internal/pkg/config"
	"github.com/openroads/roadpass/internal/pkg/logging"
	"github.com/openroads/roadpass/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("roadpass-coordinator")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
	}

	// NATS
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer nc.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	planner := osrm.New(cfg.Planner.BaseURL, time.Duration(cfg.Planner.TimeoutSeconds)*time.Second)
	gateway := regiongw.New()
	bookingRepo := postgres.NewBookingRepo(db)

	// The nil checks keep a missing broker or cache from wedging startup;
	// the service treats both as optional.
	var events ports.EventPublisher
	if nc != nil {
		events = nc
	}
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}

	bookingSvc := usecases.NewBookingService(
		cfg.RegionTable(), planner, gateway, bookingRepo, events, cacheSvc,
		usecases.SagaTimeouts{
			Reserve: time.Duration(cfg.Saga.ReserveTimeoutSeconds) * time.Second,
			Confirm: time.Duration(cfg.Saga.ConfirmTimeoutSeconds) * time.Second,
			Cancel:  time.Duration(cfg.Saga.CancelTimeoutSeconds) * time.Second,
		},
	)

	deps := &http.Dependencies{
		Bookings: bookingSvc,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "RoadPass Coordinator",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	// The submit handler waits for the slowest region, so its route timeout
	// follows the reserve phase budget with headroom for the broadcast.
	sagaTimeout := time.Duration(cfg.Saga.ReserveTimeoutSeconds+cfg.Saga.ConfirmTimeoutSeconds) * time.Second
	http.SetupCoordinatorRoutes(app, deps, sagaTimeout)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("coordinator starting", "addr", addr, "regions", len(cfg.Regions))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
