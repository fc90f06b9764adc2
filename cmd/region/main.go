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
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/openroads/roadpass/internal/adapters/http"
	"github.com/openroads/roadpass/internal/adapters/postgres"
	"github.com/openroads/roadpass/internal/core/usecases"
	"github.com/openroads/roadpass/internal/pkg/config"
	"github.com/openroads/roadpass/internal/pkg/logging"
	"github.com/openroads/roadpass/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("roadpass-region")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName+"-"+cfg.Region.Name, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	store := postgres.NewSegmentRepo(db)
	matcher := usecases.NewSegmentMatcher(store, cfg.Region.MatchRadiusMeters)
	reservations := usecases.NewReservationService(store, matcher, cfg.Region.Name)

	deps := &http.RegionDependencies{
		Reservations: reservations,
		DB:           db,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // route chunks can carry thousands of points
		AppName:      "RoadPass Region " + cfg.Region.Name,
	})
	app.Use(recover.New())

	http.SetupRegionRoutes(app, deps, time.Duration(cfg.Saga.ReserveTimeoutSeconds)*time.Second)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("regional manager starting", "addr", addr, "region", cfg.Region.Name)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
