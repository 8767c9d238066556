package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/covid-county-charts/internal/api/http"
	"github.com/i474232898/covid-county-charts/internal/config"
	"github.com/i474232898/covid-county-charts/internal/covid"
	"github.com/i474232898/covid-county-charts/internal/covid/arcgis"
	"github.com/i474232898/covid-county-charts/internal/logging"
	"github.com/i474232898/covid-county-charts/internal/scheduler"
	"github.com/i474232898/covid-county-charts/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration.
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	counties, err := config.LoadCounties(cfg.CountiesFile)
	if err != nil {
		zlog.Fatal("failed to load counties", zap.Error(err))
	}

	loc, err := cfg.Location()
	if err != nil {
		zlog.Fatal("failed to resolve timezone", zap.Error(err))
	}

	// Upstream client with bounded retry and a circuit breaker per dataset.
	fetcher := arcgis.NewClient(resty.New(), arcgis.Options{
		BaseURL:     cfg.ArcGISBaseURL,
		Timeout:     cfg.HTTPTimeout,
		RecordCount: cfg.ResultRecordCount,
		Backoff: arcgis.BackoffConfig{
			MaxRetries:      cfg.FetchRetries,
			InitialInterval: config.FetchBackoffInitial,
			MaxInterval:     config.FetchBackoffMax,
		},
	}, zlog.Named("arcgis"))

	service := covid.NewService(fetcher, counties, covid.NewNormalizer(loc), zlog.Named("covid"))

	// Periodic digests shown on the index page.
	digests := store.NewMemoryStore(cfg.DigestMaxHistory, cfg.DigestMaxAge)
	sched := scheduler.New(counties.Names(), cfg.DigestInterval, service, digests, zlog.Named("scheduler"))
	if err := sched.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "county-charts",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RequestTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "county-charts",
			"counties": counties.Len(),
		})
	})

	httpapi.RegisterRoutes(app, service, httpapi.Options{
		Digests:        digests,
		Logger:         zlog.Named("http"),
		RequestTimeout: cfg.RequestTimeout,
	})

	go func() {
		zlog.Info("listening", zap.String("port", cfg.Port), zap.Int("counties", counties.Len()))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Warn("fiber server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}
