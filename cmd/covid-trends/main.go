package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/i474232898/covid-trends/internal/api/http"
	"github.com/i474232898/covid-trends/internal/chart"
	"github.com/i474232898/covid-trends/internal/config"
	"github.com/i474232898/covid-trends/internal/covid"
	"github.com/i474232898/covid-trends/internal/covid/providers"
	"github.com/i474232898/covid-trends/internal/observability"
)

func main() {
	config.LoadDotEnv()

	// Load configuration.
	cfg, err := config.Load(context.Background())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	// Shared HTTP client for outbound provider calls.
	client := resty.New().
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("User-Agent", "covid-trends")

	provider := providers.NewCoronavirusAPIProvider(client, cfg.CovidAPIURL, providers.BackoffConfig{
		MaxRetries:      cfg.FetchMaxRetries,
		InitialInterval: cfg.FetchBackoffInitial,
		MaxInterval:     cfg.FetchBackoffMax,
	})

	labels := cfg.Labels()
	service := covid.NewService(provider, cfg.HTTPTimeout, metrics)
	renderer := chart.NewRenderer(labels, cfg.ChartWidth, cfg.ChartHeight)

	app := fiber.New(fiber.Config{
		AppName:               "covid-trends",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Upstream fetch plus rendering must fit.
		WriteTimeout: cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "covid-trends",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	httpapi.RegisterRoutes(app, service, renderer, labels, metrics)

	go func() {
		log.Printf("INFO: listening on :%s (provider %s)", cfg.Port, cfg.CovidAPIURL)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
