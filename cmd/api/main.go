package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"datasetapi/docs"
	"datasetapi/internal/config"
	"datasetapi/internal/database"
	"datasetapi/internal/database/migration"
	handlers "datasetapi/internal/http/handler"
	"datasetapi/internal/http/middleware"
	"datasetapi/internal/ingest"
	"datasetapi/internal/logging"
	"datasetapi/internal/otel"
	"datasetapi/internal/repository/sqlstore"
	"datasetapi/internal/service"
	"datasetapi/internal/storage"
)

// multipart framing on top of the file itself
const bodyOverhead = 1 << 20

// @title Dataset API
// @version 1.0
// @description Upload CSV and spreadsheet files, infer their schema and download the cleaned data.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, loc)

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		fatal(logger, "failed to initialize tracing", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, dialect(cfg.Database.Driver), logger); err != nil {
		fatal(logger, "failed to migrate database", err)
	}

	store, err := newStorage(cfg)
	if err != nil {
		fatal(logger, "failed to initialize storage", err)
	}

	metrics, err := ingest.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		fatal(logger, "failed to register ingest metrics", err)
	}
	artifacts := ingest.NewArtifacts(store)
	pipeline := ingest.NewPipeline(artifacts, ingest.Options{
		PreviewRows:   cfg.Ingest.PreviewRows,
		Clean:         cfg.Ingest.Clean,
		MaxUnzipBytes: int64(cfg.Ingest.MaxUnzipBytes),
	}, metrics)

	repo := sqlstore.NewDatasetSQL(db)
	svc := service.NewDatasetService(repo, pipeline, artifacts, service.Options{
		Timeout: cfg.Ingest.Timeout(),
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.Ingest.MaxUploadBytes + bodyOverhead,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		fatal(logger, "failed to register http metrics", err)
	}

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(loc))
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, db, svc, handlers.Config{
		UploadDir:      cfg.Storage.Root,
		MaxUploadBytes: int64(cfg.Ingest.MaxUploadBytes),
		Gatherer:       prometheus.DefaultGatherer,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("server_shutdown", "signal", sig.String())

		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			logger.Error("server_shutdown_failed", "error_message", err.Error())
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("server_starting", "addr", addr, "storage_backend", cfg.Storage.Backend, "db_driver", dialect(cfg.Database.Driver))
	if err := app.Listen(addr); err != nil {
		fatal(logger, "failed to start server", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Error("tracing_shutdown_failed", "error_message", err.Error())
	}
}

func dialect(driver string) string {
	if strings.EqualFold(driver, database.DriverSQLite) {
		return database.DriverSQLite
	}
	return database.DriverPostgres
}

// newStorage picks the artifact backend. Uploads always stay on local disk.
func newStorage(cfg *config.AppConfig) (storage.Storage, error) {
	if strings.EqualFold(cfg.Storage.Backend, "minio") {
		return storage.NewMinIO(cfg.MinIO)
	}
	return storage.NewLocal(cfg.Storage.Root)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error_message", err.Error())
	os.Exit(1)
}
