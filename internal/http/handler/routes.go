package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"datasetapi/internal/http/middleware"
	"datasetapi/internal/service"
)

// Config holds what the routes need besides the service.
type Config struct {
	// UploadDir is the local storage root. Incoming files are written under
	// its uploads directory while they are ingested.
	UploadDir string
	// MaxUploadBytes caps the size of one uploaded file.
	MaxUploadBytes int64
	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parsing, the service call and error mapping.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.DatasetService, cfg Config) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())
	if cfg.Gatherer != nil {
		app.Get("/metrics", Metrics(cfg.Gatherer))
	}

	datasets := app.Group("/datasets", middleware.Owner())
	datasets.Post("/", UploadDataset(svc, cfg))
	datasets.Get("/", ListDatasets(svc))
	datasets.Get("/:id", GetDataset(svc))
	datasets.Get("/:id/download", DownloadDataset(svc))
	datasets.Delete("/:id", DeleteDataset(svc))
}

// HealthCheck checks DB connectivity only.
//
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Metrics exposes g in the Prometheus text format.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
