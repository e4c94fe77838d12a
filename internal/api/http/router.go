package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-nurture-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Triggers    *handlers.TriggersHandler
	Suppression *handlers.SuppressionHandler
	Schedule    *handlers.ScheduleHandler
	Worker      *handlers.WorkerHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	triggers := app.Group("/triggers")
	triggers.Post("/lead-captured", cfg.Triggers.LeadCaptured)
	triggers.Post("/scan-completed", cfg.Triggers.ScanCompleted)
	triggers.Post("/cold-lead-imported", cfg.Triggers.ColdLeadImported)

	app.Get("/unsubscribe", cfg.Suppression.Unsubscribe)
	app.Post("/suppressions/conversion", cfg.Suppression.Conversion)

	app.Get("/leads/:id/schedule", cfg.Schedule.GetSchedule)

	app.Post("/worker/run", cfg.Worker.Run)
}
