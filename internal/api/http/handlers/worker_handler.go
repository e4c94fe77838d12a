package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-nurture-service/internal/api/dto"
	"github.com/spec-kit/lead-nurture-service/internal/observability"
	"github.com/spec-kit/lead-nurture-service/internal/worker"
)

// WorkerHandler triggers an on-demand delivery run, mostly for operations
// and integration testing.
type WorkerHandler struct {
	worker  *worker.DeliveryWorker
	metrics *observability.Metrics
}

// NewWorkerHandler constructs handler.
func NewWorkerHandler(w *worker.DeliveryWorker, metrics *observability.Metrics) *WorkerHandler {
	return &WorkerHandler{worker: w, metrics: metrics}
}

// Run POST /worker/run.
func (h *WorkerHandler) Run(c *fiber.Ctx) error {
	stats := h.worker.RunNow(c.Context())
	return c.JSON(fiber.Map{"data": fiber.Map{
		"run": dto.WorkerRunResponse{
			Selected: stats.Selected,
			Claimed:  stats.Claimed,
			Sent:     stats.Sent,
			Failed:   stats.Failed,
			Retried:  stats.Retried,
			Skipped:  stats.Skipped,
		},
		"send_outcomes": h.metrics.SendOutcomes(),
	}})
}
