package worker

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-nurture-service/internal/service"
)

// DeliveryWorker invokes the delivery service on a recurring schedule. Each
// tick is an independent short-lived batch run; overlap protection comes
// from the store-level claim, not from this process, so a second instance of
// the whole service is safe too. The in-process running flag only avoids
// pointless back-to-back runs on a slow batch.
type DeliveryWorker struct {
	delivery *service.DeliveryService
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
	running  atomic.Bool
}

// NewDeliveryWorker constructs the worker. schedule accepts the cron spec
// formats of robfig/cron, e.g. "@every 2m".
func NewDeliveryWorker(delivery *service.DeliveryService, schedule string, logger *zap.Logger) *DeliveryWorker {
	return &DeliveryWorker{
		delivery: delivery,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the cron entry and begins ticking.
func (w *DeliveryWorker) Start(ctx context.Context) error {
	w.cron = cron.New()
	_, err := w.cron.AddFunc(w.schedule, func() {
		w.RunNow(ctx)
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("delivery worker started", zap.String("schedule", w.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (w *DeliveryWorker) Stop() {
	if w.cron == nil {
		return
	}
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.logger.Info("delivery worker stopped")
}

// RunNow triggers one delivery run immediately; used by the cron tick and
// the admin endpoint.
func (w *DeliveryWorker) RunNow(ctx context.Context) service.RunStats {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Debug("delivery run already in progress; skipping tick")
		return service.RunStats{}
	}
	defer w.running.Store(false)

	stats, err := w.delivery.RunOnce(ctx)
	if err != nil {
		w.logger.Error("delivery run failed", zap.Error(err))
	}
	return stats
}
