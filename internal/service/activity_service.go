package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/lead-nurture-service/internal/events"
)

// ActivityService subscribes to engine events and writes the activity log
// operators read when tracing what happened to a lead.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger) *ActivityService {
	return &ActivityService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLeadEnrolled, a.logEvent)
	a.dispatcher.Subscribe(events.EventSchedulePlanned, a.logEvent)
	a.dispatcher.Subscribe(events.EventEmailSent, a.logEvent)
	a.dispatcher.Subscribe(events.EventEmailFailed, a.logEvent)
	a.dispatcher.Subscribe(events.EventLeadSuppressed, a.logEvent)
	a.dispatcher.Subscribe(events.EventSequenceStopped, a.logEvent)
}

func (a *ActivityService) logEvent(ctx context.Context, event events.Event) error {
	a.logger.Info("activity",
		zap.String("event_type", string(event.Type)),
		zap.String("lead_id", event.LeadID),
		zap.Any("payload", event.Payload))
	return nil
}
