package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
	"github.com/spec-kit/lead-nurture-service/internal/events"
	"github.com/spec-kit/lead-nurture-service/internal/repository"
	apperrors "github.com/spec-kit/lead-nurture-service/pkg/util"
)

// SuppressionService halts future sends for a lead, globally or for one
// sequence. Suppression is cooperative: it cancels PENDING rows and blocks
// future claims, but a send already in flight (SENDING) completes. That
// trade-off is deliberate — interrupting a half-delivered SMTP exchange buys
// nothing.
type SuppressionService struct {
	leads       repository.LeadRepository
	enrollments repository.EnrollmentRepository
	emails      repository.ScheduledEmailRepository
	cache       repository.SuppressionCache
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// SuppressionDependencies bundles collaborators for the service.
type SuppressionDependencies struct {
	LeadRepo       repository.LeadRepository
	EnrollmentRepo repository.EnrollmentRepository
	EmailRepo      repository.ScheduledEmailRepository
	Cache          repository.SuppressionCache
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewSuppressionService constructs the service.
func NewSuppressionService(deps SuppressionDependencies) *SuppressionService {
	return &SuppressionService{
		leads:       deps.LeadRepo,
		enrollments: deps.EnrollmentRepo,
		emails:      deps.EmailRepo,
		cache:       deps.Cache,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// Suppress marks the lead suppressed and cancels every PENDING scheduled
// email across all sequences. The lead flag is written first: once set, no
// claim can succeed (the claim statement re-checks it), so any row the bulk
// cancel races with is still safe.
func (s *SuppressionService) Suppress(ctx context.Context, leadID string, reason domain.SuppressionReason) error {
	if err := s.leads.MarkSuppressed(ctx, leadID, reason); err != nil {
		return apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
	}

	cancelled, err := s.emails.CancelPendingForLead(ctx, leadID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.enrollments.CancelAllActive(ctx, leadID); err != nil {
		return apperrors.MapError(err)
	}

	if err := s.cache.MarkSuppressed(ctx, leadID, reason); err != nil {
		// Cache is advisory; Postgres already blocks all claims.
		s.logger.Warn("suppression cache write failed", zap.String("lead_id", leadID), zap.Error(err))
	}

	s.logger.Info("lead suppressed",
		zap.String("lead_id", leadID),
		zap.String("reason", string(reason)),
		zap.Int64("cancelled", cancelled))
	s.publish(ctx, events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventLeadSuppressed,
		LeadID:    leadID,
		Timestamp: time.Now().UTC(),
		Payload:   events.LeadSuppressedPayload{Reason: reason, Cancelled: cancelled},
	})
	return nil
}

// SuppressSequence stops one sequence for a lead (for example after a
// conversion ends the cold-outreach track) while other enrollments keep
// running. The lead itself stays unsuppressed.
func (s *SuppressionService) SuppressSequence(ctx context.Context, leadID string, sequenceType domain.SequenceType, reason domain.SuppressionReason) error {
	if _, err := s.leads.GetByID(ctx, leadID); err != nil {
		return apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
	}

	cancelled, err := s.emails.CancelPendingForSequence(ctx, leadID, sequenceType)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.enrollments.CancelActive(ctx, leadID, sequenceType); err != nil {
		return apperrors.MapError(err)
	}

	s.logger.Info("sequence stopped",
		zap.String("lead_id", leadID),
		zap.String("sequence_type", string(sequenceType)),
		zap.String("reason", string(reason)),
		zap.Int64("cancelled", cancelled))
	s.publish(ctx, events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventSequenceStopped,
		LeadID:    leadID,
		Timestamp: time.Now().UTC(),
		Payload: events.SequenceStoppedPayload{
			SequenceType: sequenceType,
			Reason:       reason,
			Cancelled:    cancelled,
		},
	})
	return nil
}

func (s *SuppressionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
