package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
	"github.com/spec-kit/lead-nurture-service/internal/events"
	"github.com/spec-kit/lead-nurture-service/internal/repository"
	"github.com/spec-kit/lead-nurture-service/internal/sequence"
	apperrors "github.com/spec-kit/lead-nurture-service/pkg/util"
)

// EnrollmentService decides which sequence a lead enters on a trigger and
// creates the enrollment plus its full schedule.
type EnrollmentService struct {
	leads       repository.LeadRepository
	scans       repository.ScanRepository
	enrollments repository.EnrollmentRepository
	planner     *PlannerService
	registry    *sequence.Registry
	rules       ExclusivityRules
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// EnrollmentDependencies bundles collaborators for the service.
type EnrollmentDependencies struct {
	LeadRepo       repository.LeadRepository
	ScanRepo       repository.ScanRepository
	EnrollmentRepo repository.EnrollmentRepository
	Planner        *PlannerService
	Registry       *sequence.Registry
	Rules          ExclusivityRules
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(deps EnrollmentDependencies) *EnrollmentService {
	return &EnrollmentService{
		leads:       deps.LeadRepo,
		scans:       deps.ScanRepo,
		enrollments: deps.EnrollmentRepo,
		planner:     deps.Planner,
		registry:    deps.Registry,
		rules:       deps.Rules,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// LeadInput carries contact fields arriving with a trigger event.
type LeadInput struct {
	Email      string
	Name       *string
	Company    *string
	WebsiteURL string
	Source     domain.LeadSource
}

// ScanInput carries a completed scan snapshot.
type ScanInput struct {
	Score          int
	CriticalIssues int
	SeriousIssues  int
	ModerateIssues int
	MinorIssues    int
	Platform       string
	TopIssues      []string
	ScannedAt      time.Time
}

// CaptureLead handles the "lead captured" trigger: upsert the lead and
// enroll it in the welcome sequence.
func (s *EnrollmentService) CaptureLead(ctx context.Context, input LeadInput) (*domain.Lead, *domain.Enrollment, error) {
	lead, err := s.upsertLead(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	enrollment, err := s.Enroll(ctx, lead, domain.SequenceWelcome, nil, "lead_captured")
	return lead, enrollment, err
}

// RecordScanCompleted handles the "scan completed" trigger: upsert the lead,
// attach a fresh immutable snapshot, and enroll in the welcome sequence
// referencing that snapshot.
func (s *EnrollmentService) RecordScanCompleted(ctx context.Context, input LeadInput, scanInput ScanInput) (*domain.Lead, *domain.Enrollment, error) {
	lead, err := s.upsertLead(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	scan := &domain.ScanResults{
		ID:             uuid.New().String(),
		LeadID:         lead.ID,
		Score:          scanInput.Score,
		CriticalIssues: scanInput.CriticalIssues,
		SeriousIssues:  scanInput.SeriousIssues,
		ModerateIssues: scanInput.ModerateIssues,
		MinorIssues:    scanInput.MinorIssues,
		Platform:       scanInput.Platform,
		TopIssues:      scanInput.TopIssues,
		ScannedAt:      scanInput.ScannedAt,
	}
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = time.Now()
	}
	if err := s.scans.Create(ctx, scan); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	enrollment, err := s.Enroll(ctx, lead, domain.SequenceWelcome, &scan.ID, "scan_completed")
	return lead, enrollment, err
}

// ImportColdLead handles the "cold lead imported" trigger.
func (s *EnrollmentService) ImportColdLead(ctx context.Context, input LeadInput) (*domain.Lead, *domain.Enrollment, error) {
	if input.Source == "" {
		input.Source = domain.LeadSourceColdImport
	}
	lead, err := s.upsertLead(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	enrollment, err := s.Enroll(ctx, lead, domain.SequenceColdLead, nil, "cold_lead_imported")
	return lead, enrollment, err
}

// Enroll places a lead into a sequence, enforcing duplicate and exclusivity
// rules. The enrollment and its full schedule are inserted in one store
// transaction, so a lead is never left enrolled with zero scheduled emails:
// either both commit or the trigger fails whole and can simply be retried.
func (s *EnrollmentService) Enroll(ctx context.Context, lead *domain.Lead, sequenceType domain.SequenceType, scanID *string, trigger string) (*domain.Enrollment, error) {
	if _, ok := s.registry.Sequence(sequenceType); !ok {
		return nil, apperrors.NewValidationError("unknown sequence type", map[string]any{
			"sequence_type": string(sequenceType),
		})
	}
	if lead.Suppressed {
		return nil, apperrors.NewEnrollmentRejected("lead is suppressed", map[string]any{
			"lead_id": lead.ID,
		})
	}

	enrollment := &domain.Enrollment{
		ID:           uuid.New().String(),
		LeadID:       lead.ID,
		SequenceType: sequenceType,
		Status:       domain.EnrollmentStatusActive,
		ScanID:       scanID,
		EnrolledAt:   time.Now().UTC(),
	}
	schedule, err := s.planner.BuildSchedule(enrollment)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	created, err := s.enrollments.CreateActiveWithSchedule(ctx, enrollment, s.rules.BlockersFor(sequenceType), schedule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": lead.ID})
		}
		return nil, apperrors.MapError(err)
	}
	if !created {
		return nil, s.rejectionFor(ctx, lead.ID, sequenceType)
	}

	s.logger.Info("lead enrolled",
		zap.String("lead_id", lead.ID),
		zap.String("sequence_type", string(sequenceType)),
		zap.String("trigger", trigger),
		zap.Int("steps", len(schedule)))
	s.publishEnrolled(ctx, enrollment, trigger)
	s.publishPlanned(ctx, enrollment, len(schedule))
	return enrollment, nil
}

// ScheduleForLead returns a lead's enrollments and latest scan for the
// operational view. The latest scan is informational only; rendering always
// uses the snapshot referenced by the enrollment.
func (s *EnrollmentService) ScheduleForLead(ctx context.Context, leadID string) (*domain.Lead, []domain.Enrollment, *domain.ScanResults, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, nil, nil, apperrors.NewNotFound("lead", map[string]any{"lead_id": leadID})
	}
	enrollments, err := s.enrollments.ListByLead(ctx, leadID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	scan, err := s.scans.LatestForLead(ctx, leadID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	return lead, enrollments, scan, nil
}

func (s *EnrollmentService) upsertLead(ctx context.Context, input LeadInput) (*domain.Lead, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewValidationError("email required", nil)
	}
	if input.Source == "" {
		input.Source = domain.LeadSourceManual
	}

	lead := &domain.Lead{
		ID:         uuid.New().String(),
		Email:      email,
		Name:       input.Name,
		Company:    input.Company,
		WebsiteURL: strings.TrimSpace(input.WebsiteURL),
		Source:     input.Source,
	}
	if err := s.leads.Upsert(ctx, lead); err != nil {
		return nil, apperrors.MapError(err)
	}
	return lead, nil
}

// rejectionFor distinguishes a duplicate enrollment from an exclusivity
// conflict after a blocked insert.
func (s *EnrollmentService) rejectionFor(ctx context.Context, leadID string, requested domain.SequenceType) error {
	active, err := s.enrollments.ListActiveTypes(ctx, leadID)
	if err != nil {
		return apperrors.MapError(err)
	}
	for _, t := range active {
		if t == requested {
			return apperrors.NewEnrollmentRejected("lead already active in sequence", map[string]any{
				"lead_id":       leadID,
				"sequence_type": string(requested),
			})
		}
	}
	return apperrors.NewEnrollmentRejected("exclusivity rule blocks enrollment", map[string]any{
		"lead_id":       leadID,
		"sequence_type": string(requested),
		"active_in":     sequenceTypeStrings(active),
	})
}

func (s *EnrollmentService) publishEnrolled(ctx context.Context, enrollment *domain.Enrollment, trigger string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventLeadEnrolled,
		LeadID:    enrollment.LeadID,
		Timestamp: enrollment.EnrolledAt,
		Payload: events.LeadEnrolledPayload{
			EnrollmentID: enrollment.ID,
			SequenceType: enrollment.SequenceType,
			Trigger:      trigger,
		},
	})
}

func (s *EnrollmentService) publishPlanned(ctx context.Context, enrollment *domain.Enrollment, steps int) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.New().String(),
		Type:      events.EventSchedulePlanned,
		LeadID:    enrollment.LeadID,
		Timestamp: enrollment.EnrolledAt,
		Payload: events.SchedulePlannedPayload{
			EnrollmentID: enrollment.ID,
			SequenceType: enrollment.SequenceType,
			Steps:        steps,
		},
	})
}

func sequenceTypeStrings(types []domain.SequenceType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
