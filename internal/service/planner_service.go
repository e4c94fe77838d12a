package service

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
	"github.com/spec-kit/lead-nurture-service/internal/sequence"
)

// PlannerService materializes an enrollment into scheduled-email rows.
type PlannerService struct {
	registry *sequence.Registry
	logger   *zap.Logger
}

// PlannerDependencies bundles collaborators for the planner.
type PlannerDependencies struct {
	Registry *sequence.Registry
	Logger   *zap.Logger
}

// NewPlannerService constructs the service.
func NewPlannerService(deps PlannerDependencies) *PlannerService {
	return &PlannerService{
		registry: deps.Registry,
		logger:   deps.Logger,
	}
}

// BuildSchedule returns one PENDING row per sequence step, each due at
// enrolled_at + step delay. Every step's due time is computed from the
// enrollment timestamp alone, never from neighboring steps, so a delayed
// earlier send cannot drift later ones. The rows are persisted atomically
// with the enrollment itself by the enrollment repository.
func (s *PlannerService) BuildSchedule(enrollment *domain.Enrollment) ([]domain.ScheduledEmail, error) {
	def, ok := s.registry.Sequence(enrollment.SequenceType)
	if !ok {
		return nil, fmt.Errorf("plan enrollment %s: unknown sequence type %q",
			enrollment.ID, enrollment.SequenceType)
	}

	rows := make([]domain.ScheduledEmail, 0, len(def.Steps))
	for _, step := range def.Steps {
		rows = append(rows, domain.ScheduledEmail{
			ID:           uuid.New().String(),
			EnrollmentID: enrollment.ID,
			LeadID:       enrollment.LeadID,
			SequenceType: enrollment.SequenceType,
			StepNumber:   step.Number,
			DueAt:        enrollment.EnrolledAt.Add(step.Delay),
			Status:       domain.ScheduledEmailStatusPending,
		})
	}
	return rows, nil
}
