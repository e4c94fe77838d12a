package events

import (
	"time"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLeadEnrolled    EventType = "lead_enrolled"
	EventSchedulePlanned EventType = "schedule_planned"
	EventEmailSent       EventType = "email_sent"
	EventEmailFailed     EventType = "email_failed"
	EventLeadSuppressed  EventType = "lead_suppressed"
	EventSequenceStopped EventType = "sequence_stopped"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	LeadID    string      `json:"lead_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LeadEnrolledPayload payload.
type LeadEnrolledPayload struct {
	EnrollmentID string              `json:"enrollment_id"`
	SequenceType domain.SequenceType `json:"sequence_type"`
	Trigger      string              `json:"trigger"`
}

// SchedulePlannedPayload payload.
type SchedulePlannedPayload struct {
	EnrollmentID string              `json:"enrollment_id"`
	SequenceType domain.SequenceType `json:"sequence_type"`
	Steps        int                 `json:"steps"`
}

// EmailSentPayload payload.
type EmailSentPayload struct {
	ScheduledEmailID string              `json:"scheduled_email_id"`
	SequenceType     domain.SequenceType `json:"sequence_type"`
	StepNumber       int                 `json:"step_number"`
}

// EmailFailedPayload payload.
type EmailFailedPayload struct {
	ScheduledEmailID string              `json:"scheduled_email_id"`
	SequenceType     domain.SequenceType `json:"sequence_type"`
	StepNumber       int                 `json:"step_number"`
	Error            string              `json:"error"`
	WillRetry        bool                `json:"will_retry"`
}

// LeadSuppressedPayload payload.
type LeadSuppressedPayload struct {
	Reason    domain.SuppressionReason `json:"reason"`
	Cancelled int64                    `json:"cancelled"`
}

// SequenceStoppedPayload payload.
type SequenceStoppedPayload struct {
	SequenceType domain.SequenceType      `json:"sequence_type"`
	Reason       domain.SuppressionReason `json:"reason"`
	Cancelled    int64                    `json:"cancelled"`
}
