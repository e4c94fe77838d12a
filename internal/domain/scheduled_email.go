package domain

import "time"

// ScheduledEmailStatus enumerates delivery states for one planned send.
// Transitions are monotonic: PENDING -> SENDING -> SENT|FAILED, or
// PENDING -> CANCELLED. A FAILED row may re-enter PENDING only through the
// bounded transient-retry path.
type ScheduledEmailStatus string

const (
	ScheduledEmailStatusPending   ScheduledEmailStatus = "PENDING"
	ScheduledEmailStatusSending   ScheduledEmailStatus = "SENDING"
	ScheduledEmailStatusSent      ScheduledEmailStatus = "SENT"
	ScheduledEmailStatusFailed    ScheduledEmailStatus = "FAILED"
	ScheduledEmailStatusCancelled ScheduledEmailStatus = "CANCELLED"
)

// ScheduledEmail is one concrete instance of a sequence step for one
// enrollment. All rows for an enrollment are created together at planning
// time, so every step has its absolute due time from day one and suppression
// can cancel the whole remainder with a single bulk update.
type ScheduledEmail struct {
	ID           string
	EnrollmentID string
	LeadID       string
	SequenceType SequenceType
	StepNumber   int
	DueAt        time.Time
	Status       ScheduledEmailStatus
	Attempts     int
	LastError    *string
	SentAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Terminal reports whether the row can no longer change state.
func (s *ScheduledEmail) Terminal() bool {
	switch s.Status {
	case ScheduledEmailStatusSent, ScheduledEmailStatusCancelled:
		return true
	case ScheduledEmailStatusFailed:
		// FAILED is terminal unless the retry path re-queues it.
		return true
	default:
		return false
	}
}
