package domain

import "time"

// EnrollmentStatus enumerates enrollment lifecycle states.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment records that a lead is (or was) in a sequence. At most one
// ACTIVE enrollment may exist per (lead, sequence type) pair; the database
// enforces this with a partial unique index.
type Enrollment struct {
	ID           string
	LeadID       string
	SequenceType SequenceType
	Status       EnrollmentStatus
	ScanID       *string
	EnrolledAt   time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
