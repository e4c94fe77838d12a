package domain

import "time"

// LeadSource tags where a lead came from.
type LeadSource string

const (
	LeadSourcePopup      LeadSource = "POPUP"
	LeadSourceScan       LeadSource = "SCAN"
	LeadSourceColdImport LeadSource = "COLD_IMPORT"
	LeadSourceManual     LeadSource = "MANUAL"
)

// SuppressionReason explains why a lead stopped receiving email.
type SuppressionReason string

const (
	SuppressionReasonUnsubscribe SuppressionReason = "UNSUBSCRIBE"
	SuppressionReasonConversion  SuppressionReason = "CONVERSION"
	SuppressionReasonManual      SuppressionReason = "MANUAL"
)

// Lead is a prospective customer captured by the marketing site or imported
// from a cold list. Leads are never deleted by this service; suppression only
// stops future scheduled sends.
type Lead struct {
	ID               string
	Email            string
	Name             *string
	Company          *string
	WebsiteURL       string
	Source           LeadSource
	Suppressed       bool
	SuppressedReason *SuppressionReason
	SuppressedAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
