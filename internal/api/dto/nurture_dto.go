package dto

import (
	"time"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
)

// LeadPayload carries contact fields shared by every trigger endpoint.
type LeadPayload struct {
	Email      string  `json:"email"`
	Name       *string `json:"name"`
	Company    *string `json:"company"`
	WebsiteURL string  `json:"website_url"`
}

// LeadCapturedRequest payload for the popup/form trigger.
type LeadCapturedRequest struct {
	LeadPayload
	Source domain.LeadSource `json:"source"`
}

// ScanCompletedRequest payload for the scan-finished trigger.
type ScanCompletedRequest struct {
	LeadPayload
	Scan ScanPayload `json:"scan"`
}

// ScanPayload is the immutable result snapshot attached at enrollment.
type ScanPayload struct {
	Score          int        `json:"score"`
	CriticalIssues int        `json:"critical_issues"`
	SeriousIssues  int        `json:"serious_issues"`
	ModerateIssues int        `json:"moderate_issues"`
	MinorIssues    int        `json:"minor_issues"`
	Platform       string     `json:"platform"`
	TopIssues      []string   `json:"top_issues"`
	ScannedAt      *time.Time `json:"scanned_at"`
}

// ColdLeadImportRequest payload for list imports.
type ColdLeadImportRequest struct {
	LeadPayload
}

// EnrollmentResponse summarizes a created or listed enrollment.
type EnrollmentResponse struct {
	ID           string                  `json:"id"`
	LeadID       string                  `json:"lead_id"`
	SequenceType domain.SequenceType     `json:"sequence_type"`
	Status       domain.EnrollmentStatus `json:"status"`
	ScanID       *string                 `json:"scan_id,omitempty"`
	EnrolledAt   time.Time               `json:"enrolled_at"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
}

// FromEnrollment maps a domain enrollment.
func FromEnrollment(e domain.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:           e.ID,
		LeadID:       e.LeadID,
		SequenceType: e.SequenceType,
		Status:       e.Status,
		ScanID:       e.ScanID,
		EnrolledAt:   e.EnrolledAt,
		CompletedAt:  e.CompletedAt,
	}
}

// ScheduledEmailResponse is one planned send in the operational view.
type ScheduledEmailResponse struct {
	ID           string                      `json:"id"`
	EnrollmentID string                      `json:"enrollment_id"`
	SequenceType domain.SequenceType         `json:"sequence_type"`
	StepNumber   int                         `json:"step_number"`
	DueAt        time.Time                   `json:"due_at"`
	Status       domain.ScheduledEmailStatus `json:"status"`
	Attempts     int                         `json:"attempts"`
	LastError    *string                     `json:"last_error,omitempty"`
	SentAt       *time.Time                  `json:"sent_at,omitempty"`
}

// FromScheduledEmail maps a domain row.
func FromScheduledEmail(e domain.ScheduledEmail) ScheduledEmailResponse {
	return ScheduledEmailResponse{
		ID:           e.ID,
		EnrollmentID: e.EnrollmentID,
		SequenceType: e.SequenceType,
		StepNumber:   e.StepNumber,
		DueAt:        e.DueAt,
		Status:       e.Status,
		Attempts:     e.Attempts,
		LastError:    e.LastError,
		SentAt:       e.SentAt,
	}
}

// LeadResponse summarizes a lead.
type LeadResponse struct {
	ID               string                    `json:"id"`
	Email            string                    `json:"email"`
	Name             *string                   `json:"name,omitempty"`
	Company          *string                   `json:"company,omitempty"`
	WebsiteURL       string                    `json:"website_url,omitempty"`
	Source           domain.LeadSource         `json:"source"`
	Suppressed       bool                      `json:"suppressed"`
	SuppressedReason *domain.SuppressionReason `json:"suppressed_reason,omitempty"`
}

// FromLead maps a domain lead.
func FromLead(l *domain.Lead) LeadResponse {
	return LeadResponse{
		ID:               l.ID,
		Email:            l.Email,
		Name:             l.Name,
		Company:          l.Company,
		WebsiteURL:       l.WebsiteURL,
		Source:           l.Source,
		Suppressed:       l.Suppressed,
		SuppressedReason: l.SuppressedReason,
	}
}

// ScanResponse summarizes a scan snapshot.
type ScanResponse struct {
	ID             string    `json:"id"`
	Score          int       `json:"score"`
	CriticalIssues int       `json:"critical_issues"`
	SeriousIssues  int       `json:"serious_issues"`
	ModerateIssues int       `json:"moderate_issues"`
	MinorIssues    int       `json:"minor_issues"`
	TotalIssues    int       `json:"total_issues"`
	Platform       string    `json:"platform"`
	TopIssues      []string  `json:"top_issues"`
	ScannedAt      time.Time `json:"scanned_at"`
}

// FromScan maps a domain snapshot; nil in, nil out.
func FromScan(s *domain.ScanResults) *ScanResponse {
	if s == nil {
		return nil
	}
	return &ScanResponse{
		ID:             s.ID,
		Score:          s.Score,
		CriticalIssues: s.CriticalIssues,
		SeriousIssues:  s.SeriousIssues,
		ModerateIssues: s.ModerateIssues,
		MinorIssues:    s.MinorIssues,
		TotalIssues:    s.TotalIssues(),
		Platform:       s.Platform,
		TopIssues:      s.TopIssues,
		ScannedAt:      s.ScannedAt,
	}
}

// ScheduleResponse is the full operational view for a lead.
type ScheduleResponse struct {
	Lead        LeadResponse             `json:"lead"`
	Enrollments []EnrollmentResponse     `json:"enrollments"`
	Emails      []ScheduledEmailResponse `json:"scheduled_emails"`
	LatestScan  *ScanResponse            `json:"latest_scan,omitempty"`
}

// ConversionRequest marks a lead converted, ending its outreach.
type ConversionRequest struct {
	LeadID string `json:"lead_id"`
	Email  string `json:"email"`
	// SequenceType limits the stop to one sequence; empty suppresses the
	// whole lead.
	SequenceType *domain.SequenceType `json:"sequence_type"`
}

// WorkerRunResponse reports one on-demand delivery run.
type WorkerRunResponse struct {
	Selected int `json:"selected"`
	Claimed  int `json:"claimed"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Retried  int `json:"retried"`
	Skipped  int `json:"skipped"`
}
