package domain

import "time"

// ScanResults is an immutable snapshot of an accessibility scan supplied by
// the scanner pipeline. The engine never mutates a snapshot; a re-scan
// attaches a new one and enrollments keep referencing the snapshot that
// existed when they were created.
type ScanResults struct {
	ID             string
	LeadID         string
	Score          int
	CriticalIssues int
	SeriousIssues  int
	ModerateIssues int
	MinorIssues    int
	Platform       string
	TopIssues      []string
	ScannedAt      time.Time
	CreatedAt      time.Time
}

// TotalIssues sums the per-severity counts.
func (s *ScanResults) TotalIssues() int {
	if s == nil {
		return 0
	}
	return s.CriticalIssues + s.SeriousIssues + s.ModerateIssues + s.MinorIssues
}
