package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
)

// fallbacks for variables whose source data is absent. The renderer treats a
// missing key as a hard failure, so every catalog variable must always be
// present, with a defined stand-in when there is nothing real to say.
const (
	fallbackFirstName = "there"
	fallbackCompany   = "your team"
	fallbackText      = "N/A"
	fallbackNumber    = "0"
)

// BuildVariables assembles the full variable map for one send: lead fields,
// scan-derived fields (from the snapshot referenced by the enrollment, which
// may be nil), and computed fields. The returned map always covers the whole
// sequence.VariableCatalog.
func BuildVariables(lead *domain.Lead, scan *domain.ScanResults, deadline time.Time, now time.Time, unsubscribeURL string) map[string]string {
	vars := map[string]string{
		"firstName":      fallbackFirstName,
		"company":        fallbackCompany,
		"website":        lead.WebsiteURL,
		"unsubscribeUrl": unsubscribeURL,
	}

	if lead.Name != nil && strings.TrimSpace(*lead.Name) != "" {
		vars["firstName"] = firstName(*lead.Name)
	}
	if lead.Company != nil && strings.TrimSpace(*lead.Company) != "" {
		vars["company"] = strings.TrimSpace(*lead.Company)
	}
	if lead.WebsiteURL == "" {
		vars["website"] = "your website"
	}

	if scan != nil {
		vars["score"] = strconv.Itoa(scan.Score)
		vars["criticalIssues"] = strconv.Itoa(scan.CriticalIssues)
		vars["seriousIssues"] = strconv.Itoa(scan.SeriousIssues)
		vars["moderateIssues"] = strconv.Itoa(scan.ModerateIssues)
		vars["minorIssues"] = strconv.Itoa(scan.MinorIssues)
		vars["totalIssues"] = strconv.Itoa(scan.TotalIssues())
		vars["platform"] = orFallback(scan.Platform, fallbackText)
		vars["topIssues"] = topIssueList(scan.TopIssues)
		vars["scanDate"] = scan.ScannedAt.Format("January 2, 2006")
	} else {
		vars["score"] = fallbackNumber
		vars["criticalIssues"] = fallbackNumber
		vars["seriousIssues"] = fallbackNumber
		vars["moderateIssues"] = fallbackNumber
		vars["minorIssues"] = fallbackNumber
		vars["totalIssues"] = fallbackNumber
		vars["platform"] = fallbackText
		vars["topIssues"] = fallbackText
		vars["scanDate"] = fallbackText
	}

	vars["deadlineDate"] = deadline.Format("January 2, 2006")
	vars["daysUntilDeadline"] = strconv.Itoa(daysUntil(now, deadline))

	return vars
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return fallbackFirstName
	}
	return fields[0]
}

func orFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func topIssueList(issues []string) string {
	if len(issues) == 0 {
		return fallbackText
	}
	return strings.Join(issues, ", ")
}

// daysUntil counts whole days from now to deadline, floored at zero; a
// passed deadline reads as "0 days" rather than going negative in copy.
func daysUntil(now, deadline time.Time) int {
	days := int(deadline.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
