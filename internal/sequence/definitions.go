package sequence

import (
	"time"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
)

const day = 24 * time.Hour

func defaultSequences() []domain.SequenceDefinition {
	return []domain.SequenceDefinition{
		{
			Type: domain.SequenceWelcome,
			Steps: []domain.StepDefinition{
				{
					Number:          1,
					Delay:           0,
					TemplateID:      "welcome_scan_report",
					SubjectTemplate: "{firstName}, your accessibility scan results for {website}",
				},
				{
					Number:          2,
					Delay:           1 * day,
					TemplateID:      "welcome_issue_breakdown",
					SubjectTemplate: "The {totalIssues} issues holding {website} back",
				},
				{
					Number:          3,
					Delay:           3 * day,
					TemplateID:      "welcome_deadline",
					SubjectTemplate: "{daysUntilDeadline} days until the compliance deadline",
				},
				{
					Number:          4,
					Delay:           5 * day,
					TemplateID:      "welcome_case_study",
					SubjectTemplate: "How a {platform} store fixed {criticalIssues} critical issues",
				},
				{
					Number:          5,
					Delay:           7 * day,
					TemplateID:      "welcome_last_chance",
					SubjectTemplate: "Last chance: lock in your {website} remediation plan",
				},
			},
		},
		{
			Type: domain.SequenceColdLead,
			Steps: []domain.StepDefinition{
				{
					Number:          1,
					Delay:           0,
					TemplateID:      "cold_intro",
					SubjectTemplate: "Quick question about {website}",
				},
				{
					Number:          2,
					Delay:           2 * day,
					TemplateID:      "cold_value",
					SubjectTemplate: "{firstName}, accessibility lawsuits are up again this year",
				},
				{
					Number:          3,
					Delay:           5 * day,
					TemplateID:      "cold_social_proof",
					SubjectTemplate: "What other {platform} teams are doing about compliance",
				},
				{
					Number:          4,
					Delay:           9 * day,
					TemplateID:      "cold_breakup",
					SubjectTemplate: "Closing the loop on {website}",
				},
			},
		},
	}
}
