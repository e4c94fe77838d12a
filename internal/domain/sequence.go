package domain

import "time"

// SequenceType identifies a nurture campaign.
type SequenceType string

const (
	SequenceWelcome  SequenceType = "welcome"
	SequenceColdLead SequenceType = "cold_lead"
)

// StepDefinition is one email step inside a sequence. Step numbers are
// 1-based, unique, and gap-free within a sequence.
type StepDefinition struct {
	Number          int
	Delay           time.Duration
	TemplateID      string
	SubjectTemplate string
}

// SequenceDefinition is the static configuration of one campaign: an ordered
// list of time-delayed steps.
type SequenceDefinition struct {
	Type  SequenceType
	Steps []StepDefinition
}

// Step returns the definition for the given step number.
func (d *SequenceDefinition) Step(number int) (StepDefinition, bool) {
	for _, step := range d.Steps {
		if step.Number == number {
			return step, true
		}
	}
	return StepDefinition{}, false
}
