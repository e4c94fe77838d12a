package service

import "github.com/spec-kit/lead-nurture-service/internal/domain"

// ExclusivityRules is the allow/deny table controlling which sequences may
// run concurrently for one lead. A requested sequence is blocked when the
// lead has an ACTIVE enrollment in any of the listed types. The requested
// type itself is always blocking (no duplicate concurrent enrollment), so it
// never needs listing.
type ExclusivityRules struct {
	blockedBy map[domain.SequenceType][]domain.SequenceType
}

// NewExclusivityRules builds a rule set from a requested-type -> blocking
// active types table.
func NewExclusivityRules(blockedBy map[domain.SequenceType][]domain.SequenceType) ExclusivityRules {
	return ExclusivityRules{blockedBy: blockedBy}
}

// DefaultExclusivityRules: a lead actively in "welcome" is a warm lead, so
// cold outreach stays out, and vice versa. Completed or cancelled
// enrollments never block anything.
func DefaultExclusivityRules() ExclusivityRules {
	return NewExclusivityRules(map[domain.SequenceType][]domain.SequenceType{
		domain.SequenceColdLead: {domain.SequenceWelcome},
		domain.SequenceWelcome:  {domain.SequenceColdLead},
	})
}

// BlockersFor returns every sequence type whose ACTIVE presence forbids
// enrolling into requested, always including requested itself.
func (r ExclusivityRules) BlockersFor(requested domain.SequenceType) []domain.SequenceType {
	blockers := []domain.SequenceType{requested}
	for _, t := range r.blockedBy[requested] {
		if t != requested {
			blockers = append(blockers, t)
		}
	}
	return blockers
}
