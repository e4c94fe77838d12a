// Package sequence holds the static catalog of nurture sequences: ordered,
// time-delayed email steps and the templates they reference. The catalog is
// validated in full at construction; a half-valid registry is never served.
package sequence

import (
	"fmt"

	"github.com/spec-kit/lead-nurture-service/internal/domain"
	"github.com/spec-kit/lead-nurture-service/internal/template"
	apperrors "github.com/spec-kit/lead-nurture-service/pkg/util"
)

// Registry is the immutable in-memory catalog of sequence definitions.
type Registry struct {
	sequences map[domain.SequenceType]domain.SequenceDefinition
	templates map[string]string
}

// NewRegistry builds and validates the default catalog.
func NewRegistry() (*Registry, error) {
	return newRegistry(defaultSequences(), emailTemplates)
}

func newRegistry(defs []domain.SequenceDefinition, templates map[string]string) (*Registry, error) {
	r := &Registry{
		sequences: make(map[domain.SequenceType]domain.SequenceDefinition, len(defs)),
		templates: templates,
	}
	for _, def := range defs {
		if err := r.validateDefinition(def); err != nil {
			return nil, err
		}
		if _, dup := r.sequences[def.Type]; dup {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("duplicate sequence type %q", def.Type), nil)
		}
		r.sequences[def.Type] = def
	}
	return r, nil
}

// Sequence returns the definition for the given type.
func (r *Registry) Sequence(t domain.SequenceType) (domain.SequenceDefinition, bool) {
	def, ok := r.sequences[t]
	return def, ok
}

// Types lists the registered sequence types.
func (r *Registry) Types() []domain.SequenceType {
	types := make([]domain.SequenceType, 0, len(r.sequences))
	for t := range r.sequences {
		types = append(types, t)
	}
	return types
}

// Template returns the body template for a template id.
func (r *Registry) Template(id string) (string, bool) {
	tmpl, ok := r.templates[id]
	return tmpl, ok
}

func (r *Registry) validateDefinition(def domain.SequenceDefinition) error {
	if def.Type == "" {
		return apperrors.NewConfigurationError("sequence type must not be empty", nil)
	}
	if len(def.Steps) == 0 {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("sequence %q has no steps", def.Type), nil)
	}

	for i, step := range def.Steps {
		details := map[string]any{"sequence": string(def.Type), "step": step.Number}

		// Step numbers are 1-based, gap-free, strictly increasing.
		if step.Number != i+1 {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("sequence %q: step at position %d has number %d, want %d",
					def.Type, i, step.Number, i+1), details)
		}
		if step.Delay < 0 {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("sequence %q step %d: negative delay", def.Type, step.Number), details)
		}
		// Delays must not decrease; a later step due before an earlier one
		// has no use case in the shipped campaigns.
		if i > 0 && step.Delay < def.Steps[i-1].Delay {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("sequence %q step %d: delay decreases from previous step",
					def.Type, step.Number), details)
		}
		if step.SubjectTemplate == "" {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("sequence %q step %d: empty subject template", def.Type, step.Number), details)
		}

		body, ok := r.templates[step.TemplateID]
		if !ok {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("sequence %q step %d: unknown template %q",
					def.Type, step.Number, step.TemplateID), details)
		}
		if err := template.Validate(body, VariableCatalog); err != nil {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("sequence %q step %d body: %v", def.Type, step.Number, err), details)
		}
		if err := template.Validate(step.SubjectTemplate, VariableCatalog); err != nil {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("sequence %q step %d subject: %v", def.Type, step.Number, err), details)
		}
	}
	return nil
}
