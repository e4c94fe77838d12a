// Package template implements placeholder substitution for nurture email
// templates. Placeholders use the {identifier} form, where identifier is a
// letter followed by letters, digits, or underscores. There is no escaping
// and no nesting; brace sequences that do not match the token grammar pass
// through verbatim.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// MissingVariableError reports a placeholder with no value in the variable
// map. A missing key is a hard rendering failure: silently substituting a
// blank would ship broken copy to a real inbox.
type MissingVariableError struct {
	Variable string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("template variable %q has no value", e.Variable)
}

// Render substitutes every placeholder in tmpl with its value from vars.
// Rendering is pure: the same inputs always yield the same output.
func Render(tmpl string, vars map[string]string) (string, error) {
	var missing string
	rendered := placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return token
		}
		return value
	})
	if missing != "" {
		return "", &MissingVariableError{Variable: missing}
	}
	return rendered, nil
}

// RequiredVariables returns the sorted, de-duplicated set of placeholder
// names appearing in tmpl. The registry uses it to validate every template
// against the variable catalog at startup instead of at send time.
func RequiredVariables(tmpl string) []string {
	seen := make(map[string]struct{})
	for _, match := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		seen[match[1]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every placeholder in tmpl is covered by the allowed
// variable set.
func Validate(tmpl string, allowed map[string]struct{}) error {
	var unknown []string
	for _, name := range RequiredVariables(tmpl) {
		if _, ok := allowed[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("template references undeclared variables: %s", strings.Join(unknown, ", "))
	}
	return nil
}
