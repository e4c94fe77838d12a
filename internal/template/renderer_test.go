package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesAllPlaceholders(t *testing.T) {
	tmpl := `<p>Hi {firstName}, {company} scored {score}/100 on {website}.</p>`
	vars := map[string]string{
		"firstName": "Ana",
		"company":   "Acme",
		"score":     "42",
		"website":   "acme.example",
	}

	out, err := Render(tmpl, vars)
	require.NoError(t, err)
	assert.Equal(t, `<p>Hi Ana, Acme scored 42/100 on acme.example.</p>`, out)
}

func TestRenderRepeatedPlaceholder(t *testing.T) {
	out, err := Render("{name} and {name} again", map[string]string{"name": "Bo"})
	require.NoError(t, err)
	assert.Equal(t, "Bo and Bo again", out)
}

func TestRenderMissingVariable(t *testing.T) {
	_, err := Render("Hello {firstName}", map[string]string{})
	require.Error(t, err)

	var missing *MissingVariableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "firstName", missing.Variable)
}

func TestRenderNeverBlankFills(t *testing.T) {
	out, err := Render("Hello {firstName}!", map[string]string{"firstName": ""})
	// An explicitly empty value is allowed; only an absent key fails.
	require.NoError(t, err)
	assert.Equal(t, "Hello !", out)

	_, err = Render("Hello {lastName}!", map[string]string{"firstName": "Ana"})
	require.Error(t, err)
}

func TestRenderIgnoresNonTokenBraces(t *testing.T) {
	tmpl := `body { margin: 0 } .cls {} {1bad} {ok}`
	out, err := Render(tmpl, map[string]string{"ok": "yes"})
	require.NoError(t, err)
	assert.Equal(t, `body { margin: 0 } .cls {} {1bad} yes`, out)
}

func TestRenderIsDeterministic(t *testing.T) {
	tmpl := "{a}{b}{a}"
	vars := map[string]string{"a": "1", "b": "2"}
	first, err := Render(tmpl, vars)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Render(tmpl, vars)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRequiredVariables(t *testing.T) {
	tmpl := "{b} {a} {b} plain {c_1}"
	assert.Equal(t, []string{"a", "b", "c_1"}, RequiredVariables(tmpl))
	assert.Empty(t, RequiredVariables("no tokens here"))
}

func TestValidate(t *testing.T) {
	allowed := map[string]struct{}{"firstName": {}, "score": {}}
	assert.NoError(t, Validate("Hi {firstName}, score {score}", allowed))

	err := Validate("Hi {firstName}, {surprise}", allowed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "surprise")
}
