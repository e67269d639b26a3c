package toolscript

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strombasis/mako-assistant/pkg/errors"
)

const validCandidateCode = "module.exports = { run: async (input) => input };"

func TestNormalizeCandidateFromObject(t *testing.T) {
	payload := map[string]any{
		"code":         validCandidateCode,
		"description":  "Gibt die Eingabe zurück",
		"entrypoint":   "main",
		"dependencies": []any{"lodash", "lodash", " ", "dayjs"},
		"warnings":     []any{"Hinweis A"},
		"notes":        []any{"Notiz"},
	}

	descriptor, err := NormalizeCandidate(context.Background(), testEngine(), payload, "instructions", defaultConstraints())
	require.NoError(t, err)

	assert.Equal(t, validCandidateCode, descriptor.Code)
	assert.Equal(t, "javascript", descriptor.Language)
	assert.Equal(t, "node18", descriptor.Runtime)
	// Whatever the model claims, the entrypoint is normalized to run.
	assert.Equal(t, "run", descriptor.Entrypoint)
	assert.Equal(t, "Gibt die Eingabe zurück", descriptor.Description)
	assert.Equal(t, []string{"lodash", "dayjs"}, descriptor.Dependencies)
	assert.Equal(t, []string{"Hinweis A"}, descriptor.Validation.Warnings)
	assert.Equal(t, []string{"Notiz"}, descriptor.Notes)
	assert.Len(t, descriptor.Source.Hash, 64)
	assert.True(t, descriptor.Deterministic)
}

func TestNormalizeCandidateFromJSONString(t *testing.T) {
	payload := `{"code": "module.exports = { run: async () => 1 };"}`

	descriptor, err := NormalizeCandidate(context.Background(), testEngine(), payload, "fallback", defaultConstraints())
	require.NoError(t, err)
	assert.Equal(t, "fallback", descriptor.Description)
}

func TestNormalizeCandidateScriptFieldFallback(t *testing.T) {
	payload := map[string]any{"script": validCandidateCode}

	descriptor, err := NormalizeCandidate(context.Background(), testEngine(), payload, "i", defaultConstraints())
	require.NoError(t, err)
	assert.Equal(t, validCandidateCode, descriptor.Code)
}

func TestNormalizeCandidateInvalidPayload(t *testing.T) {
	for _, payload := range []any{"not json at all", 42, []any{"list"}, nil} {
		_, err := NormalizeCandidate(context.Background(), testEngine(), payload, "i", defaultConstraints())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidLLMPayload),
			"payload %v should be rejected as invalid", payload)
	}
}

func TestNormalizeCandidateMissingCode(t *testing.T) {
	for _, payload := range []map[string]any{
		{},
		{"code": 42},
		{"code": nil},
	} {
		_, err := NormalizeCandidate(context.Background(), testEngine(), payload, "i", defaultConstraints())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeMissingCode))
	}
}

func TestNormalizeCandidateEmptyCodeString(t *testing.T) {
	// A present-but-empty code field is an engine concern, not a payload one.
	for _, payload := range []map[string]any{
		{"code": ""},
		{"code": "   "},
		{"code": "```js\n\n```"},
	} {
		_, err := NormalizeCandidate(context.Background(), testEngine(), payload, "i", defaultConstraints())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyCode),
			"expected empty_code, got %s", errors.GetCode(err))
	}
}

func TestNormalizeCandidateDescriptionTruncated(t *testing.T) {
	long := strings.Repeat("ä", 500)
	payload := map[string]any{"code": validCandidateCode, "description": long}

	descriptor, err := NormalizeCandidate(context.Background(), testEngine(), payload, "i", defaultConstraints())
	require.NoError(t, err)
	assert.Len(t, []rune(descriptor.Description), MaxDescriptionChars)
}

func TestNormalizeCandidateDependenciesCapped(t *testing.T) {
	deps := make([]any, 0, 20)
	for i := 0; i < 20; i++ {
		deps = append(deps, strings.Repeat("x", i+1))
	}
	payload := map[string]any{"code": validCandidateCode, "dependencies": deps}

	descriptor, err := NormalizeCandidate(context.Background(), testEngine(), payload, "i", defaultConstraints())
	require.NoError(t, err)
	assert.Len(t, descriptor.Dependencies, MaxDependencies)
}

func TestNormalizeCandidateValidationErrorsPropagate(t *testing.T) {
	payload := map[string]any{"code": "module.exports = { run: async () => Math.random() };"}

	_, err := NormalizeCandidate(context.Background(), testEngine(), payload, "i", defaultConstraints())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNonDeterministicCode))
}

func TestNormalizeCandidateMergesWarnings(t *testing.T) {
	tr := true
	constraints := ResolveConstraints(&ConstraintsInput{AllowFilesystem: &tr})
	payload := map[string]any{
		"code": "const fs = require('fs');\nmodule.exports = { run: async () => fs.constants };",
		"warnings": []any{"Modell-Warnung"},
	}

	descriptor, err := NormalizeCandidate(context.Background(), testEngine(), payload, "i", constraints)
	require.NoError(t, err)
	require.Len(t, descriptor.Validation.Warnings, 2)
	// Engine warnings come first.
	assert.Contains(t, descriptor.Validation.Warnings[0], `"fs"`)
	assert.Equal(t, "Modell-Warnung", descriptor.Validation.Warnings[1])
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"javascript fence", "```javascript\nconst a = 1;\n```", "const a = 1;"},
		{"bare fence", "```\nconst a = 1;\n```", "const a = 1;"},
		{"no fence", "const a = 1;", "const a = 1;"},
		{"surrounding whitespace", "  ```js\nconst a = 1;\n```  ", "const a = 1;"},
		{"interior backticks preserved", "const s = `tpl`;", "const s = `tpl`;"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFence(tc.in))
		})
	}
}
