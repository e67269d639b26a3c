package toolscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strombasis/mako-assistant/pkg/errors"
)

func TestNormalizeInputSchemaNil(t *testing.T) {
	schema, err := NormalizeInputSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, schema)
}

func TestNormalizeInputSchemaValid(t *testing.T) {
	schema, err := NormalizeInputSchema(map[string]any{
		"type":        "object",
		"description": "Zählerstandsdaten",
		"properties": map[string]any{
			"zaehlerstand": map[string]any{"type": "number", "description": "kWh", "example": 1234.5},
			"marktlokation": map[string]any{},
		},
		"required": []any{"zaehlerstand", "zaehlerstand", "unbekannt"},
	})
	require.NoError(t, err)
	require.NotNil(t, schema)

	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, "Zählerstandsdaten", schema.Description)
	assert.Equal(t, "number", schema.Properties["zaehlerstand"].Type)
	// Missing type defaults to string.
	assert.Equal(t, "string", schema.Properties["marktlokation"].Type)
	// Duplicates and undeclared names are dropped from required.
	assert.Equal(t, []string{"zaehlerstand"}, schema.Required)
}

func TestNormalizeInputSchemaRequiredOmittedWhenEmpty(t *testing.T) {
	schema, err := NormalizeInputSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{}},
		"required":   []any{"missing"},
	})
	require.NoError(t, err)
	assert.Nil(t, schema.Required)
}

func TestNormalizeInputSchemaErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		code errors.ErrorCode
	}{
		{"non-object schema", "not a map", errors.ErrCodeInvalidInputSchema},
		{"array type", map[string]any{"type": "array", "properties": map[string]any{}}, errors.ErrCodeUnsupportedInputSchema},
		{"missing type", map[string]any{"properties": map[string]any{}}, errors.ErrCodeUnsupportedInputSchema},
		{"bad properties", map[string]any{"type": "object", "properties": "nope"}, errors.ErrCodeInvalidInputProperties},
		{"bad property name", map[string]any{
			"type":       "object",
			"properties": map[string]any{"1abc": map[string]any{}},
		}, errors.ErrCodeInvalidPropertyName},
		{"property name with dash", map[string]any{
			"type":       "object",
			"properties": map[string]any{"mess-wert": map[string]any{}},
		}, errors.ErrCodeInvalidPropertyName},
		{"non-object property", map[string]any{
			"type":       "object",
			"properties": map[string]any{"a": "nope"},
		}, errors.ErrCodeInvalidPropertyValue},
		{"non-string property type", map[string]any{
			"type":       "object",
			"properties": map[string]any{"a": map[string]any{"type": 7}},
		}, errors.ErrCodeInvalidPropertyValue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeInputSchema(tc.raw)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tc.code), "expected %s, got %s", tc.code, errors.GetCode(err))
			assert.Equal(t, 422, errors.StatusOf(err))
		})
	}
}
