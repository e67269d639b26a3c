package toolscript

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/strombasis/mako-assistant/pkg/errors"
)

// PropertySpec is a normalized schema property for a generated script input.
type PropertySpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Example     any    `json:"example,omitempty"`
}

// InputSchema is the normalized declarative input schema for a generated
// script. Only flat object schemas are supported.
type InputSchema struct {
	Type        string                  `json:"type"`
	Description string                  `json:"description,omitempty"`
	Properties  map[string]PropertySpec `json:"properties"`
	Required    []string                `json:"required,omitempty"`
}

var propertyNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// NormalizeInputSchema validates and normalizes an optional input schema.
// A nil input yields a nil schema. Malformed entries are rejected, not
// silently dropped.
func NormalizeInputSchema(raw any) (*InputSchema, error) {
	if raw == nil {
		return nil, nil
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.Script(errors.ErrCodeInvalidInputSchema, "inputSchema muss ein Objekt sein")
	}

	schemaType, _ := obj["type"].(string)
	if schemaType != "object" {
		return nil, errors.Script(errors.ErrCodeUnsupportedInputSchema, "inputSchema.type muss \"object\" sein").
			WithContext("type", obj["type"])
	}

	rawProps, ok := obj["properties"].(map[string]any)
	if !ok {
		return nil, errors.Script(errors.ErrCodeInvalidInputProperties, "inputSchema.properties muss ein Objekt sein")
	}

	normalized := &InputSchema{
		Type:       "object",
		Properties: make(map[string]PropertySpec, len(rawProps)),
	}
	if desc, ok := obj["description"].(string); ok {
		normalized.Description = strings.TrimSpace(desc)
	}

	for name, rawProp := range rawProps {
		if !propertyNameRe.MatchString(name) {
			return nil, errors.Script(errors.ErrCodeInvalidPropertyName,
				fmt.Sprintf("ungültiger Property-Name %q", name)).
				WithContext("property", name)
		}

		prop, ok := rawProp.(map[string]any)
		if !ok {
			return nil, errors.Script(errors.ErrCodeInvalidPropertyValue,
				fmt.Sprintf("Property %q muss ein Objekt sein", name)).
				WithContext("property", name)
		}

		spec := PropertySpec{Type: "string"}
		if rawType, present := prop["type"]; present {
			propType, ok := rawType.(string)
			if !ok || strings.TrimSpace(propType) == "" {
				return nil, errors.Script(errors.ErrCodeInvalidPropertyValue,
					fmt.Sprintf("Property %q hat einen ungültigen Typ", name)).
					WithContext("property", name)
			}
			spec.Type = strings.TrimSpace(propType)
		}
		if desc, ok := prop["description"].(string); ok {
			spec.Description = strings.TrimSpace(desc)
		}
		if example, present := prop["example"]; present {
			spec.Example = example
		}

		normalized.Properties[name] = spec
	}

	normalized.Required = normalizeRequired(obj["required"], normalized.Properties)

	return normalized, nil
}

// normalizeRequired keeps only entries that reference a declared property,
// de-duplicated in input order. An empty result is omitted entirely.
func normalizeRequired(raw any, properties map[string]PropertySpec) []string {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}

	seen := make(map[string]struct{}, len(entries))
	var required []string
	for _, entry := range entries {
		name, ok := entry.(string)
		if !ok {
			continue
		}
		if _, declared := properties[name]; !declared {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		required = append(required, name)
	}

	if len(required) == 0 {
		return nil
	}
	return required
}
