package toolscript

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/strombasis/mako-assistant/pkg/errors"
	"github.com/strombasis/mako-assistant/pkg/fingerprint"
)

// Fixed descriptor fields for this version of the pipeline.
const (
	ScriptLanguage = "javascript"
	ScriptRuntime  = "node18"
	// Entrypoint is fixed: whatever the model claims, the exported function
	// is normalized to "run".
	ScriptEntrypoint = "run"

	MaxDescriptionChars = 280
	MaxDependencies     = 10
	MaxListEntries      = 6
)

// Descriptor is the fully validated result of a generation request. It is
// structurally ready to be registered as a job, but the current version
// returns it to the caller instead.
type Descriptor struct {
	Code          string                 `json:"code"`
	Language      string                 `json:"language"`
	Entrypoint    string                 `json:"entrypoint"`
	Description   string                 `json:"description"`
	Runtime       string                 `json:"runtime"`
	Deterministic bool                   `json:"deterministic"`
	Dependencies  []string               `json:"dependencies"`
	Source        fingerprint.SourceInfo `json:"source"`
	Validation    ValidationReport       `json:"validation"`
	Notes         []string               `json:"notes"`
}

var codeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\n(.*?)\n?```\\s*$")

// NormalizeCandidate parses a raw LLM payload into a validated Descriptor.
// The payload may be the raw response string or an already-decoded object.
// The extracted code runs through the static validation engine; engine
// warnings are merged with candidate-supplied warnings.
func NormalizeCandidate(ctx context.Context, engine *Engine, payload any, instructions string, constraints Constraints) (*Descriptor, error) {
	obj, err := decodeCandidatePayload(payload)
	if err != nil {
		return nil, err
	}

	// missing_code covers absent or non-string fields only; an empty string
	// is still a code field and is classified by the engine as empty_code.
	code, ok := obj["code"].(string)
	if !ok {
		code, ok = obj["script"].(string)
	}
	if !ok {
		return nil, errors.Script(errors.ErrCodeMissingCode, "Antwort enthält keinen Skript-Code")
	}
	code = StripCodeFence(code)

	description := strings.TrimSpace(stringField(obj, "description"))
	if description == "" {
		description = strings.TrimSpace(instructions)
	}
	description = truncate(description, MaxDescriptionChars)

	dependencies := stringList(obj["dependencies"], MaxDependencies)
	candidateWarnings := stringList(obj["warnings"], MaxListEntries)
	notes := stringList(obj["notes"], MaxListEntries)

	report, err := engine.Validate(ctx, code, constraints, ScriptEntrypoint)
	if err != nil {
		return nil, err
	}
	report.Warnings = mergeWarnings(report.Warnings, candidateWarnings)

	return &Descriptor{
		Code:          code,
		Language:      ScriptLanguage,
		Entrypoint:    ScriptEntrypoint,
		Description:   description,
		Runtime:       ScriptRuntime,
		Deterministic: constraints.Deterministic,
		Dependencies:  dependencies,
		Source:        fingerprint.Compute(code),
		Validation:    *report,
		Notes:         notes,
	}, nil
}

func decodeCandidatePayload(payload any) (map[string]any, error) {
	switch v := payload.(type) {
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil, errors.Script(errors.ErrCodeInvalidLLMPayload,
				"Antwort des Modells ist kein gültiges JSON-Objekt").
				WithContext("detail", err.Error())
		}
		return obj, nil
	case map[string]any:
		return v, nil
	default:
		return nil, errors.Script(errors.ErrCodeInvalidLLMPayload,
			"Antwort des Modells ist kein gültiges JSON-Objekt")
	}
}

// StripCodeFence unwraps a ```lang fenced block if the whole value is one
// fence; otherwise the trimmed value is returned unchanged.
func StripCodeFence(code string) string {
	trimmed := strings.TrimSpace(code)
	if match := codeFenceRe.FindStringSubmatch(trimmed); match != nil {
		return strings.TrimSpace(match[1])
	}
	return trimmed
}

func stringField(obj map[string]any, key string) string {
	value, _ := obj[key].(string)
	return value
}

// stringList filters a raw list down to trimmed, de-duplicated strings,
// capped at limit entries.
func stringList(raw any, limit int) []string {
	entries, ok := raw.([]any)
	if !ok {
		return []string{}
	}

	seen := make(map[string]struct{}, len(entries))
	result := []string{}
	for _, entry := range entries {
		value, ok := entry.(string)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
		if len(result) >= limit {
			break
		}
	}
	return result
}

func mergeWarnings(engineWarnings, candidateWarnings []string) []string {
	merged := []string{}
	seen := make(map[string]struct{})
	for _, list := range [][]string{engineWarnings, candidateWarnings} {
		for _, warning := range list {
			if _, dup := seen[warning]; dup {
				continue
			}
			seen[warning] = struct{}{}
			merged = append(merged, warning)
		}
	}
	return merged
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
