package toolscript

import (
	"strings"
	"testing"
)

func TestComposePromptDeterministic(t *testing.T) {
	constraints := ResolveConstraints(nil)
	schema := &InputSchema{
		Type: "object",
		Properties: map[string]PropertySpec{
			"beta":  {Type: "number"},
			"alpha": {Type: "string", Description: "erste Eingabe"},
		},
		Required: []string{"alpha"},
	}

	first := ComposePrompt("Summiere die Werte", "", "", constraints, schema)
	second := ComposePrompt("Summiere die Werte", "", "", constraints, schema)

	if first != second {
		t.Fatal("identical inputs must produce an identical prompt")
	}

	// Sorted property order keeps the prompt stable regardless of map order.
	if strings.Index(first, "- alpha") > strings.Index(first, "- beta") {
		t.Error("properties should be rendered in sorted order")
	}
}

func TestComposePromptSections(t *testing.T) {
	constraints := ResolveConstraints(nil)

	prompt := ComposePrompt("Task text", "Kontext text", "Expected text", constraints, nil)

	for _, want := range []string{
		"## Task",
		"Task text",
		"## Additional context",
		"Kontext text",
		"## Expected output",
		"Expected text",
		"## Constraints",
		"must be deterministic",
		"Filesystem access is forbidden",
		"Network access is forbidden",
		"child_process",
		"within 5000 ms",
		"pure JSON only",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt should contain %q", want)
		}
	}

	if strings.Contains(prompt, "## Input schema") {
		t.Error("schema section should be omitted when no schema is given")
	}
}

func TestComposePromptOptionalSectionsOmitted(t *testing.T) {
	prompt := ComposePrompt("Task", "", "", ResolveConstraints(nil), nil)

	if strings.Contains(prompt, "## Additional context") {
		t.Error("context section should be omitted when empty")
	}
	if strings.Contains(prompt, "## Expected output") {
		t.Error("expected output section should be omitted when empty")
	}
}

func TestComposePromptRelaxedConstraints(t *testing.T) {
	f := false
	tr := true
	constraints := ResolveConstraints(&ConstraintsInput{
		Deterministic:   &f,
		AllowFilesystem: &tr,
		AllowNetwork:    &tr,
		MaxRuntimeMs:    30000,
	})

	prompt := ComposePrompt("Task", "", "", constraints, nil)

	for _, want := range []string{
		"Determinism is not required",
		"Filesystem access via require('fs')",
		"Network access via require('http')",
		"within 30000 ms",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt should contain %q", want)
		}
	}
}
