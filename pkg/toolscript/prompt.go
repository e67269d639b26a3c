package toolscript

import (
	"fmt"
	"sort"
	"strings"
)

// Free-text ceilings for generation requests. Enforced by request
// validation before prompt composition; the composer never truncates.
const (
	MaxInstructionsChars   = 1600
	MaxContextChars        = 2000
	MaxExpectedOutputChars = 1200
)

const promptPreamble = `You are a code generator for a regulated energy-market assistant backend.
You produce a single self-contained Node.js tool script.

Contract:
- The script is a CommonJS module for the Node 18 runtime.
- It must export exactly one entrypoint: an exported async function run(input).
- run(input) receives a plain JSON object and must return a JSON-serializable value.
- No top-level side effects: all work happens inside run.
- Do not require any module that is not explicitly permitted by the constraints below.`

const promptClosing = `Respond with pure JSON only - no markdown fences, no commentary.
The JSON object must have exactly these fields:
{"code": string, "description": string, "entrypoint": string, "runtime": string, "deterministic": boolean, "dependencies": string[], "warnings": string[], "notes": string[]}
"code" contains the full script source. "entrypoint" must be "run". "runtime" must be "node18".`

// ComposePrompt assembles the deterministic generation prompt from the
// normalized request parts. It is a pure function: identical inputs yield
// an identical prompt.
func ComposePrompt(instructions, additionalContext, expectedOutput string, constraints Constraints, schema *InputSchema) string {
	var sb strings.Builder

	sb.WriteString(promptPreamble)
	sb.WriteString("\n\n## Task\n")
	sb.WriteString(strings.TrimSpace(instructions))

	if ctx := strings.TrimSpace(additionalContext); ctx != "" {
		sb.WriteString("\n\n## Additional context\n")
		sb.WriteString(ctx)
	}

	if schema != nil {
		sb.WriteString("\n\n## Input schema\n")
		sb.WriteString(renderSchema(schema))
	}

	if expected := strings.TrimSpace(expectedOutput); expected != "" {
		sb.WriteString("\n\n## Expected output\n")
		sb.WriteString(expected)
	}

	sb.WriteString("\n\n## Constraints\n")
	sb.WriteString(renderConstraints(constraints))

	sb.WriteString("\n\n")
	sb.WriteString(promptClosing)

	return sb.String()
}

// renderSchema renders the input schema as a human-readable property list.
// Properties are sorted by name so the prompt is stable across calls.
func renderSchema(schema *InputSchema) string {
	var sb strings.Builder

	if schema.Description != "" {
		sb.WriteString(schema.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("run(input) receives an object with these properties:\n")

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop := schema.Properties[name]
		sb.WriteString(fmt.Sprintf("- %s (%s)", name, prop.Type))
		if prop.Description != "" {
			sb.WriteString(": " + prop.Description)
		}
		if prop.Example != nil {
			sb.WriteString(fmt.Sprintf(" [example: %v]", prop.Example))
		}
		sb.WriteString("\n")
	}

	if len(schema.Required) > 0 {
		sb.WriteString("Required properties: " + strings.Join(schema.Required, ", "))
	} else {
		sb.WriteString("All properties are optional.")
	}

	return sb.String()
}

func renderConstraints(constraints Constraints) string {
	var lines []string

	if constraints.Deterministic {
		lines = append(lines,
			"- The script must be deterministic: identical input produces identical output.",
			"- Forbidden: Math.random, crypto.randomUUID, crypto.randomBytes, Date.now, new Date() without arguments, setTimeout, setInterval.")
	} else {
		lines = append(lines, "- Determinism is not required for this script.")
	}

	if constraints.AllowFilesystem {
		lines = append(lines, "- Filesystem access via require('fs') / require('fs/promises') is permitted.")
	} else {
		lines = append(lines, "- Filesystem access is forbidden: do not require 'fs' or 'fs/promises'.")
	}

	if constraints.AllowNetwork {
		lines = append(lines, "- Network access via require('http'), 'https', 'net' or 'dns' is permitted.")
	} else {
		lines = append(lines, "- Network access is forbidden: do not require 'http', 'https', 'net' or 'dns'.")
	}

	lines = append(lines,
		"- Always forbidden: child_process, worker_threads, cluster, process.exit, process.kill.",
		fmt.Sprintf("- The script must complete within %d ms.", constraints.MaxRuntimeMs))

	return strings.Join(lines, "\n")
}
