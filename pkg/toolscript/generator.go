package toolscript

import (
	"context"
	"fmt"
	"strings"

	"github.com/strombasis/mako-assistant/pkg/errors"
	"github.com/strombasis/mako-assistant/pkg/logging"
)

// MetadataHints carries request metadata forwarded to the LLM provider for
// tracing and abuse attribution. It never influences the prompt.
type MetadataHints struct {
	SessionID string
	UserID    string
	Purpose   string
}

// LLMClient is the external provider collaborator. Implementations may
// return the raw response string or an already-decoded JSON object.
//
//go:generate mockgen -package=toolscript -destination=mock_llm_test.go github.com/strombasis/mako-assistant/pkg/toolscript LLMClient
type LLMClient interface {
	GenerateStructuredOutput(ctx context.Context, prompt string, hints MetadataHints) (any, error)
}

// GenerateRequest is a natural-language script generation request.
type GenerateRequest struct {
	SessionID         string            `json:"sessionId"`
	Instructions      string            `json:"instructions"`
	AdditionalContext string            `json:"context,omitempty"`
	ExpectedOutput    string            `json:"expectedOutput,omitempty"`
	Constraints       *ConstraintsInput `json:"constraints,omitempty"`
	InputSchema       any               `json:"inputSchema,omitempty"`
}

// GenerateResponse is returned to the caller. The descriptor is not stored
// as a job in this version.
type GenerateResponse struct {
	Script      *Descriptor  `json:"script"`
	Constraints Constraints  `json:"constraints"`
	InputSchema *InputSchema `json:"inputSchema,omitempty"`
}

// Generator orchestrates the generation path: request validation,
// normalization, prompt composition, the provider call, and candidate
// validation.
type Generator struct {
	llm    LLMClient
	engine *Engine
	log    *logging.Logger
}

// NewGenerator creates a script generator.
func NewGenerator(llm LLMClient, engine *Engine, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Generator{llm: llm, engine: engine, log: logger}
}

// GenerateDeterministicScript produces a validated script descriptor from
// natural-language instructions. Provider failures surface as 502-class
// errors; everything else is synchronous validation.
func (g *Generator) GenerateDeterministicScript(ctx context.Context, userID string, req GenerateRequest) (*GenerateResponse, error) {
	if err := validateGenerateRequest(req); err != nil {
		return nil, err
	}

	constraints := ResolveConstraints(req.Constraints)
	schema, err := NormalizeInputSchema(req.InputSchema)
	if err != nil {
		return nil, err
	}

	prompt := ComposePrompt(req.Instructions, req.AdditionalContext, req.ExpectedOutput, constraints, schema)

	g.log.Info(logging.CategoryLLM, "generation_requested", "requesting script candidate",
		map[string]any{"session_id": req.SessionID, "prompt_bytes": len(prompt)})

	payload, err := g.llm.GenerateStructuredOutput(ctx, prompt, MetadataHints{
		SessionID: req.SessionID,
		UserID:    userID,
		Purpose:   "tool-script-generation",
	})
	if err != nil {
		g.log.Error(logging.CategoryLLM, "generation_failed", "provider call failed",
			map[string]any{"session_id": req.SessionID, "error": err.Error()})
		return nil, errors.Upstream(errors.ErrCodeLLMGenerationFailed,
			"LLM-Generierung fehlgeschlagen", err)
	}

	descriptor, err := NormalizeCandidate(ctx, g.engine, payload, req.Instructions, constraints)
	if err != nil {
		g.log.Warn(logging.CategoryToolScript, "candidate_rejected", "generated candidate failed validation",
			map[string]any{"session_id": req.SessionID, "code": string(errors.GetCode(err))})
		return nil, err
	}

	g.log.Info(logging.CategoryToolScript, "script_generated", "candidate validated",
		map[string]any{"session_id": req.SessionID, "hash": descriptor.Source.Hash})

	return &GenerateResponse{
		Script:      descriptor,
		Constraints: constraints,
		InputSchema: schema,
	}, nil
}

func validateGenerateRequest(req GenerateRequest) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return errors.Validation("sessionId ist erforderlich")
	}
	if strings.TrimSpace(req.Instructions) == "" {
		return errors.Validation("instructions ist erforderlich")
	}

	limits := []struct {
		field string
		value string
		max   int
	}{
		{"instructions", req.Instructions, MaxInstructionsChars},
		{"context", req.AdditionalContext, MaxContextChars},
		{"expectedOutput", req.ExpectedOutput, MaxExpectedOutputChars},
	}
	for _, limit := range limits {
		if len([]rune(limit.value)) > limit.max {
			return errors.Validation(
				fmt.Sprintf("%s überschreitet das Limit von %d Zeichen", limit.field, limit.max)).
				WithContext("field", limit.field).
				WithContext("limit", limit.max)
		}
	}

	return nil
}
