// Package errors provides the structured error type shared by the
// tool-script pipeline. Every rejection carries a machine-readable code,
// an HTTP status class, and optional structured context.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

const (
	// Request validation (400)
	ErrCodeInvalidRequest ErrorCode = "invalid_request"

	// Script validation (422)
	ErrCodeEmptyCode            ErrorCode = "empty_code"
	ErrCodeInvalidSyntax        ErrorCode = "invalid_syntax"
	ErrCodeMissingEntrypoint    ErrorCode = "missing_entrypoint"
	ErrCodeMissingAsyncRun      ErrorCode = "missing_async_run"
	ErrCodeNonDeterministicCode ErrorCode = "non_deterministic_code"
	ErrCodeForbiddenAPIs        ErrorCode = "forbidden_apis"
	ErrCodeInvalidLLMPayload    ErrorCode = "invalid_llm_payload"
	ErrCodeMissingCode          ErrorCode = "missing_code"

	// Input schema validation (422)
	ErrCodeInvalidInputSchema      ErrorCode = "invalid_input_schema"
	ErrCodeUnsupportedInputSchema  ErrorCode = "unsupported_input_schema"
	ErrCodeInvalidInputProperties  ErrorCode = "invalid_input_properties"
	ErrCodeInvalidPropertyName     ErrorCode = "invalid_property_name"
	ErrCodeInvalidPropertyValue    ErrorCode = "invalid_property_value"

	// Ownership / lookup (404)
	ErrCodeJobNotFound ErrorCode = "job_not_found"

	// Admission control (429)
	ErrCodeRateLimited ErrorCode = "rate_limited"

	// Upstream (502)
	ErrCodeLLMGenerationFailed ErrorCode = "llm_generation_failed"

	// Fallback (500)
	ErrCodeInternal ErrorCode = "internal"
)

// Error is a structured pipeline error.
type Error struct {
	Code       ErrorCode
	Message    string
	Status     int
	Context    map[string]any
	Underlying error
}

// New creates a structured error with an explicit HTTP status class.
func New(code ErrorCode, status int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Context: make(map[string]any),
	}
}

// Validation creates a 400-class request validation error.
func Validation(message string) *Error {
	return New(ErrCodeInvalidRequest, 400, message)
}

// Script creates a 422-class script validation error.
func Script(code ErrorCode, message string) *Error {
	return New(code, 422, message)
}

// NotFound creates a 404-class lookup error. The message must not reveal
// whether the record exists under a different owner.
func NotFound(message string) *Error {
	return New(ErrCodeJobNotFound, 404, message)
}

// Upstream wraps a collaborator failure as a 502-class error.
func Upstream(code ErrorCode, message string, underlying error) *Error {
	e := New(code, 502, message)
	e.Underlying = underlying
	return e
}

// WithContext adds a context key-value pair to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", k, e.Context[k]))
		}
		sb.WriteString("}")
	}

	if e.Underlying != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Underlying))
	}

	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// IsCode checks whether an error carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	pipelineErr, ok := err.(*Error)
	if !ok {
		return false
	}
	return pipelineErr.Code == code
}

// GetCode extracts the error code, defaulting to internal for plain errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	pipelineErr, ok := err.(*Error)
	if !ok {
		return ErrCodeInternal
	}
	return pipelineErr.Code
}

// StatusOf returns the HTTP status class for an error, defaulting to 500.
func StatusOf(err error) int {
	if err == nil {
		return 200
	}
	pipelineErr, ok := err.(*Error)
	if !ok || pipelineErr.Status == 0 {
		return 500
	}
	return pipelineErr.Status
}
