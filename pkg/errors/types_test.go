package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := Script(ErrCodeForbiddenAPIs, "Skript verwendet verbotene APIs").
		WithContext("apis", []string{"child_process"})

	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error string")
	}
	if got := GetCode(err); got != ErrCodeForbiddenAPIs {
		t.Fatalf("GetCode = %s, want %s", got, ErrCodeForbiddenAPIs)
	}
	if !IsCode(err, ErrCodeForbiddenAPIs) {
		t.Fatal("IsCode should match")
	}
	if IsCode(err, ErrCodeInvalidSyntax) {
		t.Fatal("IsCode should not match a different code")
	}
}

func TestStatusClasses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("source ist erforderlich"), 400},
		{"script", Script(ErrCodeEmptyCode, "leer"), 422},
		{"not found", NotFound("Tool-Job wurde nicht gefunden"), 404},
		{"upstream", Upstream(ErrCodeLLMGenerationFailed, "provider down", errors.New("boom")), 502},
		{"plain error", fmt.Errorf("plain"), 500},
		{"nil", nil, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Fatalf("StatusOf = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	err := Upstream(ErrCodeLLMGenerationFailed, "LLM-Generierung fehlgeschlagen", underlying)

	if !errors.Is(err, underlying) {
		t.Fatal("errors.Is should find the underlying error")
	}
}

func TestGetCodePlainError(t *testing.T) {
	if got := GetCode(errors.New("plain")); got != ErrCodeInternal {
		t.Fatalf("GetCode for plain error = %s, want %s", got, ErrCodeInternal)
	}
}
