package fingerprint

import (
	"regexp"
	"strings"
	"testing"

	"github.com/strombasis/mako-assistant/pkg/errors"
)

var hexRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestComputeDeterministic(t *testing.T) {
	source := "module.exports = { run: async function(input){ return input; } };"

	first := Compute(source)
	second := Compute(source)

	if first.Hash != second.Hash {
		t.Fatalf("hash not stable: %s vs %s", first.Hash, second.Hash)
	}
	if !hexRe.MatchString(first.Hash) {
		t.Fatalf("hash is not 64-char lowercase hex: %q", first.Hash)
	}
	if first.Bytes != len(source) {
		t.Fatalf("bytes = %d, want %d", first.Bytes, len(source))
	}
	if first.Language != "node" {
		t.Fatalf("language = %q, want node", first.Language)
	}
}

func TestComputeDistinguishesSources(t *testing.T) {
	a := Compute("const a = 1;")
	b := Compute("const a = 2;")
	if a.Hash == b.Hash {
		t.Fatal("different sources must not collide")
	}
}

func TestPreviewCollapsedAndCapped(t *testing.T) {
	source := "line one\n\tline   two\r\nline three " + strings.Repeat("x", 500)
	info := Compute(source)

	if strings.ContainsAny(info.Preview, "\r\n\t") {
		t.Fatalf("preview contains raw whitespace: %q", info.Preview)
	}
	if !strings.HasPrefix(info.Preview, "line one line two line three") {
		t.Fatalf("preview not collapsed: %q", info.Preview)
	}
	if got := len([]rune(info.Preview)); got > 240 {
		t.Fatalf("preview length = %d, want <= 240", got)
	}
}

func TestLineCount(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"single line", "const a = 1;", 1},
		{"unix breaks", "a\nb\nc", 3},
		{"windows breaks", "a\r\nb\r\nc", 3},
		{"bare carriage returns", "a\rb", 2},
		{"trailing newline", "a\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.source).LineCount; got != tt.want {
				t.Fatalf("LineCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidateSubmission(t *testing.T) {
	if err := ValidateSubmission("const a = 1;"); err != nil {
		t.Fatalf("valid source rejected: %v", err)
	}

	err := ValidateSubmission("   \n\t  ")
	if err == nil {
		t.Fatal("whitespace-only source must be rejected")
	}
	if !errors.IsCode(err, errors.ErrCodeInvalidRequest) {
		t.Fatalf("unexpected code: %v", errors.GetCode(err))
	}
	if err.Error() == "" || !strings.Contains(err.Error(), "source ist erforderlich") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateSubmissionBoundary(t *testing.T) {
	atLimit := strings.Repeat("a", MaxSourceChars)
	if err := ValidateSubmission(atLimit); err != nil {
		t.Fatalf("4000-char source must be accepted: %v", err)
	}

	overLimit := strings.Repeat("a", MaxSourceChars+1)
	err := ValidateSubmission(overLimit)
	if err == nil {
		t.Fatal("4001-char source must be rejected")
	}
	if !strings.Contains(err.Error(), "überschreitet das Limit von 4000 Zeichen") {
		t.Fatalf("unexpected message: %v", err)
	}
}
