// Package fingerprint derives audit metadata from submitted tool-script
// source without storing the full source in logs.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/strombasis/mako-assistant/pkg/errors"
)

// MaxSourceChars is the submission ceiling for ad-hoc scripts.
const MaxSourceChars = 4000

const previewMaxChars = 240

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	lineBreaks    = regexp.MustCompile(`\r\n|\r|\n`)
)

// SourceInfo is the fingerprint tuple for a piece of source text.
type SourceInfo struct {
	Language  string `json:"language"`
	Hash      string `json:"hash"`
	Bytes     int    `json:"bytes"`
	Preview   string `json:"preview"`
	LineCount int    `json:"lineCount"`
}

// ValidateSubmission enforces the request-level source contract: the source
// must be non-empty after trimming and within the character limit.
func ValidateSubmission(source string) error {
	if strings.TrimSpace(source) == "" {
		return errors.Validation("source ist erforderlich")
	}
	if len([]rune(source)) > MaxSourceChars {
		return errors.Validation("source überschreitet das Limit von 4000 Zeichen").
			WithContext("limit", MaxSourceChars)
	}
	return nil
}

// Compute derives a SourceInfo from source text. It is a pure function:
// identical input always yields an identical fingerprint.
func Compute(source string) SourceInfo {
	sum := sha256.Sum256([]byte(source))

	return SourceInfo{
		Language:  "node",
		Hash:      hex.EncodeToString(sum[:]),
		Bytes:     len(source),
		Preview:   preview(source),
		LineCount: len(lineBreaks.Split(source, -1)),
	}
}

// preview collapses all whitespace into single spaces and caps the result.
func preview(source string) string {
	collapsed := strings.TrimSpace(whitespaceRun.ReplaceAllString(source, " "))
	runes := []rune(collapsed)
	if len(runes) <= previewMaxChars {
		return collapsed
	}
	return string(runes[:previewMaxChars])
}
