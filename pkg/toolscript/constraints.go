package toolscript

import (
	"encoding/json"
	"math"
	"strconv"
)

// Runtime limits for tool scripts. Timeouts are captured and clamped but
// inert until execution is enabled.
const (
	MinRuntimeMs     = 500
	MaxRuntimeMs     = 60000
	DefaultRuntimeMs = 5000
)

// Constraints is the normalized execution policy for a tool script.
type Constraints struct {
	Deterministic   bool `json:"deterministic"`
	AllowNetwork    bool `json:"allowNetwork"`
	AllowFilesystem bool `json:"allowFilesystem"`
	MaxRuntimeMs    int  `json:"maxRuntimeMs"`
}

// ConstraintsInput is the caller-supplied, partially specified policy.
// Nil fields fall back to the safe defaults.
type ConstraintsInput struct {
	Deterministic   *bool `json:"deterministic,omitempty"`
	AllowNetwork    *bool `json:"allowNetwork,omitempty"`
	AllowFilesystem *bool `json:"allowFilesystem,omitempty"`
	MaxRuntimeMs    any   `json:"maxRuntimeMs,omitempty"`
}

// ResolveConstraints normalizes a constraint input. It never fails:
// determinism defaults to true, both allowances default to false, and the
// runtime budget is coerced and clamped.
func ResolveConstraints(input *ConstraintsInput) Constraints {
	resolved := Constraints{
		Deterministic: true,
		MaxRuntimeMs:  DefaultRuntimeMs,
	}
	if input == nil {
		return resolved
	}

	if input.Deterministic != nil {
		resolved.Deterministic = *input.Deterministic
	}
	if input.AllowNetwork != nil {
		resolved.AllowNetwork = *input.AllowNetwork
	}
	if input.AllowFilesystem != nil {
		resolved.AllowFilesystem = *input.AllowFilesystem
	}
	resolved.MaxRuntimeMs = ResolveTimeout(input.MaxRuntimeMs)

	return resolved
}

// ResolveTimeout coerces an arbitrary timeout value to an integer and clamps
// it into [MinRuntimeMs, MaxRuntimeMs]. Absent or non-numeric values yield
// the default budget.
func ResolveTimeout(value any) int {
	ms, ok := coerceInt(value)
	if !ok {
		return DefaultRuntimeMs
	}
	return ClampTimeout(ms)
}

// ClampTimeout clamps a millisecond budget into the permitted range.
func ClampTimeout(ms int) int {
	if ms < MinRuntimeMs {
		return MinRuntimeMs
	}
	if ms > MaxRuntimeMs {
		return MaxRuntimeMs
	}
	return ms
}

func coerceInt(value any) (int, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		// Bound in float space first: int(v) outside the int range is an
		// unspecified conversion and can wrap.
		if v >= float64(MaxRuntimeMs) {
			return MaxRuntimeMs, true
		}
		if v <= float64(MinRuntimeMs) {
			return MinRuntimeMs, true
		}
		return int(v), true
	case float32:
		return coerceInt(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return coerceInt(f)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return coerceInt(f)
	default:
		return 0, false
	}
}
