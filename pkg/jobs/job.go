// Package jobs implements the lifecycle registry for submitted and
// generated tool-script jobs, with per-user ownership isolation.
package jobs

import (
	"time"

	"github.com/strombasis/mako-assistant/pkg/fingerprint"
)

// KindRunNodeScript is the only job kind in this version.
const KindRunNodeScript = "run-node-script"

// Status is the job lifecycle state. Execution is disabled, so every job
// stays queued; the full enum is kept for forward compatibility.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result is the execution outcome placeholder. Always nil in this version.
type Result struct {
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Diagnostics carries fixed operational notes attached at creation time.
type Diagnostics struct {
	ExecutionEnabled bool     `json:"executionEnabled"`
	Notes            []string `json:"notes"`
}

// Job is the internal job record. UserID identifies the owner and is never
// part of the public projection. Records are immutable after insertion.
type Job struct {
	ID          string
	Kind        string
	SessionID   string
	UserID      string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TimeoutMs   int
	Metadata    map[string]any
	Source      fingerprint.SourceInfo
	Result      *Result
	Warnings    []string
	Diagnostics Diagnostics
}

// View is the public projection of a job, with the owner stripped.
type View struct {
	ID          string                 `json:"id"`
	Kind        string                 `json:"kind"`
	SessionID   string                 `json:"sessionId"`
	Status      Status                 `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
	TimeoutMs   int                    `json:"timeoutMs"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
	Source      fingerprint.SourceInfo `json:"source"`
	Result      *Result                `json:"result"`
	Warnings    []string               `json:"warnings"`
	Diagnostics Diagnostics            `json:"diagnostics"`
}

// View returns the public projection of the job.
func (j *Job) View() View {
	return View{
		ID:          j.ID,
		Kind:        j.Kind,
		SessionID:   j.SessionID,
		Status:      j.Status,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		TimeoutMs:   j.TimeoutMs,
		Metadata:    j.Metadata,
		Source:      j.Source,
		Result:      j.Result,
		Warnings:    j.Warnings,
		Diagnostics: j.Diagnostics,
	}
}
