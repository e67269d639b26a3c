package jobs

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strombasis/mako-assistant/pkg/errors"
	"github.com/strombasis/mako-assistant/pkg/fingerprint"
	"github.com/strombasis/mako-assistant/pkg/logging"
	"github.com/strombasis/mako-assistant/pkg/toolscript"
)

// notFoundMessage is identical for missing and foreign-owned jobs so a
// caller cannot probe whether an id exists under another account.
const notFoundMessage = "Tool-Job wurde nicht gefunden"

// Standing warnings attached to every queued job while execution is off.
var standingWarnings = []string{
	"Das Skript wurde noch nicht ausgeführt und muss manuell geprüft werden.",
	"Die Ausführung von Tool-Skripten ist in dieser Version deaktiviert.",
}

// SubmitRequest is an ad-hoc script submission. Metadata stays untyped so
// a non-object value is rejected here with the named message instead of
// failing generic body decoding.
type SubmitRequest struct {
	SessionID string `json:"sessionId"`
	Source    string `json:"source"`
	TimeoutMs any    `json:"timeoutMs,omitempty"`
	Metadata  any    `json:"metadata,omitempty"`
}

// Registry creates and resolves jobs with per-user ownership isolation.
type Registry struct {
	repo Repository
	log  *logging.Logger
}

// NewRegistry creates a job registry on top of a repository.
func NewRegistry(repo Repository, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Registry{repo: repo, log: logger}
}

// CreateNodeScriptJob validates a submission and queues it. The job is
// immutable after insertion: no executor picks it up in this version.
func (r *Registry) CreateNodeScriptJob(userID string, req SubmitRequest) (*View, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		reject(errors.ErrCodeInvalidRequest)
		return nil, errors.Validation("sessionId ist erforderlich")
	}
	if err := fingerprint.ValidateSubmission(req.Source); err != nil {
		reject(errors.GetCode(err))
		return nil, err
	}

	metadata, err := sanitizeMetadata(req.Metadata)
	if err != nil {
		reject(errors.GetCode(err))
		return nil, err
	}

	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		Kind:      KindRunNodeScript,
		SessionID: req.SessionID,
		UserID:    userID,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		TimeoutMs: toolscript.ResolveTimeout(req.TimeoutMs),
		Metadata:  metadata,
		Source:    fingerprint.Compute(req.Source),
		Warnings:  append([]string(nil), standingWarnings...),
		Diagnostics: Diagnostics{
			ExecutionEnabled: false,
			Notes:            []string{"Der Job wurde registriert, aber kein Executor ist aktiv."},
		},
	}

	if err := r.repo.Insert(job); err != nil {
		r.log.Error(logging.CategoryJobs, "job_insert_failed", "failed to persist job",
			map[string]any{"job_id": job.ID, "error": err.Error()})
		return nil, errors.New(errors.ErrCodeInternal, 500, "Job konnte nicht gespeichert werden")
	}

	jobsCreated.Inc()
	r.log.Info(logging.CategoryJobs, "job_queued", "node script job queued",
		map[string]any{
			"job_id":     job.ID,
			"session_id": job.SessionID,
			"hash":       job.Source.Hash,
			"timeout_ms": job.TimeoutMs,
		})

	view := job.View()
	return &view, nil
}

// GetJobForUser resolves a job by id, scoped to the requesting user. Missing
// jobs and jobs owned by someone else are indistinguishable to the caller.
func (r *Registry) GetJobForUser(userID, jobID string) (*View, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, errors.Validation("jobId ist erforderlich")
	}

	job, err := r.repo.Get(jobID)
	if err != nil {
		r.log.Error(logging.CategoryJobs, "job_lookup_failed", "repository lookup failed",
			map[string]any{"job_id": jobID, "error": err.Error()})
		return nil, errors.New(errors.ErrCodeInternal, 500, "Job konnte nicht geladen werden")
	}
	if job == nil || job.UserID != userID {
		jobLookupMisses.Inc()
		return nil, errors.NotFound(notFoundMessage)
	}

	view := job.View()
	return &view, nil
}

// ListJobsForSession returns the user's jobs in a session, newest first.
func (r *Registry) ListJobsForSession(userID, sessionID string) ([]View, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.Validation("sessionId ist erforderlich")
	}

	records, err := r.repo.ListBySession(sessionID, userID)
	if err != nil {
		r.log.Error(logging.CategoryJobs, "job_list_failed", "repository listing failed",
			map[string]any{"session_id": sessionID, "error": err.Error()})
		return nil, errors.New(errors.ErrCodeInternal, 500, "Jobs konnten nicht geladen werden")
	}

	views := make([]View, 0, len(records))
	for _, job := range records {
		views = append(views, job.View())
	}
	return views, nil
}

// sanitizeMetadata requires metadata to be a plain object and round-trips
// it through JSON so stored records hold only serializable values.
func sanitizeMetadata(metadata any) (map[string]any, error) {
	if metadata == nil {
		return nil, nil
	}

	obj, ok := metadata.(map[string]any)
	if !ok {
		return nil, errors.Validation("metadata muss ein Objekt sein")
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, errors.Validation("metadata enthält nicht serialisierbare Werte").
			WithContext("detail", err.Error())
	}

	var clean map[string]any
	if err := json.Unmarshal(raw, &clean); err != nil {
		return nil, errors.Validation("metadata enthält nicht serialisierbare Werte")
	}
	return clean, nil
}

func reject(code errors.ErrorCode) {
	jobsRejected.WithLabelValues(string(code)).Inc()
}
