package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strombasis/mako-assistant/pkg/fingerprint"
	"github.com/strombasis/mako-assistant/pkg/jobs"
)

// JobStore persists job records. It implements jobs.Repository.
type JobStore struct {
	store *Store
}

// NewJobStore creates a job store on an open Store.
func NewJobStore(store *Store) *JobStore {
	return &JobStore{store: store}
}

// Insert writes a job record.
func (s *JobStore) Insert(job *jobs.Job) error {
	metadata, err := marshalNullable(job.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	source, err := json.Marshal(job.Source)
	if err != nil {
		return fmt.Errorf("marshal source: %w", err)
	}
	result, err := marshalNullable(job.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	warnings, err := json.Marshal(job.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	diagnostics, err := json.Marshal(job.Diagnostics)
	if err != nil {
		return fmt.Errorf("marshal diagnostics: %w", err)
	}

	_, err = s.store.db.Exec(`
		INSERT INTO tool_jobs (
			id, kind, session_id, user_id, status,
			created_at, updated_at, timeout_ms,
			metadata, source, result, warnings, diagnostics
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Kind, job.SessionID, job.UserID, string(job.Status),
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.UpdatedAt.UTC().Format(time.RFC3339Nano),
		job.TimeoutMs,
		metadata, string(source), result, string(warnings), string(diagnostics),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get looks up a job by id, returning (nil, nil) when absent.
func (s *JobStore) Get(id string) (*jobs.Job, error) {
	row := s.store.db.QueryRow(`
		SELECT id, kind, session_id, user_id, status,
		       created_at, updated_at, timeout_ms,
		       metadata, source, result, warnings, diagnostics
		FROM tool_jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListBySession returns the user's jobs in a session, newest first.
func (s *JobStore) ListBySession(sessionID, userID string) ([]*jobs.Job, error) {
	rows, err := s.store.db.Query(`
		SELECT id, kind, session_id, user_id, status,
		       created_at, updated_at, timeout_ms,
		       metadata, source, result, warnings, diagnostics
		FROM tool_jobs
		WHERE session_id = ? AND user_id = ?
		ORDER BY created_at DESC`, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*jobs.Job, error) {
	var (
		job                  jobs.Job
		status               string
		createdAt, updatedAt string
		metadata, result     sql.NullString
		source               string
		warnings             string
		diagnostics          string
	)

	err := row.Scan(
		&job.ID, &job.Kind, &job.SessionID, &job.UserID, &status,
		&createdAt, &updatedAt, &job.TimeoutMs,
		&metadata, &source, &result, &warnings, &diagnostics,
	)
	if err != nil {
		return nil, err
	}

	job.Status = jobs.Status(status)
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &job.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	job.Source = fingerprint.SourceInfo{}
	if err := json.Unmarshal([]byte(source), &job.Source); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	if result.Valid && result.String != "" {
		job.Result = &jobs.Result{}
		if err := json.Unmarshal([]byte(result.String), job.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(warnings), &job.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	if err := json.Unmarshal([]byte(diagnostics), &job.Diagnostics); err != nil {
		return nil, fmt.Errorf("decode diagnostics: %w", err)
	}

	return &job, nil
}

// marshalNullable returns NULL for nil values instead of the JSON literal.
func marshalNullable(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return nil, nil
		}
	case *jobs.Result:
		if val == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
