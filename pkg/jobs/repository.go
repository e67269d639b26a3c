package jobs

import (
	"sort"
	"sync"
)

// Repository is the storage abstraction for job records. The in-memory
// implementation backs tests and single-process deployments; pkg/storage
// provides the persistent variant. Callers never depend on the concrete
// store.
type Repository interface {
	Insert(job *Job) error
	// Get returns (nil, nil) when no record exists. Ownership filtering is
	// the registry's concern, not the repository's.
	Get(id string) (*Job, error)
	// ListBySession returns the session's jobs owned by userID, newest first.
	ListBySession(sessionID, userID string) ([]*Job, error)
}

// MemoryRepository is a process-local repository. Jobs created on one
// instance are invisible to others; that limitation is documented, not
// hidden.
type MemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: make(map[string]*Job)}
}

// Insert stores a job record.
func (r *MemoryRepository) Insert(job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	return nil
}

// Get looks up a job by id.
func (r *MemoryRepository) Get(id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	return job, nil
}

// ListBySession returns the user's jobs in the session, createdAt descending.
func (r *MemoryRepository) ListBySession(sessionID, userID string) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Job
	for _, job := range r.jobs {
		if job.SessionID == sessionID && job.UserID == userID {
			matched = append(matched, job)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}
