package jobs

import (
	"fmt"
	"time"
)

// allowedTransitions is the explicit status state machine. Execution is
// disabled, so queued→queued is the only permitted edge today; a future
// executor adds its edges here without reshaping the registry.
var allowedTransitions = map[Status][]Status{
	StatusQueued: {StatusQueued},
}

// CanTransition reports whether a status transition is permitted.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the job to a new status, enforcing the state machine.
func (j *Job) Transition(to Status) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("job %s: transition %s -> %s is not permitted", j.ID, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = time.Now().UTC()
	return nil
}
