package waiter

import (
	"fmt"
	"sync"
	"time"
)

type outcome struct {
	url string
	err error
}

type pendingJob struct {
	done  chan outcome
	timer *time.Timer
}

// Registry maps kie.ai task ids to jobs awaiting their callback.
// Removal from the map is the single point of settlement: whichever of
// callback, timeout, or cancellation removes the entry delivers the outcome.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*pendingJob
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*pendingJob)}
}

// add registers taskID and arms its timeout.
func (r *Registry) add(taskID string, timeout time.Duration) (*pendingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[taskID]; exists {
		return nil, fmt.Errorf("%w: task %s is already pending", ErrSubmission, taskID)
	}

	job := &pendingJob{done: make(chan outcome, 1)}
	timeoutErr := fmt.Errorf("%w after %g seconds", ErrTimeout, timeout.Seconds())
	job.timer = time.AfterFunc(timeout, func() {
		r.settle(taskID, outcome{err: timeoutErr})
	})
	r.jobs[taskID] = job
	return job, nil
}

// settle removes taskID and delivers out to its waiter. It returns false
// when no job is pending under that id.
func (r *Registry) settle(taskID string, out outcome) bool {
	r.mu.Lock()
	job, ok := r.jobs[taskID]
	if ok {
		delete(r.jobs, taskID)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	job.timer.Stop()
	job.done <- out
	return true
}

// Len returns the number of pending jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// closeAll settles every pending job with err.
func (r *Registry) closeAll(err error) int {
	r.mu.Lock()
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	n := 0
	for _, id := range ids {
		if r.settle(id, outcome{err: err}) {
			n++
		}
	}
	return n
}
