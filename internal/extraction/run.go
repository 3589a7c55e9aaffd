package extraction

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is the handle of one extraction. It is safe for concurrent use.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time

	done chan struct{}

	mu         sync.RWMutex
	status     Status
	message    string
	err        error
	finishedAt time.Time
	items      int
	stored     int
}

// Snapshot is the JSON view of a run.
type Snapshot struct {
	ID         uuid.UUID  `json:"id"`
	Status     Status     `json:"status"`
	Message    string     `json:"message"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Items      int        `json:"items"`
	Stored     int        `json:"stored"`
	Error      string     `json:"error,omitempty"`
}

func newRun() *Run {
	return &Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		status:    StatusRunning,
		done:      make(chan struct{}),
	}
}

// Done is closed when the run finishes, successfully or not.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Err returns the failure of a finished run, or nil.
func (r *Run) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

func (r *Run) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Message returns the last progress message of the run.
func (r *Run) Message() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.message
}

// Snapshot returns a consistent copy of the run state.
func (r *Run) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{
		ID:        r.ID,
		Status:    r.status,
		Message:   r.message,
		StartedAt: r.StartedAt,
		Items:     r.items,
		Stored:    r.stored,
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		s.FinishedAt = &t
	}
	if r.err != nil {
		s.Error = r.err.Error()
	}
	return s
}

func (r *Run) progress(msg string) {
	r.mu.Lock()
	r.message = msg
	r.mu.Unlock()
}

func (r *Run) counts(items, stored int) {
	r.mu.Lock()
	r.items = items
	r.stored = stored
	r.mu.Unlock()
}

func (r *Run) finish(err error) {
	r.settle(err)
	close(r.done)
}

// settle records the outcome without releasing Done waiters.
func (r *Run) settle(err error) {
	r.mu.Lock()
	r.err = err
	r.finishedAt = time.Now().UTC()
	if err != nil {
		r.status = StatusFailed
	} else {
		r.status = StatusCompleted
	}
	r.mu.Unlock()
}
