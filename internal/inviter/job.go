package inviter

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a scrape job's position in its lifecycle.
type State string

// Job states. Completed, Aborted and Cancelled are terminal.
const (
	StateResolving State = "resolving"
	StateListing   State = "listing"
	StateIterating State = "iterating"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateCancelled
}

// Progress holds a job's running counters.
// Added+Failed+Skipped never exceeds Total.
type Progress struct {
	Total     int // members listed in the source
	Processed int // members consumed by the loop, including flood-consumed ones
	Added     int
	Failed    int
	Skipped   int
}

// Options describe a scrape job request.
type Options struct {
	Source      string
	Target      string
	RequestedBy int64
}

// Result is the final state of a job.
type Result struct {
	State    State
	Progress Progress
	Err      error // cause of Aborted/Cancelled, nil when Completed
}

// Job is one execution of a scrape command.
// The engine goroutine writes it; other goroutines only read snapshots.
type Job struct {
	ID          uuid.UUID
	Source      string
	Target      string
	RequestedBy int64
	StartedAt   time.Time

	mu       sync.Mutex
	state    State
	progress Progress
	result   *Result
	done     chan struct{}
}

// NewJob creates a job in the Resolving state.
func NewJob(opts Options) *Job {
	return &Job{
		ID:          uuid.New(),
		Source:      opts.Source,
		Target:      opts.Target,
		RequestedBy: opts.RequestedBy,
		StartedAt:   time.Now(),
		state:       StateResolving,
		done:        make(chan struct{}),
	}
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Progress returns a snapshot of the counters.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Done is closed once the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Result returns the final result, or nil while the job is running.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.result == nil {
		return nil
	}
	r := *j.result
	return &r
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) update(fn func(p *Progress)) Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.progress)
	return j.progress
}

// finish moves the job to a terminal state. Only the first call has effect.
func (j *Job) finish(s State, err error) Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.result != nil {
		return *j.result
	}
	j.state = s
	j.result = &Result{State: s, Progress: j.progress, Err: err}
	close(j.done)
	return *j.result
}
