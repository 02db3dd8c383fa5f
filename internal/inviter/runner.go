package inviter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blockedby/tg-inviter/internal/telegram"
)

// ErrAlreadyRunning is returned by Start while another job is active.
var ErrAlreadyRunning = errors.New("a scrape job is already running")

// ErrNoJob is returned by Cancel when nothing is running.
var ErrNoJob = errors.New("no scrape job is running")

// Executor runs one job to completion.
type Executor interface {
	Run(ctx context.Context, job *Job, status telegram.StatusMessage) Result
}

// Hooks observe job lifecycle events. Either field may be nil.
type Hooks struct {
	Started  func(job *Job)
	Finished func(job *Job, res Result)
}

// Runner holds the single job lane. At most one job runs at a time;
// a second Start is rejected rather than queued.
type Runner struct {
	base  context.Context
	exec  Executor
	hooks Hooks

	mu       sync.Mutex
	current  *Job
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
}

// NewRunner creates a runner whose jobs derive from base, so they outlive the
// update that started them and stop when base is canceled.
func NewRunner(base context.Context, exec Executor, hooks Hooks) *Runner {
	return &Runner{base: base, exec: exec, hooks: hooks}
}

// Start reserves the lane, opens the status message and runs the job in the
// background. open is called only after the lane is reserved, so a rejected
// job never creates a status message.
func (r *Runner) Start(ctx context.Context, opts Options, open func(ctx context.Context, text string) (telegram.StatusMessage, error)) (*Job, error) {
	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	job := NewJob(opts)
	jobCtx, cancel := context.WithCancel(r.base)
	r.current = job
	r.cancelFn = cancel
	r.mu.Unlock()

	status, err := open(ctx, startText(opts.Source, opts.Target))
	if err != nil {
		r.release(job)
		cancel()
		return nil, fmt.Errorf("send status message: %w", err)
	}

	if r.hooks.Started != nil {
		r.hooks.Started(job)
	}

	r.wg.Add(1)
	go r.run(jobCtx, cancel, job, status)

	return job, nil
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, job *Job, status telegram.StatusMessage) {
	defer r.wg.Done()
	defer cancel()
	defer r.release(job)

	res := r.exec.Run(ctx, job, status)
	// executors that return without finishing still close the job
	state := res.State
	if !state.Terminal() {
		state = StateAborted
	}
	res = job.finish(state, res.Err)

	if r.hooks.Finished != nil {
		r.hooks.Finished(job, res)
	}
}

// release frees the lane if job still holds it.
func (r *Runner) release(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == job {
		r.current = nil
		r.cancelFn = nil
	}
}

// Current returns the running job, or nil.
func (r *Runner) Current() *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Cancel stops the running job. The job still reports its terminal state.
func (r *Runner) Cancel() (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil, ErrNoJob
	}
	r.cancelFn()
	return r.current, nil
}

// Wait blocks until the running job, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
