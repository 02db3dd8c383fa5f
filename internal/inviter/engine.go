// Package inviter runs scrape-and-invite jobs: resolve a source and a target
// group, list the source members and invite them one by one into the target.
package inviter

import (
	"context"
	"time"

	"github.com/blockedby/tg-inviter/internal/logger"
	"github.com/blockedby/tg-inviter/internal/telegram"
)

// terminalEditTimeout bounds the final status edit when the job context is gone.
const terminalEditTimeout = 15 * time.Second

// Transport is the part of the messaging client the engine needs.
type Transport interface {
	ResolveGroup(ctx context.Context, ref string) (*telegram.Group, error)
	ListMembers(ctx context.Context, g *telegram.Group) ([]telegram.Member, error)
	InviteMember(ctx context.Context, g *telegram.Group, m telegram.Member) error
}

// Pacing controls the delays of the invite loop.
type Pacing struct {
	InviteDelay   time.Duration // after every successful invite
	FloodCooldown time.Duration // minimum pause after a flood signal
	ErrorDelay    time.Duration // after an unclassified failure
	ProgressEvery int           // successes between progress edits
}

// DefaultPacing returns the conservative production pacing.
func DefaultPacing() Pacing {
	return Pacing{
		InviteDelay:   2 * time.Second,
		FloodCooldown: 60 * time.Second,
		ErrorDelay:    time.Second,
		ProgressEvery: 10,
	}
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Engine drives a job through Resolving, Listing and Iterating.
type Engine struct {
	transport Transport
	pacing    Pacing
	selfID    int64
	sleep     SleepFunc
	metrics   *Metrics
	log       *logger.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSleep replaces the pause implementation.
func WithSleep(fn SleepFunc) EngineOption {
	return func(e *Engine) { e.sleep = fn }
}

// WithMetrics records outcomes on m.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine acting as selfID.
func NewEngine(t Transport, pacing Pacing, selfID int64, opts ...EngineOption) *Engine {
	if pacing.ProgressEvery <= 0 {
		pacing.ProgressEvery = DefaultPacing().ProgressEvery
	}
	e := &Engine{
		transport: t,
		pacing:    pacing,
		selfID:    selfID,
		sleep:     sleepCtx,
		log:       logger.Get(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes job to a terminal state, reporting through status.
// Every path ends with exactly one terminal edit of status.
func (e *Engine) Run(ctx context.Context, job *Job, status telegram.StatusMessage) Result {
	log := e.log.WithStr("job_id", job.ID.String())
	e.metrics.jobStarted()

	res := e.run(ctx, job, status, log)

	e.metrics.jobFinished(res.State)
	ev := log.Info()
	if res.Err != nil {
		ev = log.Warn().Err(res.Err)
	}
	ev.Str("state", string(res.State)).
		Int("added", res.Progress.Added).
		Int("failed", res.Progress.Failed).
		Int("skipped", res.Progress.Skipped).
		Int("total", res.Progress.Total).
		Msg("scrape job finished")
	return res
}

func (e *Engine) run(ctx context.Context, job *Job, status telegram.StatusMessage, log *logger.Logger) Result {
	log.Info().Str("source", job.Source).Str("target", job.Target).Msg("resolving groups")

	job.setState(StateResolving)
	source, err := e.transport.ResolveGroup(ctx, job.Source)
	if err != nil {
		return e.stop(ctx, job, status, log, err, resolveErrorText(err))
	}
	target, err := e.transport.ResolveGroup(ctx, job.Target)
	if err != nil {
		return e.stop(ctx, job, status, log, err, resolveErrorText(err))
	}

	job.setState(StateListing)
	members, err := e.transport.ListMembers(ctx, source)
	if err != nil {
		return e.stop(ctx, job, status, log, err, listErrorText(err))
	}
	job.update(func(p *Progress) { p.Total = len(members) })
	log.Info().Int("members", len(members)).Str("source", source.Title).Str("target", target.Title).Msg("members listed")
	e.edit(ctx, status, log, foundText(len(members)))

	job.setState(StateIterating)
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return e.cancel(job, status, log, err)
		}

		if reason := skipReason(m, e.selfID); reason != "" {
			job.update(func(p *Progress) { p.Processed++; p.Skipped++ })
			e.metrics.outcome(OutcomeSkip)
			log.Debug().Int64("user_id", m.ID).Str("reason", reason).Msg("member skipped")
			continue
		}

		err := e.transport.InviteMember(ctx, target, m)
		if ctx.Err() != nil {
			// the invite may or may not have landed; leave it uncounted
			return e.cancel(job, status, log, ctx.Err())
		}

		outcome := Classify(err)
		e.metrics.outcome(outcome)

		switch outcome {
		case OutcomeSuccess:
			p := job.update(func(p *Progress) { p.Processed++; p.Added++ })
			log.Info().Int64("user_id", m.ID).Str("username", m.Username).Msg("member added")
			if p.Added%e.pacing.ProgressEvery == 0 {
				e.edit(ctx, status, log, progressText(p.Added))
			}
			if err := e.sleep(ctx, e.pacing.InviteDelay); err != nil {
				return e.cancel(job, status, log, err)
			}

		case OutcomeRateLimited:
			// the member that hit the limit is consumed, not retried
			p := job.update(func(p *Progress) { p.Processed++ })
			wait := floodPause(err, e.pacing.FloodCooldown)
			log.Warn().Err(err).Dur("pause", wait).Int("added", p.Added).Msg("flood signal, pausing")
			e.edit(ctx, status, log, pauseText(p, wait))

			job.setState(StatePaused)
			if err := e.sleep(ctx, wait); err != nil {
				return e.cancel(job, status, log, err)
			}
			job.setState(StateIterating)

		case OutcomeSkip:
			job.update(func(p *Progress) { p.Processed++; p.Skipped++ })
			log.Debug().Int64("user_id", m.ID).Msg("member already in target")

		case OutcomeSoftFail:
			job.update(func(p *Progress) { p.Processed++; p.Failed++ })
			log.Debug().Err(err).Int64("user_id", m.ID).Msg("member not added")

		case OutcomeFatal:
			job.update(func(p *Progress) { p.Processed++ })
			log.Error().Err(err).Str("target", job.Target).Msg("no admin rights in target")
			return e.stop(ctx, job, status, log, err, adminRequiredText(job.Progress()))

		default:
			job.update(func(p *Progress) { p.Processed++; p.Failed++ })
			log.Error().Err(err).Int64("user_id", m.ID).Msg("invite failed")
			if err := e.sleep(ctx, e.pacing.ErrorDelay); err != nil {
				return e.cancel(job, status, log, err)
			}
		}
	}

	res := job.finish(StateCompleted, nil)
	e.terminal(ctx, status, log, completedText(res.Progress))
	return res
}

// stop aborts the job with text, or cancels it if ctx is already done.
func (e *Engine) stop(ctx context.Context, job *Job, status telegram.StatusMessage, log *logger.Logger, cause error, text string) Result {
	if ctx.Err() != nil {
		return e.cancel(job, status, log, ctx.Err())
	}
	res := job.finish(StateAborted, cause)
	e.terminal(ctx, status, log, text)
	return res
}

func (e *Engine) cancel(job *Job, status telegram.StatusMessage, log *logger.Logger, cause error) Result {
	res := job.finish(StateCancelled, cause)
	e.terminal(context.Background(), status, log, cancelledText(res.Progress))
	return res
}

// terminal performs the final edit. It survives cancellation of ctx.
func (e *Engine) terminal(ctx context.Context, status telegram.StatusMessage, log *logger.Logger, text string) {
	editCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalEditTimeout)
	defer cancel()
	e.edit(editCtx, status, log, text)
}

// edit updates the status message. Failures are logged and never stop the job.
func (e *Engine) edit(ctx context.Context, status telegram.StatusMessage, log *logger.Logger, text string) {
	if status == nil {
		return
	}
	if err := status.Edit(ctx, text); err != nil {
		log.Warn().Err(err).Msg("failed to edit status message")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
