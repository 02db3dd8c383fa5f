// Package agent turns inbound chat messages into scrape jobs.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockedby/tg-inviter/internal/command"
	"github.com/blockedby/tg-inviter/internal/config"
	"github.com/blockedby/tg-inviter/internal/inviter"
	"github.com/blockedby/tg-inviter/internal/logger"
	"github.com/blockedby/tg-inviter/internal/telegram"
)

// Authorizer decides whether a sender may issue commands.
type Authorizer interface {
	Authorize(senderID int64) bool
}

// JobRunner is the single job lane.
type JobRunner interface {
	Start(ctx context.Context, opts inviter.Options, open func(ctx context.Context, text string) (telegram.StatusMessage, error)) (*inviter.Job, error)
	Current() *inviter.Job
	Cancel() (*inviter.Job, error)
}

// Agent routes authorized commands to the job runner.
type Agent struct {
	gate   Authorizer
	runner JobRunner
	mode   config.Mode
	log    *logger.Logger
}

// New creates an agent.
func New(gate Authorizer, runner JobRunner, mode config.Mode, log *logger.Logger) *Agent {
	if log == nil {
		log = logger.Get()
	}
	return &Agent{gate: gate, runner: runner, mode: mode, log: log}
}

// HandleInbound handles one inbound message. Messages from anyone but the
// authorized principal are dropped without a reply.
func (a *Agent) HandleInbound(ctx context.Context, in telegram.Inbound) error {
	cmd := command.Parse(in.Text)

	if !a.gate.Authorize(in.SenderID) {
		if cmd.Kind != command.KindUnknown {
			a.log.Debug().Int64("sender_id", in.SenderID).Str("command", cmd.Kind.String()).Msg("unauthorized command dropped")
		}
		return nil
	}

	switch cmd.Kind {
	case command.KindStatus:
		return a.status(ctx, in)
	case command.KindScrape:
		return a.scrape(ctx, in, cmd)
	case command.KindCancel:
		return a.cancel(ctx, in)
	}

	if command.LooksLikeScrape(in.Text) {
		a.log.Warn().Str("text", in.Text).Msg("malformed scrape command, expected .scrape <source> <target>")
	}
	return nil
}

func (a *Agent) status(ctx context.Context, in telegram.Inbound) error {
	text := fmt.Sprintf("✅ Userbot is running and ready! Mode: %s", a.mode)
	if job := a.runner.Current(); job != nil {
		text += "\n\n" + inviter.StatusText(job)
	}
	return a.reply(ctx, in, text)
}

func (a *Agent) scrape(ctx context.Context, in telegram.Inbound, cmd command.Command) error {
	if in.Chat == nil {
		return nil
	}
	job, err := a.runner.Start(ctx, inviter.Options{
		Source:      cmd.Source,
		Target:      cmd.Target,
		RequestedBy: in.SenderID,
	}, in.Chat.Reply)
	if errors.Is(err, inviter.ErrAlreadyRunning) {
		return a.reply(ctx, in, "⚠️ A scrape job is already running. Send .status to check it or .cancel to stop it.")
	}
	if err != nil {
		a.log.Error().Err(err).Str("source", cmd.Source).Str("target", cmd.Target).Msg("failed to start scrape job")
		return nil
	}

	a.log.Info().
		Str("job_id", job.ID.String()).
		Str("source", cmd.Source).
		Str("target", cmd.Target).
		Msg("scrape job started")
	return nil
}

func (a *Agent) cancel(ctx context.Context, in telegram.Inbound) error {
	job, err := a.runner.Cancel()
	if errors.Is(err, inviter.ErrNoJob) {
		return a.reply(ctx, in, "No scrape job is running.")
	}
	if err != nil {
		return a.reply(ctx, in, fmt.Sprintf("❌ Error: %v", err))
	}

	a.log.Info().Str("job_id", job.ID.String()).Msg("scrape job cancel requested")
	return a.reply(ctx, in, "⏹ Cancelling the running scrape job...")
}

// reply sends a one-off reply. Send failures are logged only.
func (a *Agent) reply(ctx context.Context, in telegram.Inbound, text string) error {
	if in.Chat == nil {
		return nil
	}
	if _, err := in.Chat.Reply(ctx, text); err != nil {
		a.log.Warn().Err(err).Int64("chat_id", in.ChatID).Msg("failed to reply")
	}
	return nil
}
