// Package publisher emits scrape job lifecycle events to NATS.
package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/blockedby/tg-inviter/internal/inviter"
	"github.com/blockedby/tg-inviter/internal/logger"
)

// Subjects.
const (
	SubjectJobStarted  = "inviter.job.started"
	SubjectJobFinished = "inviter.job.finished"
)

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// JobEvent describes a scrape job at start or finish.
type JobEvent struct {
	JobID       uuid.UUID  `json:"job_id"`
	Source      string     `json:"source"`
	Target      string     `json:"target"`
	RequestedBy int64      `json:"requested_by"`
	State       string     `json:"state"`
	Total       int        `json:"total"`
	Added       int        `json:"added"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// NATSPublisher publishes job events.
type NATSPublisher struct {
	nc   NATSClient
	conn *nats.Conn
	log  *logger.Logger
}

// Connect dials NATS and returns a publisher owning the connection.
func Connect(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("tg-inviter"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	p := NewNATSPublisher(conn)
	p.conn = conn
	return p, nil
}

// NewNATSPublisher creates a publisher on an existing client.
func NewNATSPublisher(nc NATSClient) *NATSPublisher {
	return &NATSPublisher{nc: nc, log: logger.Get()}
}

// PublishJobStarted publishes a job start event.
func (p *NATSPublisher) PublishJobStarted(job *inviter.Job) error {
	return p.publish(SubjectJobStarted, eventFor(job))
}

// PublishJobFinished publishes a job's terminal result.
func (p *NATSPublisher) PublishJobFinished(job *inviter.Job, res inviter.Result) error {
	ev := eventFor(job)
	ev.State = string(res.State)
	ev.Total = res.Progress.Total
	ev.Added = res.Progress.Added
	ev.Failed = res.Progress.Failed
	ev.Skipped = res.Progress.Skipped
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	now := time.Now().UTC()
	ev.FinishedAt = &now
	return p.publish(SubjectJobFinished, ev)
}

// Hooks adapts the publisher to runner hooks. Publish failures are logged only.
func (p *NATSPublisher) Hooks() inviter.Hooks {
	return inviter.Hooks{
		Started: func(job *inviter.Job) {
			if err := p.PublishJobStarted(job); err != nil {
				p.log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to publish job event")
			}
		},
		Finished: func(job *inviter.Job, res inviter.Result) {
			if err := p.PublishJobFinished(job, res); err != nil {
				p.log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to publish job event")
			}
		},
	}
}

// Close drains the connection if the publisher owns one.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

func (p *NATSPublisher) publish(subject string, ev JobEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func eventFor(job *inviter.Job) JobEvent {
	p := job.Progress()
	return JobEvent{
		JobID:       job.ID,
		Source:      job.Source,
		Target:      job.Target,
		RequestedBy: job.RequestedBy,
		State:       string(job.State()),
		Total:       p.Total,
		Added:       p.Added,
		Failed:      p.Failed,
		Skipped:     p.Skipped,
		StartedAt:   job.StartedAt.UTC(),
	}
}
