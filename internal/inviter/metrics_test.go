package inviter

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/blockedby/tg-inviter/internal/telegram"
)

func TestMetrics_RecordsOutcomesAndJobs(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	ms := members(4)
	ms[0].Bot = true
	tr := newFakeTransport(ms)
	tr.inviteErr[2] = fmt.Errorf("%w: x", telegram.ErrPrivacyRestricted)
	e, _ := newTestEngine(tr, WithMetrics(m))

	e.Run(context.Background(), NewJob(Options{Source: "@source", Target: "@target"}), &fakeStatus{})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.invites.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.invites.WithLabelValues("skip")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.invites.WithLabelValues("soft_fail")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobs.WithLabelValues("completed")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.activeJobs))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.outcome(OutcomeSuccess)
		m.jobStarted()
		m.jobFinished(StateCompleted)
	})
}
