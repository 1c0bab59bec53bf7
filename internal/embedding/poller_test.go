package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northpages/contentsync/internal/models"
)

func TestStatusPoller_SuppressesDuplicateTerminal(t *testing.T) {
	p := NewStatusPoller()
	assert.Equal(t, PollNotStarted, p.State())

	assert.True(t, p.Observe(models.JobPending))
	assert.Equal(t, Polling, p.State())
	assert.True(t, p.Observe(models.JobProcessing))
	assert.False(t, p.Done())

	// First terminal observation surfaces and stops polling.
	assert.True(t, p.Observe(models.JobCompleted))
	assert.Equal(t, TerminalObserved, p.State())
	assert.True(t, p.Done())

	// Later observations, terminal or not, are suppressed.
	assert.False(t, p.Observe(models.JobCompleted))
	assert.False(t, p.Observe(models.JobProcessing))
	assert.Equal(t, models.JobCompleted, p.Last())
}

func TestStatusPoller_TerminalStates(t *testing.T) {
	for _, status := range []models.JobStatus{
		models.JobCompleted, models.JobError, models.JobPartialSuccess,
	} {
		p := NewStatusPoller()
		assert.True(t, p.Observe(status), "first %s observation surfaces", status)
		assert.False(t, p.Observe(status), "second %s observation suppressed", status)
	}
}

func TestStatusPoller_ImmediateTerminal(t *testing.T) {
	// A job may already be finished on first poll.
	p := NewStatusPoller()
	assert.True(t, p.Observe(models.JobError))
	assert.True(t, p.Done())
}
