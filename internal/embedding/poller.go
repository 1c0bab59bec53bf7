package embedding

import (
	"sync"

	"github.com/northpages/contentsync/internal/models"
)

// PollState is the poller's position in its small state machine.
type PollState int

const (
	// PollNotStarted means no status has been observed yet.
	PollNotStarted PollState = iota
	// Polling means non-terminal statuses have been observed.
	Polling
	// TerminalObserved means a terminal status was seen; further
	// observations are suppressed.
	TerminalObserved
)

// StatusPoller is the client-side polling contract for the job status
// endpoint: consumers watching a job feed each fetched status through
// Observe and surface only what it approves. It suppresses duplicate
// terminal notifications for one job: once a terminal status has been
// observed, Observe reports false and the caller stops polling and emits
// nothing further. The server never constructs one; it is deliberately
// decoupled from whatever transport delivers the statuses.
type StatusPoller struct {
	mu    sync.Mutex
	state PollState
	last  models.JobStatus
}

// NewStatusPoller creates a poller in the not-started state.
func NewStatusPoller() *StatusPoller {
	return &StatusPoller{}
}

// Observe feeds one polled status. It returns true when the observation
// should be surfaced to the user: every non-terminal status, and the
// first terminal one. All observations after a terminal status return
// false.
func (p *StatusPoller) Observe(status models.JobStatus) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == TerminalObserved {
		return false
	}

	p.last = status
	if status.IsTerminal() {
		p.state = TerminalObserved
	} else {
		p.state = Polling
	}
	return true
}

// State returns the poller's current state.
func (p *StatusPoller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done reports whether polling should stop.
func (p *StatusPoller) Done() bool {
	return p.State() == TerminalObserved
}

// Last returns the most recently surfaced status.
func (p *StatusPoller) Last() models.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
