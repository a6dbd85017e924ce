package service

import (
	"time"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// Phase is the coordinator's view of a run.
type Phase int

const (
	PhaseCreated Phase = iota
	PhasePolling
	PhaseCompleted
	PhaseFailed
	PhaseTimedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhasePolling:
		return "polling"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Terminal reports whether polling stops in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseTimedOut
}

// nextPhase classifies one observed run status. A terminal provider status
// takes precedence over the deadline; unknown statuses keep polling.
func nextPhase(status domain.RunStatus, elapsed, deadline time.Duration) Phase {
	switch {
	case status == domain.RunStatusCompleted:
		return PhaseCompleted
	case status.IsFailure():
		return PhaseFailed
	case elapsed >= deadline:
		return PhaseTimedOut
	}
	return PhasePolling
}
