package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xiaot623/chatrelay/internal/adapter/provider"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// Clock abstracts time for the polling loop.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunCoordinator drives one assistant run from thread creation to a terminal
// phase. Each call to Execute owns a fresh thread and run.
type RunCoordinator struct {
	provider     provider.Client
	clock        Clock
	pollInterval time.Duration
	deadline     time.Duration
	listLimit    int
}

// NewRunCoordinator creates a coordinator. A nil clock uses wall time.
func NewRunCoordinator(providerClient provider.Client, clock Clock, pollInterval, deadline time.Duration, listLimit int) *RunCoordinator {
	if clock == nil {
		clock = realClock{}
	}
	return &RunCoordinator{
		provider:     providerClient,
		clock:        clock,
		pollInterval: pollInterval,
		deadline:     deadline,
		listLimit:    listLimit,
	}
}

// RunOutcome is the result of a completed run.
type RunOutcome struct {
	ThreadID string
	RunID    string
	Polls    int
	// Message is the newest assistant message, nil when the run produced none.
	Message *domain.ProviderMessage
}

// Execute creates a thread for the conversation, starts the assistant on it,
// waits for the run to finish and fetches the assistant's reply message.
func (c *RunCoordinator) Execute(ctx context.Context, assistantID string, messages []domain.Message) (*RunOutcome, error) {
	history, latest, instructions := splitConversation(messages)

	thread, err := c.provider.CreateThread(ctx, history)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		if err := c.provider.PostMessage(ctx, thread.ID, latest.Role, latest.Content); err != nil {
			return nil, err
		}
	}

	run, err := c.provider.StartRun(ctx, thread.ID, provider.RunRequest{
		AssistantID:            assistantID,
		AdditionalInstructions: instructions,
	})
	if err != nil {
		return nil, err
	}

	outcome := &RunOutcome{ThreadID: thread.ID, RunID: run.ID}
	polls, err := c.await(ctx, thread.ID, run.ID)
	outcome.Polls = polls
	if err != nil {
		return outcome, err
	}

	listed, err := c.provider.ListMessages(ctx, thread.ID, provider.ListOptions{
		Limit: c.listLimit,
		Order: "desc",
		RunID: run.ID,
	})
	if err != nil {
		return outcome, err
	}
	for i := range listed {
		if listed[i].Role == domain.RoleAssistant {
			outcome.Message = &listed[i]
			break
		}
	}
	return outcome, nil
}

// await polls the run until nextPhase reports a terminal phase. It returns the
// number of status checks made. The deadline also bounds the sleeps and the
// status calls themselves, so a slow provider cannot stretch the wait.
func (c *RunCoordinator) await(ctx context.Context, threadID, runID string) (int, error) {
	started := c.clock.Now()
	phase := PhasePolling
	lastStatus := domain.RunStatusQueued
	polls := 0

	waitCtx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	timedOut := func() (int, error) {
		log.Printf("WARN: run %s on thread %s timed out after %d polls (last status %s)", runID, threadID, polls, lastStatus)
		return polls, &domain.TimeoutError{RunID: runID, Deadline: c.deadline, LastStatus: lastStatus}
	}
	// deadlineHit reports whether err came from the run deadline rather than
	// from the caller's context.
	deadlineHit := func(err error) bool {
		return errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
	}

	for !phase.Terminal() {
		wait := c.pollInterval
		if remaining := c.deadline - c.clock.Now().Sub(started); remaining < wait {
			wait = remaining
		}
		if wait > 0 {
			if err := c.clock.Sleep(waitCtx, wait); err != nil {
				if deadlineHit(err) {
					return timedOut()
				}
				return polls, fmt.Errorf("waiting for run %s: %w", runID, err)
			}
		}

		run, err := c.provider.GetRun(waitCtx, threadID, runID)
		polls++
		if err != nil {
			if deadlineHit(err) {
				return timedOut()
			}
			return polls, err
		}
		lastStatus = run.Status

		phase = nextPhase(run.Status, c.clock.Now().Sub(started), c.deadline)
		switch phase {
		case PhaseFailed:
			log.Printf("WARN: run %s on thread %s ended with status %s after %d polls", runID, threadID, run.Status, polls)
			return polls, &domain.RunFailureError{RunID: runID, Status: run.Status, Detail: failureDetail(run)}
		case PhaseTimedOut:
			return timedOut()
		case PhasePolling:
			if !isPending(run.Status) {
				log.Printf("WARN: run %s reported unrecognized status %q, continuing to poll", runID, run.Status)
			}
		}
	}
	return polls, nil
}

func isPending(status domain.RunStatus) bool {
	switch status {
	case domain.RunStatusQueued, domain.RunStatusInProgress, domain.RunStatusRequiresAction, domain.RunStatusCancelling:
		return true
	}
	return false
}

func failureDetail(run *domain.Run) string {
	if run.LastError == nil {
		return ""
	}
	if run.LastError.Message != "" {
		return run.LastError.Message
	}
	return run.LastError.Code
}

// splitConversation separates the conversation into the thread history, the
// latest message to post, and system instructions. Assistant threads do not
// accept system messages, so those travel as run instructions instead.
func splitConversation(messages []domain.Message) (history []domain.Message, latest *domain.Message, instructions string) {
	var system []string
	var turns []domain.Message
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) > 0 {
		last := turns[len(turns)-1]
		latest = &last
		history = turns[:len(turns)-1]
	}
	return history, latest, strings.Join(system, "\n\n")
}
