package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/xiaot623/chatrelay/internal/adapter/provider"
	"github.com/xiaot623/chatrelay/internal/domain"
)

// fakeClock advances its own time on every Sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps++
	return nil
}

// scriptedProvider answers GetRun with a fixed sequence of statuses; the last
// status repeats once the script is exhausted.
type scriptedProvider struct {
	mu sync.Mutex

	statuses   []domain.RunStatus
	lastError  *domain.RunError
	messages   []domain.ProviderMessage
	completion string

	createThreadErr error
	getRunErr       error
	getRunErrAt     int

	calls        []string
	threadSeed   []domain.Message
	posted       []domain.Message
	runRequest   provider.RunRequest
	listOptions  provider.ListOptions
	getRunCalls  int
	completionRq provider.CompletionRequest
}

func (p *scriptedProvider) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *scriptedProvider) CreateThread(ctx context.Context, messages []domain.Message) (*domain.Thread, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("CreateThread")
	if p.createThreadErr != nil {
		return nil, p.createThreadErr
	}
	p.threadSeed = messages
	return &domain.Thread{ID: "thread_1"}, nil
}

func (p *scriptedProvider) PostMessage(ctx context.Context, threadID string, role domain.Role, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("PostMessage")
	p.posted = append(p.posted, domain.Message{Role: role, Content: content})
	return nil
}

func (p *scriptedProvider) StartRun(ctx context.Context, threadID string, req provider.RunRequest) (*domain.Run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("StartRun")
	p.runRequest = req
	return &domain.Run{ID: "run_1", ThreadID: threadID, Status: domain.RunStatusQueued}, nil
}

func (p *scriptedProvider) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("GetRun")
	p.getRunCalls++
	if p.getRunErr != nil && p.getRunCalls >= p.getRunErrAt {
		return nil, p.getRunErr
	}
	status := domain.RunStatusInProgress
	if len(p.statuses) > 0 {
		idx := p.getRunCalls - 1
		if idx >= len(p.statuses) {
			idx = len(p.statuses) - 1
		}
		status = p.statuses[idx]
	}
	run := &domain.Run{ID: runID, ThreadID: threadID, Status: status}
	if status.IsFailure() {
		run.LastError = p.lastError
	}
	return run, nil
}

func (p *scriptedProvider) ListMessages(ctx context.Context, threadID string, opts provider.ListOptions) ([]domain.ProviderMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("ListMessages")
	p.listOptions = opts
	return p.messages, nil
}

func (p *scriptedProvider) CompleteChat(ctx context.Context, req provider.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("CompleteChat")
	p.completionRq = req
	return p.completion, nil
}

func (p *scriptedProvider) callCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == name {
			n++
		}
	}
	return n
}

func assistantMessage(text string) domain.ProviderMessage {
	raw, err := json.Marshal(map[string]interface{}{
		"id":   "msg_a",
		"role": "assistant",
		"content": []map[string]interface{}{
			{"type": "text", "text": map[string]interface{}{"value": text, "annotations": []interface{}{}}},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("marshal assistant message: %v", err))
	}
	return domain.ProviderMessage{ID: "msg_a", Role: domain.RoleAssistant, Raw: raw}
}

var _ provider.Client = (*scriptedProvider)(nil)
