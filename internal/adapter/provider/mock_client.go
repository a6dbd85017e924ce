package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// MockClient is an in-process provider used for local runs and tests. Every
// run completes after PollsToComplete status checks and answers with an echo
// of the last user message.
type MockClient struct {
	PollsToComplete int

	mu      sync.Mutex
	threads map[string]*mockThread
}

// mockThreadLimit caps retained threads; runs that never reach ListMessages
// would otherwise accumulate.
const mockThreadLimit = 1024

type mockThread struct {
	messages []domain.Message
	runs     map[string]*mockRun
}

type mockRun struct {
	polls int
}

// NewMockClient creates a new mock provider client.
func NewMockClient() *MockClient {
	return &MockClient{
		PollsToComplete: 1,
		threads:         make(map[string]*mockThread),
	}
}

// CreateThread stores the messages under a new thread id.
func (m *MockClient) CreateThread(ctx context.Context, messages []domain.Message) (*domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.threads) >= mockThreadLimit {
		for stale := range m.threads {
			delete(m.threads, stale)
			break
		}
	}

	id := "thread_mock_" + uuid.New().String()[:8]
	m.threads[id] = &mockThread{
		messages: append([]domain.Message(nil), messages...),
		runs:     make(map[string]*mockRun),
	}
	return &domain.Thread{ID: id}, nil
}

// PostMessage appends a message to a stored thread.
func (m *MockClient) PostMessage(ctx context.Context, threadID string, role domain.Role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	thread, err := m.thread("post message", threadID)
	if err != nil {
		return err
	}
	thread.messages = append(thread.messages, domain.Message{Role: role, Content: content})
	return nil
}

// StartRun registers a queued run.
func (m *MockClient) StartRun(ctx context.Context, threadID string, req RunRequest) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	thread, err := m.thread("create run", threadID)
	if err != nil {
		return nil, err
	}
	id := "run_mock_" + uuid.New().String()[:8]
	thread.runs[id] = &mockRun{}
	return &domain.Run{ID: id, ThreadID: threadID, AssistantID: req.AssistantID, Status: domain.RunStatusQueued}, nil
}

// GetRun reports in_progress until the run has been polled enough times.
func (m *MockClient) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	thread, err := m.thread("check run", threadID)
	if err != nil {
		return nil, err
	}
	run, ok := thread.runs[runID]
	if !ok {
		return nil, &domain.UpstreamError{Op: "check run", Status: 404, Body: "no such run: " + runID}
	}

	run.polls++
	status := domain.RunStatusInProgress
	if run.polls >= m.PollsToComplete {
		status = domain.RunStatusCompleted
	}
	return &domain.Run{ID: runID, ThreadID: threadID, Status: status}, nil
}

// ListMessages returns a single assistant message echoing the thread. The
// thread is forgotten afterwards, since each relay request lists it once.
func (m *MockClient) ListMessages(ctx context.Context, threadID string, opts ListOptions) ([]domain.ProviderMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	thread, err := m.thread("list messages", threadID)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(map[string]interface{}{
		"id":   "msg_mock",
		"role": "assistant",
		"content": []map[string]interface{}{
			{"type": "text", "text": map[string]interface{}{"value": mockReply(thread.messages), "annotations": []interface{}{}}},
		},
	})
	if err != nil {
		return nil, err
	}
	delete(m.threads, threadID)
	return []domain.ProviderMessage{{ID: "msg_mock", Role: domain.RoleAssistant, Raw: raw}}, nil
}

// CompleteChat echoes the last user message.
func (m *MockClient) CompleteChat(ctx context.Context, req CompletionRequest) (string, error) {
	return mockReply(req.Messages), nil
}

func (m *MockClient) thread(op, id string) (*mockThread, error) {
	thread, ok := m.threads[id]
	if !ok {
		return nil, &domain.UpstreamError{Op: op, Status: 404, Body: "no such thread: " + id}
	}
	return thread, nil
}

func mockReply(messages []domain.Message) string {
	var lastUserMessage string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			lastUserMessage = messages[i].Content
			break
		}
	}
	if lastUserMessage == "" {
		return "[MOCK] This is a mock response."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
