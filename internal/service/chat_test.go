package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/chatrelay/internal/config"
	"github.com/xiaot623/chatrelay/internal/domain"
	"github.com/xiaot623/chatrelay/internal/reply"
	"github.com/xiaot623/chatrelay/policy"
)

func testConfig() *config.Config {
	return &config.Config{
		APIKey:           "sk-test",
		AssistantID:      "asst_1",
		Mode:             config.ModeAssistant,
		Model:            "gpt-test",
		Temperature:      0.3,
		PollInterval:     time.Second,
		RunTimeout:       30 * time.Second,
		MessageListLimit: 20,
		FallbackReply:    reply.DefaultFallback,
	}
}

func newTestService(t *testing.T, cfg *config.Config, p *scriptedProvider, sender *recordingSender) *Service {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, cfg.MaxMessages)
	require.NoError(t, err)

	svc := New(cfg, p, engine, NewAuditDispatcher(sender, time.Second, nil))
	svc.coordinator.clock = newFakeClock()
	return svc
}

func TestChatAssistantSuccess(t *testing.T) {
	p := &scriptedProvider{
		statuses: []domain.RunStatus{domain.RunStatusInProgress, domain.RunStatusCompleted},
		messages: []domain.ProviderMessage{assistantMessage("Chào bạn!")},
	}
	sender := &recordingSender{enabled: true}
	svc := newTestService(t, testConfig(), p, sender)

	req := &domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "Xin chào"}}}
	result, err := svc.Chat(context.Background(), req, domain.RequestMeta{
		RequestID: "req-1",
		IP:        "203.0.113.7",
		UserAgent: "test-agent",
		Host:      "chat.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Chào bạn!", result.Reply)
	assert.Equal(t, "thread_1", result.ThreadID)
	assert.Equal(t, "run_1", result.RunID)

	svc.audit.Wait()
	records := sender.sent()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "req-1", rec.Session)
	assert.Equal(t, "203.0.113.7", rec.IP)
	assert.Equal(t, "test-agent", rec.UserAgent)
	assert.Equal(t, "chat.example.com", rec.Site)
	assert.Equal(t, "asst_1", rec.AssistantID)
	assert.Equal(t, "thread_1", rec.ThreadID)
	assert.Equal(t, "run_1", rec.RunID)
	assert.Equal(t, "Xin chào", rec.User)
	assert.Equal(t, "Chào bạn!", rec.Bot)
	assert.NotEmpty(t, rec.Time)
}

func TestChatUsesClientSession(t *testing.T) {
	p := &scriptedProvider{
		statuses: []domain.RunStatus{domain.RunStatusCompleted},
		messages: []domain.ProviderMessage{assistantMessage("ok")},
	}
	sender := &recordingSender{enabled: true}
	svc := newTestService(t, testConfig(), p, sender)

	req := &domain.ChatRequest{Session: "client-session", Messages: []domain.Message{{Role: domain.RoleUser, Content: "x"}}}
	_, err := svc.Chat(context.Background(), req, domain.RequestMeta{RequestID: "req-2"})
	require.NoError(t, err)

	svc.audit.Wait()
	require.Len(t, sender.sent(), 1)
	assert.Equal(t, "client-session", sender.sent()[0].Session)
}

func TestChatFallbackReplyWhenNoAssistantMessage(t *testing.T) {
	p := &scriptedProvider{statuses: []domain.RunStatus{domain.RunStatusCompleted}}
	svc := newTestService(t, testConfig(), p, &recordingSender{})

	result, err := svc.Chat(context.Background(), &domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "x"}}}, domain.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, reply.DefaultFallback, result.Reply)
}

func TestChatEmptyMessagesMakesNoProviderCalls(t *testing.T) {
	p := &scriptedProvider{}
	svc := newTestService(t, testConfig(), p, &recordingSender{enabled: true})

	_, err := svc.Chat(context.Background(), &domain.ChatRequest{}, domain.RequestMeta{})
	var validationErr *domain.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Empty(t, p.calls)
}

func TestChatRejectsUnknownRole(t *testing.T) {
	p := &scriptedProvider{}
	svc := newTestService(t, testConfig(), p, &recordingSender{})

	_, err := svc.Chat(context.Background(), &domain.ChatRequest{Messages: []domain.Message{{Role: "robot", Content: "beep"}}}, domain.RequestMeta{})
	var validationErr *domain.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Empty(t, p.calls)
}

func TestChatMissingConfiguration(t *testing.T) {
	cfg := testConfig()
	cfg.AssistantID = ""
	p := &scriptedProvider{}
	svc := newTestService(t, cfg, p, &recordingSender{})

	_, err := svc.Chat(context.Background(), &domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "x"}}}, domain.RequestMeta{})
	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{config.EnvAssistantID}, cfgErr.Missing)
	assert.Empty(t, p.calls)
}

func TestChatRunFailureSkipsAudit(t *testing.T) {
	p := &scriptedProvider{statuses: []domain.RunStatus{domain.RunStatusExpired}}
	sender := &recordingSender{enabled: true}
	svc := newTestService(t, testConfig(), p, sender)

	_, err := svc.Chat(context.Background(), &domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "x"}}}, domain.RequestMeta{})
	var runErr *domain.RunFailureError
	require.True(t, errors.As(err, &runErr))

	svc.audit.Wait()
	assert.Empty(t, sender.sent())
}

func TestChatAuditFailureDoesNotAffectResult(t *testing.T) {
	p := &scriptedProvider{
		statuses: []domain.RunStatus{domain.RunStatusCompleted},
		messages: []domain.ProviderMessage{assistantMessage("still here")},
	}
	sender := &recordingSender{enabled: true, err: &domain.AuditLogError{Status: 500}}
	svc := newTestService(t, testConfig(), p, sender)

	result, err := svc.Chat(context.Background(), &domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "x"}}}, domain.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "still here", result.Reply)
	svc.audit.Wait()
}

func TestChatCompletionMode(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = config.ModeCompletion
	cfg.AssistantID = ""
	cfg.SystemPrompt = "Be brief."
	p := &scriptedProvider{completion: "one-shot answer"}
	sender := &recordingSender{enabled: true}
	svc := newTestService(t, cfg, p, sender)

	req := &domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hello"}}}
	result, err := svc.Chat(context.Background(), req, domain.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "one-shot answer", result.Reply)
	assert.Empty(t, result.ThreadID)
	assert.Equal(t, []string{"CompleteChat"}, p.calls)
	assert.Equal(t, "Be brief.", p.completionRq.SystemPrompt)
	assert.Equal(t, "gpt-test", p.completionRq.Model)
	assert.InDelta(t, 0.3, p.completionRq.Temperature, 1e-9)

	svc.audit.Wait()
	require.Len(t, sender.sent(), 1)
	assert.Empty(t, sender.sent()[0].ThreadID)
}

func TestChatCompletionModeEmptyAnswer(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = config.ModeCompletion
	p := &scriptedProvider{completion: ""}
	svc := newTestService(t, cfg, p, &recordingSender{})

	result, err := svc.Chat(context.Background(), &domain.ChatRequest{Messages: []domain.Message{{Role: domain.RoleUser, Content: "hello"}}}, domain.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, reply.DefaultFallback, result.Reply)
}
