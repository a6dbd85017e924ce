package service

import (
	"context"
	"log"
	"time"

	"github.com/xiaot623/chatrelay/internal/adapter/provider"
	"github.com/xiaot623/chatrelay/internal/config"
	"github.com/xiaot623/chatrelay/internal/domain"
	"github.com/xiaot623/chatrelay/internal/reply"
)

// Chat relays one conversation to the provider and returns the reply. On
// success an audit record is dispatched in the background.
func (s *Service) Chat(ctx context.Context, req *domain.ChatRequest, meta domain.RequestMeta) (*domain.ChatResult, error) {
	if len(req.Messages) == 0 {
		return nil, &domain.ValidationError{Field: "messages", Message: "must be a non-empty array"}
	}
	if s.policyEngine != nil {
		if err := s.policyEngine.Admit(ctx, req); err != nil {
			return nil, err
		}
	}
	if missing := s.config.Missing(); len(missing) > 0 {
		return nil, &domain.ConfigurationError{Missing: missing}
	}

	var (
		result *domain.ChatResult
		err    error
	)
	if s.config.Mode == config.ModeCompletion {
		result, err = s.complete(ctx, req)
	} else {
		result, err = s.runAssistant(ctx, req)
	}
	if err != nil {
		log.Printf("ERROR: chat request %s failed: %v", meta.RequestID, err)
		return nil, err
	}

	s.audit.Dispatch(s.auditRecord(req, meta, result))
	return result, nil
}

func (s *Service) runAssistant(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResult, error) {
	outcome, err := s.coordinator.Execute(ctx, s.config.AssistantID, req.Messages)
	if err != nil {
		return nil, err
	}

	text := s.config.FallbackReply
	if outcome.Message != nil {
		text = reply.Extract(outcome.Message.Raw, s.config.FallbackReply)
	}
	log.Printf("INFO: run %s on thread %s completed after %d polls", outcome.RunID, outcome.ThreadID, outcome.Polls)

	return &domain.ChatResult{
		Reply:    text,
		ThreadID: outcome.ThreadID,
		RunID:    outcome.RunID,
	}, nil
}

func (s *Service) complete(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResult, error) {
	text, err := s.provider.CompleteChat(ctx, provider.CompletionRequest{
		SystemPrompt: s.config.SystemPrompt,
		Messages:     req.Messages,
		Model:        s.config.Model,
		Temperature:  s.config.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return &domain.ChatResult{Reply: reply.FromText(text, s.config.FallbackReply)}, nil
}

func (s *Service) auditRecord(req *domain.ChatRequest, meta domain.RequestMeta, result *domain.ChatResult) domain.AuditRecord {
	session := req.Session
	if session == "" {
		session = meta.RequestID
	}
	return domain.AuditRecord{
		Time:        time.Now().UTC().Format(time.RFC3339Nano),
		Session:     session,
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
		Site:        meta.Host,
		AssistantID: s.config.AssistantID,
		ThreadID:    result.ThreadID,
		RunID:       result.RunID,
		User:        req.LastUserContent(),
		Bot:         result.Reply,
	}
}
