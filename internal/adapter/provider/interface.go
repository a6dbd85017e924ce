// Package provider provides clients for the remote LLM provider's Assistants
// and chat completion APIs.
package provider

import (
	"context"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// Client defines the provider operations the relay depends on.
type Client interface {
	// CreateThread creates a thread seeded with the given messages.
	CreateThread(ctx context.Context, messages []domain.Message) (*domain.Thread, error)

	// PostMessage appends a message to an existing thread.
	PostMessage(ctx context.Context, threadID string, role domain.Role, content string) error

	// StartRun starts an assistant run on a thread.
	StartRun(ctx context.Context, threadID string, req RunRequest) (*domain.Run, error)

	// GetRun fetches the current state of a run.
	GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error)

	// ListMessages lists thread messages using the given paging options.
	ListMessages(ctx context.Context, threadID string, opts ListOptions) ([]domain.ProviderMessage, error)

	// CompleteChat performs a one-shot chat completion and returns the reply text.
	CompleteChat(ctx context.Context, req CompletionRequest) (string, error)
}

// RunRequest holds the parameters for starting a run.
type RunRequest struct {
	AssistantID            string `json:"assistant_id"`
	AdditionalInstructions string `json:"additional_instructions,omitempty"`
}

// ListOptions controls message listing. Zero values leave the provider
// defaults in place.
type ListOptions struct {
	Limit int
	Order string
	RunID string
}

// CompletionRequest holds the parameters for a one-shot completion.
type CompletionRequest struct {
	SystemPrompt string
	Messages     []domain.Message
	Model        string
	Temperature  float64
}

// Ensure implementations satisfy Client.
var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)
