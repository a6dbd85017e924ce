package domain

import "encoding/json"

// Message is one entry of the inbound conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound relay request.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Session  string    `json:"session,omitempty"`
}

// LastUserContent returns the content of the last user-authored message, or
// an empty string when there is none.
func (r *ChatRequest) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// ChatResponse is the success body returned to the caller.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is the error body returned to the caller.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Thread is a provider-side conversation container.
type Thread struct {
	ID string `json:"id"`
}

// RunError is the provider's description of why a run stopped.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is a provider-side execution of an assistant against a thread.
type Run struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
	LastError   *RunError `json:"last_error,omitempty"`
}

// ProviderMessage is a message listed from a provider thread. Raw keeps the
// full JSON object so the reply extractor can inspect any response shape.
type ProviderMessage struct {
	ID   string          `json:"id"`
	Role Role            `json:"role"`
	Raw  json.RawMessage `json:"-"`
}

// RequestMeta carries inbound request details used for correlation and audit.
type RequestMeta struct {
	RequestID string
	IP        string
	UserAgent string
	Host      string
}

// ChatResult is the outcome of one relayed exchange.
type ChatResult struct {
	Reply    string
	ThreadID string
	RunID    string
}

// AuditRecord describes one exchange for the external audit webhook.
type AuditRecord struct {
	Time        string `json:"time"`
	Session     string `json:"session"`
	IP          string `json:"ip"`
	UserAgent   string `json:"ua"`
	Site        string `json:"site"`
	AssistantID string `json:"assistantId"`
	ThreadID    string `json:"threadId"`
	RunID       string `json:"runId"`
	User        string `json:"user"`
	Bot         string `json:"bot"`
}
