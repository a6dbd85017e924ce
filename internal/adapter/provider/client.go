package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// assistantsBeta is the API-version marker required on thread and run endpoints.
const assistantsBeta = "assistants=v2"

// HTTPClient talks to an OpenAI-compatible provider. Thread and run calls are
// issued directly so that raw message payloads reach the reply extractor
// untouched; chat completions go through the go-openai SDK.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	chat       *openai.Client
}

// NewClient creates a new provider client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	sdkConfig := openai.DefaultConfig(apiKey)
	sdkConfig.BaseURL = baseURL
	sdkConfig.HTTPClient = httpClient

	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		chat:       openai.NewClientWithConfig(sdkConfig),
	}
}

type threadMessage struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

type createThreadRequest struct {
	Messages []threadMessage `json:"messages,omitempty"`
}

// CreateThread creates a thread seeded with the given messages.
func (c *HTTPClient) CreateThread(ctx context.Context, messages []domain.Message) (*domain.Thread, error) {
	req := createThreadRequest{}
	for _, m := range messages {
		req.Messages = append(req.Messages, threadMessage{Role: m.Role, Content: m.Content})
	}

	var thread domain.Thread
	if err := c.do(ctx, "create thread", http.MethodPost, "/threads", req, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// PostMessage appends a message to an existing thread.
func (c *HTTPClient) PostMessage(ctx context.Context, threadID string, role domain.Role, content string) error {
	path := "/threads/" + url.PathEscape(threadID) + "/messages"
	return c.do(ctx, "post message", http.MethodPost, path, threadMessage{Role: role, Content: content}, nil)
}

// StartRun starts an assistant run on a thread.
func (c *HTTPClient) StartRun(ctx context.Context, threadID string, req RunRequest) (*domain.Run, error) {
	path := "/threads/" + url.PathEscape(threadID) + "/runs"

	var run domain.Run
	if err := c.do(ctx, "create run", http.MethodPost, path, req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun fetches the current state of a run.
func (c *HTTPClient) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)

	var run domain.Run
	if err := c.do(ctx, "check run", http.MethodGet, path, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

type messageList struct {
	Data []json.RawMessage `json:"data"`
}

// ListMessages lists thread messages using the given paging options.
func (c *HTTPClient) ListMessages(ctx context.Context, threadID string, opts ListOptions) ([]domain.ProviderMessage, error) {
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Order != "" {
		query.Set("order", opts.Order)
	}
	if opts.RunID != "" {
		query.Set("run_id", opts.RunID)
	}
	path := "/threads/" + url.PathEscape(threadID) + "/messages"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var list messageList
	if err := c.do(ctx, "list messages", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}

	messages := make([]domain.ProviderMessage, 0, len(list.Data))
	for _, raw := range list.Data {
		var msg domain.ProviderMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("list messages: failed to decode message: %w", err)
		}
		msg.Raw = raw
		messages = append(messages, msg)
	}
	return messages, nil
}

// do sends a JSON request and decodes the JSON response into out when out is
// not nil. Non-2xx answers are returned as *domain.UpstreamError.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	c.setHeaders(httpReq, in != nil)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &domain.UpstreamError{Op: op, Status: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: failed to unmarshal response: %w", op, err)
	}
	return nil
}

// setHeaders sets common request headers.
func (c *HTTPClient) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("OpenAI-Beta", assistantsBeta)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
