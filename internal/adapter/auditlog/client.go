// Package auditlog posts exchange records to an external audit webhook.
package auditlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// TokenHeader carries the shared secret expected by the webhook.
const TokenHeader = "X-Log-Token"

// Client sends audit records to a webhook.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewClient creates a webhook client. An empty url or token yields a client
// whose Enabled method reports false.
func NewClient(url, token string, timeout time.Duration) *Client {
	return &Client{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether both the webhook url and token are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != "" && c.token != ""
}

// Send posts the record. The response body is discarded.
func (c *Client) Send(ctx context.Context, record domain.AuditRecord) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(record)
	if err != nil {
		return &domain.AuditLogError{Err: fmt.Errorf("failed to marshal record: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &domain.AuditLogError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.AuditLogError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &domain.AuditLogError{Status: resp.StatusCode}
	}
	return nil
}
