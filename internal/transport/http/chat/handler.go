// Package chat provides the relay's inbound chat endpoint.
package chat

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/chatrelay/internal/domain"
	"github.com/xiaot623/chatrelay/internal/service"
)

// Handler handles chat relay HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new chat handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Any("/api/chat", h.Chat)
	// Path used by the serverless deployment; kept so existing frontends work.
	e.Any("/.netlify/functions/chat", h.Chat)
}

// Chat relays a conversation and returns the assistant's reply.
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	switch c.Request().Method {
	case http.MethodOptions:
		return c.NoContent(http.StatusOK)
	case http.MethodPost:
	default:
		return c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
	}

	req, err := decodeChatRequest(c.Request().Body)
	if err != nil {
		return c.JSON(domain.HTTPStatus(err), domain.ErrorResponse{Error: err.Error()})
	}

	meta := domain.RequestMeta{
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Host:      c.Request().Host,
	}

	result, err := h.service.Chat(c.Request().Context(), req, meta)
	if err != nil {
		return c.JSON(domain.HTTPStatus(err), domain.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, domain.ChatResponse{Reply: result.Reply})
}

// decodeChatRequest parses the body leniently: an empty or unparseable body
// counts as an empty object, so the messages check decides the outcome.
func decodeChatRequest(body io.Reader) (*domain.ChatRequest, error) {
	fields := map[string]json.RawMessage{}
	if body != nil {
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, &domain.ValidationError{Message: "failed to read request body"}
		}
		if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
			fields = map[string]json.RawMessage{}
		}
	}

	rawMessages, ok := fields["messages"]
	if !ok {
		return nil, &domain.ValidationError{Field: "messages", Message: "is required"}
	}

	req := &domain.ChatRequest{}
	if err := json.Unmarshal(rawMessages, &req.Messages); err != nil {
		return nil, &domain.ValidationError{Field: "messages", Message: "must be an array of {role, content} objects"}
	}
	if len(req.Messages) == 0 {
		return nil, &domain.ValidationError{Field: "messages", Message: "must be a non-empty array"}
	}

	if rawSession, ok := fields["session"]; ok {
		var session string
		if err := json.Unmarshal(rawSession, &session); err == nil {
			req.Session = strings.TrimSpace(session)
		}
	}
	return req, nil
}
