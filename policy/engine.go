// Package policy evaluates admission rules for inbound chat requests.
package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// Engine is the OPA policy engine.
type Engine struct {
	query       rego.PreparedEvalQuery
	maxMessages int
}

// NewEngine creates a new policy engine with the given policy content.
// maxMessages limits the conversation length; zero disables the limit.
func NewEngine(ctx context.Context, policyContent string, maxMessages int) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.violations"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query, maxMessages: maxMessages}, nil
}

// Admit checks the request against the policy. Violations are returned as a
// *domain.ValidationError; evaluation failures as a plain error.
func (e *Engine) Admit(ctx context.Context, req *domain.ChatRequest) error {
	messages := make([]map[string]interface{}, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]interface{}{
			"role":    string(m.Role),
			"content": m.Content,
		})
	}
	input := map[string]interface{}{
		"messages": messages,
		"limits": map[string]interface{}{
			"max_messages": e.maxMessages,
		},
	}

	violations, err := e.evaluate(ctx, input)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		return nil
	}
	return &domain.ValidationError{Field: "messages", Message: violations[0]}
}

func (e *Engine) evaluate(ctx context.Context, input interface{}) ([]string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	values, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	violations := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			violations = append(violations, s)
		}
	}
	sort.Strings(violations)
	return violations, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package chat_policy

import rego.v1

allowed_roles := {"user", "assistant", "system"}

violations contains msg if {
	some i, m in input.messages
	not allowed_roles[m.role]
	msg := sprintf("messages[%d].role %q is not one of user, assistant, system", [i, m.role])
}

violations contains msg if {
	input.limits.max_messages > 0
	count(input.messages) > input.limits.max_messages
	msg := sprintf("too many messages: %d exceeds limit %d", [count(input.messages), input.limits.max_messages])
}
`
