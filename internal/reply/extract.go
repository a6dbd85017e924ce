// Package reply turns provider message payloads into a single display string.
package reply

import (
	"encoding/json"
	"strings"
)

// DefaultFallback is returned when no text can be found in a payload.
const DefaultFallback = "[Không có phản hồi]"

// Extractor looks for reply text in a decoded payload. ok is false when the
// payload has no text in the shape the extractor understands.
type Extractor func(p *Payload) (text string, ok bool)

// DefaultChain is the order in which payload shapes are tried: structured
// content parts first, then flattened text fields.
var DefaultChain = []Extractor{StructuredParts, FlattenedText}

// Payload is the subset of a provider message the extractors read.
type Payload struct {
	Content    json.RawMessage `json:"content"`
	OutputText *string         `json:"output_text"`
	Text       json.RawMessage `json:"text"`
}

type contentPart struct {
	Type string          `json:"type"`
	Text json.RawMessage `json:"text"`
}

// Extract runs the default chain over a raw provider message and falls back to
// fallback when nothing matches. It never fails.
func Extract(raw json.RawMessage, fallback string) string {
	return ExtractWith(DefaultChain, raw, fallback)
}

// ExtractWith is Extract with an explicit extractor chain.
func ExtractWith(chain []Extractor, raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fallback
	}
	for _, extract := range chain {
		if text, ok := extract(&p); ok {
			return text
		}
	}
	return fallback
}

// FromText wraps a plain completion string; blank text yields fallback.
func FromText(text, fallback string) string {
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}

// StructuredParts returns the first content part of type "text". The part's
// text may be an object with a value field or a bare string.
func StructuredParts(p *Payload) (string, bool) {
	var parts []contentPart
	if err := json.Unmarshal(p.Content, &parts); err != nil {
		return "", false
	}
	for _, part := range parts {
		if part.Type != "text" {
			continue
		}
		if text, ok := textValue(part.Text); ok {
			return text, true
		}
	}
	return "", false
}

// FlattenedText returns a precomputed top-level text field: output_text, then
// text, then content when it is a plain string.
func FlattenedText(p *Payload) (string, bool) {
	if p.OutputText != nil && *p.OutputText != "" {
		return *p.OutputText, true
	}
	if text, ok := textValue(p.Text); ok {
		return text, true
	}
	var content string
	if err := json.Unmarshal(p.Content, &content); err == nil && content != "" {
		return content, true
	}
	return "", false
}

func textValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Value != "" {
		return obj.Value, true
	}
	return "", false
}
