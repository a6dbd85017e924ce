// Package config provides configuration for the chat relay.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Chat modes.
const (
	ModeAssistant  = "assistant"
	ModeCompletion = "completion"
)

// Environment variable names for the required items, used in error messages.
const (
	EnvAPIKey      = "OPENAI_API_KEY"
	EnvAssistantID = "ASSISTANT_ID"
)

// Config holds the relay configuration. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	// Server settings
	HTTPPort     int
	MaxBodyBytes string

	// Provider settings
	APIKey          string
	BaseURL         string
	AssistantID     string
	ProviderTimeout time.Duration

	// Chat mode: "assistant" (threads + runs) or "completion" (one-shot)
	Mode         string
	Model        string
	Temperature  float64
	SystemPrompt string

	// Run polling
	PollInterval     time.Duration
	RunTimeout       time.Duration
	MessageListLimit int

	// Reply
	FallbackReply string

	// Admission
	MaxMessages int

	// Audit webhook
	AuditWebhookURL string
	AuditToken      string
	AuditTimeout    time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		MaxBodyBytes:     getEnv("MAX_BODY_SIZE", "1M"),
		APIKey:           strings.TrimSpace(os.Getenv(EnvAPIKey)),
		BaseURL:          getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AssistantID:      strings.TrimSpace(os.Getenv(EnvAssistantID)),
		ProviderTimeout:  time.Duration(getEnvInt("PROVIDER_TIMEOUT_MS", 15000)) * time.Millisecond,
		Mode:             strings.ToLower(getEnv("CHAT_MODE", ModeAssistant)),
		Model:            getEnv("CHAT_MODEL", "gpt-4o-mini"),
		Temperature:      getEnvFloat("CHAT_TEMPERATURE", 0.7),
		SystemPrompt:     getEnv("SYSTEM_PROMPT", ""),
		PollInterval:     time.Duration(getEnvInt("RUN_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		RunTimeout:       time.Duration(getEnvInt("RUN_TIMEOUT_MS", 30000)) * time.Millisecond,
		MessageListLimit: getEnvInt("MESSAGE_LIST_LIMIT", 20),
		FallbackReply:    getEnv("FALLBACK_REPLY", "[Không có phản hồi]"),
		MaxMessages:      getEnvInt("MAX_MESSAGES", 0),
		AuditWebhookURL:  strings.TrimSpace(os.Getenv("OFFICE_LOG_WEBHOOK")),
		AuditToken:       strings.TrimSpace(os.Getenv("LOG_TOKEN")),
		AuditTimeout:     time.Duration(getEnvInt("AUDIT_TIMEOUT_MS", 5000)) * time.Millisecond,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// Missing returns the names of required settings that are not set for the
// configured mode. The assistant id is only required in assistant mode.
func (c *Config) Missing() []string {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if c.Mode != ModeCompletion && c.AssistantID == "" {
		missing = append(missing, EnvAssistantID)
	}
	return missing
}

// AuditEnabled reports whether both the webhook URL and its token are set.
func (c *Config) AuditEnabled() bool {
	return c.AuditWebhookURL != "" && c.AuditToken != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
