package provider

import (
	"log"
	"os"
	"time"
)

const (
	// EnvRelayMode is the environment variable name for mode selection.
	EnvRelayMode = "RELAY_MODE"
	// ModeMock indicates the in-process mock provider should be used.
	ModeMock = "MOCK"
)

// New creates a provider client based on the RELAY_MODE environment variable.
// If RELAY_MODE=MOCK, returns a MockClient; otherwise returns an HTTPClient.
func New(baseURL, apiKey string, timeout time.Duration) Client {
	if os.Getenv(EnvRelayMode) == ModeMock {
		log.Println("INFO: RELAY_MODE=MOCK detected, using mock provider client")
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, timeout)
}
