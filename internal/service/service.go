// Package service implements the chat relay flow: admission, the assistant
// run lifecycle, reply extraction and audit dispatch.
package service

import (
	"github.com/xiaot623/chatrelay/internal/adapter/provider"
	"github.com/xiaot623/chatrelay/internal/config"
	"github.com/xiaot623/chatrelay/policy"
)

type Service struct {
	config       *config.Config
	provider     provider.Client
	coordinator  *RunCoordinator
	policyEngine *policy.Engine
	audit        *AuditDispatcher
}

func New(cfg *config.Config, providerClient provider.Client, policyEngine *policy.Engine, audit *AuditDispatcher) *Service {
	return &Service{
		config:       cfg,
		provider:     providerClient,
		coordinator:  NewRunCoordinator(providerClient, nil, cfg.PollInterval, cfg.RunTimeout, cfg.MessageListLimit),
		policyEngine: policyEngine,
		audit:        audit,
	}
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.config
}
