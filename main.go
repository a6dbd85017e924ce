package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/chatrelay/internal/adapter/auditlog"
	"github.com/xiaot623/chatrelay/internal/adapter/provider"
	"github.com/xiaot623/chatrelay/internal/config"
	"github.com/xiaot623/chatrelay/internal/service"
	handler "github.com/xiaot623/chatrelay/internal/transport/http"
	"github.com/xiaot623/chatrelay/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting chat relay...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Mode: %s", cfg.Mode)
	log.Printf("Provider URL: %s", cfg.BaseURL)
	log.Printf("Run timeout: %s (poll every %s)", cfg.RunTimeout, cfg.PollInterval)
	if missing := cfg.Missing(); len(missing) > 0 {
		log.Printf("WARN: missing configuration %v; chat requests will fail until it is set", missing)
	}
	if cfg.AuditEnabled() {
		log.Printf("Audit webhook enabled")
	}

	// Initialize provider client
	providerClient := provider.New(cfg.BaseURL, cfg.APIKey, cfg.ProviderTimeout)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy, cfg.MaxMessages)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize audit dispatcher
	audit := service.NewAuditDispatcher(auditlog.NewClient(cfg.AuditWebhookURL, cfg.AuditToken, cfg.AuditTimeout), cfg.AuditTimeout, nil)

	// Initialize service
	svc := service.New(cfg, providerClient, policyEngine, audit)

	// Create server
	server := handler.NewServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Chat relay started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down chat relay...")

	// Graceful shutdown; in-flight runs may poll up to the run timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout+10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}
	audit.Wait()

	log.Println("Chat relay stopped")
}
