package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/xiaot623/chatrelay/internal/domain"
)

// AuditSender delivers audit records.
type AuditSender interface {
	Enabled() bool
	Send(ctx context.Context, record domain.AuditRecord) error
}

// AuditDispatcher sends audit records in the background. A failed send is
// reported to the error sink only; callers never see it.
type AuditDispatcher struct {
	sender  AuditSender
	timeout time.Duration
	onError func(error)
	wg      sync.WaitGroup
}

// NewAuditDispatcher creates a dispatcher. A nil onError logs the failure.
func NewAuditDispatcher(sender AuditSender, timeout time.Duration, onError func(error)) *AuditDispatcher {
	if onError == nil {
		onError = func(err error) {
			log.Printf("WARN: webhook log failed: %v", err)
		}
	}
	return &AuditDispatcher{
		sender:  sender,
		timeout: timeout,
		onError: onError,
	}
}

// Dispatch starts sending the record and returns immediately. It is a no-op
// when the sender is not configured.
func (d *AuditDispatcher) Dispatch(record domain.AuditRecord) {
	if d == nil || d.sender == nil || !d.sender.Enabled() {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("ERROR: audit dispatch panicked: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, record); err != nil {
			d.onError(err)
		}
	}()
}

// Wait blocks until all in-flight sends have finished.
func (d *AuditDispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
