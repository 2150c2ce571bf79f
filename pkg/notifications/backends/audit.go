package backends

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/recipebox/pkg/notifications"
)

// AuditBackend logs every change event for compliance and debugging.
type AuditBackend struct {
	logger hclog.Logger
}

// NewAuditBackend creates a new audit backend.
func NewAuditBackend(logger hclog.Logger) *AuditBackend {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &AuditBackend{
		logger: logger.Named("audit"),
	}
}

// Name returns the backend identifier
func (b *AuditBackend) Name() string {
	return "audit"
}

// Handle logs the event.
func (b *AuditBackend) Handle(ctx context.Context, event *notifications.ChangeEvent) error {
	b.logger.Info("change event",
		"id", event.ID,
		"operation", event.Operation,
		"address", event.Address.String(),
		"content_type", event.ContentType,
		"rows", event.Rows,
		"timestamp", event.Timestamp.Format(time.RFC3339),
	)
	return nil
}

// Close is a no-op.
func (b *AuditBackend) Close() error {
	return nil
}
