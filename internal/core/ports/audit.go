package ports

import (
	"context"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// AuditRepository persists audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuditRecorder accepts audit events without blocking the caller on
// persistence.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}
