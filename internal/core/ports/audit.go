package ports

import (
	"context"

	"github.com/brewline/console/internal/core/domain"
)

// AuditSink accepts session lifecycle events. Record must not block the caller.
type AuditSink interface {
	Record(event domain.SessionEvent)
}

// SessionEventRepository persists session lifecycle events.
type SessionEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.SessionEvent) error
}
