package ports

import (
	"context"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

// SyncEventRepository persists sync audit events.
type SyncEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.SyncEvent) error
}

// SyncEventPublisher hands events to the audit pipeline. Publish must not
// block the caller; it reports false when the event was dropped.
type SyncEventPublisher interface {
	Publish(event domain.SyncEvent) bool
}
