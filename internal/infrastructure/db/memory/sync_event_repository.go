package memory

import (
	"context"
	"sync"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

// SyncEventRepository keeps audit events in memory.
type SyncEventRepository struct {
	mu     sync.Mutex
	events []domain.SyncEvent
}

func NewSyncEventRepository() *SyncEventRepository {
	return &SyncEventRepository{}
}

func (r *SyncEventRepository) InsertEvent(_ context.Context, event *domain.SyncEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

// Events returns a copy of the recorded events in insertion order.
func (r *SyncEventRepository) Events() []domain.SyncEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SyncEvent, len(r.events))
	copy(out, r.events)
	return out
}
