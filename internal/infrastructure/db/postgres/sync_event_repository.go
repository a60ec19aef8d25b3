package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

const insertSyncEventSQL = `INSERT INTO sync_events (id, user_id, email, subject_id, provider, outcome, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

// SyncEventRepository writes audit rows for completed syncs.
type SyncEventRepository struct {
	db *sql.DB
}

func NewSyncEventRepository(db *sql.DB) *SyncEventRepository {
	return &SyncEventRepository{db: db}
}

func (r *SyncEventRepository) InsertEvent(ctx context.Context, e *domain.SyncEvent) error {
	_, err := r.db.ExecContext(ctx, insertSyncEventSQL,
		e.ID, e.UserID, e.Email, e.SubjectID, e.Provider, string(e.Outcome), e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert sync event: %w", err)
	}
	return nil
}
