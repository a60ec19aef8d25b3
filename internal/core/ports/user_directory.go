package ports

import (
	"context"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

// UserDirectory owns the persisted user records. It is the only component
// allowed to mutate the store.
type UserDirectory interface {
	// FindByEmail performs an exact-match lookup. Returns domain.ErrUserNotFound
	// on a miss and domain.ErrStoreUnavailable on I/O failure.
	FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error)

	// Create inserts a new record with a generated ID and CreatedAt. When
	// another record already holds the email it returns domain.ErrDuplicateKey;
	// at most one concurrent Create per email succeeds.
	Create(ctx context.Context, user domain.NewUser) (*domain.UserRecord, error)
}

// UserReader exposes the read-only queries behind the /users routes.
type UserReader interface {
	FindByID(ctx context.Context, id int64) (*domain.UserRecord, error)
	// List returns records ordered by ID together with the total count.
	List(ctx context.Context, offset, limit int) ([]*domain.UserRecord, int64, error)
}

// UserStore is implemented by every persistence driver.
type UserStore interface {
	UserDirectory
	UserReader
}
