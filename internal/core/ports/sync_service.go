package ports

import (
	"context"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

// TokenVerifier validates a bearer credential against the identity authority.
// Every failure is reported as a *domain.VerificationError. Implementations
// hold no per-request state and are safe for concurrent use.
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (*domain.VerifiedIdentity, error)
}

// SyncResult is what POST /api/v1/auth/sync returns.
type SyncResult struct {
	UserID int64
	Email  string
	// Created is true when this call created the record.
	Created bool
}

// SyncService reconciles a verified identity with the user directory.
type SyncService interface {
	// Sync takes the raw Authorization header value; an empty string means the
	// header was absent.
	Sync(ctx context.Context, authorization string) (*SyncResult, error)
}
