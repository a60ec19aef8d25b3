package ports

import (
	"context"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

// RegisterInput carries a local registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ListUsersResult is one page of users.
type ListUsersResult struct {
	Items      []*domain.UserRecord
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.UserRecord, error)
	Get(ctx context.Context, id int64) (*domain.UserRecord, error)
	List(ctx context.Context, page, limit int) (*ListUsersResult, error)
}
