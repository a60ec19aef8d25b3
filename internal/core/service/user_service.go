package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
	"github.com/fitnessapp/identity-sync/internal/pkg/metrics"
)

const (
	minPasswordLength = 8
	defaultPageLimit  = 20
	maxPageLimit      = 100
)

// UserService implements local registration and the user read endpoints.
type UserService struct {
	store ports.UserStore
	log   zerolog.Logger
}

func NewUserService(store ports.UserStore, log zerolog.Logger) *UserService {
	return &UserService{store: store, log: log}
}

// Register creates a user with a bcrypt-hashed password. Email is stored as
// given; uniqueness is exact-match, the same rule the sync flow relies on.
func (s *UserService) Register(ctx context.Context, in ports.RegisterInput) (*domain.UserRecord, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || len(in.Password) < minPasswordLength {
		return nil, domain.ErrInvalidRegistration
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidRegistration
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	user, err := s.store.Create(ctx, domain.NewUser{
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	metrics.UsersCreatedTotal.WithLabelValues("register").Inc()
	s.log.Info().Int64("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Get returns a single user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.UserRecord, error) {
	if id <= 0 {
		return nil, domain.ErrUserNotFound
	}
	return s.store.FindByID(ctx, id)
}

// List returns a page of users ordered by ID. page is 1-based; limit defaults
// to 20 and is capped at 100.
func (s *UserService) List(ctx context.Context, page, limit int) (*ports.ListUsersResult, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	// pages past what an int offset can address are empty
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}

	items, total, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListUsersResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}
