package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
	"github.com/fitnessapp/identity-sync/internal/pkg/metrics"
)

const defaultUserTTL = 10 * time.Minute

// CachedUserStore is a read-through cache in front of a ports.UserStore.
// Key format: user:email:<email>
//
// Only hits are cached. A miss always reaches the backing store so a record
// created by another replica is visible to the duplicate-key re-lookup.
// Redis failures are logged and the call falls through to the store.
type CachedUserStore struct {
	next   ports.UserStore
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewCachedUserStore(next ports.UserStore, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedUserStore {
	if ttl <= 0 {
		ttl = defaultUserTTL
	}
	return &CachedUserStore{next: next, client: client, ttl: ttl, log: log}
}

type cachedUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *CachedUserStore) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	raw, err := c.client.Get(ctx, emailKey(email)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if jsonErr := json.Unmarshal(raw, &cu); jsonErr == nil {
			metrics.UserCacheLookupsTotal.WithLabelValues("hit").Inc()
			return cu.toDomain(), nil
		}
		metrics.UserCacheLookupsTotal.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.UserCacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		metrics.UserCacheLookupsTotal.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Msg("user cache read failed")
	}

	u, err := c.next.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	c.store(ctx, u)
	return u, nil
}

func (c *CachedUserStore) Create(ctx context.Context, in domain.NewUser) (*domain.UserRecord, error) {
	u, err := c.next.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	c.store(ctx, u)
	return u, nil
}

func (c *CachedUserStore) FindByID(ctx context.Context, id int64) (*domain.UserRecord, error) {
	return c.next.FindByID(ctx, id)
}

func (c *CachedUserStore) List(ctx context.Context, offset, limit int) ([]*domain.UserRecord, int64, error) {
	return c.next.List(ctx, offset, limit)
}

func (c *CachedUserStore) store(ctx context.Context, u *domain.UserRecord) {
	raw, err := json.Marshal(fromDomain(u))
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, emailKey(u.Email), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("user cache write failed")
	}
}

func emailKey(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}

func fromDomain(u *domain.UserRecord) cachedUser {
	return cachedUser{
		ID:        u.ID,
		Email:     u.Email,
		Password:  u.PasswordPlaceholder,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}

func (cu cachedUser) toDomain() *domain.UserRecord {
	return &domain.UserRecord{
		ID:                  cu.ID,
		Email:               cu.Email,
		PasswordPlaceholder: cu.Password,
		FirstName:           cu.FirstName,
		LastName:            cu.LastName,
		CreatedAt:           cu.CreatedAt,
	}
}
