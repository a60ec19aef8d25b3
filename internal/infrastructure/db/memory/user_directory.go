// Package memory provides in-process implementations of the persistence ports.
// They satisfy the same contracts as the database drivers and back tests and
// local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

// UserDirectory is a mutex-guarded map keyed by exact email.
type UserDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]*domain.UserRecord
	byID    map[int64]*domain.UserRecord
	nextID  int64
	now     func() time.Time
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{
		byEmail: make(map[string]*domain.UserRecord),
		byID:    make(map[int64]*domain.UserRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (d *UserDirectory) FindByEmail(_ context.Context, email string) (*domain.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

// Create checks and inserts under the write lock, so of several concurrent
// creates for one email exactly one succeeds.
func (d *UserDirectory) Create(_ context.Context, in domain.NewUser) (*domain.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[in.Email]; exists {
		return nil, domain.ErrDuplicateKey
	}

	d.nextID++
	u := &domain.UserRecord{
		ID:                  d.nextID,
		Email:               in.Email,
		PasswordPlaceholder: in.StoredPassword(),
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		CreatedAt:           d.now(),
	}
	d.byEmail[u.Email] = u
	d.byID[u.ID] = u
	return clone(u), nil
}

func (d *UserDirectory) FindByID(_ context.Context, id int64) (*domain.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (d *UserDirectory) List(_ context.Context, offset, limit int) ([]*domain.UserRecord, int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]int64, 0, len(d.byID))
	for id := range d.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := int64(len(ids))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return []*domain.UserRecord{}, total, nil
	}
	end := len(ids)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}

	out := make([]*domain.UserRecord, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, clone(d.byID[id]))
	}
	return out, total, nil
}

// Len reports the number of stored records.
func (d *UserDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func clone(u *domain.UserRecord) *domain.UserRecord {
	c := *u
	return &c
}
