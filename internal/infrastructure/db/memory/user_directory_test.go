package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

func TestUserDirectory_CreateAndFind(t *testing.T) {
	d := NewUserDirectory()
	ctx := context.Background()

	created, err := d.Create(ctx, domain.NewUser{Email: "jane@x.com", FirstName: "Jane", LastName: "Doe"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}
	if created.PasswordPlaceholder != domain.FederatedPassword {
		t.Fatalf("expected federated sentinel, got %q", created.PasswordPlaceholder)
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	found, err := d.FindByEmail(ctx, "jane@x.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != created.ID || found.FirstName != "Jane" {
		t.Fatalf("unexpected record: %+v", found)
	}

	byID, err := d.FindByID(ctx, created.ID)
	if err != nil || byID.Email != "jane@x.com" {
		t.Fatalf("find by id: %+v, %v", byID, err)
	}
}

func TestUserDirectory_EmailIsCaseSensitive(t *testing.T) {
	d := NewUserDirectory()
	ctx := context.Background()

	if _, err := d.Create(ctx, domain.NewUser{Email: "jane@x.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := d.FindByEmail(ctx, "Jane@X.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for different case, got %v", err)
	}
}

func TestUserDirectory_DuplicateKey(t *testing.T) {
	d := NewUserDirectory()
	ctx := context.Background()

	if _, err := d.Create(ctx, domain.NewUser{Email: "jane@x.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := d.Create(ctx, domain.NewUser{Email: "jane@x.com"}); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", d.Len())
	}
}

func TestUserDirectory_ConcurrentCreateSingleWinner(t *testing.T) {
	d := NewUserDirectory()
	const n = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, dups := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Create(context.Background(), domain.NewUser{Email: "race@x.com"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrDuplicateKey):
				dups++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || dups != n-1 {
		t.Fatalf("expected 1 win and %d duplicates, got %d and %d", n-1, wins, dups)
	}
}

func TestUserDirectory_List(t *testing.T) {
	d := NewUserDirectory()
	ctx := context.Background()
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		if _, err := d.Create(ctx, domain.NewUser{Email: email}); err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
	}

	page, total, err := d.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(page) != 1 || page[0].Email != "b@x.com" {
		t.Fatalf("unexpected page: %+v", page)
	}

	empty, _, err := d.List(ctx, 10, 5)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty page, got %+v, %v", empty, err)
	}
}

func TestUserDirectory_List_OutOfRangeOffsets(t *testing.T) {
	d := NewUserDirectory()
	ctx := context.Background()
	for _, email := range []string{"a@x.com", "b@x.com"} {
		if _, err := d.Create(ctx, domain.NewUser{Email: email}); err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
	}

	page, total, err := d.List(ctx, -5, 1)
	if err != nil || total != 2 || len(page) != 1 || page[0].Email != "a@x.com" {
		t.Fatalf("negative offset: got %+v, %d, %v", page, total, err)
	}

	page, _, err = d.List(ctx, math.MaxInt, 100)
	if err != nil || len(page) != 0 {
		t.Fatalf("max offset: got %+v, %v", page, err)
	}

	page, _, err = d.List(ctx, 1, math.MaxInt)
	if err != nil || len(page) != 1 || page[0].Email != "b@x.com" {
		t.Fatalf("max limit: got %+v, %v", page, err)
	}
}
