package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubVerifier struct {
	identities map[string]*domain.VerifiedIdentity
	calls      atomic.Int32
	delay      time.Duration
}

func newStubVerifier() *stubVerifier {
	return &stubVerifier{identities: make(map[string]*domain.VerifiedIdentity)}
}

func (v *stubVerifier) Verify(ctx context.Context, credential string) (*domain.VerifiedIdentity, error) {
	v.calls.Add(1)
	if v.delay > 0 {
		select {
		case <-time.After(v.delay):
		case <-ctx.Done():
			return nil, domain.NewVerificationError(ctx.Err())
		}
	}
	id, ok := v.identities[credential]
	if !ok {
		return nil, domain.NewVerificationError(errors.New("unknown token"))
	}
	clone := *id
	return &clone, nil
}

// countingDirectory wraps the in-memory directory and records calls.
type countingDirectory struct {
	*memory.UserDirectory
	finds   atomic.Int32
	creates atomic.Int32
	findErr error
}

func newCountingDirectory() *countingDirectory {
	return &countingDirectory{UserDirectory: memory.NewUserDirectory()}
}

func (d *countingDirectory) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	d.finds.Add(1)
	if d.findErr != nil {
		return nil, d.findErr
	}
	return d.UserDirectory.FindByEmail(ctx, email)
}

func (d *countingDirectory) Create(ctx context.Context, in domain.NewUser) (*domain.UserRecord, error) {
	d.creates.Add(1)
	return d.UserDirectory.Create(ctx, in)
}

// racingDirectory holds the first n lookups at a barrier so that every caller
// observes "not found" before any of them creates.
type racingDirectory struct {
	*memory.UserDirectory
	barrier sync.WaitGroup
	lookups atomic.Int32
	n       int32
}

func newRacingDirectory(n int) *racingDirectory {
	d := &racingDirectory{UserDirectory: memory.NewUserDirectory(), n: int32(n)}
	d.barrier.Add(n)
	return d
}

func (d *racingDirectory) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	if d.lookups.Add(1) <= d.n {
		d.barrier.Done()
		d.barrier.Wait()
	}
	return d.UserDirectory.FindByEmail(ctx, email)
}

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.SyncEvent
	full   bool
}

func (p *stubPublisher) Publish(e domain.SyncEvent) bool {
	if p.full {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return true
}

func newSyncSvc(v *stubVerifier, dir ports.UserDirectory, pub *stubPublisher) *SyncService {
	if pub == nil {
		return NewSyncService(v, dir, nil, time.Second, zerolog.Nop())
	}
	return NewSyncService(v, dir, pub, time.Second, zerolog.Nop())
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSyncService_CreatesUserOnFirstSync(t *testing.T) {
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{SubjectID: "abc123", Email: "jane@x.com", DisplayName: "Jane Doe"}
	dir := newCountingDirectory()
	pub := &stubPublisher{}
	svc := newSyncSvc(v, dir, pub)

	res, err := svc.Sync(context.Background(), "Bearer tok")
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if res.Email != "jane@x.com" || !res.Created {
		t.Fatalf("unexpected result: %+v", res)
	}

	user, err := dir.FindByID(context.Background(), res.UserID)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if user.FirstName != "Jane" || user.LastName != "Doe" {
		t.Fatalf("unexpected names: %q %q", user.FirstName, user.LastName)
	}
	if user.PasswordPlaceholder != domain.FederatedPassword {
		t.Fatalf("expected sentinel password, got %q", user.PasswordPlaceholder)
	}
	if dir.Len() != 1 {
		t.Fatalf("expected exactly one record, got %d", dir.Len())
	}

	if len(pub.events) != 1 || pub.events[0].Outcome != domain.SyncOutcomeCreated || pub.events[0].SubjectID != "abc123" {
		t.Fatalf("unexpected audit events: %+v", pub.events)
	}
}

func TestSyncService_ExistingUserIsNotOverwritten(t *testing.T) {
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{SubjectID: "abc123", Email: "jane@x.com", DisplayName: "Janet Smith"}
	dir := newCountingDirectory()
	existing, err := dir.UserDirectory.Create(context.Background(), domain.NewUser{Email: "jane@x.com", FirstName: "Jane", LastName: "Doe"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := newSyncSvc(v, dir, nil)

	res, err := svc.Sync(context.Background(), "Bearer tok")
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if res.UserID != existing.ID || res.Created {
		t.Fatalf("expected existing user %d, got %+v", existing.ID, res)
	}
	if dir.creates.Load() != 0 {
		t.Fatalf("expected no create calls, got %d", dir.creates.Load())
	}

	stored, _ := dir.FindByID(context.Background(), existing.ID)
	if stored.FirstName != "Jane" || stored.LastName != "Doe" {
		t.Fatalf("stored names changed: %q %q", stored.FirstName, stored.LastName)
	}
}

func TestSyncService_Idempotent(t *testing.T) {
	v := newStubVerifier()
	v.identities["tok-1"] = &domain.VerifiedIdentity{SubjectID: "s1", Email: "jane@x.com"}
	v.identities["tok-2"] = &domain.VerifiedIdentity{SubjectID: "s1", Email: "jane@x.com", DisplayName: "Jane"}
	dir := newCountingDirectory()
	svc := newSyncSvc(v, dir, nil)

	first, err := svc.Sync(context.Background(), "Bearer tok-1")
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	second, err := svc.Sync(context.Background(), "Bearer tok-2")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}

	if first.UserID != second.UserID {
		t.Fatalf("expected same user id, got %d and %d", first.UserID, second.UserID)
	}
	if dir.Len() != 1 {
		t.Fatalf("expected one record, got %d", dir.Len())
	}
}

func TestSyncService_ConcurrentFirstSyncsConverge(t *testing.T) {
	const n = 16
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{SubjectID: "s1", Email: "race@x.com", DisplayName: "Race Condition"}
	dir := newRacingDirectory(n)
	svc := newSyncSvc(v, dir, nil)

	var wg sync.WaitGroup
	ids := make([]int64, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Sync(context.Background(), "Bearer tok")
			errs[i] = err
			if err == nil {
				ids[i] = res.UserID
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Fatalf("call %d returned user %d, expected %d", i, ids[i], ids[0])
		}
	}
	if dir.Len() != 1 {
		t.Fatalf("expected exactly one record, got %d", dir.Len())
	}
}

func TestSyncService_MissingHeader(t *testing.T) {
	for _, header := range []string{"", "Basic abc", "Bearer "} {
		v := newStubVerifier()
		dir := newCountingDirectory()
		svc := newSyncSvc(v, dir, nil)

		_, err := svc.Sync(context.Background(), header)
		if !errors.Is(err, domain.ErrMissingCredential) {
			t.Fatalf("header %q: expected ErrMissingCredential, got %v", header, err)
		}
		if v.calls.Load() != 0 {
			t.Fatalf("header %q: verifier should not be called", header)
		}
		if dir.finds.Load() != 0 || dir.creates.Load() != 0 {
			t.Fatalf("header %q: directory should not be called", header)
		}
	}
}

func TestSyncService_InvalidCredential(t *testing.T) {
	v := newStubVerifier()
	dir := newCountingDirectory()
	svc := newSyncSvc(v, dir, nil)

	_, err := svc.Sync(context.Background(), "Bearer forged")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if dir.Len() != 0 || dir.finds.Load() != 0 {
		t.Fatalf("directory should be untouched")
	}
}

func TestSyncService_VerifierTimeoutIsUnauthorized(t *testing.T) {
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{SubjectID: "s1", Email: "slow@x.com"}
	v.delay = time.Second
	dir := newCountingDirectory()
	svc := NewSyncService(v, dir, nil, 20*time.Millisecond, zerolog.Nop())

	_, err := svc.Sync(context.Background(), "Bearer tok")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if dir.Len() != 0 {
		t.Fatalf("no record should be created on timeout")
	}
}

func TestSyncService_IncompleteIdentity(t *testing.T) {
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{SubjectID: "phone-only"}
	dir := newCountingDirectory()
	svc := newSyncSvc(v, dir, nil)

	_, err := svc.Sync(context.Background(), "Bearer tok")
	if !errors.Is(err, domain.ErrIncompleteIdentity) {
		t.Fatalf("expected ErrIncompleteIdentity, got %v", err)
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("incomplete identity must be distinct from unauthorized")
	}
	if dir.Len() != 0 {
		t.Fatalf("no record should be created")
	}
}

func TestSyncService_AbsentDisplayNameYieldsEmptyNames(t *testing.T) {
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{SubjectID: "s1", Email: "anon@x.com"}
	dir := newCountingDirectory()
	svc := newSyncSvc(v, dir, nil)

	res, err := svc.Sync(context.Background(), "Bearer tok")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	user, _ := dir.FindByID(context.Background(), res.UserID)
	if user.FirstName != "" || user.LastName != "" {
		t.Fatalf("expected empty names, got %q %q", user.FirstName, user.LastName)
	}
}

func TestSyncService_StoreErrorSurfaces(t *testing.T) {
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{SubjectID: "s1", Email: "jane@x.com"}
	dir := newCountingDirectory()
	dir.findErr = errors.Join(domain.ErrStoreUnavailable, errors.New("connection refused"))
	svc := newSyncSvc(v, dir, nil)

	_, err := svc.Sync(context.Background(), "Bearer tok")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("duplicate key must never surface")
	}
}

func TestSyncService_FullAuditQueueDoesNotFailSync(t *testing.T) {
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{SubjectID: "s1", Email: "jane@x.com"}
	svc := newSyncSvc(v, newCountingDirectory(), &stubPublisher{full: true})

	if _, err := svc.Sync(context.Background(), "Bearer tok"); err != nil {
		t.Fatalf("expected sync to succeed with a full audit queue, got %v", err)
	}
}

// vanishingDirectory reports the email as taken on create, then fails the
// follow-up lookup with a store error.
type vanishingDirectory struct {
	*memory.UserDirectory
	finds atomic.Int32
}

func (d *vanishingDirectory) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	if d.finds.Add(1) == 1 {
		return nil, domain.ErrUserNotFound
	}
	return nil, fmt.Errorf("%w: find user: connection reset", domain.ErrStoreUnavailable)
}

func (d *vanishingDirectory) Create(context.Context, domain.NewUser) (*domain.UserRecord, error) {
	return nil, domain.ErrDuplicateKey
}

func TestSyncService_FailedLookupAfterDuplicateSurfacesStoreError(t *testing.T) {
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{SubjectID: "s1", Email: "jane@x.com"}
	dir := &vanishingDirectory{UserDirectory: memory.NewUserDirectory()}
	pub := &stubPublisher{}
	svc := newSyncSvc(v, dir, pub)

	res, err := svc.Sync(context.Background(), "Bearer tok")
	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrDuplicateKey) || errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unexpected classification: %v", err)
	}
	if got := dir.finds.Load(); got != 2 {
		t.Fatalf("expected exactly one re-lookup (2 finds), got %d", got)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no audit event expected on failure, got %d", len(pub.events))
	}
}

func TestSyncService_LongDisplayNameStoredWhole(t *testing.T) {
	last := strings.Repeat("x", 300)
	v := newStubVerifier()
	v.identities["tok"] = &domain.VerifiedIdentity{
		SubjectID:   "s1",
		Email:       "long@x.com",
		DisplayName: "Jane " + last,
	}
	dir := newCountingDirectory()
	svc := newSyncSvc(v, dir, nil)

	res, err := svc.Sync(context.Background(), "Bearer tok")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	user, err := dir.FindByID(context.Background(), res.UserID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if user.FirstName != "Jane" || user.LastName != last {
		t.Fatalf("name truncated: first=%q last len=%d", user.FirstName, len(user.LastName))
	}
}
