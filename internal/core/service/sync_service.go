package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
	"github.com/fitnessapp/identity-sync/internal/pkg/metrics"
)

const defaultVerifyTimeout = 5 * time.Second

// SyncService implements the find-or-create reconciliation between a verified
// identity and the user directory.
type SyncService struct {
	verifier      ports.TokenVerifier
	directory     ports.UserDirectory
	events        ports.SyncEventPublisher // optional
	verifyTimeout time.Duration
	log           zerolog.Logger
}

// NewSyncService wires the orchestrator. events may be nil to disable auditing.
func NewSyncService(
	verifier ports.TokenVerifier,
	directory ports.UserDirectory,
	events ports.SyncEventPublisher,
	verifyTimeout time.Duration,
	log zerolog.Logger,
) *SyncService {
	if verifyTimeout <= 0 {
		verifyTimeout = defaultVerifyTimeout
	}
	return &SyncService{
		verifier:      verifier,
		directory:     directory,
		events:        events,
		verifyTimeout: verifyTimeout,
		log:           log,
	}
}

// Sync verifies the bearer credential carried by authorization and returns the
// user record for its email, creating it on first sight.
func (s *SyncService) Sync(ctx context.Context, authorization string) (*ports.SyncResult, error) {
	// 1. No recognizable bearer credential: reject before touching collaborators.
	credential, err := domain.BearerCredential(authorization)
	if err != nil {
		metrics.SyncRequestsTotal.WithLabelValues("missing_credential").Inc()
		return nil, err
	}

	// 2. Verify against the identity authority. Timeouts count as rejection.
	identity, err := s.verify(ctx, credential)
	if err != nil {
		metrics.SyncRequestsTotal.WithLabelValues("unauthorized").Inc()
		s.log.Info().Err(err).Msg("credential rejected")
		return nil, fmt.Errorf("sync: %w", domain.ErrUnauthorized)
	}

	// 3. Email is the join key.
	if identity.Email == "" {
		metrics.SyncRequestsTotal.WithLabelValues("incomplete_identity").Inc()
		s.log.Warn().Str("subject", identity.SubjectID).Msg("verified identity has no email claim")
		return nil, fmt.Errorf("sync: %w", domain.ErrIncompleteIdentity)
	}

	// 4. Find or create. An existing record is authoritative and never updated.
	user, outcome, err := s.findOrCreate(ctx, identity)
	if err != nil {
		metrics.SyncRequestsTotal.WithLabelValues("store_error").Inc()
		return nil, err
	}
	metrics.SyncRequestsTotal.WithLabelValues(outcome).Inc()

	created := outcome == string(domain.SyncOutcomeCreated)
	s.publish(identity, user, created)

	s.log.Debug().
		Int64("user_id", user.ID).
		Str("subject", identity.SubjectID).
		Str("outcome", outcome).
		Msg("identity synced")

	// 5. Result.
	return &ports.SyncResult{UserID: user.ID, Email: user.Email, Created: created}, nil
}

func (s *SyncService) verify(ctx context.Context, credential string) (*domain.VerifiedIdentity, error) {
	verifyCtx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	identity, err := s.verifier.Verify(verifyCtx, credential)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, domain.NewVerificationError(errors.New("verifier returned no identity"))
	}
	return identity, nil
}

// findOrCreate returns the record and the metrics outcome label.
func (s *SyncService) findOrCreate(ctx context.Context, identity *domain.VerifiedIdentity) (*domain.UserRecord, string, error) {
	user, err := s.directory.FindByEmail(ctx, identity.Email)
	if err == nil {
		return user, string(domain.SyncOutcomeExisting), nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, "", fmt.Errorf("sync: find user: %w", err)
	}

	first, last := domain.SplitDisplayName(identity.DisplayName)
	user, err = s.directory.Create(ctx, domain.NewUser{
		Email:     identity.Email,
		FirstName: first,
		LastName:  last,
	})
	if err == nil {
		metrics.UsersCreatedTotal.WithLabelValues("sync").Inc()
		s.log.Info().Int64("user_id", user.ID).Str("subject", identity.SubjectID).Msg("user created from verified identity")
		return user, string(domain.SyncOutcomeCreated), nil
	}
	if !errors.Is(err, domain.ErrDuplicateKey) {
		return nil, "", fmt.Errorf("sync: create user: %w", err)
	}

	// Lost a concurrent first-login race: the winner's record is now present.
	user, err = s.directory.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, "", fmt.Errorf("sync: lookup after duplicate create: %w", err)
	}
	s.log.Debug().Int64("user_id", user.ID).Msg("recovered from concurrent create")
	return user, "recovered_duplicate", nil
}

func (s *SyncService) publish(identity *domain.VerifiedIdentity, user *domain.UserRecord, created bool) {
	if s.events == nil {
		return
	}

	outcome := domain.SyncOutcomeExisting
	if created {
		outcome = domain.SyncOutcomeCreated
	}

	ok := s.events.Publish(domain.SyncEvent{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Email:      user.Email,
		SubjectID:  identity.SubjectID,
		Provider:   identity.Provider,
		Outcome:    outcome,
		OccurredAt: time.Now().UTC(),
	})
	if !ok {
		s.log.Warn().Int64("user_id", user.ID).Msg("audit queue full, sync event dropped")
	}
}
