// Package firebase verifies Firebase Authentication ID tokens.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

const (
	issuerPrefix = "https://securetoken.google.com/"

	// DefaultJWKSURL publishes the keys Firebase signs ID tokens with.
	DefaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

// Config selects the Firebase project whose tokens are accepted.
type Config struct {
	ProjectID string
	JWKSURL   string
	// Now overrides the clock used for expiry checks. Nil means time.Now.
	Now func() time.Time
}

// Verifier checks signature, issuer, audience and expiry of a Firebase ID
// token. It is safe for concurrent use; the remote key set caches keys and
// refreshes them when an unknown key id shows up.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// New builds a Verifier that fetches signing keys from cfg.JWKSURL. ctx bounds
// the lifetime of background key fetches and should outlive the server.
func New(ctx context.Context, cfg Config) (*Verifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase: project id is required")
	}
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = DefaultJWKSURL
	}
	return NewWithKeySet(cfg, oidc.NewRemoteKeySet(ctx, jwksURL)), nil
}

// NewWithKeySet builds a Verifier over an explicit key set.
func NewWithKeySet(cfg Config, keySet oidc.KeySet) *Verifier {
	return &Verifier{
		verifier: oidc.NewVerifier(issuerPrefix+cfg.ProjectID, keySet, &oidc.Config{
			ClientID:             cfg.ProjectID,
			SupportedSigningAlgs: []string{oidc.RS256},
			Now:                  cfg.Now,
		}),
	}
}

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
}

func (v *Verifier) Verify(ctx context.Context, credential string) (*domain.VerifiedIdentity, error) {
	token, err := v.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, domain.NewVerificationError(err)
	}
	if token.Subject == "" {
		return nil, domain.NewVerificationError(errors.New("token has no subject"))
	}

	var claims firebaseClaims
	if err := token.Claims(&claims); err != nil {
		return nil, domain.NewVerificationError(fmt.Errorf("decode claims: %w", err))
	}

	return &domain.VerifiedIdentity{
		SubjectID:     token.Subject,
		Email:         claims.Email,
		DisplayName:   claims.Name,
		EmailVerified: claims.EmailVerified,
		Provider:      claims.Firebase.SignInProvider,
	}, nil
}
