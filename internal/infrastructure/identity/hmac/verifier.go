// Package hmac verifies HS256 tokens signed with a shared secret. It backs
// local development and tests where the real identity authority is absent.
package hmac

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

// Provider is reported as the sign-in provider of identities this package
// verifies.
const Provider = "hmac"

type Config struct {
	Secret string
	Issuer string
	// Now overrides the clock used for expiry checks. Nil means time.Now.
	Now func() time.Time
}

type claims struct {
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens issued by Issue.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func New(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("hmac: secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}
	return &Verifier{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}, nil
}

func (v *Verifier) Verify(_ context.Context, credential string) (*domain.VerifiedIdentity, error) {
	var c claims
	_, err := v.parser.ParseWithClaims(credential, &c, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, domain.NewVerificationError(err)
	}
	if c.Subject == "" {
		return nil, domain.NewVerificationError(errors.New("token has no subject"))
	}

	return &domain.VerifiedIdentity{
		SubjectID:     c.Subject,
		Email:         c.Email,
		DisplayName:   c.Name,
		EmailVerified: c.EmailVerified,
		Provider:      Provider,
	}, nil
}

// Issue signs a token for identity that Verify accepts until ttl elapses.
func Issue(cfg Config, identity domain.VerifiedIdentity, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("hmac: secret is required")
	}
	now := time.Now()
	if cfg.Now != nil {
		now = cfg.Now()
	}
	c := claims{
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		Name:          identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   identity.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(cfg.Secret))
}
