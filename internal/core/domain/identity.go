package domain

import (
	"errors"
	"strings"
)

var (
	ErrMissingCredential          = errors.New("missing credential")
	ErrUnauthorized               = errors.New("unauthorized")
	ErrIncompleteIdentity         = errors.New("incomplete identity")
	ErrInvalidOrExpiredCredential = errors.New("invalid or expired credential")
)

// VerifiedIdentity holds the claims extracted from a credential the identity
// authority accepted. It is never persisted.
type VerifiedIdentity struct {
	SubjectID     string
	Email         string
	DisplayName   string // optional
	EmailVerified bool
	Provider      string // sign-in provider reported by the authority, e.g. "password", "google.com"
}

// VerificationError is the single failure a token verifier reports. Callers
// only need errors.Is(err, ErrInvalidOrExpiredCredential); Err keeps the cause
// for logs.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return ErrInvalidOrExpiredCredential.Error()
	}
	return ErrInvalidOrExpiredCredential.Error() + ": " + e.Err.Error()
}

func (e *VerificationError) Unwrap() error { return e.Err }

func (e *VerificationError) Is(target error) bool {
	return target == ErrInvalidOrExpiredCredential
}

// NewVerificationError wraps cause as a VerificationError.
func NewVerificationError(cause error) error {
	return &VerificationError{Err: cause}
}

// BearerCredential extracts the credential from an Authorization header value.
// The scheme is matched case-insensitively; an absent header, another scheme or
// an empty token all yield ErrMissingCredential.
func BearerCredential(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrMissingCredential
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

// SplitDisplayName derives first and last name from a display name claim:
// the first word is the first name, the remaining words joined by a single
// space form the last name.
func SplitDisplayName(displayName string) (first, last string) {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
