package hmac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

var testCfg = Config{Secret: "test-secret", Issuer: "identity-sync-dev"}

func TestIssueAndVerify(t *testing.T) {
	v, err := New(testCfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	token, err := Issue(testCfg, domain.VerifiedIdentity{
		SubjectID: "dev-1", Email: "dev@example.com", DisplayName: "Dev User", EmailVerified: true,
	}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.SubjectID != "dev-1" || id.Email != "dev@example.com" || id.DisplayName != "Dev User" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.Provider != Provider || !id.EmailVerified {
		t.Fatalf("unexpected provider fields: %+v", id)
	}
}

func TestVerify_Rejects(t *testing.T) {
	v, _ := New(testCfg)
	identity := domain.VerifiedIdentity{SubjectID: "dev-1", Email: "dev@example.com"}

	expired, _ := Issue(Config{
		Secret: testCfg.Secret, Issuer: testCfg.Issuer,
		Now: func() time.Time { return time.Now().Add(-2 * time.Hour) },
	}, identity, time.Hour)
	wrongSecret, _ := Issue(Config{Secret: "other", Issuer: testCfg.Issuer}, identity, time.Hour)
	wrongIssuer, _ := Issue(Config{Secret: testCfg.Secret, Issuer: "someone-else"}, identity, time.Hour)
	noSubject, _ := Issue(testCfg, domain.VerifiedIdentity{Email: "dev@example.com"}, time.Hour)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "dev-1", "iss": testCfg.Issuer, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"expired":      expired,
		"wrong secret": wrongSecret,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"alg none":     noneAlg,
		"garbage":      "abc.def.ghi",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidOrExpiredCredential) {
				t.Fatalf("expected ErrInvalidOrExpiredCredential, got %v", err)
			}
		})
	}
}

func TestNew_RequiresSecret(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := Issue(Config{}, domain.VerifiedIdentity{SubjectID: "x"}, time.Minute); err == nil {
		t.Fatal("expected error issuing without secret")
	}
}
