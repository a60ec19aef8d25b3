// devtoken mints a bearer token accepted by the hmac identity provider, for
// exercising POST /api/v1/auth/sync locally:
//
//	export IDENTITY_HMAC_SECRET=dev-secret
//	curl -X POST -H "Authorization: Bearer $(go run ./cmd/devtoken -email jane@example.com -name 'Jane Doe')" \
//	    localhost:8080/api/v1/auth/sync
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-envconfig"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/identity/hmac"
)

type tokenConfig struct {
	Secret string `env:"IDENTITY_HMAC_SECRET, required"`
	Issuer string `env:"IDENTITY_HMAC_ISSUER, default=identity-sync-dev"`
}

func main() {
	email := flag.String("email", "", "email claim; empty produces a token without email")
	name := flag.String("name", "", "display name claim")
	subject := flag.String("sub", "", "subject id; random when empty")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	var cfg tokenConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	sub := *subject
	if sub == "" {
		sub = uuid.NewString()
	}

	token, err := hmac.Issue(hmac.Config{Secret: cfg.Secret, Issuer: cfg.Issuer}, domain.VerifiedIdentity{
		SubjectID:     sub,
		Email:         *email,
		DisplayName:   *name,
		EmailVerified: *email != "",
	}, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
