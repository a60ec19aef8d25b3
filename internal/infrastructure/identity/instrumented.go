// Package identity holds the token verifiers for the supported identity
// authorities and the helpers shared between them.
package identity

import (
	"context"
	"time"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
	"github.com/fitnessapp/identity-sync/internal/pkg/metrics"
)

type instrumented struct {
	name string
	next ports.TokenVerifier
}

// Instrument records the duration and result of every Verify call on next
// under the given verifier name.
func Instrument(name string, next ports.TokenVerifier) ports.TokenVerifier {
	return &instrumented{name: name, next: next}
}

func (i *instrumented) Verify(ctx context.Context, credential string) (*domain.VerifiedIdentity, error) {
	start := time.Now()
	id, err := i.next.Verify(ctx, credential)

	result := "ok"
	if err != nil {
		result = "rejected"
	}
	metrics.VerificationDuration.WithLabelValues(i.name, result).Observe(time.Since(start).Seconds())
	return id, err
}
