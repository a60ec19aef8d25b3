package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
)

// IdentityKey is the echo context key holding the *domain.VerifiedIdentity of
// an authenticated request.
const IdentityKey = "identity"

const defaultVerifyTimeout = 5 * time.Second

// Auth verifies the bearer credential with verifier and injects the verified
// identity into the context.
func Auth(verifier ports.TokenVerifier, timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			credential, err := domain.BearerCredential(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			identity, err := verifier.Verify(ctx, credential)
			cancel()
			if err != nil || identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(IdentityKey, identity)
			return next(c)
		}
	}
}
