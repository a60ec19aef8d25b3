package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fitnessapp/identity-sync/internal/api/middleware"
	"github.com/fitnessapp/identity-sync/internal/core/domain"
)

// requester returns the identity the Auth middleware stored on the context.
// Its absence means the route was mounted without the middleware; fail closed.
func requester(c echo.Context) (*domain.VerifiedIdentity, error) {
	id, ok := c.Get(middleware.IdentityKey).(*domain.VerifiedIdentity)
	if !ok || id == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	return id, nil
}
