package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
)

type SyncHandler struct {
	syncService ports.SyncService
	log         zerolog.Logger
}

func NewSyncHandler(syncService ports.SyncService, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{syncService: syncService, log: log}
}

type syncResponse struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

// Sync reconciles the caller's verified identity with the user directory.
//
// @Summary      Sync the authenticated identity
// @Description  Verifies the bearer ID token and returns the matching user, creating it on first sight.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  syncResponse
// @Failure      401  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/auth/sync [post]
func (h *SyncHandler) Sync(c echo.Context) error {
	res, err := h.syncService.Sync(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingCredential):
			return writeError(c, http.StatusUnauthorized, "missing token")
		case errors.Is(err, domain.ErrUnauthorized):
			return writeError(c, http.StatusUnauthorized, "invalid token")
		case errors.Is(err, domain.ErrIncompleteIdentity):
			return writeError(c, http.StatusUnprocessableEntity, "verified identity has no email")
		}
		h.log.Error().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("identity sync failed")
		return writeError(c, http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, syncResponse{UserID: res.UserID, Email: res.Email})
}
