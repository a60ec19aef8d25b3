package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
)

type UserHandler struct {
	userService ports.UserService
	log         zerolog.Logger
}

func NewUserHandler(userService ports.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"max=255"`
	LastName  string `json:"lastName" validate:"max=255"`
}

type listUsersResponse struct {
	Items      []*domain.UserRecord `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"totalPages"`
}

// Register creates a local user account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.UserRecord
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users/register [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}

	user, err := h.userService.Register(c.Request().Context(), ports.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserExists):
			return writeError(c, http.StatusConflict, "user already exists")
		case errors.Is(err, domain.ErrInvalidRegistration):
			return writeError(c, http.StatusBadRequest, "invalid registration")
		}
		h.log.Error().Err(err).Msg("register user failed")
		return writeError(c, http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusCreated, user)
}

// Get returns a single user.
//
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  domain.UserRecord
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	if _, err := requester(c); err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid user id")
	}

	user, err := h.userService.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return writeError(c, http.StatusNotFound, "user not found")
		}
		h.log.Error().Err(err).Int64("user_id", id).Msg("get user failed")
		return writeError(c, http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, user)
}

// List returns a page of users ordered by ID.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "1-based page"  default(1)
// @Param        limit  query     int  false  "Page size (max 100)"  default(20)
// @Success      200    {object}  listUsersResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	if _, err := requester(c); err != nil {
		return err
	}

	page, err := intQuery(c, "page")
	if err != nil {
		return writeError(c, http.StatusBadRequest, "page must be an integer")
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return writeError(c, http.StatusBadRequest, "limit must be an integer")
	}

	res, err := h.userService.List(c.Request().Context(), page, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list users failed")
		return writeError(c, http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, listUsersResponse{
		Items:      res.Items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	})
}

// intQuery parses an optional integer query parameter; absent means 0.
func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
