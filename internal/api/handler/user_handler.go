package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// UserHandler exposes user lifecycle operations behind the bearer guard.
type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List godoc
//
//	@Summary	List users
//	@Tags		users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}		userResponse
//	@Failure	401	{object}	errorResponse
//	@Router		/api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	if _, err := ctxIdentity(c); err != nil {
		return err
	}

	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return c.JSON(http.StatusOK, out)
}

// Get godoc
//
//	@Summary	Get a user by id
//	@Tags		users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User id"
//	@Success	200	{object}	userResponse
//	@Failure	401	{object}	errorResponse
//	@Failure	404	{object}	errorResponse
//	@Router		/api/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	if _, err := ctxIdentity(c); err != nil {
		return err
	}

	user, err := h.users.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Put godoc
//
//	@Summary		Update a user
//	@Description	Applies every supplied field. A supplied phones array replaces the whole phone set.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"User id"
//	@Param			body	body		updateUserRequest	true	"Fields to change"
//	@Success		200		{object}	userResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		404		{object}	errorResponse
//	@Failure		409		{object}	errorResponse
//	@Router			/api/users/{id} [put]
func (h *UserHandler) Put(c echo.Context) error {
	return h.update(c, "put", true)
}

// Patch godoc
//
//	@Summary		Partially update a user
//	@Description	Applies every supplied field except phones, which are left untouched.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"User id"
//	@Param			body	body		updateUserRequest	true	"Fields to change"
//	@Success		200		{object}	userResponse
//	@Failure		400		{object}	errorResponse
//	@Failure		404		{object}	errorResponse
//	@Failure		409		{object}	errorResponse
//	@Router			/api/users/{id} [patch]
func (h *UserHandler) Patch(c echo.Context) error {
	return h.update(c, "patch", false)
}

func (h *UserHandler) update(c echo.Context, op string, withPhones bool) error {
	if _, err := ctxIdentity(c); err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if withPhones {
		if err := c.Validate(&phoneListRequest{Phones: req.phones()}); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	user, err := h.users.UpdateUser(c.Request().Context(), c.Param("id"), toUpdateInput(req, withPhones))
	if err != nil {
		metrics.UserMutationsTotal.WithLabelValues(op, domain.KindOf(err).String()).Inc()
		return err
	}

	metrics.UserMutationsTotal.WithLabelValues(op, "success").Inc()
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete godoc
//
//	@Summary	Delete a user
//	@Tags		users
//	@Security	BearerAuth
//	@Param		id	path	string	true	"User id"
//	@Success	204
//	@Failure	401	{object}	errorResponse
//	@Failure	404	{object}	errorResponse
//	@Router		/api/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if _, err := ctxIdentity(c); err != nil {
		return err
	}

	deleted, err := h.users.DeleteUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		metrics.UserMutationsTotal.WithLabelValues("delete", domain.KindOf(err).String()).Inc()
		return err
	}
	if !deleted {
		metrics.UserMutationsTotal.WithLabelValues("delete", domain.KindNotFound.String()).Inc()
		return domain.ErrUserNotFound
	}

	metrics.UserMutationsTotal.WithLabelValues("delete", "success").Inc()
	return c.NoContent(http.StatusNoContent)
}
