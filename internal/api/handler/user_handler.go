package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/teqbay/accounts-api/internal/api/metrics"
	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/ports"
)

const maxPhotoBytes = 5 << 20

type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Get returns a single user by id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.userService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(c, "get", err)
	}
	metrics.UserOpsTotal.WithLabelValues("get").Inc()
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// List returns a page of all users. Admin only.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        page      query     int  false  "Page (1-based)"
// @Param        per_page  query     int  false  "Items per page"
// @Success      200  {object}  listUsersResponse
// @Failure      403  {object}  errorResponse
// @Security     BearerAuth
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	page, perPage := pageParams(c)
	result, err := h.userService.List(c.Request().Context(), page, perPage)
	if err != nil {
		return h.mapError(c, "list", err)
	}
	metrics.UserOpsTotal.WithLabelValues("list").Inc()
	return c.JSON(http.StatusOK, toListResponse(result))
}

// Search returns users whose email, username or id matches the term.
//
// @Summary      Search users
// @Tags         users
// @Produce      json
// @Param        q         query     string  true   "Search term"
// @Param        page      query     int     false  "Page (1-based)"
// @Param        per_page  query     int     false  "Items per page"
// @Success      200  {object}  listUsersResponse
// @Security     BearerAuth
// @Router       /users/search [get]
func (h *UserHandler) Search(c echo.Context) error {
	term := c.QueryParam("q")
	if term == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "q is required"})
	}
	page, perPage := pageParams(c)
	result, err := h.userService.Search(c.Request().Context(), term, page, perPage)
	if err != nil {
		return h.mapError(c, "search", err)
	}
	metrics.UserOpsTotal.WithLabelValues("search").Inc()
	return c.JSON(http.StatusOK, toListResponse(result))
}

// Register creates a new user account with the regular role.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	user, err := h.userService.Register(c.Request().Context(), ports.RegisterInput{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return h.mapError(c, "register", err)
	}
	metrics.UserOpsTotal.WithLabelValues("register").Inc()
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Update mutates a user's profile. Owner or admin only.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User ID"
// @Param        body  body      updateUserRequest  true  "Profile changes"
// @Success      200   {object}  userResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	user, err := h.userService.Update(c.Request().Context(), p, c.Param("id"), ports.UpdateUserInput{
		Username:    req.Username,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return h.mapError(c, "update", err)
	}
	metrics.UserOpsTotal.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete removes a user. Admin only.
//
// @Summary      Delete a user
// @Tags         users
// @Param        id   path  string  true  "User ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.userService.Delete(c.Request().Context(), p, c.Param("id")); err != nil {
		return h.mapError(c, "delete", err)
	}
	metrics.UserOpsTotal.WithLabelValues("delete").Inc()
	return c.NoContent(http.StatusNoContent)
}

// SetPhoto uploads a profile photo. Owner or admin only.
//
// @Summary      Upload a profile photo
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Param        id     path      string  true  "User ID"
// @Param        photo  formData  file    true  "Image file"
// @Success      200    {object}  userResponse
// @Failure      400    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id}/photo [patch]
func (h *UserHandler) SetPhoto(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "photo file is required"})
	}
	if fh.Size > maxPhotoBytes {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "photo exceeds maximum size"})
	}

	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxPhotoBytes))
	if err != nil {
		return err
	}

	user, err := h.userService.SetPhoto(c.Request().Context(), p, c.Param("id"), fh.Filename, data)
	if err != nil {
		return h.mapError(c, "set_photo", err)
	}
	metrics.UserOpsTotal.WithLabelValues("set_photo").Inc()
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// RemovePhoto deletes the profile photo. Owner or admin only.
//
// @Summary      Delete the profile photo
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     BearerAuth
// @Router       /users/{id}/photo [delete]
func (h *UserHandler) RemovePhoto(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.userService.RemovePhoto(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return h.mapError(c, "remove_photo", err)
	}
	metrics.UserOpsTotal.WithLabelValues("remove_photo").Inc()
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// mapError converts expected business outcomes to their status codes and
// lets everything else bubble up to the central error handler as a 500.
func (h *UserHandler) mapError(c echo.Context, op string, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
	case errors.Is(err, domain.ErrEmailTaken):
		return c.JSON(http.StatusConflict, errorResponse{Error: "email already taken"})
	case errors.Is(err, domain.ErrForbidden):
		metrics.AuthzDeniedTotal.WithLabelValues(op).Inc()
		return c.JSON(http.StatusForbidden, errorResponse{Error: "access forbidden"})
	case errors.Is(err, domain.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "missing authentication claims"})
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Error()})
	default:
		return err
	}
}

func pageParams(c echo.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	perPage, _ = strconv.Atoi(c.QueryParam("per_page"))
	return page, perPage
}
