package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teqbay/accounts-api/internal/api/metrics"
	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/ports"
)

// loginThrottle is the slice of the redis throttle the handler needs.
type loginThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type AuthHandler struct {
	authService ports.AuthService
	throttle    loginThrottle
}

// NewAuthHandler builds the auth handler. A nil throttle disables login
// attempt limiting.
func NewAuthHandler(authService ports.AuthService, throttle loginThrottle) *AuthHandler {
	return &AuthHandler{authService: authService, throttle: throttle}
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	ctx := c.Request().Context()
	throttleKey := domain.NormalizeEmail(req.Email) + ":" + c.RealIP()

	if h.throttle != nil {
		allowed, err := h.throttle.Allow(ctx, throttleKey)
		if err == nil && !allowed {
			metrics.LoginsTotal.WithLabelValues("throttled").Inc()
			return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "too many login attempts, try again later"})
		}
		// Redis failures fail open: login still works without the throttle.
	}

	result, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return err
	}

	if h.throttle != nil {
		_ = h.throttle.Reset(ctx, throttleKey)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.Inc()

	return c.JSON(http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User: userResponse{
			ID:       result.UserID,
			Email:    result.Email,
			Username: result.Username,
			Roles:    result.Roles,
		},
	})
}
