package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teqbay/accounts-api/internal/core/domain"
)

// ctxPrincipal extracts the principal injected by the Auth middleware. A
// missing principal means the route was wired without the middleware or the
// token carried no subject; either way the caller is unauthenticated.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := c.Get("principal").(domain.Principal)
	if !ok || p.Subject == "" {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
