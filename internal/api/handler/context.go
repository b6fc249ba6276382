package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// IdentityKey is the echo context key under which the Auth middleware stores
// the resolved domain.Identity.
const IdentityKey = "identity"

// ctxIdentity extracts the identity injected by the Auth middleware. A
// missing or empty identity means the route was wired without the guard,
// which is rejected with 401 rather than served anonymously.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := c.Get(IdentityKey).(domain.Identity)
	if !ok || id.UserID == "" {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return id, nil
}
