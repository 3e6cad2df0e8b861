package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brewline/console/internal/api/middleware"
	"github.com/brewline/console/internal/core/domain"
)

// ctxClaims extracts the claims injected by the Auth middleware. Missing
// claims mean the route was mounted without Auth; reject with 401 rather than
// serve an anonymous identity.
func ctxClaims(c echo.Context) (*domain.Claims, error) {
	claims, _ := c.Get(middleware.ClaimsKey).(*domain.Claims)
	if claims == nil || claims.Subject == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}
