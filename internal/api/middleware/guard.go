package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/brewline/console/internal/api/metrics"
	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/infrastructure/cookie"
)

// RouteGuard is the perimeter check run before routing. It looks only at
// whether a credential cookie is present, never at its claims:
//   - no credential on /dashboard or below → /login
//   - credential on /login or /register → /dashboard
//
// Register it with echo.Pre so no protected handler runs first.
func RouteGuard(cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if target, ok := GuardRedirect(cookie.Present(req, cookieName), req.URL.Path); ok {
				metrics.RouteGuardRedirectsTotal.WithLabelValues(target).Inc()
				return c.Redirect(http.StatusFound, target)
			}
			return next(c)
		}
	}
}

// GuardRedirect returns the redirect target for a navigation, if any.
func GuardRedirect(hasCredential bool, path string) (string, bool) {
	switch {
	case !hasCredential && isProtected(path):
		return domain.LoginPath, true
	case hasCredential && isAuthPage(path):
		return domain.DashboardPath, true
	default:
		return "", false
	}
}

func isProtected(path string) bool {
	return path == domain.DashboardPath || strings.HasPrefix(path, domain.DashboardPath+"/")
}

func isAuthPage(path string) bool {
	path = strings.TrimSuffix(path, "/")
	return path == domain.LoginPath || path == domain.RegisterPath
}
