package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brewline/console/internal/api/metrics"
	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/session"
)

const gateKey = "role_gate"

// RoleGate admits a role-restricted section only while the session's user
// holds one of roles. It requires the Session middleware.
//
// The gate stays subscribed while the handler runs: if the session is cleared
// before the handler has written a response, the redirect still wins.
func RoleGate(section string, roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sc := ScopeFrom(c)
			if sc == nil {
				return c.Redirect(http.StatusFound, domain.LoginPath)
			}

			g := session.NewGate(sc.Store, sc.nav, roles...)
			defer g.Close()

			d := g.Decision()
			metrics.RoleGateDecisionsTotal.WithLabelValues(section, d.String()).Inc()
			switch d {
			case session.DecisionRender:
			case session.DecisionPending:
				return c.NoContent(http.StatusNoContent)
			default:
				return c.Redirect(http.StatusFound, d.Target())
			}

			c.Set(gateKey, g)
			err := next(c)
			if !c.Response().Committed {
				if target := g.Decision().Target(); target != "" {
					return c.Redirect(http.StatusFound, target)
				}
			}
			return err
		}
	}
}

// GateFrom returns the Gate guarding the current section, or nil outside one.
func GateFrom(c echo.Context) *session.Gate {
	g, _ := c.Get(gateKey).(*session.Gate)
	return g
}
