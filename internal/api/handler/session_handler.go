package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/brewline/console/internal/api/metrics"
	"github.com/brewline/console/internal/api/middleware"
	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
)

// SessionHandler serves the console's public pages and the login, register
// and logout forms.
type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type registerForm struct {
	CompanyName string `form:"company_name" validate:"required,max=120"`
	Email       string `form:"email" validate:"required,email"`
	Password    string `form:"password" validate:"required,min=8"`
}

// Landing renders the public entry page.
func (h *SessionHandler) Landing(c echo.Context) error {
	p := page{Title: "Welcome", User: currentUser(c)}
	if c.QueryParam("signed_out") != "" {
		p.Notice = "You have been signed out."
	}
	return c.Render(http.StatusOK, pageLanding, p)
}

// LoginPage renders the sign-in form.
func (h *SessionHandler) LoginPage(c echo.Context) error {
	p := page{Title: "Sign in"}
	if c.QueryParam("registered") != "" {
		p.Notice = "Account created. Please sign in."
	}
	return c.Render(http.StatusOK, pageLogin, p)
}

// Login exchanges the submitted credentials for a session.
func (h *SessionHandler) Login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusBadRequest, pageLogin, page{Title: "Sign in", Error: domain.MsgBadRequest})
	}
	if err := c.Validate(&form); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_form").Inc()
		return c.Render(http.StatusBadRequest, pageLogin, page{Title: "Sign in", Error: err.Error(), Email: form.Email})
	}

	sc := middleware.ScopeFrom(c)
	if _, err := sc.Service.Login(c.Request().Context(), form.Email, form.Password); err != nil {
		status, msg, result := failureView(err)
		metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
		return c.Render(status, pageLogin, page{Title: "Sign in", Error: msg, Email: form.Email})
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return c.Redirect(http.StatusSeeOther, domain.DashboardPath)
}

// RegisterPage renders the tenant registration form.
func (h *SessionHandler) RegisterPage(c echo.Context) error {
	return c.Render(http.StatusOK, pageRegister, page{Title: "Register"})
}

// Register creates a tenant and sends the user to sign in.
func (h *SessionHandler) Register(c echo.Context) error {
	var form registerForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusBadRequest, pageRegister, page{Title: "Register", Error: domain.MsgBadRequest})
	}
	echoForm := page{Title: "Register", Email: form.Email, CompanyName: form.CompanyName}
	if err := c.Validate(&form); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid_form").Inc()
		echoForm.Error = err.Error()
		return c.Render(http.StatusBadRequest, pageRegister, echoForm)
	}

	sc := middleware.ScopeFrom(c)
	if err := sc.Service.Register(c.Request().Context(), form.CompanyName, form.Email, form.Password); err != nil {
		status, msg, result := failureView(err)
		metrics.RegistrationsTotal.WithLabelValues(result).Inc()
		echoForm.Error = msg
		return c.Render(status, pageRegister, echoForm)
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return c.Redirect(http.StatusSeeOther, domain.LoginPath+"?registered=1")
}

// Logout ends the session and returns to the public entry page.
func (h *SessionHandler) Logout(c echo.Context) error {
	sc := middleware.ScopeFrom(c)
	sc.Service.Logout(c.Request().Context())
	metrics.LogoutsTotal.Inc()

	target := sc.Redirect()
	if target == "" {
		target = domain.PublicEntryPath
	}
	for _, n := range sc.Notifications() {
		if n.Level == ports.NotifyInfo {
			target += "?signed_out=1"
			break
		}
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// failureView maps a session failure onto a status, a user-facing message and
// a metric label.
func failureView(err error) (int, string, string) {
	var f *domain.Failure
	if errors.As(err, &f) {
		return f.Status, f.Message, f.Kind.Error()
	}
	return http.StatusInternalServerError, domain.MsgGeneric, "error"
}

func currentUser(c echo.Context) *domain.User {
	if sc := middleware.ScopeFrom(c); sc != nil {
		return sc.Service.CurrentUser()
	}
	return nil
}
