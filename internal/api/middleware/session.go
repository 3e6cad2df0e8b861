package middleware

import (
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/brewline/console/internal/core/credential"
	"github.com/brewline/console/internal/core/ports"
	"github.com/brewline/console/internal/core/service"
	"github.com/brewline/console/internal/core/session"
	"github.com/brewline/console/internal/infrastructure/cookie"
)

const scopeKey = "session_scope"

// SessionConfig holds the process-wide collaborators every request scope shares.
type SessionConfig struct {
	API     ports.IdentityAPI
	Decoder *credential.Decoder
	Audit   ports.AuditSink
	Cookie  cookie.Options
	Log     zerolog.Logger
}

// Scope is the session core of one page load: a Store restored from the
// request cookie and a SessionService bound to it.
type Scope struct {
	Store   *session.Store
	Service *service.SessionService

	nav   *redirectRecorder
	notes *noteCollector
}

// Redirect returns the last route the core navigated to during this request.
func (s *Scope) Redirect() string { return s.nav.last() }

// Notifications returns the messages raised during this request.
func (s *Scope) Notifications() []ports.Notification { return s.notes.all() }

// Session builds a Scope per request and initializes its Store before the
// handler runs.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := cfg.Log.With().Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Logger()
			store := session.NewStore(cookie.New(c, cfg.Cookie), cfg.Decoder, log, session.WithAudit(cfg.Audit))

			sc := &Scope{Store: store, nav: &redirectRecorder{}, notes: &noteCollector{}}
			sc.Service = service.NewSessionService(service.SessionDeps{
				API:       cfg.API,
				Store:     store,
				Decoder:   cfg.Decoder,
				Navigator: sc.nav,
				Notifier:  sc.notes,
				Audit:     cfg.Audit,
				Log:       log,
			})

			store.Initialize(c.Request().Context())
			c.Set(scopeKey, sc)
			return next(c)
		}
	}
}

// ScopeFrom returns the Scope installed by Session, or nil.
func ScopeFrom(c echo.Context) *Scope {
	sc, _ := c.Get(scopeKey).(*Scope)
	return sc
}

// redirectRecorder is the request-scoped ports.Navigator.
type redirectRecorder struct {
	mu   sync.Mutex
	path string
}

func (r *redirectRecorder) Navigate(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

func (r *redirectRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// noteCollector is the request-scoped ports.Notifier.
type noteCollector struct {
	mu    sync.Mutex
	notes []ports.Notification
}

func (n *noteCollector) Notify(note ports.Notification) {
	n.mu.Lock()
	n.notes = append(n.notes, note)
	n.mu.Unlock()
}

func (n *noteCollector) all() []ports.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ports.Notification(nil), n.notes...)
}
