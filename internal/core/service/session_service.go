package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/brewline/console/internal/core/credential"
	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
	"github.com/brewline/console/internal/core/session"
)

// SessionService runs login, registration and logout against the backend and
// funnels every state change through the session Store.
type SessionService struct {
	api      ports.IdentityAPI
	store    *session.Store
	decoder  *credential.Decoder
	nav      ports.Navigator
	notifier ports.Notifier
	audit    ports.AuditSink
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	seq      uint64
	inflight context.CancelFunc
}

// SessionDeps groups the collaborators of a SessionService. Navigator,
// Notifier and Audit are optional.
type SessionDeps struct {
	API       ports.IdentityAPI
	Store     *session.Store
	Decoder   *credential.Decoder
	Navigator ports.Navigator
	Notifier  ports.Notifier
	Audit     ports.AuditSink
	Log       zerolog.Logger
}

// NewSessionService returns a SessionService wired to deps.
func NewSessionService(deps SessionDeps) *SessionService {
	return &SessionService{
		api:      deps.API,
		store:    deps.Store,
		decoder:  deps.Decoder,
		nav:      deps.Navigator,
		notifier: deps.Notifier,
		audit:    deps.Audit,
		log:      deps.Log,
		now:      time.Now,
	}
}

// Login exchanges email and password for a credential and establishes the
// session. Either the session is established or nothing changes; failures are
// returned as *domain.Failure.
//
// A newer Login on the same SessionService cancels any exchange still in
// flight. The superseded call returns a Failure of kind domain.ErrSuperseded
// and never touches the Store.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	ctx, seq := s.begin(ctx)
	defer s.end(seq)

	tok, err := s.api.Login(ctx, email, password)
	if err != nil {
		if s.superseded(seq) {
			return nil, s.supersededFailure(email)
		}
		f := classifyLogin(err)
		s.fail(domain.EventLoginFailed, email, f)
		return nil, f
	}

	claims, err := s.decoder.Decode(tok)
	if err != nil {
		f := &domain.Failure{Kind: domain.ErrDecodeFailure, Status: http.StatusBadGateway, Message: domain.MsgGeneric, Cause: err}
		s.fail(domain.EventLoginFailed, email, f)
		return nil, f
	}
	user, err := claims.Identity(email, s.now())
	if err != nil {
		f := &domain.Failure{Kind: domain.ErrDecodeFailure, Status: http.StatusBadGateway, Message: domain.MsgGeneric, Cause: err}
		s.fail(domain.EventLoginFailed, email, f)
		return nil, f
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return nil, s.supersededFailure(email)
	}
	if err := s.store.Establish(ctx, tok, user); err != nil {
		f := &domain.Failure{Kind: domain.ErrServerMessage, Status: http.StatusInternalServerError, Message: domain.MsgGeneric, Cause: err}
		s.fail(domain.EventLoginFailed, email, f)
		return nil, f
	}

	s.log.Info().
		Str("subject", user.ID).
		Str("tenant_id", user.TenantID).
		Str("role", string(user.Role)).
		Msg("session established")
	s.record(domain.SessionEvent{
		Kind:     domain.EventLoginSucceeded,
		Subject:  user.ID,
		Email:    email,
		TenantID: user.TenantID,
		Role:     user.Role,
	})
	return user.Clone(), nil
}

// Register creates a tenant. It never establishes a session; the caller logs
// in afterwards.
func (s *SessionService) Register(ctx context.Context, companyName, email, password string) error {
	if err := s.api.Register(ctx, companyName, email, password); err != nil {
		f := classifyRegister(err)
		s.fail(domain.EventRegisterFailed, email, f)
		return f
	}

	s.log.Info().Str("email", email).Msg("tenant registered")
	s.record(domain.SessionEvent{Kind: domain.EventRegistered, Email: email})
	s.notify(ports.NotifyInfo, "Account created. Please sign in.")
	return nil
}

// Logout tears down the session and navigates to the public entry point.
func (s *SessionService) Logout(ctx context.Context) {
	prev := s.store.Snapshot()
	if err := s.store.Logout(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to remove stored credential")
	}

	ev := domain.SessionEvent{Kind: domain.EventLogout}
	if prev.User != nil {
		ev.Subject, ev.Email, ev.TenantID, ev.Role = prev.User.ID, prev.User.Email, prev.User.TenantID, prev.User.Role
	}
	s.record(ev)
	s.notify(ports.NotifyInfo, "You have been signed out.")
	if s.nav != nil {
		s.nav.Navigate(domain.PublicEntryPath)
	}
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *SessionService) CurrentUser() *domain.User {
	return s.store.Snapshot().User
}

// HasRole reports whether the current user's role is one of roles.
func (s *SessionService) HasRole(roles ...domain.Role) bool {
	return s.CurrentUser().HasRole(roles...)
}

func (s *SessionService) IsAdmin() bool      { return s.HasRole(domain.AdminRoles...) }
func (s *SessionService) IsAccountant() bool { return s.HasRole(domain.AccountantRoles...) }
func (s *SessionService) IsRoaster() bool    { return s.HasRole(domain.RoasterRoles...) }

// begin registers a new login attempt, cancelling the previous one.
func (s *SessionService) begin(ctx context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		s.inflight()
	}
	s.seq++
	s.inflight = cancel
	return ctx, s.seq
}

func (s *SessionService) end(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == seq && s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
}

func (s *SessionService) superseded(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq != seq
}

func (s *SessionService) supersededFailure(email string) *domain.Failure {
	s.log.Debug().Str("email", email).Msg("login superseded")
	return &domain.Failure{Kind: domain.ErrSuperseded, Status: http.StatusConflict, Message: domain.MsgSuperseded}
}

func (s *SessionService) fail(kind domain.SessionEventKind, email string, f *domain.Failure) {
	s.log.Warn().Err(f.Cause).Str("email", email).Str("kind", f.Kind.Error()).Msg(string(kind))
	s.record(domain.SessionEvent{Kind: kind, Email: email, Reason: f.Kind.Error()})
	s.notify(ports.NotifyError, f.Message)
}

func (s *SessionService) record(ev domain.SessionEvent) {
	if s.audit == nil {
		return
	}
	ev.OccurredAt = s.now().UTC()
	s.audit.Record(ev)
}

func (s *SessionService) notify(level ports.NotificationLevel, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ports.Notification{Level: level, Message: msg})
}

// classifyLogin turns a backend error into a user-presentable Failure.
func classifyLogin(err error) *domain.Failure {
	if f := classifyCommon(err); f != nil {
		return f
	}
	var apiErr *domain.APIError
	errors.As(err, &apiErr)

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return &domain.Failure{Kind: domain.ErrUnauthorized, Status: http.StatusUnauthorized, Message: domain.MsgInvalidLogin, Cause: err}
	case errors.Is(err, domain.ErrBadRequest):
		return &domain.Failure{Kind: domain.ErrBadRequest, Status: http.StatusBadRequest, Message: serverMessage(apiErr, domain.MsgBadRequest), Cause: err}
	default:
		return serverFailure(apiErr, err)
	}
}

func classifyRegister(err error) *domain.Failure {
	if f := classifyCommon(err); f != nil {
		return f
	}
	var apiErr *domain.APIError
	errors.As(err, &apiErr)

	switch {
	case errors.Is(err, domain.ErrConflict):
		return &domain.Failure{Kind: domain.ErrConflict, Status: http.StatusConflict, Message: domain.MsgEmailRegistered, Cause: err}
	case errors.Is(err, domain.ErrBadRequest):
		return &domain.Failure{Kind: domain.ErrBadRequest, Status: http.StatusBadRequest, Message: serverMessage(apiErr, domain.MsgBadRequest), Cause: err}
	default:
		return serverFailure(apiErr, err)
	}
}

func classifyCommon(err error) *domain.Failure {
	switch {
	case errors.Is(err, context.Canceled):
		return &domain.Failure{Kind: context.Canceled, Status: http.StatusRequestTimeout, Message: domain.MsgGeneric, Cause: err}
	case errors.Is(err, domain.ErrNetworkUnreachable), errors.Is(err, context.DeadlineExceeded):
		return &domain.Failure{Kind: domain.ErrNetworkUnreachable, Status: http.StatusBadGateway, Message: domain.MsgNetworkUnreachable, Cause: err}
	}
	return nil
}

func serverFailure(apiErr *domain.APIError, err error) *domain.Failure {
	status := http.StatusBadGateway
	if apiErr != nil && apiErr.Status >= 400 {
		status = apiErr.Status
	}
	return &domain.Failure{Kind: domain.ErrServerMessage, Status: status, Message: serverMessage(apiErr, domain.MsgGeneric), Cause: err}
}

func serverMessage(apiErr *domain.APIError, fallback string) string {
	if apiErr != nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
