package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/brewline/console/internal/core/credential"
	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
	"github.com/brewline/console/internal/core/session"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubIdentityAPI struct {
	loginFn    func(ctx context.Context, email, password string) (string, error)
	registerFn func(ctx context.Context, companyName, email, password string) error
}

func (s *stubIdentityAPI) Login(ctx context.Context, email, password string) (string, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubIdentityAPI) Register(ctx context.Context, companyName, email, password string) error {
	return s.registerFn(ctx, companyName, email, password)
}

type memoryCreds struct {
	value string
}

func (m *memoryCreds) Load(_ context.Context) (string, error) {
	if m.value == "" {
		return "", domain.ErrNoCredential
	}
	return m.value, nil
}

func (m *memoryCreds) Save(_ context.Context, credential string) error {
	m.value = credential
	return nil
}

func (m *memoryCreds) Clear(_ context.Context) error {
	m.value = ""
	return nil
}

type recordingNav struct{ paths []string }

func (n *recordingNav) Navigate(path string) { n.paths = append(n.paths, path) }

type recordingNotifier struct{ notes []ports.Notification }

func (n *recordingNotifier) Notify(note ports.Notification) { n.notes = append(n.notes, note) }

type recordingAudit struct{ events []domain.SessionEvent }

func (a *recordingAudit) Record(ev domain.SessionEvent) { a.events = append(a.events, ev) }

type fixture struct {
	svc      *SessionService
	store    *session.Store
	creds    *memoryCreds
	nav      *recordingNav
	notifier *recordingNotifier
	audit    *recordingAudit
}

func newFixture(api ports.IdentityAPI) *fixture {
	creds := &memoryCreds{}
	decoder := credential.NewDecoder(zerolog.Nop())
	store := session.NewStore(creds, decoder, zerolog.Nop())
	store.Initialize(context.Background())

	f := &fixture{store: store, creds: creds, nav: &recordingNav{}, notifier: &recordingNotifier{}, audit: &recordingAudit{}}
	f.svc = NewSessionService(SessionDeps{
		API:       api,
		Store:     store,
		Decoder:   decoder,
		Navigator: f.nav,
		Notifier:  f.notifier,
		Audit:     f.audit,
		Log:       zerolog.Nop(),
	})
	return f
}

func issue(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func assertSignedOut(t *testing.T, f *fixture) {
	t.Helper()
	got := f.store.Snapshot()
	if got.IsAuthenticated || got.User != nil || got.Credential != "" {
		t.Fatalf("expected unchanged signed-out session, got %+v", got)
	}
	if f.creds.value != "" {
		t.Fatalf("expected nothing persisted, got %q", f.creds.value)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestSessionService_Login_Success(t *testing.T) {
	tok := issue(t, jwt.MapClaims{"sub": "42", "role": "OWNER", "tenant_id": "7"})
	f := newFixture(&stubIdentityAPI{
		loginFn: func(_ context.Context, email, password string) (string, error) {
			if email != "a@b.com" || password != "pw" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return tok, nil
		},
	})

	user, err := f.svc.Login(context.Background(), "a@b.com", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	want := domain.User{ID: "42", Email: "a@b.com", Role: domain.RoleOwner, TenantID: "7", Currency: "USD"}
	if *user != want {
		t.Fatalf("expected %+v, got %+v", want, *user)
	}
	got := f.store.Snapshot()
	if !got.IsAuthenticated || got.User == nil || *got.User != want {
		t.Fatalf("unexpected stored session: %+v", got)
	}
	if f.creds.value != tok {
		t.Fatalf("credential not persisted")
	}
	if len(f.audit.events) != 1 || f.audit.events[0].Kind != domain.EventLoginSucceeded {
		t.Fatalf("expected login_succeeded event, got %+v", f.audit.events)
	}
}

func TestSessionService_Login_SubmittedEmailWins(t *testing.T) {
	tok := issue(t, jwt.MapClaims{"sub": "1", "role": "ROASTER", "tenant_id": "3", "email": "old@b.com", "currency": "COP"})
	f := newFixture(&stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, error) { return tok, nil },
	})

	user, err := f.svc.Login(context.Background(), "new@b.com", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.Email != "new@b.com" || user.Currency != "COP" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestSessionService_Login_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    error
		status  int
		message string
	}{
		{
			name:    "unauthorized",
			err:     &domain.APIError{Status: http.StatusUnauthorized, Kind: domain.ErrUnauthorized, Message: "nope"},
			kind:    domain.ErrUnauthorized,
			status:  http.StatusUnauthorized,
			message: "Invalid email or password",
		},
		{
			name:    "bad request with server message",
			err:     &domain.APIError{Status: http.StatusBadRequest, Kind: domain.ErrBadRequest, Message: "email is required"},
			kind:    domain.ErrBadRequest,
			status:  http.StatusBadRequest,
			message: "email is required",
		},
		{
			name:    "bad request without message",
			err:     &domain.APIError{Status: http.StatusBadRequest, Kind: domain.ErrBadRequest},
			kind:    domain.ErrBadRequest,
			status:  http.StatusBadRequest,
			message: domain.MsgBadRequest,
		},
		{
			name:    "server message",
			err:     &domain.APIError{Status: http.StatusServiceUnavailable, Kind: domain.ErrServerMessage, Message: "maintenance window"},
			kind:    domain.ErrServerMessage,
			status:  http.StatusServiceUnavailable,
			message: "maintenance window",
		},
		{
			name:    "server error without body",
			err:     &domain.APIError{Status: http.StatusInternalServerError, Kind: domain.ErrServerMessage},
			kind:    domain.ErrServerMessage,
			status:  http.StatusInternalServerError,
			message: domain.MsgGeneric,
		},
		{
			name:    "network unreachable",
			err:     fmt.Errorf("%w: dial tcp: connection refused", domain.ErrNetworkUnreachable),
			kind:    domain.ErrNetworkUnreachable,
			status:  http.StatusBadGateway,
			message: domain.MsgNetworkUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(&stubIdentityAPI{
				loginFn: func(context.Context, string, string) (string, error) { return "", tt.err },
			})

			user, err := f.svc.Login(context.Background(), "a@b.com", "pw")
			if user != nil {
				t.Fatalf("expected no user, got %+v", user)
			}
			var failure *domain.Failure
			if !errors.As(err, &failure) {
				t.Fatalf("expected *domain.Failure, got %T %v", err, err)
			}
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected kind %v, got %v", tt.kind, failure.Kind)
			}
			if failure.Status != tt.status || failure.Message != tt.message {
				t.Fatalf("unexpected failure: status=%d message=%q", failure.Status, failure.Message)
			}
			assertSignedOut(t, f)
			if len(f.notifier.notes) != 1 || f.notifier.notes[0].Message != tt.message || f.notifier.notes[0].Level != ports.NotifyError {
				t.Fatalf("expected one error notification, got %+v", f.notifier.notes)
			}
		})
	}
}

func TestSessionService_Login_UndecodableToken(t *testing.T) {
	f := newFixture(&stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, error) { return "garbage", nil },
	})

	_, err := f.svc.Login(context.Background(), "a@b.com", "pw")
	if !errors.Is(err, domain.ErrDecodeFailure) {
		t.Fatalf("expected ErrDecodeFailure, got %v", err)
	}
	assertSignedOut(t, f)
}

func TestSessionService_Login_RejectsUnusableIdentity(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		claims jwt.MapClaims
		reason error
	}{
		{"unknown role", jwt.MapClaims{"sub": "42", "role": "GUEST", "tenant_id": "7"}, domain.ErrUnknownRole},
		{"missing role", jwt.MapClaims{"sub": "42", "tenant_id": "7"}, domain.ErrUnknownRole},
		{"missing subject", jwt.MapClaims{"role": "OWNER", "tenant_id": "7"}, domain.ErrMissingSubject},
		{"expired", jwt.MapClaims{"sub": "42", "role": "OWNER", "tenant_id": "7", "exp": now.Add(-time.Minute).Unix()}, domain.ErrCredentialExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := issue(t, tt.claims)
			f := newFixture(&stubIdentityAPI{
				loginFn: func(context.Context, string, string) (string, error) { return tok, nil },
			})
			f.svc.now = func() time.Time { return now }
			emissions := 0
			f.store.Subscribe(func(domain.Session) { emissions++ })

			user, err := f.svc.Login(context.Background(), "a@b.com", "pw")
			if user != nil {
				t.Fatalf("expected no user, got %+v", user)
			}
			var failure *domain.Failure
			if !errors.As(err, &failure) || failure.Kind != domain.ErrDecodeFailure {
				t.Fatalf("expected decode failure, got %v", err)
			}
			if !errors.Is(err, tt.reason) {
				t.Fatalf("expected cause %v, got %v", tt.reason, err)
			}
			assertSignedOut(t, f)
			if emissions != 0 {
				t.Fatalf("store must not emit, got %d emissions", emissions)
			}
			if len(f.audit.events) != 1 || f.audit.events[0].Kind != domain.EventLoginFailed {
				t.Fatalf("expected login_failed event, got %+v", f.audit.events)
			}
		})
	}
}

func TestSessionService_Login_LatestWins(t *testing.T) {
	first := issue(t, jwt.MapClaims{"sub": "1", "role": "OWNER", "tenant_id": "1"})
	second := issue(t, jwt.MapClaims{"sub": "2", "role": "ROASTER", "tenant_id": "1"})

	started := make(chan struct{})
	f := newFixture(&stubIdentityAPI{
		loginFn: func(ctx context.Context, email, _ string) (string, error) {
			if email == "first@b.com" {
				close(started)
				<-ctx.Done()
				return first, nil
			}
			return second, nil
		},
	})

	errs := make(chan error, 1)
	go func() {
		_, err := f.svc.Login(context.Background(), "first@b.com", "pw")
		errs <- err
	}()
	<-started

	user, err := f.svc.Login(context.Background(), "second@b.com", "pw")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if user.ID != "2" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if err := <-errs; !errors.Is(err, domain.ErrSuperseded) {
		t.Fatalf("expected first login superseded, got %v", err)
	}
	if got := f.store.Snapshot().User; got == nil || got.ID != "2" {
		t.Fatalf("superseded login must not overwrite the session, got %+v", got)
	}
	if f.creds.value != second {
		t.Fatalf("expected second credential persisted")
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestSessionService_Register_Success(t *testing.T) {
	f := newFixture(&stubIdentityAPI{
		registerFn: func(_ context.Context, companyName, email, password string) error {
			if companyName != "Acme Roasters" || email != "a@b.com" || password != "pw" {
				t.Fatalf("unexpected args: %s %s %s", companyName, email, password)
			}
			return nil
		},
	})

	if err := f.svc.Register(context.Background(), "Acme Roasters", "a@b.com", "pw"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	assertSignedOut(t, f)
	if len(f.audit.events) != 1 || f.audit.events[0].Kind != domain.EventRegistered {
		t.Fatalf("expected registered event, got %+v", f.audit.events)
	}
}

func TestSessionService_Register_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    error
		message string
	}{
		{"duplicate email", &domain.APIError{Status: http.StatusConflict, Kind: domain.ErrConflict, Message: "exists"}, domain.ErrConflict, "Email already registered"},
		{"bad request", &domain.APIError{Status: http.StatusBadRequest, Kind: domain.ErrBadRequest, Message: "password too short"}, domain.ErrBadRequest, "password too short"},
		{"generic", &domain.APIError{Status: http.StatusInternalServerError, Kind: domain.ErrServerMessage}, domain.ErrServerMessage, domain.MsgGeneric},
		{"network", fmt.Errorf("%w: timeout", domain.ErrNetworkUnreachable), domain.ErrNetworkUnreachable, domain.MsgNetworkUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(&stubIdentityAPI{
				registerFn: func(context.Context, string, string, string) error { return tt.err },
			})

			err := f.svc.Register(context.Background(), "Acme", "a@b.com", "pw")
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected kind %v, got %v", tt.kind, err)
			}
			if err.Error() != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, err.Error())
			}
			assertSignedOut(t, f)
		})
	}
}

// ---------------------------------------------------------------------------
// Logout and roles
// ---------------------------------------------------------------------------

func TestSessionService_Logout(t *testing.T) {
	tok := issue(t, jwt.MapClaims{"sub": "42", "role": "OWNER", "tenant_id": "7"})
	f := newFixture(&stubIdentityAPI{
		loginFn: func(context.Context, string, string) (string, error) { return tok, nil },
	})
	if _, err := f.svc.Login(context.Background(), "a@b.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	f.svc.Logout(context.Background())
	f.svc.Logout(context.Background())

	assertSignedOut(t, f)
	if len(f.nav.paths) != 2 || f.nav.paths[0] != "/" {
		t.Fatalf("expected navigation to /, got %v", f.nav.paths)
	}
	last := f.audit.events[1]
	if last.Kind != domain.EventLogout || last.Subject != "42" {
		t.Fatalf("expected logout event for subject 42, got %+v", last)
	}
}

func TestSessionService_HasRole(t *testing.T) {
	roles := []domain.Role{domain.RoleOwner, domain.RoleSuperAdmin, domain.RoleAccountant, domain.RoleRoaster}

	t.Run("no user", func(t *testing.T) {
		f := newFixture(&stubIdentityAPI{})
		if f.svc.HasRole(roles...) || f.svc.HasRole() {
			t.Fatalf("HasRole must be false without a user")
		}
		if f.svc.IsAdmin() || f.svc.IsAccountant() || f.svc.IsRoaster() {
			t.Fatalf("tier predicates must be false without a user")
		}
	})

	tiers := []struct {
		role                       domain.Role
		admin, accountant, roaster bool
	}{
		{domain.RoleOwner, true, true, true},
		{domain.RoleSuperAdmin, true, true, true},
		{domain.RoleAccountant, false, true, false},
		{domain.RoleRoaster, false, false, true},
	}

	for _, tt := range tiers {
		t.Run(string(tt.role), func(t *testing.T) {
			f := newFixture(&stubIdentityAPI{})
			f.store.SetUser(&domain.User{ID: "1", Role: tt.role})

			if !f.svc.HasRole(tt.role) {
				t.Fatalf("HasRole(%s) must be true", tt.role)
			}
			for _, other := range roles {
				if other != tt.role && f.svc.HasRole(other) {
					t.Fatalf("HasRole(%s) must be false for %s", other, tt.role)
				}
			}
			if f.svc.IsAdmin() != tt.admin || f.svc.IsAccountant() != tt.accountant || f.svc.IsRoaster() != tt.roaster {
				t.Fatalf("unexpected tiers for %s", tt.role)
			}
		})
	}
}
