package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/brewline/console/internal/pkg/config"
)

type harness struct {
	mr  *miniredis.Miniredis
	cfg *config.Config
}

func newHarness(t *testing.T, role string) *harness {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "acc-1", "role": role, "tenant_id": "tenant-1", "email": "owner@acme.test",
	}).SignedString([]byte("s"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch {
		case r.URL.Path == "/api/v1/login" && body["password"] == "pass1234":
			_, _ = w.Write([]byte(`{"token":"` + token + `"}`))
		case r.URL.Path == "/api/v1/login":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid email or password"}`))
		case r.URL.Path == "/api/v1/register":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"email already registered"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	return &harness{
		mr: mr,
		cfg: &config.Config{
			Backend: config.BackendConfig{BaseURL: srv.URL, Timeout: time.Second},
			Redis:   config.RedisConfig{Addr: mr.Addr()},
		},
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), h.cfg, zerolog.Nop(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestSessionctl_LoginPersistsAcrossInvocations(t *testing.T) {
	h := newHarness(t, "ACCOUNTANT")

	out, _, err := h.run(t, "login", "--email", "owner@acme.test", "--password", "pass1234")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "signed in as owner@acme.test (ACCOUNTANT)") {
		t.Fatalf("unexpected output %q", out)
	}
	if ttl := h.mr.TTL("console:credential:default"); ttl != 7*24*time.Hour {
		t.Fatalf("expected 7 day TTL, got %v", ttl)
	}

	out, _, err = h.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, `"role": "ACCOUNTANT"`) || !strings.Contains(out, `"currency": "USD"`) {
		t.Fatalf("unexpected whoami output %q", out)
	}

	out, _, err = h.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"authenticated: true", "accounting: true", "roasting:   false", "admin:      false"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status missing %q in %q", want, out)
		}
	}
}

func TestSessionctl_ProfilesAreIsolated(t *testing.T) {
	h := newHarness(t, "OWNER")

	if _, _, err := h.run(t, "--profile", "work", "login", "--email", "owner@acme.test", "--password", "pass1234"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := h.run(t, "whoami"); err == nil {
		t.Fatalf("default profile must stay signed out")
	}
	if _, _, err := h.run(t, "--profile", "work", "whoami"); err != nil {
		t.Fatalf("work profile should be signed in: %v", err)
	}
}

func TestSessionctl_Logout(t *testing.T) {
	h := newHarness(t, "OWNER")

	if _, _, err := h.run(t, "login", "--email", "owner@acme.test", "--password", "pass1234"); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, stderr, err := h.run(t, "logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !strings.Contains(stderr, "You have been signed out.") {
		t.Fatalf("expected sign-out notice, got %q", stderr)
	}
	if h.mr.Exists("console:credential:default") {
		t.Fatalf("credential must be removed from Redis")
	}
	if _, _, err := h.run(t, "whoami"); err == nil {
		t.Fatalf("expected whoami to fail after logout")
	}
}

func TestSessionctl_Failures(t *testing.T) {
	h := newHarness(t, "OWNER")

	_, stderr, err := h.run(t, "login", "--email", "owner@acme.test", "--password", "wrong")
	if err == nil || err.Error() != "Invalid email or password" {
		t.Fatalf("expected classified login failure, got %v", err)
	}
	if !strings.Contains(stderr, "error: Invalid email or password") {
		t.Fatalf("expected error notification, got %q", stderr)
	}

	_, _, err = h.run(t, "register", "--company", "Acme", "--email", "owner@acme.test", "--password", "pass1234")
	if err == nil || err.Error() != "Email already registered" {
		t.Fatalf("expected conflict failure, got %v", err)
	}

	if _, _, err := h.run(t, "login", "--email", "owner@acme.test"); err == nil {
		t.Fatalf("expected missing password to be rejected")
	}
	if _, _, err := h.run(t, "frobnicate"); err != errUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
	if _, _, err := h.run(t); err != errUsage {
		t.Fatalf("expected usage error without a command, got %v", err)
	}
}

func TestSessionctl_ExpiredCredentialIsDiscarded(t *testing.T) {
	h := newHarness(t, "OWNER")
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "acc-1", "role": "OWNER", "exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("s"))
	if err := h.mr.Set("console:credential:default", expired); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, _, err := h.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "authenticated: false") {
		t.Fatalf("expected signed out, got %q", out)
	}
	if h.mr.Exists("console:credential:default") {
		t.Fatalf("expired credential must be removed")
	}
}
