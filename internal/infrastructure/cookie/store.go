// Package cookie persists the console credential in an HTTP cookie bound to a
// single request/response pair.
package cookie

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/brewline/console/internal/core/domain"
)

// DefaultName is the cookie holding the raw credential.
const DefaultName = "token"

// Options controls the attributes written with the cookie.
type Options struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Store is a request-scoped ports.CredentialStore.
type Store struct {
	c    echo.Context
	opts Options
	now  func() time.Time
}

// New binds a Store to c. Zero options fall back to DefaultName and
// domain.CredentialTTL.
func New(c echo.Context, opts Options) *Store {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.TTL <= 0 {
		opts.TTL = domain.CredentialTTL
	}
	return &Store{c: c, opts: opts, now: time.Now}
}

// Present reports whether r carries a non-empty credential cookie named name.
func Present(r *http.Request, name string) bool {
	ck, err := r.Cookie(name)
	return err == nil && ck.Value != ""
}

func (s *Store) Load(_ context.Context) (string, error) {
	ck, err := s.c.Cookie(s.opts.Name)
	if err != nil || ck.Value == "" {
		return "", domain.ErrNoCredential
	}
	return ck.Value, nil
}

func (s *Store) Save(_ context.Context, credential string) error {
	s.c.SetCookie(s.cookie(credential, s.now().Add(s.opts.TTL), int(s.opts.TTL.Seconds())))
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.c.SetCookie(s.cookie("", time.Unix(0, 0), -1))
	return nil
}

func (s *Store) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.opts.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
