package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity payload carried by a console credential.
// Subject and ExpiresAt come from the registered claims; anything else in the
// payload is ignored when decoding.
type Claims struct {
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
	Currency string `json:"currency,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Expired reports whether the claims carry an exp that is not after now.
// Claims without exp never expire on the client side.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}

// Identity projects the claims into a User only when they describe a usable
// identity at now: a subject, a role from the closed set and no past exp.
// The returned error is ErrMissingSubject, ErrUnknownRole or
// ErrCredentialExpired.
func (c *Claims) Identity(email string, now time.Time) (*User, error) {
	switch {
	case c.Subject == "":
		return nil, ErrMissingSubject
	case !Role(c.Role).Valid():
		return nil, ErrUnknownRole
	case c.Expired(now):
		return nil, ErrCredentialExpired
	}
	return c.User(email), nil
}

// User projects the claims into a User. email overrides the email claim when
// non-empty, since the login form knows the address even when the token omits it.
func (c *Claims) User(email string) *User {
	if email == "" {
		email = c.Email
	}
	currency := c.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return &User{
		ID:       c.Subject,
		Email:    email,
		Role:     Role(c.Role),
		TenantID: c.TenantID,
		Currency: currency,
	}
}
