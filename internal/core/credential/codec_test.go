package credential

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/brewline/console/internal/core/domain"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestDecode_ValidToken(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	tok := signedToken(t, jwt.MapClaims{
		"sub":       "42",
		"role":      "OWNER",
		"tenant_id": "7",
		"currency":  "EUR",
		"email":     "a@b.com",
		"exp":       exp.Unix(),
		"extra":     "ignored",
	})

	claims, err := d.Decode(tok)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if claims.Subject != "42" || claims.Role != "OWNER" || claims.TenantID != "7" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
	if claims.Currency != "EUR" || claims.Email != "a@b.com" {
		t.Fatalf("unexpected optional claims: %+v", claims)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.Equal(exp) {
		t.Fatalf("unexpected exp: %v", claims.ExpiresAt)
	}
}

func TestDecode_MultiByteText(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	tok := signedToken(t, jwt.MapClaims{
		"sub":       "ユーザー-1",
		"role":      "ROASTER",
		"tenant_id": "café-東京",
		"email":     "josé@tostadería.example",
	})

	claims, err := d.Decode(tok)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if claims.Subject != "ユーザー-1" {
		t.Fatalf("subject corrupted: %q", claims.Subject)
	}
	if claims.TenantID != "café-東京" {
		t.Fatalf("tenant corrupted: %q", claims.TenantID)
	}
	if claims.Email != "josé@tostadería.example" {
		t.Fatalf("email corrupted: %q", claims.Email)
	}
}

func TestDecode_PaddedPayload(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	payload := base64.URLEncoding.EncodeToString([]byte(`{"sub":"1","role":"ACCOUNTANT","tenant_id":"9"}`))
	claims, err := d.Decode("eyJhbGciOiJIUzI1NiJ9." + payload + ".sig")
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if claims.Role != "ACCOUNTANT" || claims.TenantID != "9" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestDecode_IgnoresSignature(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	tok := signedToken(t, jwt.MapClaims{"sub": "5", "role": "OWNER", "tenant_id": "1"})
	tampered := tok[:len(tok)-4] + "AAAA"

	claims, err := d.Decode(tampered)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if claims.Subject != "5" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
}

func TestDecode_IgnoresUnreadClaimShapes(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	raw := base64.RawURLEncoding.EncodeToString

	exp := time.Unix(1893456000, 0).UTC()
	tests := []struct {
		name, payload, subject, tenantID, role string
		exp                                    time.Time
	}{
		{"numeric audience", `{"sub":"42","role":"OWNER","tenant_id":"7","aud":5}`, "42", "7", "OWNER", time.Time{}},
		{"string issued at", `{"sub":"42","role":"OWNER","tenant_id":"7","iat":"2024-01-01","nbf":{"x":1},"jti":9}`, "42", "7", "OWNER", time.Time{}},
		{"numeric identifiers", `{"sub":42,"role":"ROASTER","tenant_id":7}`, "42", "7", "ROASTER", time.Time{}},
		{"numeric string exp", `{"sub":"1","role":"OWNER","tenant_id":"1","exp":"1893456000"}`, "1", "1", "OWNER", exp},
		{"unreadable exp", `{"sub":"1","role":"OWNER","tenant_id":"1","exp":"tomorrow"}`, "1", "1", "OWNER", time.Time{}},
		{"non string role", `{"sub":"1","role":true,"tenant_id":null}`, "1", "", "", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := d.Decode("h." + raw([]byte(tt.payload)) + ".s")
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			if claims.Subject != tt.subject || claims.TenantID != tt.tenantID || claims.Role != tt.role {
				t.Fatalf("unexpected claims: %+v", claims)
			}
			switch {
			case tt.exp.IsZero() && claims.ExpiresAt != nil:
				t.Fatalf("expected no exp, got %v", claims.ExpiresAt)
			case !tt.exp.IsZero() && (claims.ExpiresAt == nil || !claims.ExpiresAt.Time.Equal(tt.exp)):
				t.Fatalf("expected exp %v, got %v", tt.exp, claims.ExpiresAt)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	raw := base64.RawURLEncoding.EncodeToString

	cases := map[string]string{
		"empty":           "",
		"one segment":     "abc",
		"two segments":    "abc.def",
		"four segments":   "a.b.c.d",
		"bad alphabet":    "h." + "!!!*" + ".s",
		"not json":        "h." + raw([]byte("not json")) + ".s",
		"json array":      "h." + raw([]byte(`["OWNER"]`)) + ".s",
		"json null":       "h." + raw([]byte(`null`)) + ".s",
		"json string":     "h." + raw([]byte(`"OWNER"`)) + ".s",
		"invalid utf8":    "h." + raw([]byte{'{', '"', 0xff, 0xfe, '"', '}'}) + ".s",
		"truncated json":  "h." + raw([]byte(`{"sub":"1"`)) + ".s",
		"empty payload":   "h..s",
		"whitespace only": "  .  .  ",
	}

	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			claims, err := d.Decode(tok)
			if err == nil {
				t.Fatalf("expected error, got claims %+v", claims)
			}
			if !errors.Is(err, domain.ErrDecodeFailure) {
				t.Fatalf("expected ErrDecodeFailure, got %v", err)
			}
			if claims != nil {
				t.Fatalf("expected nil claims on failure")
			}
		})
	}
}

func TestClaims_UserProjection(t *testing.T) {
	d := NewDecoder(zerolog.Nop())
	tok := signedToken(t, jwt.MapClaims{"sub": "42", "role": "OWNER", "tenant_id": "7"})

	claims, err := d.Decode(tok)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	u := claims.User("a@b.com")
	if u.ID != "42" || u.Email != "a@b.com" || u.Role != domain.RoleOwner || u.TenantID != "7" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.Currency != domain.DefaultCurrency {
		t.Fatalf("expected currency %s, got %s", domain.DefaultCurrency, u.Currency)
	}
	if !u.CreatedAt.IsZero() || !u.UpdatedAt.IsZero() {
		t.Fatalf("expected empty timestamps")
	}
}

func TestClaims_Identity(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	d := NewDecoder(zerolog.Nop())

	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   error
	}{
		{"usable", jwt.MapClaims{"sub": "1", "role": "OWNER", "exp": now.Add(time.Minute).Unix()}, nil},
		{"no exp", jwt.MapClaims{"sub": "1", "role": "ACCOUNTANT"}, nil},
		{"missing subject", jwt.MapClaims{"role": "OWNER"}, domain.ErrMissingSubject},
		{"unknown role", jwt.MapClaims{"sub": "1", "role": "GUEST"}, domain.ErrUnknownRole},
		{"lowercase role", jwt.MapClaims{"sub": "1", "role": "owner"}, domain.ErrUnknownRole},
		{"expired at now", jwt.MapClaims{"sub": "1", "role": "OWNER", "exp": now.Unix()}, domain.ErrCredentialExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := d.Decode(signedToken(t, tt.claims))
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			user, err := claims.Identity("a@b.com", now)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if (tt.want == nil) != (user != nil) {
				t.Fatalf("unexpected user %+v for error %v", user, err)
			}
		})
	}
}
