// Package credential decodes the identity payload of a compact signed token.
//
// Decoding never verifies the signature segment: trust in the token belongs
// to the backend that issued it and the transport that delivered it.
package credential

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/brewline/console/internal/core/domain"
)

const segments = 3

// Decoder extracts Claims from a credential.
type Decoder struct {
	parser *jwt.Parser
	log    zerolog.Logger
}

// NewDecoder returns a Decoder that logs failures to log at debug level.
func NewDecoder(log zerolog.Logger) *Decoder {
	return &Decoder{
		parser: jwt.NewParser(jwt.WithPaddingAllowed()),
		log:    log,
	}
}

// Decode returns the claims of credential. Every failure wraps
// domain.ErrDecodeFailure.
func (d *Decoder) Decode(credential string) (*domain.Claims, error) {
	claims, err := d.decode(credential)
	if err != nil {
		d.log.Debug().Err(err).Msg("credential decode failed")
		return nil, err
	}
	return claims, nil
}

func (d *Decoder) decode(credential string) (*domain.Claims, error) {
	parts := strings.Split(credential, ".")
	if len(parts) != segments {
		return nil, fmt.Errorf("%w: expected %d segments, got %d", domain.ErrDecodeFailure, segments, len(parts))
	}

	payload, err := d.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload encoding: %v", domain.ErrDecodeFailure, err)
	}
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", domain.ErrDecodeFailure)
	}

	if !bytes.HasPrefix(bytes.TrimSpace(payload), []byte("{")) {
		return nil, fmt.Errorf("%w: payload is not a JSON object", domain.ErrDecodeFailure)
	}
	var p identityPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: payload json: %v", domain.ErrDecodeFailure, err)
	}
	return p.claims(), nil
}

// identityPayload keeps only the claims the console reads. Registered claims
// such as aud, iat or nbf are never type-checked, and identifiers issued as
// numbers are kept as their decimal text.
type identityPayload struct {
	Subject  claimString `json:"sub"`
	Role     claimString `json:"role"`
	TenantID claimString `json:"tenant_id"`
	Currency claimString `json:"currency"`
	Email    claimString `json:"email"`
	Expiry   claimTime   `json:"exp"`
}

func (p identityPayload) claims() *domain.Claims {
	c := &domain.Claims{
		Role:     string(p.Role),
		TenantID: string(p.TenantID),
		Currency: string(p.Currency),
		Email:    string(p.Email),
	}
	c.Subject = string(p.Subject)
	if !p.Expiry.IsZero() {
		c.ExpiresAt = jwt.NewNumericDate(p.Expiry.Time)
	}
	return c
}

// claimString accepts a JSON string or number. Any other shape reads as empty.
type claimString string

func (s *claimString) UnmarshalJSON(b []byte) error {
	switch v := scalar(b).(type) {
	case string:
		*s = claimString(v)
	case json.Number:
		*s = claimString(v.String())
	default:
		*s = ""
	}
	return nil
}

// claimTime accepts seconds since the epoch as a JSON number or numeric
// string. Any other shape reads as no time at all.
type claimTime struct{ time.Time }

func (t *claimTime) UnmarshalJSON(b []byte) error {
	var text string
	switch v := scalar(b).(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	}
	secs, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		t.Time = time.Time{}
		return nil
	}
	whole, frac := math.Modf(secs)
	t.Time = time.Unix(int64(whole), int64(frac*1e9)).UTC()
	return nil
}

// scalar decodes one JSON value, keeping numbers as json.Number.
func scalar(b []byte) any {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
