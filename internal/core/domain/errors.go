package domain

import (
	"errors"
	"net/http"
)

var (
	ErrDecodeFailure      = errors.New("credential decode failure")
	ErrNoCredential       = errors.New("no credential stored")
	ErrNetworkUnreachable = errors.New("backend unreachable")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("conflict")
	ErrServerMessage      = errors.New("server error")
	ErrSuperseded         = errors.New("superseded by a newer request")
)

// Reasons a decoded credential yields no identity. The texts double as audit
// reasons.
var (
	ErrMissingSubject    = errors.New("missing subject")
	ErrUnknownRole       = errors.New("unknown role")
	ErrCredentialExpired = errors.New("expired")
)

// Local identity backend errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("access forbidden")
)

// User-facing messages for classified failures.
const (
	MsgNetworkUnreachable = "Unable to reach the server. Check your connection and try again."
	MsgInvalidLogin       = "Invalid email or password"
	MsgBadRequest         = "Please check the form and try again."
	MsgEmailRegistered    = "Email already registered"
	MsgGeneric            = "Something went wrong. Please try again."
	MsgSuperseded         = "A newer sign-in attempt replaced this one."
)

// APIError is a non-2xx answer from the backend API. Kind is one of the
// sentinels above, chosen from the status code.
type APIError struct {
	Status  int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Kind.Error() + ": " + e.Message
	}
	return e.Kind.Error()
}

func (e *APIError) Unwrap() error { return e.Kind }

// KindForStatus maps a backend status code onto the failure taxonomy.
func KindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrServerMessage
	}
}

// Failure is a classified error whose Message is safe to show to the user.
type Failure struct {
	Kind    error
	Status  int
	Message string
	Cause   error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Cause}
}
