package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brewline/console/internal/core/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10

	loginPath    = "/api/v1/login"
	registerPath = "/api/v1/register"
	healthPath   = "/health"
)

// Config captures the settings for reaching the backend identity API.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the JSON-over-HTTP implementation of ports.IdentityAPI.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for cfg. A default timeout is applied when none
// is provided.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type registerRequest struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Login posts the credentials and returns the issued token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out loginResponse
	if err := c.post(ctx, loginPath, loginRequest{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &domain.APIError{Status: http.StatusOK, Kind: domain.ErrServerMessage, Message: ""}
	}
	return out.Token, nil
}

// Register posts a tenant-creation request. The success body is ignored.
func (c *Client) Register(ctx context.Context, companyName, email, password string) error {
	return c.post(ctx, registerPath, registerRequest{CompanyName: companyName, Email: email, Password: password}, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", domain.ErrNetworkUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.APIError{Status: resp.StatusCode, Kind: domain.ErrServerMessage, Message: ""}
	}
	return nil
}

// decodeError builds an APIError, keeping the server message when the body
// is the {"error": "..."} envelope.
func decodeError(resp *http.Response) error {
	apiErr := &domain.APIError{Status: resp.StatusCode, Kind: domain.KindForStatus(resp.StatusCode)}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = strings.TrimSpace(body.Error)
	}
	return apiErr
}

// Ping reports whether the backend answers on its health route.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetworkUnreachable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend health: status %d", resp.StatusCode)
	}
	return nil
}
