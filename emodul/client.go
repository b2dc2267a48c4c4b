package emodul

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the production eModul cloud endpoint.
	DefaultBaseURL = "https://emodul.eu/api/v1/"

	requestTimeout = 15 * time.Second
	maxAttempts    = 3
	retryBackoff   = 500 * time.Millisecond
)

// Config defines runtime configuration for the eModul client.
type Config struct {
	Username string
	Password string
	BaseURL  string

	// TokenTTL forces a re-login after the given age even without a 401.
	// Zero trusts the token until the server rejects it.
	TokenTTL time.Duration

	// HTTPClient overrides the default client (used in tests).
	HTTPClient *http.Client
}

// Client talks to the eModul cloud API. It owns the session: callers never
// handle tokens or re-login themselves.
type Client struct {
	baseURL    string
	username   string
	password   string
	tokenTTL   time.Duration
	httpClient *http.Client

	mu      sync.Mutex
	session *Session

	reauth singleflight.Group
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Username) == "" {
		return nil, fmt.Errorf("emodul username is required")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("emodul password is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		tokenTTL:   cfg.TokenTTL,
		httpClient: httpClient,
	}, nil
}

// NewClientWithSession resumes a previously issued session (token + user id)
// without logging in again. The client still re-logs in when the token is
// rejected, so credentials are required as usual.
func NewClientWithSession(cfg Config, session Session) (*Client, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if session.Token == "" || session.UserID == "" {
		return nil, fmt.Errorf("emodul session requires token and user id")
	}
	if session.IssuedAt.IsZero() {
		session.IssuedAt = time.Now()
	}
	client.session = &session
	return client, nil
}

// call performs one authenticated request with a single re-auth-and-retry
// cycle on 401. The path is a function of the session because most routes
// embed the user id.
func (c *Client) call(ctx context.Context, method string, path func(Session) string, body []byte, out any) error {
	session, err := c.EnsureValid(ctx)
	if err != nil {
		return err
	}

	err = c.doJSON(ctx, method, path(session), body, out, session.Token)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	refreshed, loginErr := c.relogin(ctx, session.Token)
	if loginErr != nil {
		return loginErr
	}
	return c.doJSON(ctx, method, path(refreshed), body, out, refreshed.Token)
}

// doJSON issues a request with bounded retries on transient failures.
// Timeouts and 5xx are retried with backoff; 4xx are not.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any, token string) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &APIError{Kind: ErrKindTransport, Err: ctx.Err()}
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}

		err := c.doOnce(ctx, method, path, body, out, token)
		if err == nil {
			return nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.Kind == ErrKindTransport && ctx.Err() == nil {
				continue
			}
			if apiErr.Kind == ErrKindServer && apiErr.Status >= 500 {
				continue
			}
		}
		return err
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any, token string) error {
	endpoint := c.baseURL + strings.TrimPrefix(path, "/")

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &APIError{Kind: ErrKindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: ErrKindTransport, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: ErrKindTransport, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Kind: ErrKindServer, Status: resp.StatusCode, Body: string(payload)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &APIError{Kind: ErrKindDecode, Err: err}
	}
	return nil
}
