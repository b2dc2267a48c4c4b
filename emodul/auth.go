package emodul

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Session carries the bearer token issued at login. It is owned by the
// client; callers only ever see copies.
type Session struct {
	UserID   string
	Token    string
	IssuedAt time.Time
}

// Login authenticates with the configured credentials and caches the
// resulting session. A failed login leaves any previous session untouched.
func (c *Client) Login(ctx context.Context) (Session, error) {
	payload, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return Session{}, &AuthError{Err: err}
	}

	var resp struct {
		Authenticated bool        `json:"authenticated"`
		UserID        json.Number `json:"user_id"`
		Token         string      `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "authentication", payload, &resp, ""); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Kind == ErrKindServer && apiErr.Status < 500 {
			return Session{}, &AuthError{CredentialsRejected: true, Err: err}
		}
		return Session{}, &AuthError{Err: err}
	}
	if !resp.Authenticated || resp.Token == "" {
		return Session{}, &AuthError{CredentialsRejected: true}
	}

	session := Session{
		UserID:   resp.UserID.String(),
		Token:    resp.Token,
		IssuedAt: time.Now(),
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()

	return session, nil
}

// EnsureValid returns the cached session, logging in first when there is
// none or the configured TTL has passed.
func (c *Client) EnsureValid(ctx context.Context) (Session, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session != nil && (c.tokenTTL <= 0 || time.Since(session.IssuedAt) < c.tokenTTL) {
		return *session, nil
	}

	stale := ""
	if session != nil {
		stale = session.Token
	}
	return c.relogin(ctx, stale)
}

// relogin funnels concurrent refreshes through a single login call, so a
// burst of 401s triggers exactly one re-authentication. If another caller
// already replaced the stale token, its session is reused as-is.
func (c *Client) relogin(ctx context.Context, stale string) (Session, error) {
	c.mu.Lock()
	if c.session != nil && c.session.Token != stale {
		session := *c.session
		c.mu.Unlock()
		return session, nil
	}
	c.mu.Unlock()

	value, err, _ := c.reauth.Do("login", func() (any, error) {
		return c.Login(ctx)
	})
	if err != nil {
		return Session{}, err
	}
	return value.(Session), nil
}
