// Package hubclient is the HTTP client of the fleet hub API used by the
// driver agent and fleetctl.
package hubclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

// StatusError is returned when the hub answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hub returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("hub returned %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

type Client struct {
	base *url.URL
	http *http.Client

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func New(opts *options.HubClientOptions) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.Server, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid hub server %q: %w", opts.Server, err)
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Token returns the bearer token of the current session.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ExpiresAt returns when the current session expires. It is zero when the
// expiry is unknown.
func (c *Client) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

// SetToken replaces the session token. The expiry becomes unknown.
func (c *Client) SetToken(token string) {
	c.setSession(token, time.Time{})
}

func (c *Client) setSession(token string, expiresAt time.Time) {
	c.mu.Lock()
	c.token, c.expiresAt = token, expiresAt
	c.mu.Unlock()
}

// SignIn exchanges credentials for a session token and keeps it for later calls.
func (c *Client) SignIn(ctx context.Context, email, password string) (*v1.SignInResponse, error) {
	var out v1.SignInResponse
	req := v1.SignInRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/sign-in", req, &out); err != nil {
		return nil, err
	}
	c.setSession(out.Token, out.ExpiresAt)
	return &out, nil
}

// SignOut revokes the session. The local token is cleared even on failure.
func (c *Client) SignOut(ctx context.Context) error {
	defer c.SetToken("")
	return c.do(ctx, http.MethodPost, "/api/v1/auth/sign-out", nil, nil)
}

func (c *Client) Session(ctx context.Context) (*v1.Profile, error) {
	var out v1.Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportPosition upserts the caller's position.
func (c *Client) ReportPosition(ctx context.Context, p *v1.Position) (*v1.Position, error) {
	var out v1.Position
	if err := c.do(ctx, http.MethodPut, "/api/v1/positions/me", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DriverPosition(ctx context.Context, driverID string) (*v1.Position, error) {
	var out v1.Position
	if err := c.do(ctx, http.MethodGet, "/api/v1/drivers/"+url.PathEscape(driverID)+"/position", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Roster(ctx context.Context) (*v1.Roster, error) {
	var out v1.Roster
	if err := c.do(ctx, http.MethodGet, "/api/v1/roster", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExportRoster(ctx context.Context) (*v1.Export, error) {
	var out v1.Export
	if err := c.do(ctx, http.MethodPost, "/api/v1/roster/exports", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateDriver(ctx context.Context, req *v1.CreateDriverRequest) (*v1.CreateDriverResponse, error) {
	var out v1.CreateDriverResponse
	if err := c.do(ctx, http.MethodPost, "/api/admin/drivers", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangesURL returns the websocket URL of the change feed.
func (c *Client) ChangesURL() string {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/changes"
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		se := &StatusError{Code: resp.StatusCode}
		var er v1.ErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er) == nil {
			se.Message = er.Error
		}
		return se
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
