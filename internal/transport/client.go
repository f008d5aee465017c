// Package transport wraps outbound HTTP requests to the Rumoro API: bearer
// credentials, response classification, a fixed per-request timeout, and the
// single-flight token refresh that replays requests which hit an expired
// access token. Classification happens once here and is never redone upstream.
package transport

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

	"go.uber.org/zap"

	"github.com/rumoro-app/rumoro-go/internal/errs"
	"github.com/rumoro-app/rumoro-go/internal/model"
)

// DefaultTimeout bounds each individual request attempt.
const DefaultTimeout = 15 * time.Second

// TokenStore is what the transport needs from the session store.
type TokenStore interface {
	AccessToken() string
	Session() model.Session
	SetTokens(access, refresh string) error
	Clear() error
}

// APIError is a non-transport 4xx response with the server's detail message.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

// Client issues JSON requests with the current bearer token. A 401 on a
// request that carried a token delegates to the refresh coordinator and
// retries exactly once with the rotated token; no other retry of any kind.
// A 401 on a credential-less request is an ordinary API error.
type Client struct {
	base    string
	http    *http.Client
	tokens  TokenStore
	timeout time.Duration
	refresh *Coordinator
	log     *zap.Logger
}

// New constructs a Client for baseURL. timeout <= 0 selects DefaultTimeout;
// log may be nil.
func New(baseURL string, tokens TokenStore, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
		timeout: timeout,
		log:     log,
	}
	c.refresh = newCoordinator(tokens, c.refreshExchange, log)
	return c
}

// Do issues one request. body (when non-nil) is marshaled as JSON per
// attempt; a 2xx response is decoded into out (when non-nil). A cancelled
// ctx aborts the request and surfaces ctx's error, so callers never apply
// mutations for a request they abandoned.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	token := c.tokens.AccessToken()
	err := c.send(ctx, method, path, body, out, token)
	if !errors.Is(err, errs.ErrAuthExpired) {
		return err
	}

	fresh, rerr := c.refresh.Refresh(ctx, token)
	if rerr != nil {
		return rerr
	}
	err = c.send(ctx, method, path, body, out, fresh)
	if errors.Is(err, errs.ErrAuthExpired) {
		// the backend rejected a token it just issued; nothing left to try
		return fmt.Errorf("%w: token rejected after rotation", errs.ErrSessionExpired)
	}
	return err
}

// Get is shorthand for Do with no request body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post is shorthand for Do with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// send performs a single attempt and classifies the outcome.
func (c *Client) send(ctx context.Context, method, path string, body, out any, token string) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		// includes the per-request timeout firing
		return fmt.Errorf("%w: %v", errs.ErrNetworkUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	c.log.Debug("http",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		if token == "" {
			// nothing to refresh: the request never carried credentials, so
			// this is the endpoint rejecting its input, not a stale session
			return decodeAPIError(resp)
		}
		return errs.ErrAuthExpired
	case resp.StatusCode == http.StatusForbidden:
		return errs.ErrForbidden
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", errs.ErrServer, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return errs.ErrNotFound
	default:
		return decodeAPIError(resp)
	}
}

func decodeAPIError(resp *http.Response) error {
	var e struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&e)
	return &APIError{Status: resp.StatusCode, Detail: e.Detail}
}

// refreshExchange performs the refresh-token exchange itself. It bypasses Do:
// a 401 here means the refresh token is dead, not that a refresh is needed.
func (c *Client) refreshExchange(ctx context.Context, refreshToken string) (access, refresh string, err error) {
	body := map[string]string{"refresh_token": refreshToken}
	var resp struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.send(ctx, http.MethodPost, "/auth/refresh/", body, &resp, ""); err != nil {
		return "", "", err
	}
	if resp.Token == "" || resp.RefreshToken == "" {
		return "", "", errors.New("refresh response missing tokens")
	}
	return resp.Token, resp.RefreshToken, nil
}
