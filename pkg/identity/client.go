// Package identity implements the client for the hosted identity service.
// It covers the email challenge, authorization-code exchange, session lookup
// and sign-out. The service owns all credential handling; this client only
// moves opaque tokens.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Service defines the identity service operations consumed by the wallet.
type Service interface {
	// ExchangeCodeForSession trades a single-use authorization code for a
	// session. A reused or expired code fails with ErrInvalidCode.
	ExchangeCodeForSession(ctx context.Context, code string) (*Session, error)

	// GetSession resolves the session behind an access token.
	// Returns ErrNoSession when the token no longer maps to a session.
	GetSession(ctx context.Context, accessToken string) (*Session, error)

	// SignOut revokes the session behind an access token. Best-effort on the
	// caller side: failures are logged, not surfaced.
	SignOut(ctx context.Context, accessToken string) error

	// RequestEmailOTP starts an email challenge for the given address.
	RequestEmailOTP(ctx context.Context, email, redirectTo string) error

	// VerifyEmailOTP completes an email challenge and returns the session.
	VerifyEmailOTP(ctx context.Context, email, token string) (*Session, error)
}

// Client implements Service over the identity service's REST API.
type Client struct {
	cfg    *Config
	http   *http.Client
	logger *zap.Logger
}

// New creates a new identity client.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := applyOptions(opts)
	httpClient := s.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: s.logger,
	}, nil
}

func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) (*Session, error) {
	if code == "" {
		return nil, ErrInvalidCode
	}

	var envelope sessionEnvelope
	err := c.do(ctx, http.MethodPost, "/token?grant_type=pkce", "", map[string]string{
		"auth_code": code,
	}, &envelope)
	if err != nil {
		var svcErr *serviceError
		if asServiceError(err, &svcErr) && svcErr.status < http.StatusInternalServerError {
			// The service rejected the code itself. Terminal for this code.
			return nil, fmt.Errorf("%w: %s", ErrInvalidCode, svcErr.message)
		}
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	if envelope.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty session returned", ErrInvalidCode)
	}

	return envelope.toSession(), nil
}

func (c *Client) GetSession(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}

	var usr User
	err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &usr)
	if err != nil {
		var svcErr *serviceError
		if asServiceError(err, &svcErr) && svcErr.status == http.StatusUnauthorized {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	return &Session{AccessToken: accessToken, User: usr}, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	err := c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
	if err != nil {
		return fmt.Errorf("sign out failed: %w", err)
	}
	return nil
}

func (c *Client) RequestEmailOTP(ctx context.Context, email, redirectTo string) error {
	body := map[string]any{
		"email":       email,
		"create_user": true,
	}
	if redirectTo != "" {
		body["redirect_to"] = redirectTo
	}
	if err := c.do(ctx, http.MethodPost, "/otp", "", body, nil); err != nil {
		return fmt.Errorf("email challenge failed: %w", err)
	}
	return nil
}

func (c *Client) VerifyEmailOTP(ctx context.Context, email, token string) (*Session, error) {
	var envelope sessionEnvelope
	err := c.do(ctx, http.MethodPost, "/verify", "", map[string]string{
		"type":  "email",
		"email": email,
		"token": token,
	}, &envelope)
	if err != nil {
		var svcErr *serviceError
		if asServiceError(err, &svcErr) && svcErr.status < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCode, svcErr.message)
		}
		return nil, fmt.Errorf("otp verification failed: %w", err)
	}
	if envelope.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty session returned", ErrInvalidCode)
	}
	return envelope.toSession(), nil
}

// serviceError carries the HTTP status of an identity service rejection.
type serviceError struct {
	status  int
	message string
}

func (e *serviceError) Error() string {
	return fmt.Sprintf("identity service returned %d: %s", e.status, e.message)
}

func asServiceError(err error, target **serviceError) bool {
	return errors.As(err, target)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.cfg.APIKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope errorEnvelope
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(raw, &envelope)
		c.logger.Debug("Identity service rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", envelope.text()),
		)
		return &serviceError{status: resp.StatusCode, message: envelope.text()}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
