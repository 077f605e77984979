// Package custody implements the client for the key custody provider.
// The provider holds all signing keys; the wallet never sees private key
// material. Accounts are addressed by the user's identity id so repeated
// provisioning calls converge on the same account.
package custody

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
)

// Service defines the custody provider operations consumed by the wallet.
type Service interface {
	// CreateAccount provisions an externally owned account for the user.
	// Provisioning is idempotent on the user id.
	CreateAccount(ctx context.Context, userID string) (*Account, error)

	// CreateSmartAccount provisions a smart contract account for the user.
	// Provisioning is idempotent on the user id.
	CreateSmartAccount(ctx context.Context, userID string) (*Account, error)

	// GetAccount fetches the user's externally owned account.
	// Returns ErrAccountNotFound when none has been provisioned.
	GetAccount(ctx context.Context, userID string) (*Account, error)

	// GetSmartAccount fetches the user's smart contract account.
	// Returns ErrAccountNotFound when none has been provisioned.
	GetSmartAccount(ctx context.Context, userID string) (*Account, error)

	// SendTransaction signs and submits a transaction from an externally
	// owned account. valueWei is a base-10 wei amount.
	SendTransaction(ctx context.Context, accountID, to, valueWei string) (*TransactionResult, error)

	// SendUserOperation signs and submits a user operation from a smart
	// account. valueWei is a base-10 wei amount.
	SendUserOperation(ctx context.Context, accountID, to, valueWei string) (*UserOperationResult, error)

	// RequestFaucet asks the provider's test-network faucet to fund an
	// address.
	RequestFaucet(ctx context.Context, address string) error
}

// Client implements Service over the custody provider's REST API.
type Client struct {
	cfg    *Config
	http   *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates a new custody client.
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
		now:    time.Now,
	}, nil
}

func (c *Client) CreateAccount(ctx context.Context, userID string) (*Account, error) {
	return c.createAccount(ctx, "/v1/accounts", userID)
}

func (c *Client) CreateSmartAccount(ctx context.Context, userID string) (*Account, error) {
	return c.createAccount(ctx, "/v1/smart-accounts", userID)
}

func (c *Client) createAccount(ctx context.Context, path, userID string) (*Account, error) {
	if userID == "" {
		return nil, fmt.Errorf("empty user id")
	}

	var acct Account
	err := c.do(ctx, http.MethodPost, path, createAccountRequest{
		ExternalID: userID,
		Network:    c.cfg.NetworkID,
	}, &acct)
	if err != nil {
		return nil, fmt.Errorf("account provisioning failed: %w", err)
	}
	return &acct, nil
}

func (c *Client) GetAccount(ctx context.Context, userID string) (*Account, error) {
	return c.getAccount(ctx, "/v1/accounts/"+userID)
}

func (c *Client) GetSmartAccount(ctx context.Context, userID string) (*Account, error) {
	return c.getAccount(ctx, "/v1/smart-accounts/"+userID)
}

func (c *Client) getAccount(ctx context.Context, path string) (*Account, error) {
	var acct Account
	err := c.do(ctx, http.MethodGet, path, nil, &acct)
	if err != nil {
		var svcErr *serviceError
		if asServiceError(err, &svcErr) && svcErr.status == http.StatusNotFound {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	return &acct, nil
}

func (c *Client) SendTransaction(ctx context.Context, accountID, to, valueWei string) (*TransactionResult, error) {
	var result TransactionResult
	path := "/v1/accounts/" + accountID + "/transactions"
	err := c.do(ctx, http.MethodPost, path, sendTransactionRequest{To: to, Value: valueWei}, &result)
	if err != nil {
		return nil, fmt.Errorf("transaction submission failed: %w", err)
	}
	if result.Hash == "" {
		return nil, fmt.Errorf("provider returned no transaction hash")
	}
	return &result, nil
}

func (c *Client) SendUserOperation(ctx context.Context, accountID, to, valueWei string) (*UserOperationResult, error) {
	var result UserOperationResult
	path := "/v1/smart-accounts/" + accountID + "/user-operations"
	err := c.do(ctx, http.MethodPost, path, sendTransactionRequest{To: to, Value: valueWei}, &result)
	if err != nil {
		return nil, fmt.Errorf("user operation submission failed: %w", err)
	}
	if result.TxHash == "" {
		return nil, fmt.Errorf("provider returned no transaction hash")
	}
	return &result, nil
}

func (c *Client) RequestFaucet(ctx context.Context, address string) error {
	err := c.do(ctx, http.MethodPost, "/v1/faucet", faucetRequest{
		Address: address,
		Network: c.cfg.NetworkID,
	}, nil)
	if err != nil {
		return fmt.Errorf("faucet request failed: %w", err)
	}
	return nil
}

// serviceError carries the HTTP status of a custody provider rejection.
type serviceError struct {
	status  int
	message string
}

func (e *serviceError) Error() string {
	return fmt.Sprintf("custody provider returned %d: %s", e.status, e.message)
}

func asServiceError(err error, target **serviceError) bool {
	return errors.As(err, target)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
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

	bearer, err := c.mintBearer(c.now())
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("custody request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope errorEnvelope
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(raw, &envelope)
		c.logger.Debug("Custody provider rejected request",
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
