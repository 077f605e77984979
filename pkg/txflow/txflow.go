// Package txflow owns outbound transaction handling: request validation,
// ETH to wei conversion, submission through the custody provider, and
// receipt polling until a terminal state.
package txflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/internal/metrics"
	apperrors "github.com/pixielabs/pixie-wallet/pkg/app/errors"
	"github.com/pixielabs/pixie-wallet/pkg/custody"
	"github.com/pixielabs/pixie-wallet/pkg/ethrpc"
	"github.com/pixielabs/pixie-wallet/pkg/wallet"
)

var (
	// ErrInvalidAmount is returned when an amount is not a positive decimal.
	ErrInvalidAmount = errors.New("amount must be a positive decimal number")

	// ErrInvalidAddress is returned when a recipient is not a valid address.
	ErrInvalidAddress = errors.New("invalid recipient address")
)

// weiPerETH is 10^18.
var weiPerETH = decimal.New(1, 18)

// Status is the lifecycle state of a submitted transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Terminal reports whether no further state change is expected.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Record describes one submitted transaction.
type Record struct {
	Hash        string      `json:"hash"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	AmountETH   string      `json:"amount_eth"`
	Kind        wallet.Kind `json:"kind"`
	Status      Status      `json:"status"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// Submitter is the subset of the custody provider used for sends.
type Submitter interface {
	SendTransaction(ctx context.Context, accountID, to, valueWei string) (*custody.TransactionResult, error)
	SendUserOperation(ctx context.Context, accountID, to, valueWei string) (*custody.UserOperationResult, error)
	RequestFaucet(ctx context.Context, address string) error
}

// ReceiptReader polls transaction receipts from the chain.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash string) (*ethrpc.Receipt, error)
}

// Config bounds the receipt poll loop.
type Config struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Sender validates, submits and tracks outbound transactions.
type Sender struct {
	custodian Submitter
	chain     ReceiptReader
	cfg       Config
	history   *History
	logger    *zap.Logger
}

// NewSender creates a transaction sender.
func NewSender(custodian Submitter, chain ReceiptReader, cfg Config, logger *zap.Logger) *Sender {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 120 * time.Second
	}
	return &Sender{
		custodian: custodian,
		chain:     chain,
		cfg:       cfg,
		history:   NewHistory(),
		logger:    logger,
	}
}

// History exposes the sender's transaction log.
func (s *Sender) History() *History {
	return s.history
}

// Send validates the request and submits it through the custody account
// backing the wallet. Smart wallets submit user operations; EOA wallets
// submit plain transactions. The returned record is pending; callers watch
// it to a terminal state with AwaitReceipt.
func (s *Sender) Send(ctx context.Context, from *wallet.Wallet, to, amountETH string) (*Record, error) {
	wei, err := ToWei(amountETH)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "invalid amount")
	}

	to = NormalizeAddress(to)
	if !common.IsHexAddress(to) {
		return nil, apperrors.BadRequestError(ErrInvalidAddress, "invalid recipient address")
	}

	var hash string
	switch from.Kind {
	case wallet.KindSmart:
		result, err := s.custodian.SendUserOperation(ctx, from.CustodyAccountID, to, wei.String())
		if err != nil {
			metrics.TransactionsTotal.WithLabelValues(string(from.Kind), "error").Inc()
			return nil, apperrors.DependencyError(err, "transaction submission failed")
		}
		hash = result.TxHash
	default:
		result, err := s.custodian.SendTransaction(ctx, from.CustodyAccountID, to, wei.String())
		if err != nil {
			metrics.TransactionsTotal.WithLabelValues(string(from.Kind), "error").Inc()
			return nil, apperrors.DependencyError(err, "transaction submission failed")
		}
		hash = result.Hash
	}

	record := &Record{
		Hash:        hash,
		From:        from.Address,
		To:          to,
		AmountETH:   amountETH,
		Kind:        from.Kind,
		Status:      StatusPending,
		SubmittedAt: time.Now(),
	}
	s.history.Add(from.UserID, record)
	metrics.TransactionsTotal.WithLabelValues(string(from.Kind), "submitted").Inc()

	s.logger.Info("Transaction submitted",
		zap.String("user_id", from.UserID),
		zap.String("hash", hash),
		zap.String("kind", string(from.Kind)))

	return record, nil
}

// AwaitReceipt polls the chain until the transaction reaches a terminal
// state, the poll window elapses, or ctx is cancelled. The record's status
// in the history is updated as a side effect.
func (s *Sender) AwaitReceipt(ctx context.Context, userID, hash string) (Status, error) {
	start := time.Now()
	deadline := start.Add(s.cfg.PollTimeout)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return StatusPending, ctx.Err()
		case <-ticker.C:
		}

		receipt, err := s.chain.TransactionReceipt(ctx, hash)
		if err != nil {
			s.logger.Warn("Receipt poll failed",
				zap.String("hash", hash),
				zap.Error(err))
		} else if receipt != nil {
			status := StatusFailed
			if receipt.Succeeded() {
				status = StatusConfirmed
			}
			s.history.SetStatus(userID, hash, status)
			metrics.ReceiptPollDuration.Observe(time.Since(start).Seconds())
			return status, nil
		}

		if time.Now().After(deadline) {
			// The record stays pending: the transaction may still mine
			// after we stop watching.
			metrics.ReceiptPollDuration.Observe(time.Since(start).Seconds())
			s.logger.Warn("Receipt poll window elapsed",
				zap.String("hash", hash),
				zap.Duration("window", s.cfg.PollTimeout))
			return StatusTimedOut, nil
		}
	}
}

// Faucet asks the custody provider's faucet to fund the wallet address.
func (s *Sender) Faucet(ctx context.Context, w *wallet.Wallet) error {
	if err := s.custodian.RequestFaucet(ctx, w.Address); err != nil {
		metrics.FaucetRequestsTotal.WithLabelValues("error").Inc()
		return apperrors.DependencyError(err, "faucet request failed")
	}
	metrics.FaucetRequestsTotal.WithLabelValues("ok").Inc()
	return nil
}

// ToWei converts a decimal ETH amount to integer wei, truncating anything
// below one wei. The amount must be strictly positive.
func ToWei(amountETH string) (*big.Int, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(amountETH))
	if err != nil {
		return nil, ErrInvalidAmount
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	wei := amount.Mul(weiPerETH).Floor()
	if wei.Sign() <= 0 {
		return nil, fmt.Errorf("%w: below one wei", ErrInvalidAmount)
	}
	return wei.BigInt(), nil
}

// NormalizeAddress ensures an address carries the 0x prefix. Applying it
// twice yields the same result.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return address
	}
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		return address
	}
	return "0x" + address
}
