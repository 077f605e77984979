// Package ethrpc reads chain state over Ethereum JSON-RPC. The wallet only
// needs two read paths: account balances and transaction receipts. Writes
// go through the custody provider, never through this client.
package ethrpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/internal/metrics"
)

// ZeroBalance is the display value reported when a balance cannot be read.
const ZeroBalance = "0.0"

// Caller is the JSON-RPC transport used by the client. Satisfied by
// *rpc.Client.
type Caller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
	Close()
}

// Receipt is the subset of a transaction receipt the wallet inspects.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber *big.Int
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == 1
}

// Client reads chain state for the wallet.
type Client struct {
	rpc    Caller
	logger *zap.Logger
}

// Dial connects to an Ethereum JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	logger.Info("Connected to Ethereum RPC", zap.String("rpc_url", rpcURL))

	return NewClient(rpcClient, logger), nil
}

// NewClient wraps an existing JSON-RPC transport.
func NewClient(caller Caller, logger *zap.Logger) *Client {
	return &Client{rpc: caller, logger: logger}
}

// Close closes the underlying transport.
func (c *Client) Close() {
	c.rpc.Close()
}

// BalanceETH returns the latest balance of address formatted as ETH with
// six decimal places. Any failure, including a malformed address, degrades
// to ZeroBalance so callers always have a displayable value.
func (c *Client) BalanceETH(ctx context.Context, address string) string {
	if !common.IsHexAddress(address) {
		c.logger.Warn("Balance requested for malformed address", zap.String("address", address))
		metrics.BalanceFetchFailures.Inc()
		return ZeroBalance
	}

	var wei hexutil.Big
	err := c.rpc.CallContext(ctx, &wei, "eth_getBalance", common.HexToAddress(address), "latest")
	if err != nil {
		c.logger.Warn("Failed to fetch balance",
			zap.String("address", address),
			zap.Error(err))
		metrics.BalanceFetchFailures.Inc()
		return ZeroBalance
	}

	return FormatWei(wei.ToInt())
}

// TransactionReceipt fetches the receipt for a transaction hash. A nil
// receipt with nil error means the transaction is not yet mined.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	var raw *receiptEnvelope
	err := c.rpc.CallContext(ctx, &raw, "eth_getTransactionReceipt", common.HexToHash(txHash))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	return &Receipt{
		TxHash:      raw.TxHash,
		Status:      uint64(raw.Status),
		BlockNumber: (*big.Int)(raw.BlockNumber),
	}, nil
}

// FormatWei renders a wei amount as ETH with six decimal places.
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return ZeroBalance
	}
	return decimal.NewFromBigInt(wei, -18).StringFixed(6)
}

type receiptEnvelope struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
}
