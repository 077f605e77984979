package ethrpc

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// fakeCaller answers JSON-RPC calls from a canned method table.
type fakeCaller struct {
	responses map[string]string
	err       error
	lastArgs  []any
}

func (f *fakeCaller) CallContext(_ context.Context, result any, method string, args ...any) error {
	f.lastArgs = args
	if f.err != nil {
		return f.err
	}
	raw, ok := f.responses[method]
	if !ok {
		return errors.New("method not stubbed: " + method)
	}
	return json.Unmarshal([]byte(raw), result)
}

func (f *fakeCaller) Close() {}

const testAddress = "0xAbC0000000000000000000000000000000000001"

func TestBalanceETH(t *testing.T) {
	tests := []struct {
		name     string
		hexWei   string
		expected string
	}{
		{"one ether", `"0xde0b6b3a7640000"`, "1.000000"},
		{"fractional", `"0x2386f26fc10000"`, "0.010000"},
		{"zero", `"0x0"`, "0.000000"},
		{"rounds down below display precision", `"0x1"`, "0.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{responses: map[string]string{
				"eth_getBalance": tt.hexWei,
			}}
			client := NewClient(caller, zap.NewNop())

			got := client.BalanceETH(context.Background(), testAddress)
			if got != tt.expected {
				t.Errorf("expected balance %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestBalanceETHQueriesLatestBlock(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		"eth_getBalance": `"0x0"`,
	}}
	client := NewClient(caller, zap.NewNop())

	client.BalanceETH(context.Background(), testAddress)
	if len(caller.lastArgs) != 2 || caller.lastArgs[1] != "latest" {
		t.Errorf("expected latest block tag, got args %v", caller.lastArgs)
	}
}

func TestBalanceETHFallsBackOnError(t *testing.T) {
	caller := &fakeCaller{err: errors.New("connection refused")}
	client := NewClient(caller, zap.NewNop())

	if got := client.BalanceETH(context.Background(), testAddress); got != ZeroBalance {
		t.Errorf("expected %q on RPC failure, got %q", ZeroBalance, got)
	}
}

func TestBalanceETHFallsBackOnBadAddress(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		"eth_getBalance": `"0x1"`,
	}}
	client := NewClient(caller, zap.NewNop())

	if got := client.BalanceETH(context.Background(), "not-an-address"); got != ZeroBalance {
		t.Errorf("expected %q for malformed address, got %q", ZeroBalance, got)
	}
	if caller.lastArgs != nil {
		t.Error("no RPC call expected for malformed address")
	}
}

func TestTransactionReceiptMined(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		"eth_getTransactionReceipt": `{
			"transactionHash": "0x1111111111111111111111111111111111111111111111111111111111111111",
			"status": "0x1",
			"blockNumber": "0x10"
		}`,
	}}
	client := NewClient(caller, zap.NewNop())

	receipt, err := client.TransactionReceipt(context.Background(),
		"0x1111111111111111111111111111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("receipt fetch failed: %s", err)
	}
	if receipt == nil {
		t.Fatal("expected a receipt for mined transaction")
	}
	if !receipt.Succeeded() {
		t.Error("expected receipt to report success")
	}
	if receipt.BlockNumber.Cmp(big.NewInt(16)) != 0 {
		t.Errorf("expected block 16, got %s", receipt.BlockNumber)
	}
}

func TestTransactionReceiptReverted(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		"eth_getTransactionReceipt": `{
			"transactionHash": "0x2222222222222222222222222222222222222222222222222222222222222222",
			"status": "0x0",
			"blockNumber": "0x11"
		}`,
	}}
	client := NewClient(caller, zap.NewNop())

	receipt, err := client.TransactionReceipt(context.Background(),
		"0x2222222222222222222222222222222222222222222222222222222222222222")
	if err != nil {
		t.Fatalf("receipt fetch failed: %s", err)
	}
	if receipt.Succeeded() {
		t.Error("reverted transaction must not report success")
	}
}

func TestTransactionReceiptPending(t *testing.T) {
	caller := &fakeCaller{responses: map[string]string{
		"eth_getTransactionReceipt": `null`,
	}}
	client := NewClient(caller, zap.NewNop())

	receipt, err := client.TransactionReceipt(context.Background(), common.Hash{}.Hex())
	if err != nil {
		t.Fatalf("receipt fetch failed: %s", err)
	}
	if receipt != nil {
		t.Errorf("expected nil receipt for pending transaction, got %+v", receipt)
	}
}

func TestFormatWei(t *testing.T) {
	if got := FormatWei(nil); got != ZeroBalance {
		t.Errorf("expected %q for nil wei, got %q", ZeroBalance, got)
	}

	wei, _ := new(big.Int).SetString("1234567890000000000", 10)
	if got := FormatWei(wei); got != "1.234568" {
		t.Errorf("expected rounded 1.234568, got %q", got)
	}
}
