package walletapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pixielabs/pixie-wallet/pkg/app/errors"
	"github.com/pixielabs/pixie-wallet/pkg/authflow"
	"github.com/pixielabs/pixie-wallet/pkg/custody"
	"github.com/pixielabs/pixie-wallet/pkg/ethrpc"
	"github.com/pixielabs/pixie-wallet/pkg/identity"
	"github.com/pixielabs/pixie-wallet/pkg/txflow"
	"github.com/pixielabs/pixie-wallet/pkg/wallet"
	"github.com/pixielabs/pixie-wallet/pkg/walletstate"
)

const testUserID = "user-1"

// MockWalletService is a mock implementation of service.Service
type MockWalletService struct {
	GetPrimaryWalletFunc func(ctx context.Context, userID string) (*wallet.Wallet, error)
	CreateWalletFunc     func(ctx context.Context, userID string, kind wallet.Kind) (*wallet.Wallet, error)
	EnhancedDetailsFunc  func(ctx context.Context, userID string) (*wallet.EnhancedDetails, error)
	ListWalletsFunc      func(ctx context.Context, userID string) ([]*wallet.Wallet, error)
}

func (m *MockWalletService) GetPrimaryWallet(ctx context.Context, userID string) (*wallet.Wallet, error) {
	if m.GetPrimaryWalletFunc != nil {
		return m.GetPrimaryWalletFunc(ctx, userID)
	}
	return nil, apperrors.ResourceNotFoundError(nil, "no primary wallet")
}

func (m *MockWalletService) CreateWallet(ctx context.Context, userID string, kind wallet.Kind) (*wallet.Wallet, error) {
	if m.CreateWalletFunc != nil {
		return m.CreateWalletFunc(ctx, userID, kind)
	}
	return nil, errors.New("not implemented")
}

func (m *MockWalletService) EnhancedDetails(ctx context.Context, userID string) (*wallet.EnhancedDetails, error) {
	if m.EnhancedDetailsFunc != nil {
		return m.EnhancedDetailsFunc(ctx, userID)
	}
	return nil, apperrors.ResourceNotFoundError(nil, "no primary wallet")
}

func (m *MockWalletService) ListWallets(ctx context.Context, userID string) ([]*wallet.Wallet, error) {
	if m.ListWalletsFunc != nil {
		return m.ListWalletsFunc(ctx, userID)
	}
	return nil, nil
}

// MockSubmitter is a mock implementation of txflow.Submitter
type MockSubmitter struct {
	SendTransactionFunc func(ctx context.Context, accountID, to, valueWei string) (*custody.TransactionResult, error)
	RequestFaucetFunc   func(ctx context.Context, address string) error
}

func (m *MockSubmitter) SendTransaction(ctx context.Context, accountID, to, valueWei string) (*custody.TransactionResult, error) {
	if m.SendTransactionFunc != nil {
		return m.SendTransactionFunc(ctx, accountID, to, valueWei)
	}
	return &custody.TransactionResult{Hash: "0xhash"}, nil
}

func (m *MockSubmitter) SendUserOperation(ctx context.Context, accountID, to, valueWei string) (*custody.UserOperationResult, error) {
	return &custody.UserOperationResult{TxHash: "0xhash"}, nil
}

func (m *MockSubmitter) RequestFaucet(ctx context.Context, address string) error {
	if m.RequestFaucetFunc != nil {
		return m.RequestFaucetFunc(ctx, address)
	}
	return nil
}

// MockReceiptReader is a mock implementation of txflow.ReceiptReader
type MockReceiptReader struct {
	TransactionReceiptFunc func(ctx context.Context, txHash string) (*ethrpc.Receipt, error)
}

func (m *MockReceiptReader) TransactionReceipt(ctx context.Context, txHash string) (*ethrpc.Receipt, error) {
	if m.TransactionReceiptFunc != nil {
		return m.TransactionReceiptFunc(ctx, txHash)
	}
	return &ethrpc.Receipt{TxHash: common.HexToHash(txHash), Status: 1}, nil
}

type fixture struct {
	handler  *Handler
	service  *MockWalletService
	submit   *MockSubmitter
	receipts *MockReceiptReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	service := &MockWalletService{}
	submit := &MockSubmitter{}
	receipts := &MockReceiptReader{}
	sender := txflow.NewSender(submit, receipts, txflow.Config{
		PollInterval: 5 * time.Millisecond,
		PollTimeout:  time.Second,
	}, zap.NewNop())
	states := walletstate.NewManager(service, nil, walletstate.Config{
		SendRefreshDelay:   time.Millisecond,
		FaucetRefreshDelay: time.Millisecond,
	}, zap.NewNop())
	t.Cleanup(states.Close)

	return &fixture{
		handler:  NewHandler(service, sender, states, zap.NewNop()),
		service:  service,
		submit:   submit,
		receipts: receipts,
	}
}

func testWallet() *wallet.Wallet {
	return &wallet.Wallet{
		ID:               uuid.New(),
		UserID:           testUserID,
		Address:          "0x1234567890abcdef1234567890abcdef12345678",
		Kind:             wallet.KindEOA,
		CustodyAccountID: "acct-1",
		IsPrimary:        true,
	}
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	session := &identity.Session{
		AccessToken: "token-1",
		User:        identity.User{ID: testUserID, Email: "a@b.co"},
	}
	return req.WithContext(authflow.WithSession(req.Context(), session))
}

func TestGetWallet(t *testing.T) {
	f := newFixture(t)
	f.service.EnhancedDetailsFunc = func(ctx context.Context, userID string) (*wallet.EnhancedDetails, error) {
		if userID != testUserID {
			t.Errorf("expected user %q, got %q", testUserID, userID)
		}
		return &wallet.EnhancedDetails{
			Wallet:     testWallet().ToView(),
			BalanceETH: "1.250000",
		}, nil
	}

	rec := httptest.NewRecorder()
	router := f.handler.Routes()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var details wallet.EnhancedDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &details); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if details.BalanceETH != "1.250000" {
		t.Errorf("unexpected balance %q", details.BalanceETH)
	}
	if details.Wallet.ShortAddress != "0x1234...5678" {
		t.Errorf("unexpected short address %q", details.Wallet.ShortAddress)
	}
}

func TestGetWalletWithoutWallet(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodGet, "/", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateWalletDefaultsToEOA(t *testing.T) {
	f := newFixture(t)
	var gotKind wallet.Kind
	f.service.CreateWalletFunc = func(ctx context.Context, userID string, kind wallet.Kind) (*wallet.Wallet, error) {
		gotKind = kind
		return testWallet(), nil
	}
	f.service.EnhancedDetailsFunc = func(ctx context.Context, userID string) (*wallet.EnhancedDetails, error) {
		return &wallet.EnhancedDetails{Wallet: testWallet().ToView(), BalanceETH: ethrpc.ZeroBalance}, nil
	}

	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/", "{}"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotKind != wallet.KindEOA {
		t.Errorf("expected default kind eoa, got %q", gotKind)
	}
}

func TestCreateSmartWallet(t *testing.T) {
	f := newFixture(t)
	var gotKind wallet.Kind
	f.service.CreateWalletFunc = func(ctx context.Context, userID string, kind wallet.Kind) (*wallet.Wallet, error) {
		gotKind = kind
		w := testWallet()
		w.Kind = wallet.KindSmart
		return w, nil
	}

	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"kind":"smart"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if gotKind != wallet.KindSmart {
		t.Errorf("expected kind smart, got %q", gotKind)
	}
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	f.service.GetPrimaryWalletFunc = func(ctx context.Context, userID string) (*wallet.Wallet, error) {
		return testWallet(), nil
	}
	var gotValue string
	f.submit.SendTransactionFunc = func(ctx context.Context, accountID, to, valueWei string) (*custody.TransactionResult, error) {
		gotValue = valueWei
		return &custody.TransactionResult{Hash: "0xsent"}, nil
	}

	body := `{"to":"0xabcdefabcdefabcdefabcdefabcdefabcdefabcd","amount_eth":"0.5"}`
	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/send", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotValue != "500000000000000000" {
		t.Errorf("expected 0.5 ETH in wei, got %q", gotValue)
	}

	var record txflow.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if record.Hash != "0xsent" || record.Status != txflow.StatusPending {
		t.Errorf("unexpected record %+v", record)
	}
}

func TestSendClearsSendingFlagOnReturn(t *testing.T) {
	f := newFixture(t)
	f.service.GetPrimaryWalletFunc = func(ctx context.Context, userID string) (*wallet.Wallet, error) {
		return testWallet(), nil
	}
	// The transaction never mines inside the test, so the receipt watch
	// outlives the HTTP call.
	f.receipts.TransactionReceiptFunc = func(ctx context.Context, txHash string) (*ethrpc.Receipt, error) {
		return nil, nil
	}

	body := `{"to":"0xabcdefabcdefabcdefabcdefabcdefabcdefabcd","amount_eth":"0.5"}`
	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/send", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if state := f.handler.states.ForUser(testUserID).State(); state.Sending {
		t.Error("sending flag still set after the send call returned")
	}
}

func TestSendFailureSetsStateError(t *testing.T) {
	f := newFixture(t)
	f.service.GetPrimaryWalletFunc = func(ctx context.Context, userID string) (*wallet.Wallet, error) {
		return testWallet(), nil
	}
	f.submit.SendTransactionFunc = func(ctx context.Context, accountID, to, valueWei string) (*custody.TransactionResult, error) {
		return nil, errors.New("insufficient funds")
	}

	body := `{"to":"0xabcdefabcdefabcdefabcdefabcdefabcdefabcd","amount_eth":"0.5"}`
	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/send", body))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	state := f.handler.states.ForUser(testUserID).State()
	if state.Sending {
		t.Error("sending flag still set after a failed send")
	}
	if state.Err != "insufficient funds" {
		t.Errorf("expected provider error in state, got %q", state.Err)
	}
}

func TestSendRejectsBadAmount(t *testing.T) {
	f := newFixture(t)
	f.service.GetPrimaryWalletFunc = func(ctx context.Context, userID string) (*wallet.Wallet, error) {
		return testWallet(), nil
	}

	body := `{"to":"0xabcdefabcdefabcdefabcdefabcdefabcdefabcd","amount_eth":"-1"}`
	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/send", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSendWithoutWallet(t *testing.T) {
	f := newFixture(t)

	body := `{"to":"0xabcdefabcdefabcdefabcdefabcdefabcdefabcd","amount_eth":"1"}`
	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/send", body))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestFaucet(t *testing.T) {
	f := newFixture(t)
	f.service.GetPrimaryWalletFunc = func(ctx context.Context, userID string) (*wallet.Wallet, error) {
		return testWallet(), nil
	}
	var funded string
	f.submit.RequestFaucetFunc = func(ctx context.Context, address string) error {
		funded = address
		return nil
	}

	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/faucet", ""))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if funded != testWallet().Address {
		t.Errorf("expected faucet for wallet address, got %q", funded)
	}
}

func TestFaucetFailure(t *testing.T) {
	f := newFixture(t)
	f.service.GetPrimaryWalletFunc = func(ctx context.Context, userID string) (*wallet.Wallet, error) {
		return testWallet(), nil
	}
	f.submit.RequestFaucetFunc = func(ctx context.Context, address string) error {
		return errors.New("faucet dry")
	}

	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/faucet", ""))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	state := f.handler.states.ForUser(testUserID).State()
	if state.Requesting {
		t.Error("fauceting flag still set after a failed request")
	}
	if state.Err != "faucet dry" {
		t.Errorf("expected provider error in state, got %q", state.Err)
	}
	if state.Wallet != nil {
		t.Errorf("wallet view must stay unchanged on faucet failure, got %+v", state.Wallet)
	}
}

func TestTransactionsMostRecentFirst(t *testing.T) {
	f := newFixture(t)
	f.service.GetPrimaryWalletFunc = func(ctx context.Context, userID string) (*wallet.Wallet, error) {
		return testWallet(), nil
	}
	hashes := []string{"0xfirst", "0xsecond"}
	var i int
	f.submit.SendTransactionFunc = func(ctx context.Context, accountID, to, valueWei string) (*custody.TransactionResult, error) {
		h := hashes[i]
		i++
		return &custody.TransactionResult{Hash: h}, nil
	}

	body := `{"to":"0xabcdefabcdefabcdefabcdefabcdefabcdefabcd","amount_eth":"1"}`
	for range hashes {
		rec := httptest.NewRecorder()
		f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodPost, "/send", body))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("send failed with %d", rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, authedRequest(http.MethodGet, "/transactions", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Transactions []txflow.Record `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Transactions) != 2 {
		t.Fatalf("expected 2 records, got %d", len(resp.Transactions))
	}
	if resp.Transactions[0].Hash != "0xsecond" || resp.Transactions[1].Hash != "0xfirst" {
		t.Errorf("history not most recent first: %+v", resp.Transactions)
	}
}

func TestUnauthenticated(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.handler.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
