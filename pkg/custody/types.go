package custody

import "errors"

// ErrAccountNotFound is returned when the provider holds no account for
// the requested user.
var ErrAccountNotFound = errors.New("custody account not found")

// AccountKind distinguishes the two account types the provider manages.
type AccountKind string

const (
	// AccountKindEOA is a provider-held externally owned account.
	AccountKindEOA AccountKind = "eoa"

	// AccountKindSmart is a provider-held smart contract account.
	AccountKindSmart AccountKind = "smart"
)

// Account is a provider-held signing account. OwnerAddress is set only on
// smart accounts and names the EOA the provider created to control the
// contract account.
type Account struct {
	ID           string      `json:"id"`
	Address      string      `json:"address"`
	Kind         AccountKind `json:"kind"`
	OwnerAddress string      `json:"owner_address,omitempty"`
	Network      string      `json:"network"`
}

// TransactionResult is the provider's acknowledgement of a submitted
// transaction. Hash is available immediately; inclusion is observed by
// polling the chain.
type TransactionResult struct {
	Hash string `json:"hash"`
}

// UserOperationResult is the provider's acknowledgement of a submitted
// user operation from a smart account.
type UserOperationResult struct {
	UserOpHash string `json:"user_op_hash"`
	TxHash     string `json:"tx_hash"`
}

type createAccountRequest struct {
	ExternalID string `json:"external_id"`
	Network    string `json:"network"`
}

type sendTransactionRequest struct {
	To    string `json:"to"`
	Value string `json:"value"`
	Data  string `json:"data,omitempty"`
}

type faucetRequest struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *errorEnvelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
