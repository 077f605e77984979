// Package wallet holds the domain model for custodial wallets. A user owns
// at most one primary wallet; the address belongs to a custody account, so
// the wallet record carries no key material.
package wallet

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the account type backing a wallet.
type Kind string

const (
	// KindEOA marks a wallet backed by an externally owned account.
	KindEOA Kind = "eoa"

	// KindSmart marks a wallet backed by a smart contract account.
	KindSmart Kind = "smart"
)

// Valid reports whether k is a known wallet kind.
func (k Kind) Valid() bool {
	return k == KindEOA || k == KindSmart
}

// Wallet represents the domain model for a custodial wallet. OwnerAddress is
// set only for smart wallets; it names the EOA controlling the contract
// account. Address and Kind are immutable once created.
type Wallet struct {
	ID               uuid.UUID
	UserID           string
	Address          string
	Kind             Kind
	OwnerAddress     string
	NetworkID        string
	CustodyAccountID string
	IsPrimary        bool
	CreatedAt        time.Time
	LastAccessed     time.Time
}

// New creates a Wallet from the given parameters.
func New(userID, address, custodyAccountID string, kind Kind, isPrimary bool) *Wallet {
	now := time.Now()
	return &Wallet{
		ID:               uuid.New(),
		UserID:           userID,
		Address:          address,
		Kind:             kind,
		CustodyAccountID: custodyAccountID,
		IsPrimary:        isPrimary,
		CreatedAt:        now,
		LastAccessed:     now,
	}
}

// View is the wire representation of a wallet returned by the API.
type View struct {
	ID           string `json:"id"`
	Address      string `json:"address"`
	ShortAddress string `json:"short_address"`
	Kind         Kind   `json:"kind"`
	NetworkID    string `json:"network_id,omitempty"`
	IsPrimary    bool   `json:"is_primary"`
}

// ToView converts a wallet to its wire representation.
func (w *Wallet) ToView() View {
	return View{
		ID:           w.ID.String(),
		Address:      w.Address,
		ShortAddress: FormatAddress(w.Address),
		Kind:         w.Kind,
		NetworkID:    w.NetworkID,
		IsPrimary:    w.IsPrimary,
	}
}

// EnhancedDetails combines a wallet with its live chain state.
type EnhancedDetails struct {
	Wallet     View   `json:"wallet"`
	BalanceETH string `json:"balance_eth"`
}

// FormatAddress shortens an address for display as the first six characters,
// an ellipsis, and the last four. Addresses too short to truncate are
// returned unchanged.
func FormatAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
