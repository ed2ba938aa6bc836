package domain

import (
	"time"

	"github.com/google/uuid"
)

// WineLotMetadata is the typed on-chain metadata for a lot token. Known
// fields are explicit; anything else goes in Extra.
type WineLotMetadata struct {
	LotID       string         `json:"lot_id"`
	WineryName  string         `json:"winery_name"`
	Region      string         `json:"region"`
	Country     string         `json:"country"`
	Vintage     int            `json:"vintage"`
	Varietal    string         `json:"varietal"`
	BottleCount int            `json:"bottle_count"`
	Description *string        `json:"description,omitempty"`
	TokenCode   string         `json:"token_code"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// WineToken mirrors an on-chain wine lot token contract.
type WineToken struct {
	ID              uuid.UUID       `json:"id"`
	TokenAddress    string          `json:"token_address"`
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	Decimal         uint32          `json:"decimal"`
	Metadata        WineLotMetadata `json:"wine_metadata"`
	TransactionHash *string         `json:"transaction_hash,omitempty"`
	AdminWalletID   *uuid.UUID      `json:"admin_wallet_id,omitempty"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TokenTransactionType is the kind of on-chain token movement mirrored in the
// relational store.
type TokenTransactionType string

const (
	TokenTransactionMint     TokenTransactionType = "mint"
	TokenTransactionTransfer TokenTransactionType = "transfer"
)

// TokenHolding mirrors a wallet's balance of a wine token. Balances are
// recorded as decimal strings: token amounts are 128-bit on the ledger and
// must not pass through float64 or int64.
type TokenHolding struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	WalletID  uuid.UUID `json:"wallet_id"`
	TokenID   uuid.UUID `json:"token_id"`
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenTransaction is an append-only mirror row for a mint or transfer.
type TokenTransaction struct {
	ID              uuid.UUID            `json:"id"`
	TokenID         uuid.UUID            `json:"token_id"`
	FromWalletID    *uuid.UUID           `json:"from_wallet,omitempty"`
	ToWalletID      *uuid.UUID           `json:"to_wallet,omitempty"`
	ToAddress       string               `json:"to_address"`
	Amount          string               `json:"amount"`
	TransactionHash *string              `json:"transaction_hash,omitempty"`
	Type            TokenTransactionType `json:"transaction_type"`
	CreatedAt       time.Time            `json:"created_at"`
}
