package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet actions recorded in the activity log. The log doubles as the
// substrate for per-wallet rate limiting.
const (
	ActionWalletProvision = "wallets-provision"
	ActionSignPayment     = "wallets-sign-payment"
	ActionTokenCreate     = "wine-tokens-create"
	ActionTokenMint       = "wine-tokens-mint"
	ActionTokenTransfer   = "wine-tokens-transfer"
	ActionLotStatusUpdate = "wine-lots-update-status"
)

// WalletActivity is an append-only audit entry. Rows are never mutated and
// are only ever count-queried within a trailing time window.
type WalletActivity struct {
	ID        uuid.UUID      `json:"id"`
	WalletID  uuid.UUID      `json:"wallet_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Action    string         `json:"action"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
