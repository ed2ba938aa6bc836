package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// WalletProviderCustodial tags wallets whose keys the platform holds.
	WalletProviderCustodial = "vinefi_custodial"
	// WalletNetworkStellar is the only ledger network currently supported.
	WalletNetworkStellar = "stellar"
)

// Wallet is a custodial signing keypair held on behalf of a user.
// At most one wallet exists per user; the row is never deleted and the
// public key never changes after creation.
type Wallet struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	PublicKey       string     `json:"public_key"`
	SecretEncrypted string     `json:"-"` // AES-256-GCM, never expose
	Provider        string     `json:"wallet_provider"`
	Network         string     `json:"network"`
	CreatedAt       time.Time  `json:"created_at"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
}
