package ports

import (
	"context"
	"time"

	"vinefi-traceability/internal/core/domain"

	"github.com/google/uuid"
)

// CipherService encrypts wallet secrets for storage and decrypts them on
// demand. Decryption fails closed on tampered or malformed ciphertext.
type CipherService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService handles session JWT operations.
type TokenService interface {
	Generate(userID uuid.UUID, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
}

// --- Service Ports (Business Logic) ---

// WalletOptions controls what GetOrCreate returns and does.
type WalletOptions struct {
	// WithSecret decrypts and returns the signing seed.
	WithSecret bool
	// Fund requests one-time friendbot funding at creation (non-public
	// networks only). Funding failure is non-fatal.
	Fund bool
}

// WalletService is the custodial wallet directory.
type WalletService interface {
	// GetOrCreate returns the user's wallet, creating it on first access.
	// Idempotent under concurrent first-use: at most one wallet is ever
	// active per user. The returned secret is empty unless WithSecret.
	GetOrCreate(ctx context.Context, userID uuid.UUID, opts WalletOptions) (*domain.Wallet, string, error)
	// TouchUsage stamps last_used_at; best-effort.
	TouchUsage(ctx context.Context, walletID uuid.UUID)
	// LogActivity appends an audit entry; best-effort.
	LogActivity(ctx context.Context, walletID, userID uuid.UUID, action string, metadata map[string]any)
}

// RateLimitService bounds the frequency of sensitive wallet actions by
// counting activity-log entries in trailing windows. Advisory, not an
// atomic token bucket.
type RateLimitService interface {
	// Enforce fails with a rate-limit error when either trailing-window
	// count is at or above its limit. A limit of zero disables that window.
	Enforce(ctx context.Context, walletID uuid.UUID, action string, perMinute, perHour int) error
}

// SignPaymentRequest is a validated payment-signing request.
type SignPaymentRequest struct {
	UserID      uuid.UUID
	Destination string
	Amount      string
	AssetCode   string // empty = native asset
	AssetIssuer string
	Memo        string
	Submit      bool // false = sign only, return envelope
}

// SignPaymentResult reports a signed (and possibly submitted) payment.
type SignPaymentResult struct {
	Submitted bool
	Hash      string
	Ledger    int32
	SignedXDR string
}

// PaymentService signs and submits Stellar payments with the user's
// custodial wallet.
type PaymentService interface {
	SignPayment(ctx context.Context, req SignPaymentRequest) (*SignPaymentResult, error)
}

// LotStatusUpdateRequest is a validated lot status transition.
type LotStatusUpdateRequest struct {
	UserID       uuid.UUID
	HandlerName  string
	TokenID      *uuid.UUID // one of TokenID / TokenAddress required
	TokenAddress *string
	Status       domain.LotStatus
	// ExpectedPreviousStatus, when set, turns the transition into a
	// compare-and-swap: mismatch with the current status is a conflict.
	ExpectedPreviousStatus *domain.LotStatus
	Location               *string
	Coordinates            *domain.GeoPoint
	Notes                  *string
	Metadata               map[string]any
}

// BottleStatusUpdateRequest is a validated bottle status transition.
type BottleStatusUpdateRequest struct {
	UserID      uuid.UUID
	HandlerName string
	BottleID    uuid.UUID
	Status      domain.BottleStatus
	ScanType    *domain.ScanType
	Location    *string
	Coordinates *domain.GeoPoint
	Notes       *string
	Metadata    map[string]any
}

// StatusService orchestrates status transitions: the database is the
// durable source of truth, the ledger write is a best-effort proof.
type StatusService interface {
	UpdateLotStatus(ctx context.Context, req LotStatusUpdateRequest) (*domain.LotStatusEvent, error)
	UpdateBottleStatus(ctx context.Context, req BottleStatusUpdateRequest) (*domain.BottleStatusEvent, error)
	LotHistory(ctx context.Context, tokenID *uuid.UUID, tokenAddress *string) ([]domain.LotStatusEvent, error)
	// Traceability resolves a public QR scan to the bottle's full history.
	Traceability(ctx context.Context, qrCode, qrHash *string, bottleID *uuid.UUID) (*domain.Traceability, error)
}

// CreateTokenRequest is a validated wine token creation request.
type CreateTokenRequest struct {
	UserID   uuid.UUID
	Name     string
	Symbol   string
	Decimal  uint32
	Metadata domain.WineLotMetadata
}

// MintRequest is a validated mint request.
type MintRequest struct {
	UserID           uuid.UUID
	TokenAddress     string
	RecipientAddress string
	Amount           string
}

// TransferRequest is a validated transfer request.
type TransferRequest struct {
	UserID       uuid.UUID
	TokenAddress string
	ToAddress    string
	Amount       string
}

// WineTokenService manages the lot token lifecycle on-chain with a
// relational mirror.
type WineTokenService interface {
	Create(ctx context.Context, req CreateTokenRequest) (*domain.WineToken, error)
	Mint(ctx context.Context, req MintRequest) (string, error)     // returns tx hash
	Transfer(ctx context.Context, req TransferRequest) (string, error) // returns tx hash
}
