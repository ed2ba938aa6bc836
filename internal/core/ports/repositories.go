package ports

import (
	"context"
	"errors"
	"time"

	"vinefi-traceability/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrWalletExists is returned by WalletRepository.Create when the per-user
// uniqueness constraint fires. Callers treat it as "someone else won the
// race", not as a failure.
var ErrWalletExists = errors.New("wallet already exists for user")

// WalletRepository defines persistence operations for custodial wallets.
type WalletRepository interface {
	// Create inserts a new wallet. Returns ErrWalletExists when a concurrent
	// request already created one for the same user.
	Create(ctx context.Context, w *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByPublicKey(ctx context.Context, publicKey string) (*domain.Wallet, error)
	// TouchUsage updates last_used_at; the only mutation a wallet row ever sees.
	TouchUsage(ctx context.Context, id uuid.UUID, at time.Time) error
}

// WineTokenRepository defines persistence operations for lot token mirrors.
type WineTokenRepository interface {
	Create(ctx context.Context, t *domain.WineToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WineToken, error)
	GetByAddress(ctx context.Context, address string) (*domain.WineToken, error)
}

// HoldingRepository defines persistence for token balances.
// Methods accepting pgx.Tx run inside transaction blocks so holding and
// transaction rows commit together.
type HoldingRepository interface {
	Get(ctx context.Context, walletID, tokenID uuid.UUID) (*domain.TokenHolding, error)
	// GetForUpdate reads the holding inside tx with a row lock so
	// concurrent movements serialize on the balance.
	GetForUpdate(ctx context.Context, tx pgx.Tx, walletID, tokenID uuid.UUID) (*domain.TokenHolding, error)
	Upsert(ctx context.Context, tx pgx.Tx, h *domain.TokenHolding) error
}

// TokenTransactionRepository defines persistence for the append-only mirror
// of on-chain token movements.
type TokenTransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.TokenTransaction) error
}

// LotEventRepository defines persistence for the append-only lot status log.
type LotEventRepository interface {
	Insert(ctx context.Context, e *domain.LotStatusEvent) error
	// Latest returns the most recent event by timestamp, or nil if none.
	Latest(ctx context.Context, tokenID uuid.UUID) (*domain.LotStatusEvent, error)
	// ListByToken returns events newest-first.
	ListByToken(ctx context.Context, tokenID uuid.UUID) ([]domain.LotStatusEvent, error)
}

// BottleRepository defines persistence for individually tracked bottles.
type BottleRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Bottle, error)
	GetByQRHash(ctx context.Context, qrHash string) (*domain.Bottle, error)
	UpdateCurrentStatus(ctx context.Context, id uuid.UUID, status domain.BottleStatus) error
}

// BottleEventRepository defines persistence for the append-only bottle
// status log.
type BottleEventRepository interface {
	Insert(ctx context.Context, e *domain.BottleStatusEvent) error
	// ListByBottle returns events newest-first.
	ListByBottle(ctx context.Context, bottleID uuid.UUID) ([]domain.BottleStatusEvent, error)
}

// QRCodeRepository defines persistence for bottle QR codes.
type QRCodeRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.QRCode, error)
	GetByBottleID(ctx context.Context, bottleID uuid.UUID) (*domain.QRCode, error)
	// RecordScan bumps scan_count and stamps last_scanned_at/by.
	RecordScan(ctx context.Context, id uuid.UUID, scannedBy *uuid.UUID, at time.Time) error
}

// ActivityRepository defines persistence for the wallet activity log.
type ActivityRepository interface {
	Insert(ctx context.Context, a *domain.WalletActivity) error
	// CountSince counts entries for a wallet+action newer than since.
	CountSince(ctx context.Context, walletID uuid.UUID, action string, since time.Time) (int64, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
