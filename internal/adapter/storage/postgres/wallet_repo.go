package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet. The UNIQUE constraint on user_id is the
// arbiter for concurrent first-use: the loser gets ports.ErrWalletExists.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO user_wallets (id, user_id, public_key, secret_encrypted, provider, network, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.UserID, w.PublicKey, w.SecretEncrypted,
		w.Provider, w.Network, w.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ports.ErrWalletExists
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID.
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := walletSelect + ` WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get wallet by id")
}

// GetByUserID fetches the wallet owned by a user.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := walletSelect + ` WHERE user_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, userID), "get wallet by user id")
}

// GetByPublicKey fetches a wallet by its account address.
func (r *WalletRepo) GetByPublicKey(ctx context.Context, publicKey string) (*domain.Wallet, error) {
	query := walletSelect + ` WHERE public_key = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, publicKey), "get wallet by public key")
}

// TouchUsage stamps last_used_at.
func (r *WalletRepo) TouchUsage(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE user_wallets SET last_used_at = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("touch wallet usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", id)
	}
	return nil
}

const walletSelect = `SELECT id, user_id, public_key, secret_encrypted, provider, network, created_at, last_used_at
	FROM user_wallets`

func (r *WalletRepo) scanOne(row pgx.Row, op string) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.PublicKey, &w.SecretEncrypted,
		&w.Provider, &w.Network, &w.CreatedAt, &w.LastUsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}
