package postgres

import (
	"context"
	"errors"
	"fmt"

	"vinefi-traceability/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// HoldingRepo implements ports.HoldingRepository. Balances are NUMERIC in
// the database and decimal strings in Go.
type HoldingRepo struct {
	pool Pool
}

// NewHoldingRepo creates a new HoldingRepo.
func NewHoldingRepo(pool Pool) *HoldingRepo {
	return &HoldingRepo{pool: pool}
}

// Get fetches a wallet's holding of a token.
func (r *HoldingRepo) Get(ctx context.Context, walletID, tokenID uuid.UUID) (*domain.TokenHolding, error) {
	query := `SELECT id, user_id, wallet_id, token_id, balance::text, updated_at
		FROM wine_token_holdings WHERE wallet_id = $1 AND token_id = $2`

	h := &domain.TokenHolding{}
	err := r.pool.QueryRow(ctx, query, walletID, tokenID).Scan(
		&h.ID, &h.UserID, &h.WalletID, &h.TokenID, &h.Balance, &h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get holding: %w", err)
	}
	return h, nil
}

// GetForUpdate fetches a holding inside tx with a row lock, so two
// concurrent movements for the same wallet and token cannot both read the
// stale balance.
func (r *HoldingRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID, tokenID uuid.UUID) (*domain.TokenHolding, error) {
	query := `SELECT id, user_id, wallet_id, token_id, balance::text, updated_at
		FROM wine_token_holdings WHERE wallet_id = $1 AND token_id = $2 FOR UPDATE`

	h := &domain.TokenHolding{}
	err := tx.QueryRow(ctx, query, walletID, tokenID).Scan(
		&h.ID, &h.UserID, &h.WalletID, &h.TokenID, &h.Balance, &h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get holding for update: %w", err)
	}
	return h, nil
}

// Upsert writes a holding inside a transaction so it commits together with
// its movement row.
func (r *HoldingRepo) Upsert(ctx context.Context, tx pgx.Tx, h *domain.TokenHolding) error {
	query := `INSERT INTO wine_token_holdings (id, user_id, wallet_id, token_id, balance, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		ON CONFLICT (wallet_id, token_id)
		DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query, h.ID, h.UserID, h.WalletID, h.TokenID, h.Balance, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}
