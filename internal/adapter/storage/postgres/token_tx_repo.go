package postgres

import (
	"context"
	"fmt"

	"vinefi-traceability/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// TokenTransactionRepo implements ports.TokenTransactionRepository.
type TokenTransactionRepo struct {
	pool Pool
}

// NewTokenTransactionRepo creates a new TokenTransactionRepo.
func NewTokenTransactionRepo(pool Pool) *TokenTransactionRepo {
	return &TokenTransactionRepo{pool: pool}
}

// Create appends a movement mirror row inside a transaction.
func (r *TokenTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.TokenTransaction) error {
	query := `INSERT INTO wine_token_transactions (id, token_id, from_wallet_id, to_wallet_id, to_address, amount, transaction_hash, transaction_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.TokenID, t.FromWalletID, t.ToWalletID, t.ToAddress,
		t.Amount, t.TransactionHash, t.Type, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert token transaction: %w", err)
	}
	return nil
}
