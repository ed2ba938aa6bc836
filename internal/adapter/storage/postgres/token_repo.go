package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"vinefi-traceability/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WineTokenRepo implements ports.WineTokenRepository.
type WineTokenRepo struct {
	pool Pool
}

// NewWineTokenRepo creates a new WineTokenRepo.
func NewWineTokenRepo(pool Pool) *WineTokenRepo {
	return &WineTokenRepo{pool: pool}
}

// Create inserts a token mirror row. Metadata is stored as JSONB.
func (r *WineTokenRepo) Create(ctx context.Context, t *domain.WineToken) error {
	md, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal wine metadata: %w", err)
	}

	query := `INSERT INTO wine_tokens (id, token_address, name, symbol, decimal, wine_metadata, transaction_hash, admin_wallet_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.pool.Exec(ctx, query,
		t.ID, t.TokenAddress, t.Name, t.Symbol, t.Decimal,
		md, t.TransactionHash, t.AdminWalletID, t.CreatedBy, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wine token: %w", err)
	}
	return nil
}

// GetByID fetches a token by its UUID.
func (r *WineTokenRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WineToken, error) {
	query := tokenSelect + ` WHERE id = $1`
	return scanToken(r.pool.QueryRow(ctx, query, id), "get token by id")
}

// GetByAddress fetches a token by its contract address.
func (r *WineTokenRepo) GetByAddress(ctx context.Context, address string) (*domain.WineToken, error) {
	query := tokenSelect + ` WHERE token_address = $1`
	return scanToken(r.pool.QueryRow(ctx, query, address), "get token by address")
}

const tokenSelect = `SELECT id, token_address, name, symbol, decimal, wine_metadata, transaction_hash, admin_wallet_id, created_by, created_at
	FROM wine_tokens`

func scanToken(row pgx.Row, op string) (*domain.WineToken, error) {
	t := &domain.WineToken{}
	var md []byte
	err := row.Scan(
		&t.ID, &t.TokenAddress, &t.Name, &t.Symbol, &t.Decimal,
		&md, &t.TransactionHash, &t.AdminWalletID, &t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(md) > 0 {
		if err := json.Unmarshal(md, &t.Metadata); err != nil {
			return nil, fmt.Errorf("%s: unmarshal wine metadata: %w", op, err)
		}
	}
	return t, nil
}
