package postgres

import (
	"context"
	"errors"
	"fmt"

	"vinefi-traceability/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BottleRepo implements ports.BottleRepository.
type BottleRepo struct {
	pool Pool
}

// NewBottleRepo creates a new BottleRepo.
func NewBottleRepo(pool Pool) *BottleRepo {
	return &BottleRepo{pool: pool}
}

// GetByID fetches a bottle by its UUID.
func (r *BottleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bottle, error) {
	query := bottleSelect + ` WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get bottle by id")
}

// GetByQRHash fetches a bottle by the hash printed in its QR code.
func (r *BottleRepo) GetByQRHash(ctx context.Context, qrHash string) (*domain.Bottle, error) {
	query := bottleSelect + ` WHERE qr_code_hash = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, qrHash), "get bottle by qr hash")
}

// UpdateCurrentStatus advances the denormalized current_status column. The
// authoritative history lives in bottle_status_events.
func (r *BottleRepo) UpdateCurrentStatus(ctx context.Context, id uuid.UUID, status domain.BottleStatus) error {
	query := `UPDATE wine_bottles SET current_status = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update bottle status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bottle not found: %s", id)
	}
	return nil
}

const bottleSelect = `SELECT id, token_id, bottle_number, qr_code_hash, current_status, created_at
	FROM wine_bottles`

func (r *BottleRepo) scanOne(row pgx.Row, op string) (*domain.Bottle, error) {
	b := &domain.Bottle{}
	err := row.Scan(&b.ID, &b.TokenID, &b.BottleNumber, &b.QRCodeHash, &b.CurrentStatus, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}
