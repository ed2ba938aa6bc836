package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vinefi-traceability/internal/core/domain"

	"github.com/google/uuid"
)

// ActivityRepo implements ports.ActivityRepository over the append-only
// wallet_activity_logs table.
type ActivityRepo struct {
	pool Pool
}

// NewActivityRepo creates a new ActivityRepo.
func NewActivityRepo(pool Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

// Insert appends an activity entry.
func (r *ActivityRepo) Insert(ctx context.Context, a *domain.WalletActivity) error {
	var md []byte
	var err error
	if a.Metadata != nil {
		if md, err = json.Marshal(a.Metadata); err != nil {
			return fmt.Errorf("marshal activity metadata: %w", err)
		}
	}

	query := `INSERT INTO wallet_activity_logs (id, wallet_id, user_id, action, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.pool.Exec(ctx, query, a.ID, a.WalletID, a.UserID, a.Action, md, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet activity: %w", err)
	}
	return nil
}

// CountSince counts entries for a wallet+action newer than since. Backs the
// advisory rate limiter.
func (r *ActivityRepo) CountSince(ctx context.Context, walletID uuid.UUID, action string, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM wallet_activity_logs
		WHERE wallet_id = $1 AND action = $2 AND created_at > $3`

	var count int64
	if err := r.pool.QueryRow(ctx, query, walletID, action, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count wallet activity: %w", err)
	}
	return count, nil
}
