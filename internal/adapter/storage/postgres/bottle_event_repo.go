package postgres

import (
	"context"
	"fmt"

	"vinefi-traceability/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BottleEventRepo implements ports.BottleEventRepository over the
// append-only bottle_status_events table.
type BottleEventRepo struct {
	pool Pool
}

// NewBottleEventRepo creates a new BottleEventRepo.
func NewBottleEventRepo(pool Pool) *BottleEventRepo {
	return &BottleEventRepo{pool: pool}
}

// Insert appends a bottle status event.
func (r *BottleEventRepo) Insert(ctx context.Context, e *domain.BottleStatusEvent) error {
	md, coords, err := marshalEventJSON(e.Metadata, e.Coordinates)
	if err != nil {
		return err
	}

	query := `INSERT INTO bottle_status_events (id, bottle_id, status, previous_status, transaction_hash, location, location_coordinates, handler_name, handler_id, scan_type, notes, metadata, event_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.pool.Exec(ctx, query,
		e.ID, e.BottleID, e.Status, e.PreviousStatus, e.TransactionHash,
		e.Location, coords, e.HandlerName, e.HandlerID, e.ScanType, e.Notes, md, e.EventTimestamp,
	)
	if err != nil {
		return fmt.Errorf("insert bottle event: %w", err)
	}
	return nil
}

// ListByBottle returns the bottle's history newest-first.
func (r *BottleEventRepo) ListByBottle(ctx context.Context, bottleID uuid.UUID) ([]domain.BottleStatusEvent, error) {
	query := `SELECT id, bottle_id, status, previous_status, transaction_hash, location, location_coordinates, handler_name, handler_id, scan_type, notes, metadata, event_timestamp
		FROM bottle_status_events WHERE bottle_id = $1 ORDER BY event_timestamp DESC`

	rows, err := r.pool.Query(ctx, query, bottleID)
	if err != nil {
		return nil, fmt.Errorf("list bottle events: %w", err)
	}
	defer rows.Close()

	var events []domain.BottleStatusEvent
	for rows.Next() {
		e, err := scanBottleEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bottle event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bottle events: %w", err)
	}
	return events, nil
}

func scanBottleEvent(row pgx.Row) (*domain.BottleStatusEvent, error) {
	e := &domain.BottleStatusEvent{}
	var md, coords []byte
	err := row.Scan(
		&e.ID, &e.BottleID, &e.Status, &e.PreviousStatus, &e.TransactionHash,
		&e.Location, &coords, &e.HandlerName, &e.HandlerID, &e.ScanType, &e.Notes, &md, &e.EventTimestamp,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalEventJSON(md, coords, &e.Metadata, &e.Coordinates); err != nil {
		return nil, err
	}
	return e, nil
}
