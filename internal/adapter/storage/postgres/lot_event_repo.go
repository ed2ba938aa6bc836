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

// LotEventRepo implements ports.LotEventRepository over the append-only
// wine_lot_status_events table.
type LotEventRepo struct {
	pool Pool
}

// NewLotEventRepo creates a new LotEventRepo.
func NewLotEventRepo(pool Pool) *LotEventRepo {
	return &LotEventRepo{pool: pool}
}

// Insert appends a status event. Rows are never updated or deleted.
func (r *LotEventRepo) Insert(ctx context.Context, e *domain.LotStatusEvent) error {
	md, coords, err := marshalEventJSON(e.Metadata, e.Coordinates)
	if err != nil {
		return err
	}

	query := `INSERT INTO wine_lot_status_events (id, token_id, status, previous_status, transaction_hash, location, location_coordinates, handler_name, handler_id, notes, metadata, event_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, query,
		e.ID, e.TokenID, e.Status, e.PreviousStatus, e.TransactionHash,
		e.Location, coords, e.HandlerName, e.HandlerID, e.Notes, md, e.EventTimestamp,
	)
	if err != nil {
		return fmt.Errorf("insert lot event: %w", err)
	}
	return nil
}

// Latest returns the newest event for a token, or nil when the history is
// empty.
func (r *LotEventRepo) Latest(ctx context.Context, tokenID uuid.UUID) (*domain.LotStatusEvent, error) {
	query := lotEventSelect + ` WHERE token_id = $1 ORDER BY event_timestamp DESC LIMIT 1`

	e, err := scanLotEvent(r.pool.QueryRow(ctx, query, tokenID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest lot event: %w", err)
	}
	return e, nil
}

// ListByToken returns the full history newest-first.
func (r *LotEventRepo) ListByToken(ctx context.Context, tokenID uuid.UUID) ([]domain.LotStatusEvent, error) {
	query := lotEventSelect + ` WHERE token_id = $1 ORDER BY event_timestamp DESC`

	rows, err := r.pool.Query(ctx, query, tokenID)
	if err != nil {
		return nil, fmt.Errorf("list lot events: %w", err)
	}
	defer rows.Close()

	var events []domain.LotStatusEvent
	for rows.Next() {
		e, err := scanLotEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lot events: %w", err)
	}
	return events, nil
}

const lotEventSelect = `SELECT id, token_id, status, previous_status, transaction_hash, location, location_coordinates, handler_name, handler_id, notes, metadata, event_timestamp
	FROM wine_lot_status_events`

func scanLotEvent(row pgx.Row) (*domain.LotStatusEvent, error) {
	e := &domain.LotStatusEvent{}
	var md, coords []byte
	err := row.Scan(
		&e.ID, &e.TokenID, &e.Status, &e.PreviousStatus, &e.TransactionHash,
		&e.Location, &coords, &e.HandlerName, &e.HandlerID, &e.Notes, &md, &e.EventTimestamp,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalEventJSON(md, coords, &e.Metadata, &e.Coordinates); err != nil {
		return nil, err
	}
	return e, nil
}

// marshalEventJSON encodes the optional JSONB columns shared by both event
// tables. Nil inputs stay NULL in the database.
func marshalEventJSON(metadata map[string]any, coordinates *domain.GeoPoint) ([]byte, []byte, error) {
	var md, coords []byte
	var err error
	if metadata != nil {
		if md, err = json.Marshal(metadata); err != nil {
			return nil, nil, fmt.Errorf("marshal event metadata: %w", err)
		}
	}
	if coordinates != nil {
		if coords, err = json.Marshal(coordinates); err != nil {
			return nil, nil, fmt.Errorf("marshal event coordinates: %w", err)
		}
	}
	return md, coords, nil
}

func unmarshalEventJSON(md, coords []byte, metadata *map[string]any, coordinates **domain.GeoPoint) error {
	if len(md) > 0 {
		if err := json.Unmarshal(md, metadata); err != nil {
			return fmt.Errorf("unmarshal event metadata: %w", err)
		}
	}
	if len(coords) > 0 {
		gp := &domain.GeoPoint{}
		if err := json.Unmarshal(coords, gp); err != nil {
			return fmt.Errorf("unmarshal event coordinates: %w", err)
		}
		*coordinates = gp
	}
	return nil
}
