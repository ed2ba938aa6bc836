package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vinefi-traceability/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// QRCodeRepo implements ports.QRCodeRepository.
type QRCodeRepo struct {
	pool Pool
}

// NewQRCodeRepo creates a new QRCodeRepo.
func NewQRCodeRepo(pool Pool) *QRCodeRepo {
	return &QRCodeRepo{pool: pool}
}

// GetByCode fetches a QR code by its printed value.
func (r *QRCodeRepo) GetByCode(ctx context.Context, code string) (*domain.QRCode, error) {
	query := qrSelect + ` WHERE qr_code = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, code), "get qr by code")
}

// GetByBottleID fetches the QR code attached to a bottle.
func (r *QRCodeRepo) GetByBottleID(ctx context.Context, bottleID uuid.UUID) (*domain.QRCode, error) {
	query := qrSelect + ` WHERE bottle_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, bottleID), "get qr by bottle")
}

// RecordScan bumps the scan counter and stamps who scanned last.
func (r *QRCodeRepo) RecordScan(ctx context.Context, id uuid.UUID, scannedBy *uuid.UUID, at time.Time) error {
	query := `UPDATE bottle_qr_codes
		SET scan_count = scan_count + 1, last_scanned_at = $1, last_scanned_by = $2
		WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, at, scannedBy, id)
	if err != nil {
		return fmt.Errorf("record qr scan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("qr code not found: %s", id)
	}
	return nil
}

const qrSelect = `SELECT id, bottle_id, qr_code, qr_code_hash, is_active, scan_count, last_scanned_at, last_scanned_by
	FROM bottle_qr_codes`

func (r *QRCodeRepo) scanOne(row pgx.Row, op string) (*domain.QRCode, error) {
	q := &domain.QRCode{}
	err := row.Scan(
		&q.ID, &q.BottleID, &q.Code, &q.CodeHash, &q.IsActive,
		&q.ScanCount, &q.LastScannedAt, &q.LastScannedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return q, nil
}
