package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bottle is an individually tracked unit within a lot.
type Bottle struct {
	ID            uuid.UUID    `json:"id"`
	TokenID       uuid.UUID    `json:"token_id"`
	BottleNumber  int          `json:"bottle_number"`
	QRCodeHash    string       `json:"qr_code_hash"`
	CurrentStatus BottleStatus `json:"current_status"`
	CreatedAt     time.Time    `json:"created_at"`
}

// QRCode is the scannable identifier printed on a bottle. Scan counters are
// advanced as a side effect of scan-type status events.
type QRCode struct {
	ID            uuid.UUID  `json:"id"`
	BottleID      uuid.UUID  `json:"bottle_id"`
	Code          string     `json:"qr_code"`
	CodeHash      string     `json:"qr_code_hash"`
	IsActive      bool       `json:"is_active"`
	ScanCount     int        `json:"scan_count"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
	LastScannedBy *uuid.UUID `json:"last_scanned_by,omitempty"`
}

// Traceability is the public view resolved from a QR scan: the bottle, its
// lot token, and the bottle's full status history.
type Traceability struct {
	Bottle  Bottle              `json:"bottle"`
	Token   WineToken           `json:"token"`
	QR      *QRCode             `json:"qr_code,omitempty"`
	History []BottleStatusEvent `json:"history"`
}
