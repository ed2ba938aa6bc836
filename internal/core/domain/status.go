package domain

import (
	"time"

	"github.com/google/uuid"
)

// LotStatus is the lifecycle stage of a wine lot.
type LotStatus string

const (
	LotStatusHarvested LotStatus = "harvested"
	LotStatusFermented LotStatus = "fermented"
	LotStatusAged      LotStatus = "aged"
	LotStatusBottled   LotStatus = "bottled"
	LotStatusShipped   LotStatus = "shipped"
	LotStatusAvailable LotStatus = "available"
	LotStatusSoldOut   LotStatus = "sold_out"
	LotStatusRecalled  LotStatus = "recalled"
)

// LotStatuses lists every valid lot status.
func LotStatuses() []LotStatus {
	return []LotStatus{
		LotStatusHarvested, LotStatusFermented, LotStatusAged, LotStatusBottled,
		LotStatusShipped, LotStatusAvailable, LotStatusSoldOut, LotStatusRecalled,
	}
}

// Valid reports whether s is a known lot status.
func (s LotStatus) Valid() bool {
	for _, v := range LotStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// BottleStatus is the lifecycle stage of an individual bottle.
type BottleStatus string

const (
	BottleStatusBottled     BottleStatus = "bottled"
	BottleStatusInWarehouse BottleStatus = "in_warehouse"
	BottleStatusInTransit   BottleStatus = "in_transit"
	BottleStatusDelivered   BottleStatus = "delivered"
	BottleStatusAtRetail    BottleStatus = "at_retail"
	BottleStatusSold        BottleStatus = "sold"
	BottleStatusScanned     BottleStatus = "scanned"
)

// BottleStatuses lists every valid bottle status.
func BottleStatuses() []BottleStatus {
	return []BottleStatus{
		BottleStatusBottled, BottleStatusInWarehouse, BottleStatusInTransit,
		BottleStatusDelivered, BottleStatusAtRetail, BottleStatusSold, BottleStatusScanned,
	}
}

// Valid reports whether s is a known bottle status.
func (s BottleStatus) Valid() bool {
	for _, v := range BottleStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// ScanType classifies who/what produced a bottle status event.
type ScanType string

const (
	ScanTypeWarehouseIn  ScanType = "warehouse_in"
	ScanTypeWarehouseOut ScanType = "warehouse_out"
	ScanTypeShipping     ScanType = "shipping"
	ScanTypeDelivery     ScanType = "delivery"
	ScanTypeRetail       ScanType = "retail_scan"
	ScanTypeConsumer     ScanType = "consumer_scan"
	ScanTypeVerification ScanType = "verification"
)

// Valid reports whether s is a known scan type.
func (s ScanType) Valid() bool {
	switch s {
	case ScanTypeWarehouseIn, ScanTypeWarehouseOut, ScanTypeShipping,
		ScanTypeDelivery, ScanTypeRetail, ScanTypeConsumer, ScanTypeVerification:
		return true
	}
	return false
}

// IsConsumer reports whether the scan bypasses the admin-authorization check.
// Public verification scans are always allowed to append.
func (s ScanType) IsConsumer() bool {
	return s == ScanTypeConsumer || s == ScanTypeVerification
}

// GeoPoint is an optional coordinate pair attached to a status event.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LotStatusEvent is one immutable entry in a lot's status history.
// Events are append-only; the current status of a lot is the most recent
// event by timestamp.
type LotStatusEvent struct {
	ID              uuid.UUID      `json:"id"`
	TokenID         uuid.UUID      `json:"token_id"`
	Status          LotStatus      `json:"status"`
	PreviousStatus  *LotStatus     `json:"previous_status"`
	TransactionHash *string        `json:"transaction_hash"` // nil when the chain write failed
	Location        *string        `json:"location,omitempty"`
	Coordinates     *GeoPoint      `json:"location_coordinates,omitempty"`
	HandlerName     string         `json:"handler_name"`
	HandlerID       *uuid.UUID     `json:"handler_id,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	EventTimestamp  time.Time      `json:"event_timestamp"`
}

// BottleStatusEvent is one immutable entry in a bottle's status history.
type BottleStatusEvent struct {
	ID              uuid.UUID      `json:"id"`
	BottleID        uuid.UUID      `json:"bottle_id"`
	Status          BottleStatus   `json:"status"`
	PreviousStatus  *BottleStatus  `json:"previous_status"`
	TransactionHash *string        `json:"transaction_hash"`
	Location        *string        `json:"location,omitempty"`
	Coordinates     *GeoPoint      `json:"location_coordinates,omitempty"`
	HandlerName     string         `json:"handler_name"`
	HandlerID       *uuid.UUID     `json:"handler_id,omitempty"`
	ScanType        *ScanType      `json:"scan_type,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	EventTimestamp  time.Time      `json:"event_timestamp"`
}
