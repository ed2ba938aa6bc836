package dto

import (
	"vinefi-traceability/internal/core/domain"
)

// WalletResponse is the public view of a custodial wallet.
type WalletResponse struct {
	WalletID   string  `json:"wallet_id"`
	PublicKey  string  `json:"public_key"`
	Provider   string  `json:"wallet_provider"`
	Network    string  `json:"network"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

// SignPaymentRequest is the request body for payment signing.
type SignPaymentRequest struct {
	Destination string `json:"destination_address" binding:"required,stellar_account"`
	Amount      string `json:"amount" binding:"required,max=30"`
	AssetCode   string `json:"asset_code,omitempty" binding:"omitempty,min=1,max=12"`
	AssetIssuer string `json:"asset_issuer,omitempty" binding:"omitempty,stellar_account"`
	Memo        string `json:"memo,omitempty" binding:"omitempty,max=28"`
	Submit      bool   `json:"submit"`
}

// SignPaymentResponse is the response body for a signed payment.
type SignPaymentResponse struct {
	Submitted       bool   `json:"submitted"`
	TransactionHash string `json:"transaction_hash"`
	Ledger          int32  `json:"ledger,omitempty"`
	SignedXDR       string `json:"signed_xdr,omitempty"`
}

// WineMetadata is the request body shape of lot metadata.
type WineMetadata struct {
	LotID       string         `json:"lot_id" binding:"required,max=64"`
	WineryName  string         `json:"winery_name" binding:"required,max=100"`
	Region      string         `json:"region,omitempty" binding:"omitempty,max=100"`
	Country     string         `json:"country,omitempty" binding:"omitempty,max=100"`
	Vintage     int            `json:"vintage,omitempty" binding:"omitempty,gte=1800,lte=2200"`
	Varietal    string         `json:"varietal,omitempty" binding:"omitempty,max=100"`
	BottleCount int            `json:"bottle_count,omitempty" binding:"omitempty,gte=0"`
	Description *string        `json:"description,omitempty"`
	TokenCode   string         `json:"token_code,omitempty" binding:"omitempty,max=12"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// CreateTokenRequest is the request body for wine token creation.
type CreateTokenRequest struct {
	Name     string       `json:"name" binding:"required,min=1,max=100"`
	Symbol   string       `json:"symbol" binding:"required,min=1,max=12"`
	Decimal  *uint32      `json:"decimal,omitempty" binding:"omitempty,lte=18"`
	Metadata WineMetadata `json:"wine_metadata" binding:"required"`
}

// TokenResponse is the response body for a created token.
type TokenResponse struct {
	ID              string                 `json:"id"`
	TokenAddress    string                 `json:"token_address"`
	Name            string                 `json:"name"`
	Symbol          string                 `json:"symbol"`
	Decimal         uint32                 `json:"decimal"`
	Metadata        domain.WineLotMetadata `json:"wine_metadata"`
	TransactionHash *string                `json:"transaction_hash,omitempty"`
	CreatedAt       string                 `json:"created_at"`
}

// MintRequest is the request body for token minting.
type MintRequest struct {
	TokenAddress     string `json:"token_address" binding:"required,stellar_contract"`
	RecipientAddress string `json:"recipient_address" binding:"required,stellar_address"`
	Amount           string `json:"amount" binding:"required,max=42"`
}

// TransferRequest is the request body for token transfer.
type TransferRequest struct {
	TokenAddress string `json:"token_address" binding:"required,stellar_contract"`
	ToAddress    string `json:"to_address" binding:"required,stellar_address"`
	Amount       string `json:"amount" binding:"required,max=42"`
}

// TxHashResponse carries just a transaction hash.
type TxHashResponse struct {
	TransactionHash string `json:"transaction_hash"`
}

// GeoPoint is an optional coordinate pair on a status update.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
}

// LotStatusUpdateRequest is the request body for a lot status transition.
// Exactly one of token_id / token_address identifies the lot.
type LotStatusUpdateRequest struct {
	TokenID                *string        `json:"token_id,omitempty" binding:"omitempty,uuid"`
	TokenAddress           *string        `json:"token_address,omitempty" binding:"omitempty,stellar_contract"`
	Status                 string         `json:"status" binding:"required"`
	ExpectedPreviousStatus *string        `json:"expected_previous_status,omitempty"`
	Location               *string        `json:"location,omitempty" binding:"omitempty,max=200"`
	Coordinates            *GeoPoint      `json:"location_coordinates,omitempty"`
	HandlerName            string         `json:"handler_name,omitempty" binding:"omitempty,max=100"`
	Notes                  *string        `json:"notes,omitempty" binding:"omitempty,max=1000"`
	Metadata               map[string]any `json:"metadata,omitempty"`
}

// BottleStatusUpdateRequest is the request body for a bottle status
// transition.
type BottleStatusUpdateRequest struct {
	BottleID    string         `json:"bottle_id" binding:"required,uuid"`
	Status      string         `json:"status" binding:"required"`
	ScanType    *string        `json:"scan_type,omitempty"`
	Location    *string        `json:"location,omitempty" binding:"omitempty,max=200"`
	Coordinates *GeoPoint      `json:"location_coordinates,omitempty"`
	HandlerName string         `json:"handler_name,omitempty" binding:"omitempty,max=100"`
	Notes       *string        `json:"notes,omitempty" binding:"omitempty,max=1000"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TraceRequest is the request body for a POST trace lookup. GET lookups use
// the equivalent query parameters.
type TraceRequest struct {
	QRCode   *string `json:"qr_code,omitempty"`
	QRHash   *string `json:"qr_hash,omitempty"`
	BottleID *string `json:"bottle_id,omitempty" binding:"omitempty,uuid"`
}

// ToWalletResponse maps a domain wallet to its public view.
func ToWalletResponse(w *domain.Wallet) WalletResponse {
	resp := WalletResponse{
		WalletID:  w.ID.String(),
		PublicKey: w.PublicKey,
		Provider:  w.Provider,
		Network:   w.Network,
		CreatedAt: w.CreatedAt.UTC().Format(timeFormat),
	}
	if w.LastUsedAt != nil {
		s := w.LastUsedAt.UTC().Format(timeFormat)
		resp.LastUsedAt = &s
	}
	return resp
}

// ToTokenResponse maps a domain token to its public view.
func ToTokenResponse(t *domain.WineToken) TokenResponse {
	return TokenResponse{
		ID:              t.ID.String(),
		TokenAddress:    t.TokenAddress,
		Name:            t.Name,
		Symbol:          t.Symbol,
		Decimal:         t.Decimal,
		Metadata:        t.Metadata,
		TransactionHash: t.TransactionHash,
		CreatedAt:       t.CreatedAt.UTC().Format(timeFormat),
	}
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
