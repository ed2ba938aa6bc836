package service

import (
	"context"
	"fmt"
	"time"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StatusServiceImpl implements ports.StatusService. Status history is
// append-only: the database row is the durable record, the on-chain write
// is a best-effort proof whose hash enriches the row when it lands.
type StatusServiceImpl struct {
	tokenRepo       ports.WineTokenRepository
	lotEventRepo    ports.LotEventRepository
	bottleRepo      ports.BottleRepository
	bottleEventRepo ports.BottleEventRepository
	qrRepo          ports.QRCodeRepository
	walletSvc       ports.WalletService
	rateLimit       ports.RateLimitService
	ledger          ports.LedgerGateway
	perMinute       int
	perHour         int
	log             zerolog.Logger
}

// NewStatusService creates a new StatusServiceImpl.
func NewStatusService(
	tokenRepo ports.WineTokenRepository,
	lotEventRepo ports.LotEventRepository,
	bottleRepo ports.BottleRepository,
	bottleEventRepo ports.BottleEventRepository,
	qrRepo ports.QRCodeRepository,
	walletSvc ports.WalletService,
	rateLimit ports.RateLimitService,
	ledger ports.LedgerGateway,
	perMinute, perHour int,
	log zerolog.Logger,
) *StatusServiceImpl {
	return &StatusServiceImpl{
		tokenRepo:       tokenRepo,
		lotEventRepo:    lotEventRepo,
		bottleRepo:      bottleRepo,
		bottleEventRepo: bottleEventRepo,
		qrRepo:          qrRepo,
		walletSvc:       walletSvc,
		rateLimit:       rateLimit,
		ledger:          ledger,
		perMinute:       perMinute,
		perHour:         perHour,
		log:             log,
	}
}

// UpdateLotStatus appends a status event for a lot token. When
// ExpectedPreviousStatus is set the append is a compare-and-swap against the
// current head of the history; otherwise last writer wins.
func (s *StatusServiceImpl) UpdateLotStatus(ctx context.Context, req ports.LotStatusUpdateRequest) (*domain.LotStatusEvent, error) {
	if !req.Status.Valid() {
		return nil, apperror.ErrInvalidStatus(string(req.Status))
	}

	token, err := s.resolveToken(ctx, req.TokenID, req.TokenAddress)
	if err != nil {
		return nil, err
	}
	if token.CreatedBy != req.UserID {
		return nil, apperror.ErrNotTokenAdmin()
	}

	wallet, seed, err := s.walletSvc.GetOrCreate(ctx, req.UserID, ports.WalletOptions{WithSecret: true, Fund: true})
	if err != nil {
		return nil, err
	}

	if err := s.rateLimit.Enforce(ctx, wallet.ID, domain.ActionLotStatusUpdate, s.perMinute, s.perHour); err != nil {
		return nil, err
	}

	latest, err := s.lotEventRepo.Latest(ctx, token.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load latest lot event: %w", err))
	}

	var previous *domain.LotStatus
	if latest != nil {
		prev := latest.Status
		previous = &prev
	}

	if req.ExpectedPreviousStatus != nil {
		actual := domain.LotStatus("")
		if previous != nil {
			actual = *previous
		}
		if actual != *req.ExpectedPreviousStatus {
			return nil, apperror.ErrStatusConflict(string(*req.ExpectedPreviousStatus), string(actual))
		}
	}

	// Chain write goes first so the event row can carry its hash. Failure
	// leaves the hash nil; the history row still lands.
	var txHash *string
	var prevStr *string
	if previous != nil {
		ps := string(*previous)
		prevStr = &ps
	}
	hash, err := s.ledger.SetLotStatus(ctx, token.TokenAddress, seed, string(req.Status), req.Location, prevStr)
	if err != nil {
		s.log.Warn().Err(err).
			Str("token_address", token.TokenAddress).
			Str("status", string(req.Status)).
			Msg("on-chain status write failed, recording event without proof")
	} else {
		txHash = &hash
	}

	event := &domain.LotStatusEvent{
		ID:              uuid.New(),
		TokenID:         token.ID,
		Status:          req.Status,
		PreviousStatus:  previous,
		TransactionHash: txHash,
		Location:        req.Location,
		Coordinates:     req.Coordinates,
		HandlerName:     req.HandlerName,
		HandlerID:       &req.UserID,
		Notes:           req.Notes,
		Metadata:        req.Metadata,
		EventTimestamp:  time.Now().UTC(),
	}
	if err := s.lotEventRepo.Insert(ctx, event); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("insert lot event: %w", err))
	}

	s.walletSvc.TouchUsage(ctx, wallet.ID)
	s.walletSvc.LogActivity(ctx, wallet.ID, req.UserID, domain.ActionLotStatusUpdate, map[string]any{
		"token_address": token.TokenAddress,
		"status":        string(req.Status),
		"on_chain":      txHash != nil,
	})

	s.log.Info().
		Str("token_id", token.ID.String()).
		Str("status", string(req.Status)).
		Bool("on_chain", txHash != nil).
		Msg("lot status updated")

	return event, nil
}

// UpdateBottleStatus appends a status event for a single bottle and advances
// its current_status. Consumer and verification scans bypass the
// admin-authorization check; everything else requires the lot's creator.
func (s *StatusServiceImpl) UpdateBottleStatus(ctx context.Context, req ports.BottleStatusUpdateRequest) (*domain.BottleStatusEvent, error) {
	if !req.Status.Valid() {
		return nil, apperror.ErrInvalidStatus(string(req.Status))
	}
	if req.ScanType != nil && !req.ScanType.Valid() {
		return nil, apperror.ErrInvalidScanType(string(*req.ScanType))
	}

	bottle, err := s.bottleRepo.GetByID(ctx, req.BottleID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load bottle: %w", err))
	}
	if bottle == nil {
		return nil, apperror.ErrNotFound("bottle")
	}

	consumerScan := req.ScanType != nil && req.ScanType.IsConsumer()
	if !consumerScan {
		token, err := s.tokenRepo.GetByID(ctx, bottle.TokenID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("load token: %w", err))
		}
		if token == nil {
			return nil, apperror.ErrNotFound("wine token")
		}
		if token.CreatedBy != req.UserID {
			return nil, apperror.ErrNotTokenAdmin()
		}
	}

	previous := bottle.CurrentStatus
	var handlerID *uuid.UUID
	if req.UserID != uuid.Nil {
		handlerID = &req.UserID
	}

	event := &domain.BottleStatusEvent{
		ID:             uuid.New(),
		BottleID:       bottle.ID,
		Status:         req.Status,
		PreviousStatus: &previous,
		Location:       req.Location,
		Coordinates:    req.Coordinates,
		HandlerName:    req.HandlerName,
		HandlerID:      handlerID,
		ScanType:       req.ScanType,
		Notes:          req.Notes,
		Metadata:       req.Metadata,
		EventTimestamp: time.Now().UTC(),
	}
	if err := s.bottleEventRepo.Insert(ctx, event); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("insert bottle event: %w", err))
	}

	if err := s.bottleRepo.UpdateCurrentStatus(ctx, bottle.ID, req.Status); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update bottle status: %w", err))
	}

	// Scan-type events bump the QR counter. Best-effort: the counter is a
	// statistic, not a record.
	if req.ScanType != nil {
		s.recordScan(ctx, bottle.ID, handlerID)
	}

	return event, nil
}

// LotHistory returns the full status history for a lot, newest first.
func (s *StatusServiceImpl) LotHistory(ctx context.Context, tokenID *uuid.UUID, tokenAddress *string) ([]domain.LotStatusEvent, error) {
	token, err := s.resolveToken(ctx, tokenID, tokenAddress)
	if err != nil {
		return nil, err
	}
	events, err := s.lotEventRepo.ListByToken(ctx, token.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list lot events: %w", err))
	}
	return events, nil
}

// Traceability resolves a public scan to the bottle's provenance view.
// Read-only: the scan counter advances through bottle status events, never
// through lookups.
func (s *StatusServiceImpl) Traceability(ctx context.Context, qrCode, qrHash *string, bottleID *uuid.UUID) (*domain.Traceability, error) {
	var bottle *domain.Bottle
	var qr *domain.QRCode
	var err error

	switch {
	case qrCode != nil:
		qr, err = s.qrRepo.GetByCode(ctx, *qrCode)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("load qr code: %w", err))
		}
		if qr == nil || !qr.IsActive {
			return nil, apperror.ErrNotFound("qr code")
		}
		bottle, err = s.bottleRepo.GetByID(ctx, qr.BottleID)
	case qrHash != nil:
		bottle, err = s.bottleRepo.GetByQRHash(ctx, *qrHash)
	case bottleID != nil:
		bottle, err = s.bottleRepo.GetByID(ctx, *bottleID)
	default:
		return nil, apperror.Validation("one of qr_code, qr_hash, or bottle_id is required")
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load bottle: %w", err))
	}
	if bottle == nil {
		return nil, apperror.ErrNotFound("bottle")
	}

	if qr == nil {
		qr, err = s.qrRepo.GetByBottleID(ctx, bottle.ID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("load qr code: %w", err))
		}
	}

	token, err := s.tokenRepo.GetByID(ctx, bottle.TokenID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load token: %w", err))
	}
	if token == nil {
		return nil, apperror.ErrNotFound("wine token")
	}

	history, err := s.bottleEventRepo.ListByBottle(ctx, bottle.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list bottle events: %w", err))
	}

	return &domain.Traceability{
		Bottle:  *bottle,
		Token:   *token,
		QR:      qr,
		History: history,
	}, nil
}

func (s *StatusServiceImpl) resolveToken(ctx context.Context, tokenID *uuid.UUID, tokenAddress *string) (*domain.WineToken, error) {
	var token *domain.WineToken
	var err error
	switch {
	case tokenID != nil:
		token, err = s.tokenRepo.GetByID(ctx, *tokenID)
	case tokenAddress != nil:
		token, err = s.tokenRepo.GetByAddress(ctx, *tokenAddress)
	default:
		return nil, apperror.Validation("one of token_id or token_address is required")
	}
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load token: %w", err))
	}
	if token == nil {
		return nil, apperror.ErrNotFound("wine token")
	}
	return token, nil
}

func (s *StatusServiceImpl) recordScan(ctx context.Context, bottleID uuid.UUID, scannedBy *uuid.UUID) {
	qr, err := s.qrRepo.GetByBottleID(ctx, bottleID)
	if err != nil || qr == nil {
		if err != nil {
			s.log.Warn().Err(err).Str("bottle_id", bottleID.String()).Msg("failed to load qr for scan counter")
		}
		return
	}
	if err := s.qrRepo.RecordScan(ctx, qr.ID, scannedBy, time.Now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("qr_id", qr.ID.String()).Msg("failed to bump scan counter")
	}
}
