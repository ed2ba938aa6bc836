package service

import (
	"context"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stellar/go/amount"
	"github.com/stellar/go/strkey"
)

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	walletSvc ports.WalletService
	rateLimit ports.RateLimitService
	ledger    ports.LedgerGateway
	perMinute int
	perHour   int
	log       zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	walletSvc ports.WalletService,
	rateLimit ports.RateLimitService,
	ledger ports.LedgerGateway,
	perMinute, perHour int,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		walletSvc: walletSvc,
		rateLimit: rateLimit,
		ledger:    ledger,
		perMinute: perMinute,
		perHour:   perHour,
		log:       log,
	}
}

// SignPayment signs a payment with the user's custodial key and, when
// requested, submits it to the network.
func (s *PaymentServiceImpl) SignPayment(ctx context.Context, req ports.SignPaymentRequest) (*ports.SignPaymentResult, error) {
	if !strkey.IsValidEd25519PublicKey(req.Destination) {
		return nil, apperror.ErrInvalidAddress()
	}
	if v, err := amount.ParseInt64(req.Amount); err != nil || v <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.AssetCode != "" && !strkey.IsValidEd25519PublicKey(req.AssetIssuer) {
		return nil, apperror.ErrInvalidAddress()
	}

	wallet, seed, err := s.walletSvc.GetOrCreate(ctx, req.UserID, ports.WalletOptions{WithSecret: true, Fund: true})
	if err != nil {
		return nil, err
	}

	if err := s.rateLimit.Enforce(ctx, wallet.ID, domain.ActionSignPayment, s.perMinute, s.perHour); err != nil {
		return nil, err
	}

	res, err := s.ledger.SubmitPayment(ctx, ports.LedgerPayment{
		SignerSeed:  seed,
		Destination: req.Destination,
		Amount:      req.Amount,
		AssetCode:   req.AssetCode,
		AssetIssuer: req.AssetIssuer,
		Memo:        req.Memo,
		Submit:      req.Submit,
	})
	if err != nil {
		return nil, err
	}

	s.walletSvc.TouchUsage(ctx, wallet.ID)
	s.walletSvc.LogActivity(ctx, wallet.ID, req.UserID, domain.ActionSignPayment, map[string]any{
		"destination": req.Destination,
		"amount":      req.Amount,
		"submitted":   res.Submitted,
	})

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("destination", req.Destination).
		Bool("submitted", res.Submitted).
		Str("hash", res.Hash).
		Msg("payment signed")

	return &ports.SignPaymentResult{
		Submitted: res.Submitted,
		Hash:      res.Hash,
		Ledger:    res.Ledger,
		SignedXDR: res.SignedXDR,
	}, nil
}
