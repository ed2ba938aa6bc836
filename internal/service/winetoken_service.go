package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stellar/go/strkey"
)

// maxI128 is the largest amount the token contracts accept. Amounts are
// carried as decimal strings end to end; they never fit reliably in int64.
var maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))

// WineTokenServiceImpl implements ports.WineTokenService. Every operation
// invokes the ledger first, then mirrors the result into the relational
// store inside one database transaction.
type WineTokenServiceImpl struct {
	tokenRepo       ports.WineTokenRepository
	holdingRepo     ports.HoldingRepository
	tokenTxRepo     ports.TokenTransactionRepository
	walletRepo      ports.WalletRepository
	walletSvc       ports.WalletService
	rateLimit       ports.RateLimitService
	ledger          ports.LedgerGateway
	transactor      ports.DBTransactor
	factoryContract string
	perMinute       int
	perHour         int
	log             zerolog.Logger
}

// NewWineTokenService creates a new WineTokenServiceImpl.
func NewWineTokenService(
	tokenRepo ports.WineTokenRepository,
	holdingRepo ports.HoldingRepository,
	tokenTxRepo ports.TokenTransactionRepository,
	walletRepo ports.WalletRepository,
	walletSvc ports.WalletService,
	rateLimit ports.RateLimitService,
	ledger ports.LedgerGateway,
	transactor ports.DBTransactor,
	factoryContract string,
	perMinute, perHour int,
	log zerolog.Logger,
) *WineTokenServiceImpl {
	return &WineTokenServiceImpl{
		tokenRepo:       tokenRepo,
		holdingRepo:     holdingRepo,
		tokenTxRepo:     tokenTxRepo,
		walletRepo:      walletRepo,
		walletSvc:       walletSvc,
		rateLimit:       rateLimit,
		ledger:          ledger,
		transactor:      transactor,
		factoryContract: factoryContract,
		perMinute:       perMinute,
		perHour:         perHour,
		log:             log,
	}
}

// Create deploys a new wine lot token through the factory contract and
// mirrors it. The contract deploy is the source of the token address, so
// here the ledger call is mandatory, not best-effort.
func (s *WineTokenServiceImpl) Create(ctx context.Context, req ports.CreateTokenRequest) (*domain.WineToken, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Symbol) == "" {
		return nil, apperror.Validation("name and symbol are required")
	}
	if strings.TrimSpace(req.Metadata.LotID) == "" || strings.TrimSpace(req.Metadata.WineryName) == "" {
		return nil, apperror.Validation("wine metadata requires lot_id and winery_name")
	}
	if req.Decimal == 0 {
		req.Decimal = 7
	}

	wallet, seed, err := s.walletSvc.GetOrCreate(ctx, req.UserID, ports.WalletOptions{WithSecret: true, Fund: true})
	if err != nil {
		return nil, err
	}

	if err := s.rateLimit.Enforce(ctx, wallet.ID, domain.ActionTokenCreate, s.perMinute, s.perHour); err != nil {
		return nil, err
	}

	hash, tokenAddress, err := s.ledger.CreateWineToken(ctx, s.factoryContract, seed, wallet.PublicKey, req.Decimal, req.Name, req.Symbol, req.Metadata)
	if err != nil {
		return nil, err
	}

	token := &domain.WineToken{
		ID:              uuid.New(),
		TokenAddress:    tokenAddress,
		Name:            req.Name,
		Symbol:          req.Symbol,
		Decimal:         req.Decimal,
		Metadata:        req.Metadata,
		TransactionHash: &hash,
		AdminWalletID:   &wallet.ID,
		CreatedBy:       req.UserID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		// The contract exists on-chain; losing the mirror row is recoverable
		// but must be loud.
		s.log.Error().Err(err).
			Str("token_address", tokenAddress).
			Str("tx_hash", hash).
			Msg("token deployed on-chain but mirror insert failed")
		return nil, apperror.ErrDatabaseError(fmt.Errorf("mirror token: %w", err))
	}

	s.walletSvc.TouchUsage(ctx, wallet.ID)
	s.walletSvc.LogActivity(ctx, wallet.ID, req.UserID, domain.ActionTokenCreate, map[string]any{
		"token_address": tokenAddress,
		"symbol":        req.Symbol,
	})

	s.log.Info().
		Str("token_id", token.ID.String()).
		Str("token_address", tokenAddress).
		Str("lot_id", req.Metadata.LotID).
		Msg("wine token created")

	return token, nil
}

// Mint mints tokens to a recipient address. Only the creator of the token
// may mint. Returns the ledger transaction hash.
func (s *WineTokenServiceImpl) Mint(ctx context.Context, req ports.MintRequest) (string, error) {
	amt, err := parseTokenAmount(req.Amount)
	if err != nil {
		return "", err
	}
	if !strkey.IsValidEd25519PublicKey(req.RecipientAddress) && !strkey.IsValidContractAddress(req.RecipientAddress) {
		return "", apperror.ErrInvalidAddress()
	}

	token, err := s.tokenRepo.GetByAddress(ctx, req.TokenAddress)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("load token: %w", err))
	}
	if token == nil {
		return "", apperror.ErrNotFound("wine token")
	}
	if token.CreatedBy != req.UserID {
		return "", apperror.ErrNotTokenAdmin()
	}

	wallet, seed, err := s.walletSvc.GetOrCreate(ctx, req.UserID, ports.WalletOptions{WithSecret: true, Fund: true})
	if err != nil {
		return "", err
	}

	if err := s.rateLimit.Enforce(ctx, wallet.ID, domain.ActionTokenMint, s.perMinute, s.perHour); err != nil {
		return "", err
	}

	hash, err := s.ledger.MintWineTokens(ctx, req.TokenAddress, seed, req.RecipientAddress, amt.String())
	if err != nil {
		return "", err
	}

	if err := s.mirrorMovement(ctx, token.ID, nil, req.RecipientAddress, amt, hash, domain.TokenTransactionMint); err != nil {
		s.log.Error().Err(err).Str("tx_hash", hash).Msg("mint confirmed on-chain but mirror update failed")
		return "", err
	}

	s.walletSvc.TouchUsage(ctx, wallet.ID)
	s.walletSvc.LogActivity(ctx, wallet.ID, req.UserID, domain.ActionTokenMint, map[string]any{
		"token_address": req.TokenAddress,
		"recipient":     req.RecipientAddress,
		"amount":        amt.String(),
	})

	return hash, nil
}

// Transfer moves tokens from the caller's custodial wallet to another
// address. Returns the ledger transaction hash.
func (s *WineTokenServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (string, error) {
	amt, err := parseTokenAmount(req.Amount)
	if err != nil {
		return "", err
	}
	if !strkey.IsValidEd25519PublicKey(req.ToAddress) && !strkey.IsValidContractAddress(req.ToAddress) {
		return "", apperror.ErrInvalidAddress()
	}

	token, err := s.tokenRepo.GetByAddress(ctx, req.TokenAddress)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("load token: %w", err))
	}
	if token == nil {
		return "", apperror.ErrNotFound("wine token")
	}

	wallet, seed, err := s.walletSvc.GetOrCreate(ctx, req.UserID, ports.WalletOptions{WithSecret: true, Fund: true})
	if err != nil {
		return "", err
	}

	if err := s.rateLimit.Enforce(ctx, wallet.ID, domain.ActionTokenTransfer, s.perMinute, s.perHour); err != nil {
		return "", err
	}

	hash, err := s.ledger.TransferWineTokens(ctx, req.TokenAddress, seed, wallet.PublicKey, req.ToAddress, amt.String())
	if err != nil {
		return "", err
	}

	if err := s.mirrorMovement(ctx, token.ID, wallet, req.ToAddress, amt, hash, domain.TokenTransactionTransfer); err != nil {
		s.log.Error().Err(err).Str("tx_hash", hash).Msg("transfer confirmed on-chain but mirror update failed")
		return "", err
	}

	s.walletSvc.TouchUsage(ctx, wallet.ID)
	s.walletSvc.LogActivity(ctx, wallet.ID, req.UserID, domain.ActionTokenTransfer, map[string]any{
		"token_address": req.TokenAddress,
		"to":            req.ToAddress,
		"amount":        amt.String(),
	})

	return hash, nil
}

// mirrorMovement records a confirmed on-chain movement: the transaction row
// always, holding rows for any addresses that map to custodial wallets. One
// database transaction so balances and the log stay consistent.
func (s *WineTokenServiceImpl) mirrorMovement(ctx context.Context, tokenID uuid.UUID, from *domain.Wallet, toAddress string, amt *big.Int, hash string, kind domain.TokenTransactionType) error {
	toWallet, err := s.walletRepo.GetByPublicKey(ctx, toAddress)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("resolve recipient wallet: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	if from != nil {
		if err := s.adjustHolding(ctx, dbTx, from, tokenID, new(big.Int).Neg(amt), now); err != nil {
			return err
		}
	}
	if toWallet != nil {
		if err := s.adjustHolding(ctx, dbTx, toWallet, tokenID, amt, now); err != nil {
			return err
		}
	}

	var fromWalletID, toWalletID *uuid.UUID
	if from != nil {
		fromWalletID = &from.ID
	}
	if toWallet != nil {
		toWalletID = &toWallet.ID
	}
	tx := &domain.TokenTransaction{
		ID:              uuid.New(),
		TokenID:         tokenID,
		FromWalletID:    fromWalletID,
		ToWalletID:      toWalletID,
		ToAddress:       toAddress,
		Amount:          amt.String(),
		TransactionHash: &hash,
		Type:            kind,
		CreatedAt:       now,
	}
	if err := s.tokenTxRepo.Create(ctx, dbTx, tx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("record token transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *WineTokenServiceImpl) adjustHolding(ctx context.Context, dbTx pgx.Tx, wallet *domain.Wallet, tokenID uuid.UUID, delta *big.Int, now time.Time) error {
	// Row-locked read inside the movement transaction: concurrent mints or
	// transfers for the same wallet and token serialize here.
	holding, err := s.holdingRepo.GetForUpdate(ctx, dbTx, wallet.ID, tokenID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("load holding: %w", err))
	}

	balance := new(big.Int)
	if holding == nil {
		holding = &domain.TokenHolding{
			ID:       uuid.New(),
			UserID:   wallet.UserID,
			WalletID: wallet.ID,
			TokenID:  tokenID,
		}
	} else {
		if _, ok := balance.SetString(holding.Balance, 10); !ok {
			return apperror.InternalError(fmt.Errorf("corrupt holding balance %q", holding.Balance))
		}
	}

	balance.Add(balance, delta)
	if balance.Sign() < 0 {
		// The mirror lagged behind the chain; clamp rather than store a
		// negative balance the chain cannot represent.
		s.log.Warn().
			Str("wallet_id", wallet.ID.String()).
			Str("token_id", tokenID.String()).
			Msg("holding mirror would go negative, clamping to zero")
		balance.SetInt64(0)
	}

	holding.Balance = balance.String()
	holding.UpdatedAt = now
	if err := s.holdingRepo.Upsert(ctx, dbTx, holding); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("upsert holding: %w", err))
	}
	return nil
}

// parseTokenAmount validates a decimal string amount for the 128-bit token
// contracts: base-10 integer, strictly positive, within i128.
func parseTokenAmount(s string) (*big.Int, error) {
	amt, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || amt.Sign() <= 0 || amt.Cmp(maxI128) > 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	return amt, nil
}
