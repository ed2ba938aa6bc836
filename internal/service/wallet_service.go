package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stellar/go/keypair"
)

// WalletServiceImpl implements ports.WalletService. Wallets are custodial
// Stellar keypairs: one per user, seed stored AES-GCM encrypted.
type WalletServiceImpl struct {
	walletRepo   ports.WalletRepository
	activityRepo ports.ActivityRepository
	cipher       ports.CipherService
	ledger       ports.LedgerGateway
	fundNew      bool
	network      string
	log          zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	activityRepo ports.ActivityRepository,
	cipher ports.CipherService,
	ledger ports.LedgerGateway,
	fundNew bool,
	network string,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo:   walletRepo,
		activityRepo: activityRepo,
		cipher:       cipher,
		ledger:       ledger,
		fundNew:      fundNew,
		network:      network,
		log:          log,
	}
}

// GetOrCreate returns the user's wallet, creating one on first call. The
// operation is idempotent: concurrent callers racing on creation all end up
// with the same row. The returned secret is the decrypted seed when
// opts.WithSecret is set, empty otherwise.
func (s *WalletServiceImpl) GetOrCreate(ctx context.Context, userID uuid.UUID, opts ports.WalletOptions) (*domain.Wallet, string, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, "", apperror.ErrDatabaseError(fmt.Errorf("load wallet: %w", err))
	}
	if wallet == nil {
		wallet, err = s.createWallet(ctx, userID, opts.Fund)
		if err != nil {
			return nil, "", err
		}
	}

	secret := ""
	if opts.WithSecret {
		secret, err = s.cipher.Decrypt(wallet.SecretEncrypted)
		if err != nil {
			// Stored seed that fails to decrypt means the row is unusable,
			// not that the caller did anything wrong.
			return nil, "", apperror.ErrWalletCorrupted(fmt.Errorf("decrypt seed for wallet %s: %w", wallet.ID, err))
		}
	}

	return wallet, secret, nil
}

func (s *WalletServiceImpl) createWallet(ctx context.Context, userID uuid.UUID, fund bool) (*domain.Wallet, error) {
	kp, err := keypair.Random()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate keypair: %w", err))
	}

	secretEnc, err := s.cipher.Encrypt(kp.Seed())
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt seed: %w", err))
	}

	wallet := &domain.Wallet{
		ID:              uuid.New(),
		UserID:          userID,
		PublicKey:       kp.Address(),
		SecretEncrypted: secretEnc,
		Provider:        domain.WalletProviderCustodial,
		Network:         s.network,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		if errors.Is(err, ports.ErrWalletExists) {
			// Lost the creation race: another request inserted first.
			// Their row wins; ours is discarded.
			existing, gerr := s.walletRepo.GetByUserID(ctx, userID)
			if gerr != nil {
				return nil, apperror.ErrDatabaseError(fmt.Errorf("re-fetch wallet after conflict: %w", gerr))
			}
			if existing == nil {
				return nil, apperror.ErrDatabaseError(fmt.Errorf("wallet conflict for user %s but no row found", userID))
			}
			return existing, nil
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
	}

	// Funding is a per-call request, honored only on networks with a
	// friendbot. The wallet row is already durable, so a friendbot failure
	// must not fail provisioning.
	if fund && s.fundNew {
		if err := s.ledger.FundAccount(ctx, wallet.PublicKey); err != nil {
			s.log.Warn().Err(err).
				Str("wallet_id", wallet.ID.String()).
				Str("public_key", wallet.PublicKey).
				Msg("friendbot funding failed, wallet created unfunded")
		}
	}

	// Audit the creation itself; reads of an existing wallet are not
	// activity.
	s.LogActivity(ctx, wallet.ID, userID, domain.ActionWalletProvision, nil)

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("user_id", userID.String()).
		Str("public_key", wallet.PublicKey).
		Msg("custodial wallet created")

	return wallet, nil
}

// TouchUsage updates last_used_at. Best-effort: failures are logged, never
// surfaced to the caller.
func (s *WalletServiceImpl) TouchUsage(ctx context.Context, walletID uuid.UUID) {
	if err := s.walletRepo.TouchUsage(ctx, walletID, time.Now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("wallet_id", walletID.String()).Msg("failed to touch wallet usage")
	}
}

// LogActivity records a wallet action for auditing and rate limiting.
// Best-effort: a failed insert loosens the rate limit rather than failing
// the request.
func (s *WalletServiceImpl) LogActivity(ctx context.Context, walletID, userID uuid.UUID, action string, metadata map[string]any) {
	activity := &domain.WalletActivity{
		ID:        uuid.New(),
		WalletID:  walletID,
		UserID:    userID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.activityRepo.Insert(ctx, activity); err != nil {
		s.log.Warn().Err(err).
			Str("wallet_id", walletID.String()).
			Str("action", action).
			Msg("failed to record wallet activity")
	}
}
