package ports

import (
	"context"

	"vinefi-traceability/internal/core/domain"
)

// LedgerPayment is a classic payment to submit against the network.
type LedgerPayment struct {
	SignerSeed  string
	Destination string
	Amount      string
	AssetCode   string // empty = native
	AssetIssuer string
	Memo        string
	Submit      bool
}

// LedgerPaymentResult reports the submission outcome.
type LedgerPaymentResult struct {
	Submitted bool
	Hash      string
	Ledger    int32
	SignedXDR string // set when Submit was false
}

// LedgerGateway builds, signs, submits, and awaits finality for
// transactions against the external ledger network. Implementations must
// distinguish transport failures (retryable) from ledger rejections
// (deterministic) and report unobserved finality as a distinct
// unconfirmed error.
type LedgerGateway interface {
	// CreateWineToken invokes the factory contract and returns the tx hash
	// and the new token contract address.
	CreateWineToken(ctx context.Context, factoryID, adminSeed, tokenAdmin string, decimal uint32, name, symbol string, md domain.WineLotMetadata) (hash, tokenAddress string, err error)
	// MintWineTokens mints amount (decimal string, 128-bit range) to recipient.
	MintWineTokens(ctx context.Context, tokenAddress, adminSeed, recipient, amount string) (hash string, err error)
	// TransferWineTokens moves amount between addresses, signed by the sender.
	TransferWineTokens(ctx context.Context, tokenAddress, fromSeed, fromAddress, toAddress, amount string) (hash string, err error)
	// SetLotStatus writes a status change on-chain for immutable proof.
	SetLotStatus(ctx context.Context, tokenAddress, adminSeed, status string, location, previousStatus *string) (hash string, err error)
	// SubmitPayment signs and (optionally) submits a classic payment.
	SubmitPayment(ctx context.Context, p LedgerPayment) (*LedgerPaymentResult, error)
	// FundAccount requests one-time friendbot funding for a new account.
	FundAccount(ctx context.Context, publicKey string) error
}
