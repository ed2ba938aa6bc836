package ledger

import (
	"context"
	"net/http"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
)

// HorizonAPI is the subset of horizonclient.Client the gateway uses.
// Narrowed for test fakes.
type HorizonAPI interface {
	AccountDetail(request horizonclient.AccountRequest) (hProtocol.Account, error)
	SubmitTransaction(tx *txnbuild.Transaction) (hProtocol.Transaction, error)
	Fund(addr string) (hProtocol.Transaction, error)
}

// SorobanAPI is the subset of RPCClient the gateway uses.
type SorobanAPI interface {
	SimulateTransaction(ctx context.Context, envelopeB64 string) (*SimulateResult, error)
	SendTransaction(ctx context.Context, envelopeB64 string) (*SendResult, error)
	GetTransaction(ctx context.Context, hash string) (*GetTransactionResult, error)
}

// NewHorizonClient creates a Horizon client for the given endpoint.
func NewHorizonClient(url string, timeout time.Duration) *horizonclient.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &horizonclient.Client{
		HorizonURL: url,
		HTTP:       &http.Client{Timeout: timeout},
	}
}
