package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

const (
	statusPending       = "PENDING"
	statusDuplicate     = "DUPLICATE"
	statusTryAgainLater = "TRY_AGAIN_LATER"
	statusError         = "ERROR"
	statusSuccess       = "SUCCESS"
	statusFailed        = "FAILED"
	statusNotFound      = "NOT_FOUND"
)

// Gateway implements ports.LedgerGateway against a Stellar network:
// classic payments through Horizon, contract invokes through Soroban RPC.
// Transport failures map to LEDGER_003, deterministic rejections to
// LEDGER_001, and unobserved finality to LEDGER_002.
type Gateway struct {
	horizon        HorizonAPI
	rpc            SorobanAPI
	passphrase     string
	baseFee        int64
	txTimeout      time.Duration
	confirmTimeout time.Duration
	pollInterval   time.Duration
	log            zerolog.Logger
}

// NewGateway creates a Gateway.
func NewGateway(horizon HorizonAPI, rpc SorobanAPI, passphrase string, baseFee int64, txTimeout, confirmTimeout, pollInterval time.Duration, log zerolog.Logger) *Gateway {
	if baseFee <= 0 {
		baseFee = txnbuild.MinBaseFee
	}
	if txTimeout <= 0 {
		txTimeout = 5 * time.Minute
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 30 * time.Second
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Gateway{
		horizon:        horizon,
		rpc:            rpc,
		passphrase:     passphrase,
		baseFee:        baseFee,
		txTimeout:      txTimeout,
		confirmTimeout: confirmTimeout,
		pollInterval:   pollInterval,
		log:            log,
	}
}

// NetworkPassphrase maps a network name from configuration to its
// passphrase.
func NetworkPassphrase(name string) string {
	switch strings.ToLower(name) {
	case "public":
		return network.PublicNetworkPassphrase
	case "futurenet":
		return network.FutureNetworkPassphrase
	case "local", "standalone":
		return "Standalone Network ; February 2017"
	default:
		return network.TestNetworkPassphrase
	}
}

// CreateWineToken deploys a lot token through the factory contract and
// returns the transaction hash and new contract address.
func (g *Gateway) CreateWineToken(ctx context.Context, factoryID, adminSeed, tokenAdmin string, decimal uint32, name, symbol string, md domain.WineLotMetadata) (string, string, error) {
	admin, err := addressVal(tokenAdmin)
	if err != nil {
		return "", "", apperror.InternalError(err)
	}
	dec, err := u32Val(decimal)
	if err != nil {
		return "", "", apperror.InternalError(err)
	}
	nameVal, err := stringVal(name)
	if err != nil {
		return "", "", apperror.InternalError(err)
	}
	symbolV, err := stringVal(symbol)
	if err != nil {
		return "", "", apperror.InternalError(err)
	}
	metadata, err := wineMetadataVal(md)
	if err != nil {
		return "", "", apperror.InternalError(err)
	}

	hash, ret, err := g.invokeContract(ctx, adminSeed, factoryID, "create_wine_token",
		[]xdr.ScVal{admin, dec, nameVal, symbolV, metadata})
	if err != nil {
		return "", "", err
	}
	if ret == nil || ret.Type != xdr.ScValTypeScvAddress || ret.Address == nil {
		return "", "", apperror.ErrLedgerRejected(fmt.Errorf("factory returned no token address"))
	}
	tokenAddress, err := scAddressString(*ret.Address)
	if err != nil {
		return "", "", apperror.InternalError(err)
	}
	return hash, tokenAddress, nil
}

// MintWineTokens mints amount to recipient on the token contract.
func (g *Gateway) MintWineTokens(ctx context.Context, tokenAddress, adminSeed, recipient, amountStr string) (string, error) {
	to, err := addressVal(recipient)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	amt, err := amountI128Val(amountStr)
	if err != nil {
		return "", apperror.InternalError(err)
	}

	hash, _, err := g.invokeContract(ctx, adminSeed, tokenAddress, "mint", []xdr.ScVal{to, amt})
	return hash, err
}

// TransferWineTokens moves amount between addresses, signed by the sender.
func (g *Gateway) TransferWineTokens(ctx context.Context, tokenAddress, fromSeed, fromAddress, toAddress, amountStr string) (string, error) {
	from, err := addressVal(fromAddress)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	to, err := addressVal(toAddress)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	amt, err := amountI128Val(amountStr)
	if err != nil {
		return "", apperror.InternalError(err)
	}

	hash, _, err := g.invokeContract(ctx, fromSeed, tokenAddress, "transfer", []xdr.ScVal{from, to, amt})
	return hash, err
}

// SetLotStatus writes a status change to the token contract as immutable
// proof. Location and previous status are optional.
func (g *Gateway) SetLotStatus(ctx context.Context, tokenAddress, adminSeed, status string, location, previousStatus *string) (string, error) {
	statusVal, err := stringVal(status)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	locVal, err := optionStringVal(location)
	if err != nil {
		return "", apperror.InternalError(err)
	}
	prevVal, err := optionStringVal(previousStatus)
	if err != nil {
		return "", apperror.InternalError(err)
	}

	hash, _, err := g.invokeContract(ctx, adminSeed, tokenAddress, "set_status",
		[]xdr.ScVal{statusVal, locVal, prevVal})
	return hash, err
}

// SubmitPayment signs a classic payment with the given seed and, when
// requested, submits it through Horizon. A tx_bad_seq rejection triggers
// exactly one rebuild with a reloaded sequence number.
func (g *Gateway) SubmitPayment(ctx context.Context, p ports.LedgerPayment) (*ports.LedgerPaymentResult, error) {
	kp, err := keypair.ParseFull(p.SignerSeed)
	if err != nil {
		return nil, apperror.ErrWalletCorrupted(fmt.Errorf("parse signer seed: %w", err))
	}

	for attempt := 0; ; attempt++ {
		tx, err := g.buildPayment(kp, p)
		if err != nil {
			return nil, err
		}

		if !p.Submit {
			envelope, err := tx.Base64()
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("encode envelope: %w", err))
			}
			hash, err := tx.HashHex(g.passphrase)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("hash envelope: %w", err))
			}
			return &ports.LedgerPaymentResult{Hash: hash, SignedXDR: envelope}, nil
		}

		resp, err := g.horizon.SubmitTransaction(tx)
		if err != nil {
			if isHorizonBadSeq(err) && attempt == 0 {
				g.log.Warn().Str("source", kp.Address()).Msg("tx_bad_seq, rebuilding with fresh sequence")
				continue
			}
			return nil, g.wrapHorizonError("submit payment", err)
		}

		return &ports.LedgerPaymentResult{
			Submitted: true,
			Hash:      resp.Hash,
			Ledger:    resp.Ledger,
		}, nil
	}
}

// FundAccount requests one-time friendbot funding for a new account.
func (g *Gateway) FundAccount(_ context.Context, publicKey string) error {
	if _, err := g.horizon.Fund(publicKey); err != nil {
		return fmt.Errorf("friendbot fund %s: %w", publicKey, err)
	}
	return nil
}

func (g *Gateway) buildPayment(kp *keypair.Full, p ports.LedgerPayment) (*txnbuild.Transaction, error) {
	source, err := g.loadAccount(kp.Address())
	if err != nil {
		return nil, err
	}

	var asset txnbuild.Asset = txnbuild.NativeAsset{}
	if p.AssetCode != "" {
		asset = txnbuild.CreditAsset{Code: p.AssetCode, Issuer: p.AssetIssuer}
	}

	params := txnbuild.TransactionParams{
		SourceAccount:        source,
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: p.Destination,
				Amount:      p.Amount,
				Asset:       asset,
			},
		},
		BaseFee:       g.baseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(int64(g.txTimeout.Seconds()))},
	}
	if p.Memo != "" {
		params.Memo = txnbuild.MemoText(p.Memo)
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, apperror.Validation(fmt.Sprintf("build payment: %v", err))
	}
	tx, err = tx.Sign(g.passphrase, kp)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sign payment: %w", err))
	}
	return tx, nil
}

// invokeContract runs the full Soroban write path: load sequence, build,
// simulate, apply footprint and auth, sign, send, and poll to finality.
// Returns the hash and the host function's return value.
func (g *Gateway) invokeContract(ctx context.Context, signerSeed, contractID, function string, args []xdr.ScVal) (string, *xdr.ScVal, error) {
	kp, err := keypair.ParseFull(signerSeed)
	if err != nil {
		return "", nil, apperror.ErrWalletCorrupted(fmt.Errorf("parse signer seed: %w", err))
	}
	contractAddr, err := scAddress(contractID)
	if err != nil {
		return "", nil, apperror.InternalError(err)
	}

	for attempt := 0; ; attempt++ {
		hash, ret, err := g.invokeOnce(ctx, kp, contractAddr, function, args)
		if err != nil {
			var failed *TxFailedError
			if attempt == 0 && errors.As(err, &failed) && failed.Code == "tx_bad_seq" {
				g.log.Warn().Str("source", kp.Address()).Str("function", function).
					Msg("tx_bad_seq, rebuilding with fresh sequence")
				continue
			}
			return "", nil, err
		}
		return hash, ret, nil
	}
}

func (g *Gateway) invokeOnce(ctx context.Context, kp *keypair.Full, contractAddr xdr.ScAddress, function string, args []xdr.ScVal) (string, *xdr.ScVal, error) {
	account, err := g.loadAccount(kp.Address())
	if err != nil {
		return "", nil, err
	}
	sequence := account.Sequence

	op := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: contractAddr,
				FunctionName:    xdr.ScSymbol(function),
				Args:            args,
			},
		},
		SourceAccount: kp.Address(),
	}

	unsigned, err := g.buildInvoke(kp.Address(), sequence, op)
	if err != nil {
		return "", nil, err
	}
	envelope, err := unsigned.Base64()
	if err != nil {
		return "", nil, apperror.InternalError(fmt.Errorf("encode envelope: %w", err))
	}

	sim, err := g.rpc.SimulateTransaction(ctx, envelope)
	if err != nil {
		return "", nil, g.wrapRPCError("simulate", err)
	}
	if sim.Error != "" {
		return "", nil, apperror.ErrLedgerRejected(&TxFailedError{Code: sim.Error, Simulation: true})
	}

	// Apply the simulated footprint, resource fee, and auth entries.
	var sorobanData xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(sim.TransactionData, &sorobanData); err != nil {
		return "", nil, apperror.InternalError(fmt.Errorf("decode soroban data: %w", err))
	}
	op.Ext = xdr.TransactionExt{V: 1, SorobanData: &sorobanData}
	for _, res := range sim.Results {
		for _, authB64 := range res.Auth {
			var entry xdr.SorobanAuthorizationEntry
			if err := xdr.SafeUnmarshalBase64(authB64, &entry); err != nil {
				return "", nil, apperror.InternalError(fmt.Errorf("decode auth entry: %w", err))
			}
			op.Auth = append(op.Auth, entry)
		}
	}

	prepared, err := g.buildInvoke(kp.Address(), sequence, op)
	if err != nil {
		return "", nil, err
	}
	signed, err := prepared.Sign(g.passphrase, kp)
	if err != nil {
		return "", nil, apperror.InternalError(fmt.Errorf("sign transaction: %w", err))
	}
	signedB64, err := signed.Base64()
	if err != nil {
		return "", nil, apperror.InternalError(fmt.Errorf("encode signed envelope: %w", err))
	}

	send, err := g.rpc.SendTransaction(ctx, signedB64)
	if err != nil {
		return "", nil, g.wrapRPCError("send", err)
	}
	hash := send.Hash
	if hash == "" {
		hash, _ = signed.HashHex(g.passphrase)
	}

	switch send.Status {
	case statusPending, statusDuplicate:
		// fall through to polling
	case statusTryAgainLater:
		return "", nil, apperror.ErrLedgerUnavailable(fmt.Errorf("rpc busy, try again later"))
	case statusError:
		return "", nil, apperror.ErrLedgerRejected(&TxFailedError{
			Hash:      hash,
			Code:      resultCodeFromXDR(send.ErrorResultXDR),
			ResultXDR: send.ErrorResultXDR,
		})
	default:
		return "", nil, apperror.ErrLedgerUnavailable(fmt.Errorf("unexpected send status %q", send.Status))
	}

	return g.awaitFinality(ctx, hash)
}

func (g *Gateway) buildInvoke(sourceID string, sequence int64, op *txnbuild.InvokeHostFunction) (*txnbuild.Transaction, error) {
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: sourceID, Sequence: sequence},
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              g.baseFee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(int64(g.txTimeout.Seconds()))},
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build transaction: %w", err))
	}
	return tx, nil
}

// awaitFinality polls getTransaction until SUCCESS or FAILED, or gives up
// after the confirmation budget. NOT_FOUND means still pending.
func (g *Gateway) awaitFinality(ctx context.Context, hash string) (string, *xdr.ScVal, error) {
	deadline := time.Now().Add(g.confirmTimeout)
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		got, err := g.rpc.GetTransaction(ctx, hash)
		if err == nil {
			switch got.Status {
			case statusSuccess:
				ret, derr := returnValueFromMeta(got.ResultMetaXDR)
				if derr != nil {
					g.log.Warn().Err(derr).Str("hash", hash).Msg("confirmed but return value undecodable")
				}
				return hash, ret, nil
			case statusFailed:
				return "", nil, apperror.ErrLedgerRejected(&TxFailedError{
					Hash:      hash,
					Code:      resultCodeFromXDR(got.ResultXDR),
					ResultXDR: got.ResultXDR,
				})
			}
			// NOT_FOUND: keep waiting.
		} else {
			g.log.Warn().Err(err).Str("hash", hash).Msg("poll failed, retrying")
		}

		if time.Now().After(deadline) {
			return "", nil, apperror.ErrLedgerUnconfirmed(&UnconfirmedError{Hash: hash})
		}
		select {
		case <-ctx.Done():
			return "", nil, apperror.ErrLedgerUnconfirmed(&UnconfirmedError{Hash: hash})
		case <-ticker.C:
		}
	}
}

func (g *Gateway) loadAccount(address string) (*txnbuild.SimpleAccount, error) {
	detail, err := g.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err != nil {
		if herr := horizonclient.GetError(err); herr != nil && herr.Problem.Status == 404 {
			return nil, apperror.ErrLedgerRejected(fmt.Errorf("account %s not found on network (unfunded?)", address))
		}
		return nil, apperror.ErrLedgerUnavailable(&TransportError{Op: "account detail", Err: err})
	}
	seq, err := detail.GetSequenceNumber()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("parse sequence: %w", err))
	}
	return &txnbuild.SimpleAccount{AccountID: address, Sequence: seq}, nil
}

func (g *Gateway) wrapHorizonError(op string, err error) error {
	herr := horizonclient.GetError(err)
	if herr == nil {
		return apperror.ErrLedgerUnavailable(&TransportError{Op: op, Err: err})
	}
	if herr.Problem.Status == 504 {
		return apperror.ErrLedgerUnconfirmed(fmt.Errorf("%s: horizon timeout", op))
	}
	code := "tx_failed"
	if codes, cerr := herr.ResultCodes(); cerr == nil && codes != nil {
		code = codes.TransactionCode
	}
	return apperror.ErrLedgerRejected(&TxFailedError{Code: code})
}

func (g *Gateway) wrapRPCError(op string, err error) error {
	return apperror.ErrLedgerUnavailable(&TransportError{Op: op, Err: err})
}

func isHorizonBadSeq(err error) bool {
	herr := horizonclient.GetError(err)
	if herr == nil {
		return false
	}
	codes, cerr := herr.ResultCodes()
	return cerr == nil && codes != nil && codes.TransactionCode == "tx_bad_seq"
}

// resultCodeFromXDR extracts the transaction result code from a base64
// TransactionResult, or a placeholder when undecodable.
func resultCodeFromXDR(resultXDR string) string {
	if resultXDR == "" {
		return "tx_failed"
	}
	var result xdr.TransactionResult
	if err := xdr.SafeUnmarshalBase64(resultXDR, &result); err != nil {
		return "tx_failed"
	}
	switch result.Result.Code {
	case xdr.TransactionResultCodeTxBadSeq:
		return "tx_bad_seq"
	case xdr.TransactionResultCodeTxInsufficientFee:
		return "tx_insufficient_fee"
	case xdr.TransactionResultCodeTxInsufficientBalance:
		return "tx_insufficient_balance"
	case xdr.TransactionResultCodeTxSorobanInvalid:
		return "tx_soroban_invalid"
	default:
		return strings.ToLower(strings.TrimPrefix(result.Result.Code.String(), "TransactionResultCode"))
	}
}

// returnValueFromMeta pulls the host function return value out of the
// transaction meta, across meta versions.
func returnValueFromMeta(metaXDR string) (*xdr.ScVal, error) {
	if metaXDR == "" {
		return nil, nil
	}
	var meta xdr.TransactionMeta
	if err := xdr.SafeUnmarshalBase64(metaXDR, &meta); err != nil {
		return nil, fmt.Errorf("decode transaction meta: %w", err)
	}
	switch meta.V {
	case 3:
		if meta.V3 != nil && meta.V3.SorobanMeta != nil {
			rv := meta.V3.SorobanMeta.ReturnValue
			return &rv, nil
		}
	case 4:
		if meta.V4 != nil && meta.V4.SorobanMeta != nil {
			return meta.V4.SorobanMeta.ReturnValue, nil
		}
	}
	return nil, nil
}

func amountI128Val(s string) (xdr.ScVal, error) {
	v, err := parseAmount(s)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return i128Val(v)
}
