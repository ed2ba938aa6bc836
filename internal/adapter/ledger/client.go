package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RPCClient is a minimal Soroban JSON-RPC client covering the three calls
// the gateway needs: simulate, send, and poll. Requests retry transient
// transport failures with exponential backoff; JSON-RPC level errors are
// permanent.
type RPCClient struct {
	url    string
	client *http.Client
}

// NewRPCClient creates an RPC client for the given endpoint.
func NewRPCClient(url string, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RPCClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

// SimulateResult is the subset of simulateTransaction's response the
// gateway consumes.
type SimulateResult struct {
	Error           string               `json:"error,omitempty"`
	TransactionData string               `json:"transactionData"`
	MinResourceFee  string               `json:"minResourceFee"`
	Results         []SimulateHostResult `json:"results"`
	LatestLedger    uint32               `json:"latestLedger"`
}

// SimulateHostResult is one host function result from simulation.
type SimulateHostResult struct {
	Auth []string `json:"auth"`
	XDR  string   `json:"xdr"`
}

// SendResult is the subset of sendTransaction's response the gateway
// consumes.
type SendResult struct {
	Status         string `json:"status"` // PENDING, DUPLICATE, TRY_AGAIN_LATER, ERROR
	Hash           string `json:"hash"`
	ErrorResultXDR string `json:"errorResultXdr,omitempty"`
	LatestLedger   uint32 `json:"latestLedger"`
}

// GetTransactionResult is the subset of getTransaction's response the
// gateway consumes.
type GetTransactionResult struct {
	Status        string `json:"status"` // NOT_FOUND, SUCCESS, FAILED
	Ledger        uint32 `json:"ledger"`
	ResultXDR     string `json:"resultXdr,omitempty"`
	ResultMetaXDR string `json:"resultMetaXdr,omitempty"`
}

// SimulateTransaction runs a read-only host simulation of a base64
// transaction envelope.
func (c *RPCClient) SimulateTransaction(ctx context.Context, envelopeB64 string) (*SimulateResult, error) {
	var out SimulateResult
	if err := c.call(ctx, "simulateTransaction", map[string]string{"transaction": envelopeB64}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendTransaction submits a signed base64 envelope.
func (c *RPCClient) SendTransaction(ctx context.Context, envelopeB64 string) (*SendResult, error) {
	var out SendResult
	if err := c.call(ctx, "sendTransaction", map[string]string{"transaction": envelopeB64}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransaction fetches the fate of a submitted transaction by hash.
func (c *RPCClient) GetTransaction(ctx context.Context, hash string) (*GetTransactionResult, error) {
	var out GetTransactionResult
	if err := c.call(ctx, "getTransaction", map[string]string{"hash": hash}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RPCClient) call(ctx context.Context, method string, params, result any) error {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	var respBody []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors are retryable: the same envelope can be
			// re-posted, the node dedupes by hash.
			return fmt.Errorf("post %s: %w", method, err)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("rpc status %d, retrying", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("rpc status %d: %s", resp.StatusCode, string(body)))
		}

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 20 * time.Second
	b.RandomizationFactor = 0.5

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return &TransportError{Op: method, Err: err}
	}

	var envelope rpcResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return &TransportError{Op: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if envelope.Error != nil {
		return fmt.Errorf("rpc %s: %s (code %d)", method, envelope.Error.Message, envelope.Error.Code)
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return &TransportError{Op: method, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}
