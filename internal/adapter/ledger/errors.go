package ledger

import "fmt"

// TransportError wraps a network-level failure talking to Horizon or the
// RPC node. The envelope was (or could be) retried safely: the same signed
// payload either never arrived or its fate is knowable by hash.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ledger transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TxFailedError is a deterministic ledger rejection: the network saw the
// transaction and refused it. Retrying the same envelope cannot succeed.
type TxFailedError struct {
	Hash       string
	Code       string
	ResultXDR  string
	Simulation bool
}

func (e *TxFailedError) Error() string {
	if e.Simulation {
		return fmt.Sprintf("simulation rejected: %s", e.Code)
	}
	return fmt.Sprintf("transaction %s rejected: %s", e.Hash, e.Code)
}

// UnconfirmedError reports that a submitted transaction's finality was not
// observed within the confirmation budget. The transaction may still land;
// callers surface the hash so its fate can be checked later.
type UnconfirmedError struct {
	Hash string
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("transaction %s not confirmed in time", e.Hash)
}
