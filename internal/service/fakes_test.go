package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// In-memory fakes for the repository and gateway ports. Mutex-guarded so
// concurrency tests can hammer them.

type fakeWalletRepo struct {
	mu      sync.Mutex
	byUser  map[uuid.UUID]*domain.Wallet
	byID    map[uuid.UUID]*domain.Wallet
	touched int
	failGet error
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{
		byUser: make(map[uuid.UUID]*domain.Wallet),
		byID:   make(map[uuid.UUID]*domain.Wallet),
	}
}

func (f *fakeWalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUser[w.UserID]; ok {
		return ports.ErrWalletExists
	}
	cp := *w
	f.byUser[w.UserID] = &cp
	f.byID[w.ID] = &cp
	return nil
}

func (f *fakeWalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.byID[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeWalletRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	if w, ok := f.byUser[userID]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeWalletRepo) GetByPublicKey(_ context.Context, publicKey string) (*domain.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.byID {
		if w.PublicKey == publicKey {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeWalletRepo) TouchUsage(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	if w, ok := f.byID[id]; ok {
		w.LastUsedAt = &at
	}
	return nil
}

type fakeActivityRepo struct {
	mu        sync.Mutex
	entries   []*domain.WalletActivity
	failCount error
}

func (f *fakeActivityRepo) Insert(_ context.Context, a *domain.WalletActivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeActivityRepo) CountSince(_ context.Context, walletID uuid.UUID, action string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCount != nil {
		return 0, f.failCount
	}
	var n int64
	for _, e := range f.entries {
		if e.WalletID == walletID && e.Action == action && e.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*domain.WineToken
	byAddr map[string]*domain.WineToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{
		byID:   make(map[uuid.UUID]*domain.WineToken),
		byAddr: make(map[string]*domain.WineToken),
	}
}

func (f *fakeTokenRepo) Create(_ context.Context, t *domain.WineToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.byID[t.ID] = &cp
	f.byAddr[t.TokenAddress] = &cp
	return nil
}

func (f *fakeTokenRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.WineToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.byID[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeTokenRepo) GetByAddress(_ context.Context, addr string) (*domain.WineToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.byAddr[addr]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

type fakeLotEventRepo struct {
	mu     sync.Mutex
	events []*domain.LotStatusEvent
}

func (f *fakeLotEventRepo) Insert(_ context.Context, e *domain.LotStatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeLotEventRepo) Latest(_ context.Context, tokenID uuid.UUID) (*domain.LotStatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.LotStatusEvent
	for _, e := range f.events {
		if e.TokenID != tokenID {
			continue
		}
		if latest == nil || e.EventTimestamp.After(latest.EventTimestamp) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeLotEventRepo) ListByToken(_ context.Context, tokenID uuid.UUID) ([]domain.LotStatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LotStatusEvent
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].TokenID == tokenID {
			out = append(out, *f.events[i])
		}
	}
	return out, nil
}

type fakeBottleRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Bottle
}

func newFakeBottleRepo() *fakeBottleRepo {
	return &fakeBottleRepo{byID: make(map[uuid.UUID]*domain.Bottle)}
}

func (f *fakeBottleRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Bottle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.byID[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeBottleRepo) GetByQRHash(_ context.Context, qrHash string) (*domain.Bottle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.QRCodeHash == qrHash {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeBottleRepo) UpdateCurrentStatus(_ context.Context, id uuid.UUID, status domain.BottleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return errors.New("bottle not found")
	}
	b.CurrentStatus = status
	return nil
}

type fakeBottleEventRepo struct {
	mu     sync.Mutex
	events []*domain.BottleStatusEvent
}

func (f *fakeBottleEventRepo) Insert(_ context.Context, e *domain.BottleStatusEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeBottleEventRepo) ListByBottle(_ context.Context, bottleID uuid.UUID) ([]domain.BottleStatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BottleStatusEvent
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].BottleID == bottleID {
			out = append(out, *f.events[i])
		}
	}
	return out, nil
}

type fakeQRRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.QRCode
}

func newFakeQRRepo() *fakeQRRepo {
	return &fakeQRRepo{byID: make(map[uuid.UUID]*domain.QRCode)}
}

func (f *fakeQRRepo) GetByCode(_ context.Context, code string) (*domain.QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.byID {
		if q.Code == code {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeQRRepo) GetByBottleID(_ context.Context, bottleID uuid.UUID) (*domain.QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.byID {
		if q.BottleID == bottleID {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeQRRepo) RecordScan(_ context.Context, id uuid.UUID, scannedBy *uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[id]
	if !ok {
		return errors.New("qr not found")
	}
	q.ScanCount++
	q.LastScannedAt = &at
	q.LastScannedBy = scannedBy
	return nil
}

type fakeHoldingRepo struct {
	mu          sync.Mutex
	holdings    map[string]*domain.TokenHolding // key walletID|tokenID
	lockedReads int
}

func newFakeHoldingRepo() *fakeHoldingRepo {
	return &fakeHoldingRepo{holdings: make(map[string]*domain.TokenHolding)}
}

func holdingKey(walletID, tokenID uuid.UUID) string {
	return walletID.String() + "|" + tokenID.String()
}

func (f *fakeHoldingRepo) Get(_ context.Context, walletID, tokenID uuid.UUID) (*domain.TokenHolding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.holdings[holdingKey(walletID, tokenID)]; ok {
		cp := *h
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeHoldingRepo) GetForUpdate(ctx context.Context, _ pgx.Tx, walletID, tokenID uuid.UUID) (*domain.TokenHolding, error) {
	f.mu.Lock()
	f.lockedReads++
	f.mu.Unlock()
	return f.Get(ctx, walletID, tokenID)
}

func (f *fakeHoldingRepo) Upsert(_ context.Context, _ pgx.Tx, h *domain.TokenHolding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *h
	f.holdings[holdingKey(h.WalletID, h.TokenID)] = &cp
	return nil
}

type fakeTokenTxRepo struct {
	mu  sync.Mutex
	txs []*domain.TokenTransaction
}

func (f *fakeTokenTxRepo) Create(_ context.Context, _ pgx.Tx, t *domain.TokenTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.txs = append(f.txs, &cp)
	return nil
}

// fakeTx satisfies pgx.Tx for transactor fakes; only the lifecycle methods
// are real.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeTransactor struct {
	mu  sync.Mutex
	txs []*fakeTx
}

func (f *fakeTransactor) Begin(context.Context) (pgx.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := &fakeTx{}
	f.txs = append(f.txs, tx)
	return tx, nil
}

// fakeLedger is a scriptable LedgerGateway.
type fakeLedger struct {
	mu           sync.Mutex
	fundCalls    []string
	fundErr      error
	setStatusErr error
	invokeErr    error
	statusCalls  []fakeSetStatusCall
	hash         string
	tokenAddress string
}

type fakeSetStatusCall struct {
	tokenAddress   string
	status         string
	location       *string
	previousStatus *string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		hash:         "deadbeef00",
		tokenAddress: "CA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJUWDA",
	}
}

func (f *fakeLedger) CreateWineToken(_ context.Context, _, _, _ string, _ uint32, _, _ string, _ domain.WineLotMetadata) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invokeErr != nil {
		return "", "", f.invokeErr
	}
	return f.hash, f.tokenAddress, nil
}

func (f *fakeLedger) MintWineTokens(_ context.Context, _, _, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invokeErr != nil {
		return "", f.invokeErr
	}
	return f.hash, nil
}

func (f *fakeLedger) TransferWineTokens(_ context.Context, _, _, _, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invokeErr != nil {
		return "", f.invokeErr
	}
	return f.hash, nil
}

func (f *fakeLedger) SetLotStatus(_ context.Context, tokenAddress, _, status string, location, previousStatus *string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, fakeSetStatusCall{tokenAddress, status, location, previousStatus})
	if f.setStatusErr != nil {
		return "", f.setStatusErr
	}
	return f.hash, nil
}

func (f *fakeLedger) SubmitPayment(_ context.Context, p ports.LedgerPayment) (*ports.LedgerPaymentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return &ports.LedgerPaymentResult{
		Submitted: p.Submit,
		Hash:      f.hash,
		Ledger:    12345,
		SignedXDR: "AAAA...",
	}, nil
}

func (f *fakeLedger) FundAccount(_ context.Context, publicKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fundCalls = append(f.fundCalls, publicKey)
	return f.fundErr
}
