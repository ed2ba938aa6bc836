package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.UserID == w.UserID {
			return ports.ErrWalletExists
		}
	}
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByPublicKey(ctx context.Context, publicKey string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.PublicKey == publicKey {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) TouchUsage(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.LastUsedAt = &at
	return nil
}

func (r *inMemoryWalletRepo) countForUser(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, w := range r.wallets {
		if w.UserID == userID {
			n++
		}
	}
	return n
}

// --- In-Memory Wine Token Repo ---

type inMemoryWineTokenRepo struct {
	mu     sync.RWMutex
	tokens map[uuid.UUID]*domain.WineToken
}

func newInMemoryWineTokenRepo() *inMemoryWineTokenRepo {
	return &inMemoryWineTokenRepo{tokens: make(map[uuid.UUID]*domain.WineToken)}
}

func (r *inMemoryWineTokenRepo) Create(ctx context.Context, t *domain.WineToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tokens[t.ID] = &cp
	return nil
}

func (r *inMemoryWineTokenRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WineToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryWineTokenRepo) GetByAddress(ctx context.Context, address string) (*domain.WineToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tokens {
		if t.TokenAddress == address {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Holding Repo ---

type holdingKey struct {
	walletID uuid.UUID
	tokenID  uuid.UUID
}

type inMemoryHoldingRepo struct {
	mu       sync.RWMutex
	holdings map[holdingKey]*domain.TokenHolding
}

func newInMemoryHoldingRepo() *inMemoryHoldingRepo {
	return &inMemoryHoldingRepo{holdings: make(map[holdingKey]*domain.TokenHolding)}
}

func (r *inMemoryHoldingRepo) Get(ctx context.Context, walletID, tokenID uuid.UUID) (*domain.TokenHolding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holdings[holdingKey{walletID, tokenID}]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (r *inMemoryHoldingRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, walletID, tokenID uuid.UUID) (*domain.TokenHolding, error) {
	return r.Get(ctx, walletID, tokenID)
}

func (r *inMemoryHoldingRepo) Upsert(ctx context.Context, tx pgx.Tx, h *domain.TokenHolding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *h
	r.holdings[holdingKey{h.WalletID, h.TokenID}] = &cp
	return nil
}

// --- In-Memory Token Transaction Repo ---

type inMemoryTokenTxRepo struct {
	mu  sync.RWMutex
	txs []domain.TokenTransaction
}

func newInMemoryTokenTxRepo() *inMemoryTokenTxRepo {
	return &inMemoryTokenTxRepo{}
}

func (r *inMemoryTokenTxRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.TokenTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, *t)
	return nil
}

// --- In-Memory Lot Event Repo ---

type inMemoryLotEventRepo struct {
	mu     sync.RWMutex
	events []domain.LotStatusEvent
}

func newInMemoryLotEventRepo() *inMemoryLotEventRepo {
	return &inMemoryLotEventRepo{}
}

func (r *inMemoryLotEventRepo) Insert(ctx context.Context, e *domain.LotStatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *inMemoryLotEventRepo) Latest(ctx context.Context, tokenID uuid.UUID) (*domain.LotStatusEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.LotStatusEvent
	for i := range r.events {
		e := &r.events[i]
		if e.TokenID != tokenID {
			continue
		}
		if latest == nil || !e.EventTimestamp.Before(latest.EventTimestamp) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *inMemoryLotEventRepo) ListByToken(ctx context.Context, tokenID uuid.UUID) ([]domain.LotStatusEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LotStatusEvent
	for _, e := range r.events {
		if e.TokenID == tokenID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EventTimestamp.After(result[j].EventTimestamp)
	})
	return result, nil
}

// --- In-Memory Bottle Repo ---

type inMemoryBottleRepo struct {
	mu      sync.RWMutex
	bottles map[uuid.UUID]*domain.Bottle
}

func newInMemoryBottleRepo() *inMemoryBottleRepo {
	return &inMemoryBottleRepo{bottles: make(map[uuid.UUID]*domain.Bottle)}
}

func (r *inMemoryBottleRepo) seed(b domain.Bottle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bottles[b.ID] = &b
}

func (r *inMemoryBottleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bottle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bottles[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryBottleRepo) GetByQRHash(ctx context.Context, qrHash string) (*domain.Bottle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.bottles {
		if b.QRCodeHash == qrHash {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryBottleRepo) UpdateCurrentStatus(ctx context.Context, id uuid.UUID, status domain.BottleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bottles[id]
	if !ok {
		return fmt.Errorf("bottle not found")
	}
	b.CurrentStatus = status
	return nil
}

// --- In-Memory Bottle Event Repo ---

type inMemoryBottleEventRepo struct {
	mu     sync.RWMutex
	events []domain.BottleStatusEvent
}

func newInMemoryBottleEventRepo() *inMemoryBottleEventRepo {
	return &inMemoryBottleEventRepo{}
}

func (r *inMemoryBottleEventRepo) Insert(ctx context.Context, e *domain.BottleStatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *inMemoryBottleEventRepo) ListByBottle(ctx context.Context, bottleID uuid.UUID) ([]domain.BottleStatusEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.BottleStatusEvent
	for _, e := range r.events {
		if e.BottleID == bottleID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EventTimestamp.After(result[j].EventTimestamp)
	})
	return result, nil
}

// --- In-Memory QR Code Repo ---

type inMemoryQRCodeRepo struct {
	mu    sync.RWMutex
	codes map[uuid.UUID]*domain.QRCode
}

func newInMemoryQRCodeRepo() *inMemoryQRCodeRepo {
	return &inMemoryQRCodeRepo{codes: make(map[uuid.UUID]*domain.QRCode)}
}

func (r *inMemoryQRCodeRepo) seed(q domain.QRCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[q.ID] = &q
}

func (r *inMemoryQRCodeRepo) GetByCode(ctx context.Context, code string) (*domain.QRCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, q := range r.codes {
		if q.Code == code {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryQRCodeRepo) GetByBottleID(ctx context.Context, bottleID uuid.UUID) (*domain.QRCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, q := range r.codes {
		if q.BottleID == bottleID {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryQRCodeRepo) RecordScan(ctx context.Context, id uuid.UUID, scannedBy *uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.codes[id]
	if !ok {
		return fmt.Errorf("qr code not found")
	}
	q.ScanCount++
	q.LastScannedAt = &at
	q.LastScannedBy = scannedBy
	return nil
}

func (r *inMemoryQRCodeRepo) scanCount(id uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.codes[id]
	if !ok {
		return 0
	}
	return q.ScanCount
}

// --- In-Memory Activity Repo ---

type inMemoryActivityRepo struct {
	mu      sync.RWMutex
	entries []domain.WalletActivity
}

func newInMemoryActivityRepo() *inMemoryActivityRepo {
	return &inMemoryActivityRepo{}
}

func (r *inMemoryActivityRepo) Insert(ctx context.Context, a *domain.WalletActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *a)
	return nil
}

func (r *inMemoryActivityRepo) CountSince(ctx context.Context, walletID uuid.UUID, action string, since time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, a := range r.entries {
		if a.WalletID == walletID && a.Action == action && a.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
