package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"custody-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The fakes below back the service tests. Reads hand out deep copies and
// only Upsert/Save write back, so a batch that fails mid-way really does
// leave the stored state untouched, mirroring a rolled-back transaction.

func balanceKey(token, clientATA string) string { return token + "|" + clientATA }

// --- Balance repo ---

type fakeBalanceRepo struct {
	mu       sync.RWMutex
	balances map[string]*domain.ClientBalance
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[string]*domain.ClientBalance)}
}

func (r *fakeBalanceRepo) Get(ctx context.Context, token, clientATA string) (*domain.ClientBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.balances[balanceKey(token, clientATA)]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, token, clientATA string) (*domain.ClientBalance, error) {
	return r.Get(ctx, token, clientATA)
}

func (r *fakeBalanceRepo) Upsert(ctx context.Context, tx pgx.Tx, b *domain.ClientBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.balances[balanceKey(b.Token, b.ClientATA)] = &cp
	return nil
}

// --- Withdrawal repo ---

type fakeWithdrawalRepo struct {
	mu     sync.RWMutex
	queues map[string]*domain.WithdrawalQueue
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{queues: make(map[string]*domain.WithdrawalQueue)}
}

func copyQueue(q *domain.WithdrawalQueue) *domain.WithdrawalQueue {
	cp := *q
	cp.Entries = make([]domain.WithdrawalEntry, len(q.Entries))
	copy(cp.Entries, q.Entries)
	return &cp
}

func (r *fakeWithdrawalRepo) Get(ctx context.Context, token, clientATA string) (*domain.WithdrawalQueue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queues[balanceKey(token, clientATA)]
	if !ok {
		return nil, nil
	}
	return copyQueue(q), nil
}

func (r *fakeWithdrawalRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, token, clientATA string) (*domain.WithdrawalQueue, error) {
	return r.Get(ctx, token, clientATA)
}

func (r *fakeWithdrawalRepo) Save(ctx context.Context, tx pgx.Tx, q *domain.WithdrawalQueue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues[balanceKey(q.Token, q.ClientATA)] = copyQueue(q)
	return nil
}

// --- Vault repo ---

type fakeVaultRepo struct {
	mu     sync.RWMutex
	vaults map[string]*domain.Vault
}

func newFakeVaultRepo() *fakeVaultRepo {
	return &fakeVaultRepo{vaults: make(map[string]*domain.Vault)}
}

func (r *fakeVaultRepo) Get(ctx context.Context, token string) (*domain.Vault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vaults[token]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVaultRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, token string) (*domain.Vault, error) {
	return r.Get(ctx, token)
}

func (r *fakeVaultRepo) Upsert(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.vaults[v.Token] = &cp
	return nil
}

// --- Fundlock repo ---

type fakeFundlockRepo struct {
	mu sync.RWMutex
	fl *domain.Fundlock
}

func newFakeFundlockRepo() *fakeFundlockRepo { return &fakeFundlockRepo{} }

func (r *fakeFundlockRepo) Get(ctx context.Context) (*domain.Fundlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.fl == nil {
		return nil, nil
	}
	cp := *r.fl
	return &cp, nil
}

func (r *fakeFundlockRepo) Create(ctx context.Context, f *domain.Fundlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fl != nil {
		return fmt.Errorf("fundlock already exists")
	}
	cp := *f
	r.fl = &cp
	return nil
}

// --- Whitelist repo ---

type fakeWhitelistRepo struct {
	mu     sync.RWMutex
	tokens map[string]*domain.WhitelistedToken
}

func newFakeWhitelistRepo() *fakeWhitelistRepo {
	return &fakeWhitelistRepo{tokens: make(map[string]*domain.WhitelistedToken)}
}

func (r *fakeWhitelistRepo) Get(ctx context.Context, mint string) (*domain.WhitelistedToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[mint]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *fakeWhitelistRepo) Add(ctx context.Context, t *domain.WhitelistedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tokens[t.Mint] = &cp
	return nil
}

func (r *fakeWhitelistRepo) Remove(ctx context.Context, mint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, mint)
	return nil
}

// --- Role repo ---

type fakeRoleRepo struct {
	mu      sync.RWMutex
	members map[domain.Role]map[uuid.UUID]time.Time
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{members: make(map[domain.Role]map[uuid.UUID]time.Time)}
}

func (r *fakeRoleRepo) Grant(ctx context.Context, m *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[m.Role] == nil {
		r.members[m.Role] = make(map[uuid.UUID]time.Time)
	}
	r.members[m.Role][m.Client] = m.GrantedAt
	return nil
}

func (r *fakeRoleRepo) Renounce(ctx context.Context, role domain.Role, client uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[role], client)
	return nil
}

func (r *fakeRoleRepo) Has(ctx context.Context, role domain.Role, client uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[role][client]
	return ok, nil
}

func (r *fakeRoleRepo) CountMembers(ctx context.Context, role domain.Role) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.members[role])), nil
}

// --- Ledger repo ---

type fakeLedgerRepo struct {
	mu      sync.RWMutex
	ledgers map[string]*domain.Ledger
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{ledgers: make(map[string]*domain.Ledger)}
}

func ledgerKey(underlying, strike string) string { return underlying + "|" + strike }

func (r *fakeLedgerRepo) Get(ctx context.Context, underlyingToken, strikeToken string) (*domain.Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.ledgers[ledgerKey(underlyingToken, strikeToken)]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLedgerRepo) Create(ctx context.Context, l *domain.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *l
	r.ledgers[ledgerKey(l.UnderlyingToken, l.StrikeToken)] = &cp
	return nil
}

// --- Position repo ---

type fakePositionRepo struct {
	mu        sync.RWMutex
	contracts map[uint64]*domain.Contract
	positions map[string]*domain.Position
}

func newFakePositionRepo() *fakePositionRepo {
	return &fakePositionRepo{
		contracts: make(map[uint64]*domain.Contract),
		positions: make(map[string]*domain.Position),
	}
}

func positionKey(contractID uint64, client uuid.UUID) string {
	return fmt.Sprintf("%d|%s", contractID, client)
}

func (r *fakePositionRepo) EnsureContract(ctx context.Context, tx pgx.Tx, c *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contracts[c.ContractID]; !ok {
		cp := *c
		r.contracts[c.ContractID] = &cp
	}
	return nil
}

func (r *fakePositionRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, contractID uint64, client uuid.UUID) (*domain.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.positions[positionKey(contractID, client)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePositionRepo) Upsert(ctx context.Context, tx pgx.Tx, p *domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.positions[positionKey(p.ContractID, p.Client)] = &cp
	return nil
}

// --- Client repo ---

type fakeClientRepo struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*domain.Client
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: make(map[uuid.UUID]*domain.Client)}
}

func (r *fakeClientRepo) Create(ctx context.Context, c *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.clients[c.ID] = &cp
	return nil
}

func (r *fakeClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeClientRepo) GetByAccessKey(ctx context.Context, accessKey string) (*domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if c.AccessKey == accessKey {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// --- Settlement repo ---

type fakeSettlementRepo struct {
	mu       sync.RWMutex
	receipts map[string]*domain.SettlementReceipt
}

func newFakeSettlementRepo() *fakeSettlementRepo {
	return &fakeSettlementRepo{receipts: make(map[string]*domain.SettlementReceipt)}
}

func receiptKey(backendID uint64, kind string) string {
	return fmt.Sprintf("%d|%s", backendID, kind)
}

func (r *fakeSettlementRepo) GetReceipt(ctx context.Context, backendID uint64, kind string) (*domain.SettlementReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.receipts[receiptKey(backendID, kind)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeSettlementRepo) CreateReceipt(ctx context.Context, tx pgx.Tx, rec *domain.SettlementReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := receiptKey(rec.BackendID, rec.Kind)
	if _, ok := r.receipts[key]; ok {
		return fmt.Errorf("duplicate receipt")
	}
	cp := *rec
	r.receipts[key] = &cp
	return nil
}

// --- Settlement cache ---

type fakeSettlementCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func newFakeSettlementCache() *fakeSettlementCache {
	return &fakeSettlementCache{entries: make(map[string][]byte)}
}

func (c *fakeSettlementCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key], nil
}

func (c *fakeSettlementCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

// --- Transactor (no-op tx) ---

type fakeTransactor struct{}

func newFakeTransactor() *fakeTransactor { return &fakeTransactor{} }

func (t *fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
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
