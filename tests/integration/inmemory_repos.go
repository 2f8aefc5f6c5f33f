package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ledger"
	"usdt-custody/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email already exists")
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) List(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

// setAdmin flips the admin flag on a stored user. Test-only backdoor for
// provisioning an administrator without an out-of-band SQL step.
func (r *inMemoryUserRepo) setAdmin(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			u.IsAdmin = true
			return
		}
	}
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*domain.Wallet // keyed by user ID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.wallets[w.UserID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

// ApplyDelta mirrors the single guarded UPDATE: the negativity check and the
// write happen under one lock, so concurrent reservations cannot overdraw.
func (r *inMemoryWalletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, d ledger.Delta) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, ports.ErrInsufficientFunds
	}
	next, err := ledger.Apply(*w, d)
	if err != nil {
		return nil, ports.ErrInsufficientFunds
	}
	next.UpdatedAt = time.Now().UTC()
	r.wallets[userID] = &next
	cp := next
	return &cp, nil
}

// --- In-Memory Request Repos ---

// requestRow is the common mutable state the three request repos manage.
type requestRow struct {
	status      domain.RequestStatus
	processedAt *time.Time
}

// casTable implements the compare-and-set status transition shared by all
// request repos. Exactly one of two racing transitions can win.
type casTable struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*requestRow
}

func newCASTable() *casTable {
	return &casTable{rows: make(map[uuid.UUID]*requestRow)}
}

func (t *casTable) insert(id uuid.UUID, status domain.RequestStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[id] = &requestRow{status: status}
}

func (t *casTable) compareAndSet(id uuid.UUID, expected, next domain.RequestStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok || row.status != expected {
		return ports.ErrStatusConflict
	}
	now := time.Now().UTC()
	row.status = next
	row.processedAt = &now
	return nil
}

func (t *casTable) state(id uuid.UUID) (domain.RequestStatus, *time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return "", nil, false
	}
	return row.status, row.processedAt, true
}

type inMemoryTopUpRepo struct {
	mu     sync.RWMutex
	topups map[uuid.UUID]*domain.TopUp
	cas    *casTable
}

func newInMemoryTopUpRepo() *inMemoryTopUpRepo {
	return &inMemoryTopUpRepo{topups: make(map[uuid.UUID]*domain.TopUp), cas: newCASTable()}
}

func (r *inMemoryTopUpRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.TopUp) error {
	r.mu.Lock()
	cp := *t
	r.topups[t.ID] = &cp
	r.mu.Unlock()
	r.cas.insert(t.ID, t.Status)
	return nil
}

func (r *inMemoryTopUpRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TopUp, error) {
	r.mu.RLock()
	t, ok := r.topups[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	cp := *t
	if status, processedAt, found := r.cas.state(id); found {
		cp.Status = status
		cp.ProcessedAt = processedAt
	}
	return &cp, nil
}

func (r *inMemoryTopUpRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected, next domain.RequestStatus) error {
	return r.cas.compareAndSet(id, expected, next)
}

func (r *inMemoryTopUpRepo) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.TopUp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TopUp
	for id, t := range r.topups {
		if s, _, ok := r.cas.state(id); ok && s == status {
			cp := *t
			cp.Status = s
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *inMemoryTopUpRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TopUp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.TopUp
	for id, t := range r.topups {
		if t.UserID != userID {
			continue
		}
		cp := *t
		if s, p, ok := r.cas.state(id); ok {
			cp.Status = s
			cp.ProcessedAt = p
		}
		out = append(out, cp)
	}
	return out, nil
}

type inMemorySellRepo struct {
	mu    sync.RWMutex
	sells map[uuid.UUID]*domain.Sell
	cas   *casTable
}

func newInMemorySellRepo() *inMemorySellRepo {
	return &inMemorySellRepo{sells: make(map[uuid.UUID]*domain.Sell), cas: newCASTable()}
}

func (r *inMemorySellRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Sell) error {
	r.mu.Lock()
	cp := *s
	r.sells[s.ID] = &cp
	r.mu.Unlock()
	r.cas.insert(s.ID, s.Status)
	return nil
}

func (r *inMemorySellRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sell, error) {
	r.mu.RLock()
	s, ok := r.sells[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	cp := *s
	if status, processedAt, found := r.cas.state(id); found {
		cp.Status = status
		cp.ProcessedAt = processedAt
	}
	return &cp, nil
}

func (r *inMemorySellRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected, next domain.RequestStatus) error {
	return r.cas.compareAndSet(id, expected, next)
}

func (r *inMemorySellRepo) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Sell, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Sell
	for id, s := range r.sells {
		if st, _, ok := r.cas.state(id); ok && st == status {
			cp := *s
			cp.Status = st
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *inMemorySellRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Sell, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Sell
	for id, s := range r.sells {
		if s.UserID != userID {
			continue
		}
		cp := *s
		if st, p, ok := r.cas.state(id); ok {
			cp.Status = st
			cp.ProcessedAt = p
		}
		out = append(out, cp)
	}
	return out, nil
}

type inMemoryWithdrawalRepo struct {
	mu          sync.RWMutex
	withdrawals map[uuid.UUID]*domain.Withdrawal
	cas         *casTable
}

func newInMemoryWithdrawalRepo() *inMemoryWithdrawalRepo {
	return &inMemoryWithdrawalRepo{withdrawals: make(map[uuid.UUID]*domain.Withdrawal), cas: newCASTable()}
}

func (r *inMemoryWithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	r.mu.Lock()
	cp := *w
	r.withdrawals[w.ID] = &cp
	r.mu.Unlock()
	r.cas.insert(w.ID, w.Status)
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	r.mu.RLock()
	w, ok := r.withdrawals[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	cp := *w
	if status, processedAt, found := r.cas.state(id); found {
		cp.Status = status
		cp.ProcessedAt = processedAt
	}
	return &cp, nil
}

func (r *inMemoryWithdrawalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected, next domain.RequestStatus) error {
	return r.cas.compareAndSet(id, expected, next)
}

func (r *inMemoryWithdrawalRepo) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Withdrawal
	for id, w := range r.withdrawals {
		if st, _, ok := r.cas.state(id); ok && st == status {
			cp := *w
			cp.Status = st
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *inMemoryWithdrawalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Withdrawal
	for id, w := range r.withdrawals {
		if w.UserID != userID {
			continue
		}
		cp := *w
		if st, p, ok := r.cas.state(id); ok {
			cp.Status = st
			cp.ProcessedAt = p
		}
		out = append(out, cp)
	}
	return out, nil
}

// --- In-Memory Outbox Repo ---

type inMemoryOutboxRepo struct {
	mu     sync.Mutex
	nextID int64
	events []*domain.OutboxEvent
}

func newInMemoryOutboxRepo() *inMemoryOutboxRepo {
	return &inMemoryOutboxRepo{}
}

func (r *inMemoryOutboxRepo) Create(ctx context.Context, tx pgx.Tx, evt *domain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	evt.ID = r.nextID
	cp := *evt
	r.events = append(r.events, &cp)
	return nil
}

func (r *inMemoryOutboxRepo) ListUnprocessed(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OutboxEvent
	for _, e := range r.events {
		if e.Processed {
			continue
		}
		out = append(out, *e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *inMemoryOutboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now().UTC()
			e.Processed = true
			e.ProcessedAt = &now
			return nil
		}
	}
	return fmt.Errorf("outbox event %d not found", id)
}

func (r *inMemoryOutboxRepo) all() []domain.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OutboxEvent, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	return out
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
