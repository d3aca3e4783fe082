package store

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"clubdomains/internal/registry"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

type ledger struct {
	domains     map[names.Name]*registry.Domain
	commitments map[registry.Hash]*registry.Commitment
	deposits    map[id.Address]*big.Int
	escrows     map[names.Name]*big.Int
	balance     *big.Int
	nextToken   uint64
}

// Memory is the in-process registry ledger. Transactions are serialized and
// stage their writes in an overlay that is applied only when fn succeeds, so
// readers never observe a partially applied mutation.
type Memory struct {
	mu      sync.RWMutex
	txMu    sync.Mutex
	timeout time.Duration
	state   ledger
}

func NewMemory() *Memory {
	return &Memory{
		state: ledger{
			domains:     make(map[names.Name]*registry.Domain),
			commitments: make(map[registry.Hash]*registry.Commitment),
			deposits:    make(map[id.Address]*big.Int),
			escrows:     make(map[names.Name]*big.Int),
			balance:     new(big.Int),
		},
	}
}

// RunInTx serializes writers and commits the overlay atomically.
func (m *Memory) RunInTx(ctx context.Context, fn func(store registry.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	timeout := m.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	view := newOverlay(m)
	if err := fn(view); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted before commit")
	}
	m.apply(view)
	return nil
}

func (m *Memory) apply(o *overlay) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range o.domains {
		if v == nil {
			delete(m.state.domains, k)
		} else {
			m.state.domains[k] = v
		}
	}
	for k, v := range o.commitments {
		if v == nil {
			delete(m.state.commitments, k)
		} else {
			m.state.commitments[k] = v
		}
	}
	for k, v := range o.deposits {
		setOrDelete(m.state.deposits, k, v)
	}
	for k, v := range o.escrows {
		setOrDelete(m.state.escrows, k, v)
	}
	m.state.balance = id.Add(m.state.balance, o.balanceDelta)
	if o.nextToken > m.state.nextToken {
		m.state.nextToken = o.nextToken
	}
}

func setOrDelete[K comparable](dst map[K]*big.Int, k K, v *big.Int) {
	if v == nil || v.Sign() == 0 {
		delete(dst, k)
		return
	}
	dst[k] = v
}

func cloneDomain(d *registry.Domain) *registry.Domain {
	c := *d
	return &c
}

func cloneCommitment(c *registry.Commitment) *registry.Commitment {
	out := *c
	out.Deposit = id.Copy(c.Deposit)
	return &out
}

// -----------------------------------------------------------------------------
// Direct (non-transactional) access
// -----------------------------------------------------------------------------

func (m *Memory) GetDomain(_ context.Context, name names.Name) (*registry.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.state.domains[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDomain(d), nil
}

func (m *Memory) SaveDomain(_ context.Context, d *registry.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.domains[d.Name] = cloneDomain(d)
	return nil
}

func (m *Memory) DeleteDomain(_ context.Context, name names.Name) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.domains, name)
	return nil
}

func (m *Memory) ListExpiringBefore(_ context.Context, cutoff time.Time, after *registry.ExpiryCursor, limit int) ([]*registry.Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return expiringBefore(m.state.domains, nil, cutoff, after, limit), nil
}

func (m *Memory) GetCommitment(_ context.Context, hash registry.Hash) (*registry.Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.state.commitments[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneCommitment(c), nil
}

func (m *Memory) SaveCommitment(_ context.Context, c *registry.Commitment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.commitments[c.Hash] = cloneCommitment(c)
	return nil
}

func (m *Memory) DeleteCommitment(_ context.Context, hash registry.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.commitments, hash)
	return nil
}

func (m *Memory) Deposit(_ context.Context, owner id.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return id.Copy(m.state.deposits[owner]), nil
}

func (m *Memory) SetDeposit(_ context.Context, owner id.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	setOrDelete(m.state.deposits, owner, id.Copy(amount))
	return nil
}

func (m *Memory) Escrow(_ context.Context, name names.Name) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return id.Copy(m.state.escrows[name]), nil
}

func (m *Memory) SetEscrow(_ context.Context, name names.Name, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	setOrDelete(m.state.escrows, name, id.Copy(amount))
	return nil
}

func (m *Memory) Totals(_ context.Context) (registry.Totals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := registry.Totals{
		Balance:            id.Copy(m.state.balance),
		Deposits:           id.Zero(),
		Escrows:            id.Zero(),
		CommitmentDeposits: id.Zero(),
	}
	for _, v := range m.state.deposits {
		t.Deposits.Add(t.Deposits, v)
	}
	for _, v := range m.state.escrows {
		t.Escrows.Add(t.Escrows, v)
	}
	for _, c := range m.state.commitments {
		t.CommitmentDeposits.Add(t.CommitmentDeposits, id.Copy(c.Deposit))
	}
	return t, nil
}

func (m *Memory) AdjustBalance(_ context.Context, delta *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.balance = id.Add(m.state.balance, delta)
	return nil
}

func (m *Memory) NextTokenID(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextToken++
	return m.state.nextToken, nil
}

func expiringBefore(base, staged map[names.Name]*registry.Domain, cutoff time.Time, after *registry.ExpiryCursor, limit int) []*registry.Domain {
	var out []*registry.Domain
	match := func(d *registry.Domain) bool {
		return d.Expiry.Before(cutoff) && after.Follows(d)
	}
	seen := make(map[names.Name]struct{}, len(staged))
	for k, d := range staged {
		seen[k] = struct{}{}
		if d != nil && match(d) {
			out = append(out, cloneDomain(d))
		}
	}
	for k, d := range base {
		if _, ok := seen[k]; ok {
			continue
		}
		if match(d) {
			out = append(out, cloneDomain(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Expiry.Equal(out[j].Expiry) {
			return out[i].Expiry.Before(out[j].Expiry)
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
