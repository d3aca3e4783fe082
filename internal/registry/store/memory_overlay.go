package store

import (
	"context"
	"math/big"
	"time"

	"clubdomains/internal/registry"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/sentinel"
)

// overlay stages writes for one Memory transaction. A nil map value is a
// tombstone (domains, commitments) or a zeroed balance (deposits, escrows).
type overlay struct {
	base         *Memory
	domains      map[names.Name]*registry.Domain
	commitments  map[registry.Hash]*registry.Commitment
	deposits     map[id.Address]*big.Int
	escrows      map[names.Name]*big.Int
	balanceDelta *big.Int
	nextToken    uint64
}

func newOverlay(base *Memory) *overlay {
	base.mu.RLock()
	next := base.state.nextToken
	base.mu.RUnlock()
	return &overlay{
		base:         base,
		domains:      make(map[names.Name]*registry.Domain),
		commitments:  make(map[registry.Hash]*registry.Commitment),
		deposits:     make(map[id.Address]*big.Int),
		escrows:      make(map[names.Name]*big.Int),
		balanceDelta: new(big.Int),
		nextToken:    next,
	}
}

func (o *overlay) GetDomain(ctx context.Context, name names.Name) (*registry.Domain, error) {
	if d, ok := o.domains[name]; ok {
		if d == nil {
			return nil, sentinel.ErrNotFound
		}
		return cloneDomain(d), nil
	}
	return o.base.GetDomain(ctx, name)
}

func (o *overlay) SaveDomain(_ context.Context, d *registry.Domain) error {
	o.domains[d.Name] = cloneDomain(d)
	return nil
}

func (o *overlay) DeleteDomain(_ context.Context, name names.Name) error {
	o.domains[name] = nil
	return nil
}

func (o *overlay) ListExpiringBefore(_ context.Context, cutoff time.Time, after *registry.ExpiryCursor, limit int) ([]*registry.Domain, error) {
	o.base.mu.RLock()
	defer o.base.mu.RUnlock()
	return expiringBefore(o.base.state.domains, o.domains, cutoff, after, limit), nil
}

func (o *overlay) GetCommitment(ctx context.Context, hash registry.Hash) (*registry.Commitment, error) {
	if c, ok := o.commitments[hash]; ok {
		if c == nil {
			return nil, sentinel.ErrNotFound
		}
		return cloneCommitment(c), nil
	}
	return o.base.GetCommitment(ctx, hash)
}

func (o *overlay) SaveCommitment(_ context.Context, c *registry.Commitment) error {
	o.commitments[c.Hash] = cloneCommitment(c)
	return nil
}

func (o *overlay) DeleteCommitment(_ context.Context, hash registry.Hash) error {
	o.commitments[hash] = nil
	return nil
}

func (o *overlay) Deposit(ctx context.Context, owner id.Address) (*big.Int, error) {
	if v, ok := o.deposits[owner]; ok {
		return id.Copy(v), nil
	}
	return o.base.Deposit(ctx, owner)
}

func (o *overlay) SetDeposit(_ context.Context, owner id.Address, amount *big.Int) error {
	o.deposits[owner] = id.Copy(amount)
	return nil
}

func (o *overlay) Escrow(ctx context.Context, name names.Name) (*big.Int, error) {
	if v, ok := o.escrows[name]; ok {
		return id.Copy(v), nil
	}
	return o.base.Escrow(ctx, name)
}

func (o *overlay) SetEscrow(_ context.Context, name names.Name, amount *big.Int) error {
	o.escrows[name] = id.Copy(amount)
	return nil
}

func (o *overlay) Totals(_ context.Context) (registry.Totals, error) {
	o.base.mu.RLock()
	defer o.base.mu.RUnlock()
	st := &o.base.state
	t := registry.Totals{
		Balance:            id.Add(st.balance, o.balanceDelta),
		Deposits:           id.Zero(),
		Escrows:            id.Zero(),
		CommitmentDeposits: id.Zero(),
	}
	for k, v := range st.deposits {
		if _, staged := o.deposits[k]; !staged {
			t.Deposits.Add(t.Deposits, v)
		}
	}
	for _, v := range o.deposits {
		t.Deposits.Add(t.Deposits, id.Copy(v))
	}
	for k, v := range st.escrows {
		if _, staged := o.escrows[k]; !staged {
			t.Escrows.Add(t.Escrows, v)
		}
	}
	for _, v := range o.escrows {
		t.Escrows.Add(t.Escrows, id.Copy(v))
	}
	for k, c := range st.commitments {
		if _, staged := o.commitments[k]; !staged {
			t.CommitmentDeposits.Add(t.CommitmentDeposits, id.Copy(c.Deposit))
		}
	}
	for _, c := range o.commitments {
		if c != nil {
			t.CommitmentDeposits.Add(t.CommitmentDeposits, id.Copy(c.Deposit))
		}
	}
	return t, nil
}

func (o *overlay) AdjustBalance(_ context.Context, delta *big.Int) error {
	o.balanceDelta = id.Add(o.balanceDelta, delta)
	return nil
}

func (o *overlay) NextTokenID(_ context.Context) (uint64, error) {
	o.nextToken++
	return o.nextToken, nil
}
