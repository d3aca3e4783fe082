package registry

import (
	"context"
	"math/big"
	"time"

	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
)

// Store is the registry ledger. Lookups of absent rows return sentinel.ErrNotFound.
// Amount getters return zero for absent rows.
type Store interface {
	GetDomain(ctx context.Context, name names.Name) (*Domain, error)
	SaveDomain(ctx context.Context, d *Domain) error
	DeleteDomain(ctx context.Context, name names.Name) error
	// ListExpiringBefore pages through domains expiring before cutoff ordered by
	// (expiry, name). A nil after starts from the oldest.
	ListExpiringBefore(ctx context.Context, cutoff time.Time, after *ExpiryCursor, limit int) ([]*Domain, error)

	GetCommitment(ctx context.Context, hash Hash) (*Commitment, error)
	SaveCommitment(ctx context.Context, c *Commitment) error
	DeleteCommitment(ctx context.Context, hash Hash) error

	Deposit(ctx context.Context, owner id.Address) (*big.Int, error)
	SetDeposit(ctx context.Context, owner id.Address, amount *big.Int) error
	Escrow(ctx context.Context, name names.Name) (*big.Int, error)
	SetEscrow(ctx context.Context, name names.Name, amount *big.Int) error

	Totals(ctx context.Context) (Totals, error)
	// AdjustBalance adds delta (possibly negative) to the ledger balance.
	AdjustBalance(ctx context.Context, delta *big.Int) error
	NextTokenID(ctx context.Context) (uint64, error)
}

// ExpiryCursor is the (expiry, name) position of the last row of a page.
type ExpiryCursor struct {
	Expiry time.Time
	Name   names.Name
}

// CursorAfter returns the cursor that resumes after d.
func CursorAfter(d *Domain) *ExpiryCursor {
	return &ExpiryCursor{Expiry: d.Expiry, Name: d.Name}
}

// Follows reports whether d sorts strictly after the cursor.
func (c *ExpiryCursor) Follows(d *Domain) bool {
	if c == nil {
		return true
	}
	if !d.Expiry.Equal(c.Expiry) {
		return d.Expiry.After(c.Expiry)
	}
	return d.Name > c.Name
}

// Tx runs fn atomically: every write inside fn commits together or not at all.
type Tx interface {
	RunInTx(ctx context.Context, fn func(store Store) error) error
}
