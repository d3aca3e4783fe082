package tokengate

import (
	"context"
	"math/big"
	"sync"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
)

// BalanceReader answers live token balance queries.
type BalanceReader interface {
	// BalanceOf returns a fungible balance or an NFT collection count.
	BalanceOf(ctx context.Context, token, holder id.Address) (*big.Int, error)
	// BalanceOfID returns the balance of one token id in a multi-token contract.
	BalanceOfID(ctx context.Context, token, holder id.Address, tokenID *big.Int) (*big.Int, error)
}

var ErrInsufficientBalance = dErrors.New(dErrors.CodeInsufficientFunds, "insufficient token balance")

type balanceKey struct {
	token   id.Address
	holder  id.Address
	tokenID string
}

// Ledger is an in-process BalanceReader for local runs and tests.
type Ledger struct {
	mu       sync.RWMutex
	balances map[balanceKey]*big.Int
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[balanceKey]*big.Int)}
}

func key(token, holder id.Address, tokenID *big.Int) balanceKey {
	k := balanceKey{token: token, holder: holder}
	if tokenID != nil {
		k.tokenID = tokenID.String()
	}
	return k
}

// Set overwrites a balance. tokenID is nil for fungible and collection balances.
func (l *Ledger) Set(token, holder id.Address, tokenID, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[key(token, holder, tokenID)] = id.Copy(amount)
}

// Transfer moves amount of token between holders.
func (l *Ledger) Transfer(token, from, to id.Address, tokenID, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	fk, tk := key(token, from, tokenID), key(token, to, tokenID)
	if !id.GTE(l.balances[fk], amount) {
		return ErrInsufficientBalance
	}
	l.balances[fk] = id.Sub(l.balances[fk], amount)
	l.balances[tk] = id.Add(l.balances[tk], amount)
	return nil
}

func (l *Ledger) BalanceOf(_ context.Context, token, holder id.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return id.Copy(l.balances[key(token, holder, nil)]), nil
}

func (l *Ledger) BalanceOfID(_ context.Context, token, holder id.Address, tokenID *big.Int) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return id.Copy(l.balances[key(token, holder, tokenID)]), nil
}
