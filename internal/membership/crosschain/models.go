package crosschain

import (
	"math/big"
	"strings"
	"time"

	"clubdomains/internal/membership/tokengate"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
)

var (
	ErrNotOracle        = dErrors.New(dErrors.CodeForbidden, "caller is not an allowed oracle")
	ErrNoMatchingGate   = dErrors.New(dErrors.CodeInvalidState, "club has no cross-chain gate for this token")
	ErrInsufficientFee  = dErrors.New(dErrors.CodeInsufficientFunds, "fee is below the verification fee")
	ErrInvalidChain     = dErrors.New(dErrors.CodeInvalidInput, "chain id is required")
	ErrInvalidToken     = dErrors.New(dErrors.CodeInvalidInput, "token address is required")
	ErrNegativeBalance  = dErrors.New(dErrors.CodeInvalidInput, "balance must not be negative")
	ErrOracleNotAllowed = dErrors.New(dErrors.CodeNotFound, "oracle is not on the allow-list")
)

// Record is the last oracle report for (club, user, chain).
type Record struct {
	Name         names.Name `json:"name"`
	User         id.Address `json:"user"`
	ChainID      uint64     `json:"chain_id"`
	TokenAddress string     `json:"token_address"`
	Balance      *big.Int   `json:"balance"`
	Active       bool       `json:"active"`
	Oracle       id.Address `json:"oracle"`
	VerifiedAt   time.Time  `json:"verified_at"`
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Balance = id.Copy(r.Balance)
	return &out
}

func (r *Record) key() recordKey {
	return recordKey{name: r.Name, user: r.User, chainID: r.ChainID}
}

// Satisfies reports whether the record meets gate g right now.
func (r *Record) Satisfies(g tokengate.Gate) bool {
	return r.Active &&
		r.ChainID == g.ChainID &&
		strings.EqualFold(r.TokenAddress, g.RemoteAddress) &&
		id.GTE(r.Balance, g.Threshold)
}

type recordKey struct {
	name    names.Name
	user    id.Address
	chainID uint64
}

// matchGate returns the cross-chain gate for chainID and tokenAddress.
func matchGate(gates []tokengate.Gate, chainID uint64, tokenAddress string) (tokengate.Gate, bool) {
	for _, g := range gates {
		if g.ChainID == chainID && strings.EqualFold(g.RemoteAddress, tokenAddress) {
			return g, true
		}
	}
	return tokengate.Gate{}, false
}
