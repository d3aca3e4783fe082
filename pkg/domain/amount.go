package domain

import (
	"math/big"
	"strings"

	dErrors "clubdomains/pkg/domain-errors"
)

// Amounts are denominated in the chain's smallest native value unit and are
// carried as *big.Int. Helpers here never mutate their arguments.

// Zero returns a fresh zero amount.
func Zero() *big.Int {
	return new(big.Int)
}

// Copy returns an independent copy of v, treating nil as zero.
func Copy(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Add returns a+b.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(Copy(a), Copy(b))
}

// Sub returns a-b.
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(Copy(a), Copy(b))
}

// MulInt returns v*n.
func MulInt(v *big.Int, n int64) *big.Int {
	return new(big.Int).Mul(Copy(v), big.NewInt(n))
}

// MulRatio returns v*num/den, rounding down.
func MulRatio(v *big.Int, num, den int64) *big.Int {
	out := new(big.Int).Mul(Copy(v), big.NewInt(num))
	return out.Quo(out, big.NewInt(den))
}

// IsPositive reports whether v > 0.
func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

// GTE reports whether a >= b, treating nil as zero.
func GTE(a, b *big.Int) bool {
	return Copy(a).Cmp(Copy(b)) >= 0
}

// ParseAmount parses a non-negative base-10 integer amount.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must be a base-10 integer")
	}
	if v.Sign() < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must not be negative")
	}
	return v, nil
}
