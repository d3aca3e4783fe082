package pass

import (
	"math/big"
	"sort"
	"time"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
)

var (
	ErrTokenNotFound      = dErrors.New(dErrors.CodeNotFound, "pass token not found")
	ErrNotHolder          = dErrors.New(dErrors.CodeForbidden, "caller does not hold this pass")
	ErrTransferRestricted = dErrors.New(dErrors.CodeForbidden, "pass transfers are restricted for this club")
	ErrSaleClosed         = dErrors.New(dErrors.CodeInvalidState, "pass price is not set")
)

// Club is the permanent-pass ledger of one club. Holders maps token id to
// the current holder; membership moves with the token.
type Club struct {
	Name            names.Name
	Admin           id.Address
	Price           *big.Int
	TransferAllowed bool
	Whitelist       map[id.Address]bool
	Holders         map[uint64]id.Address
	NextTokenID     uint64
	Proceeds        *big.Int
	CreatedAt       time.Time
}

func (c *Club) Clone() *Club {
	out := *c
	out.Price = id.Copy(c.Price)
	out.Proceeds = id.Copy(c.Proceeds)
	out.Whitelist = make(map[id.Address]bool, len(c.Whitelist))
	for k, v := range c.Whitelist {
		out.Whitelist[k] = v
	}
	out.Holders = make(map[uint64]id.Address, len(c.Holders))
	for k, v := range c.Holders {
		out.Holders[k] = v
	}
	return &out
}

// Holds reports whether user currently holds at least one pass.
func (c *Club) Holds(user id.Address) bool {
	for _, h := range c.Holders {
		if h == user {
			return true
		}
	}
	return false
}

// TokensOf returns user's pass token ids in ascending order.
func (c *Club) TokensOf(user id.Address) []uint64 {
	var out []uint64
	for tokenID, h := range c.Holders {
		if h == user {
			out = append(out, tokenID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CanTransfer applies the transfer policy to a transfer initiated by from.
func (c *Club) CanTransfer(from id.Address) bool {
	return c.TransferAllowed || c.Whitelist[from]
}

func (c *Club) mint(to id.Address) uint64 {
	c.NextTokenID++
	c.Holders[c.NextTokenID] = to
	return c.NextTokenID
}
