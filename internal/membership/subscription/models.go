package subscription

import (
	"math/big"
	"time"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
)

// Tier is a fixed subscription length.
type Tier string

const (
	TierMonthly   Tier = "monthly"
	TierQuarterly Tier = "quarterly"
	TierYearly    Tier = "yearly"
)

const day = 24 * time.Hour

var (
	ErrInvalidTier   = dErrors.New(dErrors.CodeInvalidInput, "unknown subscription tier")
	ErrTierNotPriced = dErrors.New(dErrors.CodeInvalidState, "subscription tier has no price")
	ErrNotReceiver   = dErrors.New(dErrors.CodeForbidden, "caller is not the club receiver")
)

// Tiers lists every tier, shortest first.
var Tiers = []Tier{TierMonthly, TierQuarterly, TierYearly}

func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if t.Duration() == 0 {
		return "", ErrInvalidTier
	}
	return t, nil
}

func (t Tier) Duration() time.Duration {
	switch t {
	case TierMonthly:
		return 30 * day
	case TierQuarterly:
		return 90 * day
	case TierYearly:
		return 365 * day
	default:
		return 0
	}
}

// Club is the subscription ledger of one club. Expiries are kept forever so
// a lapsed subscriber stays distinguishable from someone who never subscribed.
type Club struct {
	Name     names.Name
	Admin    id.Address
	Receiver id.Address
	Prices   map[Tier]*big.Int
	Expiries map[id.Address]time.Time
	// Payable is owed to Receiver; PlatformFees to the contract owner.
	Payable      *big.Int
	PlatformFees *big.Int
}

func (c *Club) Clone() *Club {
	out := *c
	out.Payable = id.Copy(c.Payable)
	out.PlatformFees = id.Copy(c.PlatformFees)
	out.Prices = make(map[Tier]*big.Int, len(c.Prices))
	for k, v := range c.Prices {
		out.Prices[k] = id.Copy(v)
	}
	out.Expiries = make(map[id.Address]time.Time, len(c.Expiries))
	for k, v := range c.Expiries {
		out.Expiries[k] = v
	}
	return &out
}

// PayoutAddress is the receiver, or the admin while no receiver is set.
func (c *Club) PayoutAddress() id.Address {
	if c.Receiver.IsZero() {
		return c.Admin
	}
	return c.Receiver
}

// Extend applies a purchase of d at now: an active subscription grows by d,
// a lapsed or new one starts at now.
func (c *Club) Extend(user id.Address, d time.Duration, now time.Time) time.Time {
	base := now
	if exp, ok := c.Expiries[user]; ok && now.Before(exp) {
		base = exp
	}
	c.Expiries[user] = base.Add(d)
	return c.Expiries[user]
}

// IsActive reports whether user's subscription is unexpired at now.
func (c *Club) IsActive(user id.Address, now time.Time) bool {
	exp, ok := c.Expiries[user]
	return ok && now.Before(exp)
}
