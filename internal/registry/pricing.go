package registry

import (
	"math/big"
	"time"

	"clubdomains/internal/platform/config"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
)

// Pricing computes registration and renewal fees.
type Pricing struct {
	cfg config.Registry
}

func NewPricing(cfg config.Registry) Pricing {
	return Pricing{cfg: cfg}
}

// YearlyPrice is the premium price for short names, the base price otherwise.
func (p Pricing) YearlyPrice(name names.Name) *big.Int {
	if name.Len() <= p.cfg.PremiumMaxLength {
		return id.Copy(p.cfg.PremiumPrice)
	}
	return id.Copy(p.cfg.BasePrice)
}

// Price is YearlyPrice × years.
func (p Pricing) Price(name names.Name, years int) *big.Int {
	return id.MulInt(p.YearlyPrice(name), int64(years))
}

// RenewalFee applies the grace penalty once now is past expiry + GracePenaltyThreshold.
func (p Pricing) RenewalFee(d *Domain, years int, now time.Time) (fee *big.Int, penalized bool) {
	fee = p.Price(d.Name, years)
	if now.After(d.Expiry.Add(p.cfg.GracePenaltyThreshold)) {
		return id.MulRatio(fee, p.cfg.GracePenaltyRatio, 1000), true
	}
	return fee, false
}

// ValidYears reports whether years is within 1..MaxYears.
func (p Pricing) ValidYears(years int) bool {
	return years >= 1 && years <= p.cfg.MaxYears
}

// Extend returns max(now, expiry) + years.
func Extend(expiry, now time.Time, years int) time.Time {
	base := expiry
	if now.After(base) {
		base = now
	}
	return base.Add(time.Duration(years) * config.Year)
}
