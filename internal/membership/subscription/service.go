// Package subscription implements time-limited club memberships sold in fixed
// tiers, with a platform fee skimmed before the club receiver is credited.
package subscription

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	"clubdomains/internal/membership/metrics"
	"clubdomains/internal/membership/source"
	"clubdomains/internal/platform/observability"
	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/audit"
	"clubdomains/pkg/requestcontext"
)

const bpsDenominator = 10_000

type Service struct {
	store          Store
	pause          *pause.Switch
	platformFeeBps int64
	roster         source.Roster

	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, sw *pause.Switch, platformFeeBps int64, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("subscription store is required")
	}
	if sw == nil {
		return nil, errors.New("pause switch is required")
	}
	if platformFeeBps < 0 || platformFeeBps > bpsDenominator {
		return nil, errors.New("platform fee must be between 0 and 10000 basis points")
	}
	s := &Service{store: store, pause: sw, platformFeeBps: platformFeeBps}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetRoster wires the club roster. Call during startup, before serving.
func (s *Service) SetRoster(r source.Roster) { s.roster = r }

func (s *Service) Kind() source.Kind { return source.KindTemporary }

func (s *Service) InitializeClub(ctx context.Context, name names.Name, admin id.Address) error {
	if err := s.pause.Ensure(); err != nil {
		return err
	}
	if admin.IsZero() {
		return source.ErrZeroAddress
	}
	err := s.store.Create(ctx, name, &Club{
		Name:         name,
		Admin:        admin,
		Prices:       map[Tier]*big.Int{},
		Expiries:     map[id.Address]time.Time{},
		Payable:      id.Zero(),
		PlatformFees: id.Zero(),
	})
	return source.StoreErr(err)
}

// UninitializeClub removes the ledger; used to roll back a failed club creation.
func (s *Service) UninitializeClub(ctx context.Context, name names.Name) error {
	if err := s.pause.Ensure(); err != nil {
		return err
	}
	return source.StoreErr(s.store.Delete(ctx, name))
}

// TransferAdmin replaces the admin on behalf of the club registry.
func (s *Service) TransferAdmin(ctx context.Context, name names.Name, admin id.Address) (id.Address, error) {
	if err := s.pause.Ensure(); err != nil {
		return id.ZeroAddress, err
	}
	if admin.IsZero() {
		return id.ZeroAddress, source.ErrZeroAddress
	}
	var previous id.Address
	err := s.store.Update(ctx, name, func(c *Club) error {
		previous = c.Admin
		c.Admin = admin
		return nil
	})
	return previous, source.StoreErr(err)
}

func (s *Service) SetAdmin(ctx context.Context, caller id.Address, name names.Name, admin id.Address) error {
	if admin.IsZero() {
		return source.ErrZeroAddress
	}
	return s.adminUpdate(ctx, caller, name, func(c *Club) error {
		c.Admin = admin
		return nil
	})
}

// SetTierPrice prices one tier. A zero price takes the tier off sale.
func (s *Service) SetTierPrice(ctx context.Context, caller id.Address, name names.Name, tier Tier, price *big.Int) error {
	if tier.Duration() == 0 {
		return ErrInvalidTier
	}
	if price == nil || price.Sign() < 0 {
		return source.ErrInvalidAmount
	}
	return s.adminUpdate(ctx, caller, name, func(c *Club) error {
		if price.Sign() == 0 {
			delete(c.Prices, tier)
		} else {
			c.Prices[tier] = id.Copy(price)
		}
		return nil
	})
}

func (s *Service) SetReceiver(ctx context.Context, caller id.Address, name names.Name, receiver id.Address) error {
	if receiver.IsZero() {
		return source.ErrZeroAddress
	}
	return s.adminUpdate(ctx, caller, name, func(c *Club) error {
		c.Receiver = receiver
		return nil
	})
}

// Purchase buys one tier for buyer and returns the new expiry. The platform
// fee is taken from the whole payment; the remainder is owed to the receiver.
func (s *Service) Purchase(ctx context.Context, buyer id.Address, name names.Name, tier Tier, payment *big.Int) (time.Time, error) {
	if err := s.pause.Ensure(); err != nil {
		return time.Time{}, err
	}
	if buyer.IsZero() {
		return time.Time{}, source.ErrZeroAddress
	}
	if tier.Duration() == 0 {
		return time.Time{}, ErrInvalidTier
	}
	now := requestcontext.Now(ctx)

	var expiry time.Time
	err := s.store.Update(ctx, name, func(c *Club) error {
		price, ok := c.Prices[tier]
		if !ok {
			return ErrTierNotPriced
		}
		if !id.GTE(payment, price) {
			return source.ErrInsufficientFunds
		}
		fee := id.MulRatio(payment, s.platformFeeBps, bpsDenominator)
		c.PlatformFees = id.Add(c.PlatformFees, fee)
		c.Payable = id.Add(c.Payable, id.Sub(payment, fee))
		expiry = c.Extend(buyer, tier.Duration(), now)
		return nil
	})
	if err != nil {
		return time.Time{}, source.StoreErr(err)
	}

	s.metrics.IncAcquisition(string(source.KindTemporary), string(tier))
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventSubscriptionPurchased,
		"name", string(name),
		"actor", buyer.String(),
		"tier", string(tier),
		"expiry", expiry,
	)
	if s.roster != nil {
		if err := s.roster.RecordMember(ctx, name, buyer); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to record club member",
				"name", string(name),
				"user", buyer.String(),
				"error", err,
			)
		}
	}
	return expiry, nil
}

// WithdrawPayout pays the receiver everything owed by the club.
func (s *Service) WithdrawPayout(ctx context.Context, caller id.Address, name names.Name) (*big.Int, error) {
	if err := s.pause.Ensure(); err != nil {
		return nil, err
	}
	var amount *big.Int
	err := s.store.Update(ctx, name, func(c *Club) error {
		if caller.IsZero() || caller != c.PayoutAddress() {
			return ErrNotReceiver
		}
		if c.Payable.Sign() == 0 {
			return source.ErrNothingToWithdraw
		}
		amount, c.Payable = c.Payable, id.Zero()
		return nil
	})
	return amount, source.StoreErr(err)
}

// WithdrawPlatformFees pays the club's accumulated platform fees to the owner.
func (s *Service) WithdrawPlatformFees(ctx context.Context, caller id.Address, name names.Name) (*big.Int, error) {
	if err := s.pause.Ensure(); err != nil {
		return nil, err
	}
	if err := s.pause.RequireOwner(caller); err != nil {
		return nil, err
	}
	var amount *big.Int
	err := s.store.Update(ctx, name, func(c *Club) error {
		if c.PlatformFees.Sign() == 0 {
			return source.ErrNothingToWithdraw
		}
		amount, c.PlatformFees = c.PlatformFees, id.Zero()
		return nil
	})
	return amount, source.StoreErr(err)
}

// Expiry returns user's subscription expiry; ok is false if user never subscribed.
func (s *Service) Expiry(ctx context.Context, name names.Name, user id.Address) (time.Time, bool, error) {
	c, err := s.store.Get(ctx, name)
	if err != nil {
		return time.Time{}, false, source.StoreErr(err)
	}
	exp, ok := c.Expiries[user]
	return exp, ok, nil
}

func (s *Service) HasMembership(ctx context.Context, name names.Name, user id.Address) (bool, error) {
	_, ok, err := s.Expiry(ctx, name, user)
	return ok, err
}

func (s *Service) HasActiveMembership(ctx context.Context, name names.Name, user id.Address) (bool, error) {
	c, err := s.store.Get(ctx, name)
	if err != nil {
		return false, source.StoreErr(err)
	}
	return c.IsActive(user, requestcontext.Now(ctx)), nil
}

func (s *Service) Club(ctx context.Context, name names.Name) (*Club, error) {
	c, err := s.store.Get(ctx, name)
	return c, source.StoreErr(err)
}

func (s *Service) adminUpdate(ctx context.Context, caller id.Address, name names.Name, fn func(*Club) error) error {
	if err := s.pause.Ensure(); err != nil {
		return err
	}
	err := s.store.Update(ctx, name, func(c *Club) error {
		if err := source.Authorize(s.pause, c.Admin, caller); err != nil {
			return err
		}
		return fn(c)
	})
	return source.StoreErr(err)
}
