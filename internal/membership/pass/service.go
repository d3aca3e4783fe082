// Package pass implements permanent membership passes: one token per pass,
// no expiry, and membership that moves with the token.
package pass

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"clubdomains/internal/membership/metrics"
	"clubdomains/internal/membership/source"
	"clubdomains/internal/platform/observability"
	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/audit"
	"clubdomains/pkg/requestcontext"
)

type Service struct {
	store  Store
	pause  *pause.Switch
	roster source.Roster

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

func New(store Store, sw *pause.Switch, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("pass store is required")
	}
	if sw == nil {
		return nil, errors.New("pause switch is required")
	}
	s := &Service{store: store, pause: sw}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SetRoster wires the club roster. Call during startup, before serving.
func (s *Service) SetRoster(r source.Roster) { s.roster = r }

func (s *Service) Kind() source.Kind { return source.KindPermanent }

// CreateClub opens the pass ledger for name. There is no inverse: once
// created, the ledger stays even if later club setup fails.
func (s *Service) CreateClub(ctx context.Context, name names.Name, admin id.Address) error {
	if err := s.pause.Ensure(); err != nil {
		return err
	}
	if admin.IsZero() {
		return source.ErrZeroAddress
	}
	err := s.store.Create(ctx, name, &Club{
		Name:      name,
		Admin:     admin,
		Price:     id.Zero(),
		Whitelist: map[id.Address]bool{},
		Holders:   map[uint64]id.Address{},
		Proceeds:  id.Zero(),
		CreatedAt: requestcontext.Now(ctx),
	})
	return source.StoreErr(err)
}

// TransferAdmin replaces the admin on behalf of the club registry and
// returns the previous admin for compensation.
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

// SetPrice sets the purchase price. Zero closes public sale.
func (s *Service) SetPrice(ctx context.Context, caller id.Address, name names.Name, price *big.Int) error {
	if price == nil || price.Sign() < 0 {
		return source.ErrInvalidAmount
	}
	return s.adminUpdate(ctx, caller, name, func(c *Club) error {
		c.Price = id.Copy(price)
		return nil
	})
}

func (s *Service) SetTransferPolicy(ctx context.Context, caller id.Address, name names.Name, allowed bool) error {
	return s.adminUpdate(ctx, caller, name, func(c *Club) error {
		c.TransferAllowed = allowed
		return nil
	})
}

// SetWhitelisted lets addr move passes while transfers are restricted.
func (s *Service) SetWhitelisted(ctx context.Context, caller id.Address, name names.Name, addr id.Address, allowed bool) error {
	if addr.IsZero() {
		return source.ErrZeroAddress
	}
	return s.adminUpdate(ctx, caller, name, func(c *Club) error {
		if allowed {
			c.Whitelist[addr] = true
		} else {
			delete(c.Whitelist, addr)
		}
		return nil
	})
}

// Mint issues a pass to `to`. Admin or owner only.
func (s *Service) Mint(ctx context.Context, caller id.Address, name names.Name, to id.Address) (uint64, error) {
	if to.IsZero() {
		return 0, source.ErrZeroAddress
	}
	var tokenID uint64
	err := s.adminUpdate(ctx, caller, name, func(c *Club) error {
		tokenID = c.mint(to)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.acquired(ctx, name, to, tokenID, audit.EventPassMinted, "mint", caller)
	return tokenID, nil
}

// Purchase sells a pass to buyer at the current price. The whole payment is
// kept as club proceeds.
func (s *Service) Purchase(ctx context.Context, buyer id.Address, name names.Name, payment *big.Int) (uint64, error) {
	if err := s.pause.Ensure(); err != nil {
		return 0, err
	}
	if buyer.IsZero() {
		return 0, source.ErrZeroAddress
	}
	var tokenID uint64
	err := s.store.Update(ctx, name, func(c *Club) error {
		if c.Price.Sign() == 0 {
			return ErrSaleClosed
		}
		if !id.GTE(payment, c.Price) {
			return source.ErrInsufficientFunds
		}
		c.Proceeds = id.Add(c.Proceeds, payment)
		tokenID = c.mint(buyer)
		return nil
	})
	if err != nil {
		return 0, source.StoreErr(err)
	}
	s.acquired(ctx, name, buyer, tokenID, audit.EventPassPurchased, "purchase", buyer)
	return tokenID, nil
}

// Transfer moves a pass, and the membership it carries, from its holder to `to`.
func (s *Service) Transfer(ctx context.Context, caller id.Address, name names.Name, tokenID uint64, to id.Address) error {
	if err := s.pause.Ensure(); err != nil {
		return err
	}
	if to.IsZero() {
		return source.ErrZeroAddress
	}
	err := s.store.Update(ctx, name, func(c *Club) error {
		holder, ok := c.Holders[tokenID]
		if !ok {
			return ErrTokenNotFound
		}
		if holder != caller {
			return ErrNotHolder
		}
		if !c.CanTransfer(caller) {
			return ErrTransferRestricted
		}
		c.Holders[tokenID] = to
		return nil
	})
	if err != nil {
		return source.StoreErr(err)
	}
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventPassTransferred,
		"name", string(name),
		"actor", caller.String(),
		"target", to.String(),
		"token_id", tokenID,
	)
	s.recordMember(ctx, name, to)
	return nil
}

// WithdrawProceeds pays out accumulated sales to the club admin.
func (s *Service) WithdrawProceeds(ctx context.Context, caller id.Address, name names.Name) (*big.Int, error) {
	var amount *big.Int
	err := s.adminUpdate(ctx, caller, name, func(c *Club) error {
		if c.Proceeds.Sign() == 0 {
			return source.ErrNothingToWithdraw
		}
		amount, c.Proceeds = c.Proceeds, id.Zero()
		return nil
	})
	return amount, err
}

// HasMembership matches HasActiveMembership: a transferred pass takes the
// membership with it.
func (s *Service) HasMembership(ctx context.Context, name names.Name, user id.Address) (bool, error) {
	return s.HasActiveMembership(ctx, name, user)
}

func (s *Service) HasActiveMembership(ctx context.Context, name names.Name, user id.Address) (bool, error) {
	c, err := s.store.Get(ctx, name)
	if err != nil {
		return false, source.StoreErr(err)
	}
	return c.Holds(user), nil
}

func (s *Service) Club(ctx context.Context, name names.Name) (*Club, error) {
	c, err := s.store.Get(ctx, name)
	return c, source.StoreErr(err)
}

func (s *Service) HolderOf(ctx context.Context, name names.Name, tokenID uint64) (id.Address, error) {
	c, err := s.store.Get(ctx, name)
	if err != nil {
		return id.ZeroAddress, source.StoreErr(err)
	}
	holder, ok := c.Holders[tokenID]
	if !ok {
		return id.ZeroAddress, ErrTokenNotFound
	}
	return holder, nil
}

// adminUpdate runs fn under the pause check and the admin-or-owner check.
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

func (s *Service) acquired(ctx context.Context, name names.Name, user id.Address, tokenID uint64, event audit.AuditEvent, kind string, actor id.Address) {
	s.metrics.IncAcquisition(string(source.KindPermanent), kind)
	observability.LogAudit(ctx, s.logger, s.auditPublisher, event,
		"name", string(name),
		"actor", actor.String(),
		"target", user.String(),
		"token_id", tokenID,
	)
	s.recordMember(ctx, name, user)
}

func (s *Service) recordMember(ctx context.Context, name names.Name, user id.Address) {
	if s.roster == nil {
		return
	}
	if err := s.roster.RecordMember(ctx, name, user); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to record club member",
			"name", string(name),
			"user", user.String(),
			"error", err,
		)
	}
}
