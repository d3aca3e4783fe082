// Package tokengate grants membership to holders of configured tokens. Every
// check reads balances live; nothing is cached.
package tokengate

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/google/uuid"

	"clubdomains/internal/membership/source"
	"clubdomains/internal/platform/observability"
	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/audit"
)

type Service struct {
	store    Store
	balances BalanceReader
	pause    *pause.Switch

	logger         *slog.Logger
	auditPublisher audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func New(store Store, balances BalanceReader, sw *pause.Switch, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("gate store is required")
	}
	if balances == nil {
		return nil, errors.New("balance reader is required")
	}
	if sw == nil {
		return nil, errors.New("pause switch is required")
	}
	s := &Service{store: store, balances: balances, pause: sw}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Kind() source.Kind { return source.KindTokenGate }

func (s *Service) InitializeClub(ctx context.Context, name names.Name, admin id.Address) error {
	if err := s.pause.Ensure(); err != nil {
		return err
	}
	if admin.IsZero() {
		return source.ErrZeroAddress
	}
	return source.StoreErr(s.store.Create(ctx, name, &Club{Name: name, Admin: admin}))
}

// UninitializeClub removes the gate list; used to roll back a failed club creation.
func (s *Service) UninitializeClub(ctx context.Context, name names.Name) error {
	if err := s.pause.Ensure(); err != nil {
		return err
	}
	return source.StoreErr(s.store.Delete(ctx, name))
}

// TransferAdmin replaces the admin on behalf of the club registry. Gates are kept.
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

// AddGate appends a validated gate with a fresh id. Gates are never edited
// in place; replace one by removing it and adding another.
func (s *Service) AddGate(ctx context.Context, caller id.Address, name names.Name, gate Gate) (Gate, error) {
	if err := gate.Validate(); err != nil {
		return Gate{}, err
	}
	gate = gate.clone()
	gate.ID = uuid.New()
	err := s.adminUpdate(ctx, caller, name, func(c *Club) error {
		if len(c.Gates) >= MaxGates {
			return ErrTooManyGates
		}
		c.Gates = append(c.Gates, gate)
		return nil
	})
	if err != nil {
		return Gate{}, err
	}
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventGateAdded,
		"name", string(name),
		"actor", caller.String(),
		"gate_id", gate.ID.String(),
		"kind", string(gate.Kind),
	)
	return gate, nil
}

func (s *Service) RemoveGate(ctx context.Context, caller id.Address, name names.Name, gateID uuid.UUID) error {
	err := s.adminUpdate(ctx, caller, name, func(c *Club) error {
		i := c.indexOf(gateID)
		if i < 0 {
			return ErrGateNotFound
		}
		c.Gates = append(c.Gates[:i], c.Gates[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.EventGateRemoved,
		"name", string(name),
		"actor", caller.String(),
		"gate_id", gateID.String(),
	)
	return nil
}

func (s *Service) Gates(ctx context.Context, name names.Name) ([]Gate, error) {
	c, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, source.StoreErr(err)
	}
	return c.Gates, nil
}

// CrossChainGates returns the gates satisfied by oracle reports.
func (s *Service) CrossChainGates(ctx context.Context, name names.Name) ([]Gate, error) {
	gates, err := s.Gates(ctx, name)
	if err != nil {
		return nil, err
	}
	var out []Gate
	for _, g := range gates {
		if !g.IsLocal() {
			out = append(out, g)
		}
	}
	return out, nil
}

// HasMembership equals HasActiveMembership: gate membership has no history.
func (s *Service) HasMembership(ctx context.Context, name names.Name, user id.Address) (bool, error) {
	return s.HasActiveMembership(ctx, name, user)
}

// HasActiveMembership is the OR over local gates. A failed balance read
// counts as "no" for that gate; the error is returned only if no gate passed.
func (s *Service) HasActiveMembership(ctx context.Context, name names.Name, user id.Address) (bool, error) {
	gates, err := s.Gates(ctx, name)
	if err != nil {
		return false, err
	}
	var errs []error
	for _, g := range gates {
		if !g.IsLocal() {
			continue
		}
		ok, err := s.satisfies(ctx, g, user)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

func (s *Service) satisfies(ctx context.Context, g Gate, user id.Address) (bool, error) {
	var (
		balance *big.Int
		err     error
	)
	switch g.Kind {
	case KindNFTBalance:
		balance, err = s.balances.BalanceOfID(ctx, g.TokenAddress, user, g.TokenID)
	default:
		balance, err = s.balances.BalanceOf(ctx, g.TokenAddress, user)
	}
	if err != nil {
		return false, err
	}
	return id.GTE(balance, g.Threshold), nil
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
