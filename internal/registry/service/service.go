package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"clubdomains/internal/platform/config"
	"clubdomains/internal/platform/observability"
	"clubdomains/internal/platform/pause"
	"clubdomains/internal/registry"
	"clubdomains/internal/registry/metrics"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/audit"
	"clubdomains/pkg/platform/sentinel"
	"clubdomains/pkg/requestcontext"
)

// Service owns the domain lifecycle: commit-reveal registration, renewal,
// auto-renewal escrow, transfer, reclaim and the funds ledger.
type Service struct {
	store   registry.Store
	tx      registry.Tx
	cfg     config.Registry
	pricing registry.Pricing
	pause   *pause.Switch

	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics

	listenersMu sync.RWMutex
	listeners   []registry.DomainListener

	keeperBatch int
}

func New(store registry.Store, tx registry.Tx, cfg config.Registry, sw *pause.Switch, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry store is required")
	}
	if tx == nil {
		return nil, errors.New("registry tx is required")
	}
	if sw == nil {
		return nil, errors.New("pause switch is required")
	}
	if cfg.BasePrice == nil || cfg.PremiumPrice == nil {
		return nil, errors.New("registry prices are required")
	}
	s := &Service{
		store:   store,
		tx:      tx,
		cfg:     cfg,
		pricing: registry.NewPricing(cfg),
		pause:   sw,

		keeperBatch: keeperBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddListener subscribes l after construction, for components built later.
func (s *Service) AddListener(l registry.DomainListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// -----------------------------------------------------------------------------
// Commit-reveal registration
// -----------------------------------------------------------------------------

// Commit records a registration intent. A pending commitment with the same hash
// is rejected; a stale one is replaced and its deposit credited to its committer.
func (s *Service) Commit(ctx context.Context, caller id.Address, hash registry.Hash, deposit *big.Int) error {
	if hash.IsZero() {
		return registry.ErrInvalidCommitment
	}
	if deposit == nil {
		deposit = id.Zero()
	}
	if deposit.Sign() < 0 {
		return registry.ErrInvalidAmount
	}
	now := requestcontext.Now(ctx)

	err := s.mutate(ctx, "commit", func(st registry.Store) error {
		existing, err := st.GetCommitment(ctx, hash)
		switch {
		case err == nil:
			if existing.Age(now) <= s.cfg.MaxCommitmentAge {
				return registry.ErrCommitmentExists
			}
			if err := credit(ctx, st, existing.Committer, existing.Deposit); err != nil {
				return err
			}
		case !errors.Is(err, sentinel.ErrNotFound):
			return err
		}
		if err := st.AdjustBalance(ctx, deposit); err != nil {
			return err
		}
		return st.SaveCommitment(ctx, &registry.Commitment{
			Hash:      hash,
			Committer: caller,
			CreatedAt: now,
			Deposit:   id.Copy(deposit),
		})
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventDomainCommitted, "actor", caller.String(), "commitment", hash.String())
	return nil
}

// Register reveals a commitment and creates the domain.
func (s *Service) Register(ctx context.Context, caller id.Address, req registry.RegisterRequest) (*registry.Domain, error) {
	if !s.pricing.ValidYears(req.Years) {
		return nil, registry.ErrInvalidDuration
	}
	name, err := names.Parse(req.Name)
	if err != nil {
		return nil, err
	}
	if req.Owner.IsZero() {
		return nil, registry.ErrZeroAddress
	}
	payment := id.Copy(req.Payment)
	if payment.Sign() < 0 {
		return nil, registry.ErrInvalidAmount
	}
	now := requestcontext.Now(ctx)
	hash := registry.MakeCommitment(name, req.Owner, req.Secret)
	fee := s.pricing.Price(name, req.Years)

	var domain *registry.Domain
	err = s.mutate(ctx, "register", func(st registry.Store) error {
		c, err := st.GetCommitment(ctx, hash)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return registry.ErrCommitmentNotFound
			}
			return err
		}
		age := c.Age(now)
		if age < s.cfg.MinCommitmentAge {
			return registry.ErrCommitmentTooNew
		}
		if age > s.cfg.MaxCommitmentAge {
			return registry.ErrCommitmentExpired
		}

		if _, err := st.GetDomain(ctx, name); err == nil {
			return registry.ErrNameUnavailable
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		if err := s.charge(ctx, st, caller, payment, fee); err != nil {
			return err
		}
		if err := st.DeleteCommitment(ctx, hash); err != nil {
			return err
		}
		if err := credit(ctx, st, c.Committer, c.Deposit); err != nil {
			return err
		}

		tokenID, err := st.NextTokenID(ctx)
		if err != nil {
			return err
		}
		domain = &registry.Domain{
			Name:         name,
			Owner:        req.Owner,
			RegisteredAt: now,
			Expiry:       now.Add(time.Duration(req.Years) * config.Year),
			TokenID:      tokenID,
		}
		return st.SaveDomain(ctx, domain)
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventDomainRegistered,
		"name", string(name),
		"actor", caller.String(),
		"target", req.Owner.String(),
		"token_id", domain.TokenID,
		"fee", fee.String(),
	)
	s.notifyRegistered(ctx, registry.DomainEvent{Name: name, Owner: domain.Owner, TokenID: domain.TokenID})
	return domain, nil
}

// -----------------------------------------------------------------------------
// Renewal
// -----------------------------------------------------------------------------

// Renew extends a live domain by years, paid from the caller's deposit plus payment.
func (s *Service) Renew(ctx context.Context, caller id.Address, rawName string, years int, payment *big.Int) (*registry.Domain, error) {
	if !s.pricing.ValidYears(years) {
		return nil, registry.ErrInvalidDuration
	}
	name, err := names.Parse(rawName)
	if err != nil {
		return nil, err
	}
	payment = id.Copy(payment)
	if payment.Sign() < 0 {
		return nil, registry.ErrInvalidAmount
	}
	now := requestcontext.Now(ctx)

	var (
		domain    *registry.Domain
		fee       *big.Int
		penalized bool
	)
	err = s.mutate(ctx, "renew", func(st registry.Store) error {
		d, err := loadDomain(ctx, st, name)
		if err != nil {
			return err
		}
		if !d.IsLive(now, s.cfg.GracePeriod) {
			return registry.ErrNotRenewable
		}
		fee, penalized = s.pricing.RenewalFee(d, years, now)
		if err := s.charge(ctx, st, caller, payment, fee); err != nil {
			return err
		}
		d.Expiry = registry.Extend(d.Expiry, now, years)
		domain = d
		return st.SaveDomain(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDomainRenewed,
		"name", string(name),
		"actor", caller.String(),
		"fee", fee.String(),
		"penalized", penalized,
	)
	s.notifyRenewed(ctx, registry.DomainEvent{Name: name, Owner: domain.Owner, TokenID: domain.TokenID})
	return domain, nil
}

// FundAutoRenewal adds amount to the domain's auto-renewal escrow. Owner only.
func (s *Service) FundAutoRenewal(ctx context.Context, caller id.Address, rawName string, amount *big.Int) (*big.Int, error) {
	name, err := names.Parse(rawName)
	if err != nil {
		return nil, err
	}
	if !id.IsPositive(amount) {
		return nil, registry.ErrInvalidAmount
	}
	now := requestcontext.Now(ctx)

	var escrow *big.Int
	err = s.mutate(ctx, "fund_auto_renewal", func(st registry.Store) error {
		d, err := loadDomain(ctx, st, name)
		if err != nil {
			return err
		}
		if d.Owner != caller {
			return registry.ErrNotDomainOwner
		}
		if !d.IsLive(now, s.cfg.GracePeriod) {
			return registry.ErrNotRenewable
		}
		current, err := st.Escrow(ctx, name)
		if err != nil {
			return err
		}
		escrow = id.Add(current, amount)
		if err := st.AdjustBalance(ctx, amount); err != nil {
			return err
		}
		return st.SetEscrow(ctx, name, escrow)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventEscrowFunded, "name", string(name), "actor", caller.String(), "amount", amount.String())
	return escrow, nil
}

// WithdrawAutoRenewal pays the whole escrow back to the owner.
func (s *Service) WithdrawAutoRenewal(ctx context.Context, caller id.Address, rawName string) (*big.Int, error) {
	name, err := names.Parse(rawName)
	if err != nil {
		return nil, err
	}

	var amount *big.Int
	err = s.mutate(ctx, "withdraw_auto_renewal", func(st registry.Store) error {
		d, err := loadDomain(ctx, st, name)
		if err != nil {
			return err
		}
		if d.Owner != caller {
			return registry.ErrNotDomainOwner
		}
		amount, err = st.Escrow(ctx, name)
		if err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return registry.ErrNothingToWithdraw
		}
		if err := st.SetEscrow(ctx, name, id.Zero()); err != nil {
			return err
		}
		return st.AdjustBalance(ctx, new(big.Int).Neg(amount))
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventEscrowWithdrawn, "name", string(name), "actor", caller.String(), "amount", amount.String())
	return amount, nil
}

// ExecuteAutoRenewal renews one year from escrow once the domain is in Grace
// or within AutoRenewLeadTime of expiry. Callable by anyone.
func (s *Service) ExecuteAutoRenewal(ctx context.Context, rawName string) (*registry.Domain, error) {
	name, err := names.Parse(rawName)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var (
		domain *registry.Domain
		fee    *big.Int
	)
	err = s.mutate(ctx, "execute_auto_renewal", func(st registry.Store) error {
		d, err := loadDomain(ctx, st, name)
		if err != nil {
			return err
		}
		switch d.StatusAt(now, s.cfg.GracePeriod) {
		case registry.StatusActive:
			if now.Before(d.Expiry.Add(-s.cfg.AutoRenewLeadTime)) {
				return registry.ErrAutoRenewalNotDue
			}
		case registry.StatusGrace:
		default:
			return registry.ErrNotRenewable
		}
		fee, _ = s.pricing.RenewalFee(d, 1, now)
		escrow, err := st.Escrow(ctx, name)
		if err != nil {
			return err
		}
		if !id.GTE(escrow, fee) {
			return registry.ErrInsufficientEscrow
		}
		if err := st.SetEscrow(ctx, name, id.Sub(escrow, fee)); err != nil {
			return err
		}
		d.Expiry = registry.Extend(d.Expiry, now, 1)
		domain = d
		return st.SaveDomain(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDomainAutoRenewed, "name", string(name), "fee", fee.String())
	s.notifyRenewed(ctx, registry.DomainEvent{Name: name, Owner: domain.Owner, TokenID: domain.TokenID})
	return domain, nil
}

// -----------------------------------------------------------------------------
// Ownership
// -----------------------------------------------------------------------------

// Transfer reassigns a live domain to newOwner. Owner only.
func (s *Service) Transfer(ctx context.Context, caller id.Address, rawName string, newOwner id.Address) (*registry.Domain, error) {
	name, err := names.Parse(rawName)
	if err != nil {
		return nil, err
	}
	if newOwner.IsZero() {
		return nil, registry.ErrZeroAddress
	}
	now := requestcontext.Now(ctx)

	var (
		domain *registry.Domain
		from   id.Address
	)
	err = s.mutate(ctx, "transfer", func(st registry.Store) error {
		d, err := loadDomain(ctx, st, name)
		if err != nil {
			return err
		}
		if d.Owner != caller {
			return registry.ErrNotDomainOwner
		}
		if !d.IsLive(now, s.cfg.GracePeriod) {
			return registry.ErrNotTransferable
		}
		from = d.Owner
		d.Owner = newOwner
		domain = d
		return st.SaveDomain(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	if from == newOwner {
		return domain, nil
	}
	s.logAudit(ctx, audit.EventDomainTransferred,
		"name", string(name),
		"actor", caller.String(),
		"target", newOwner.String(),
	)
	s.notifyTransferred(ctx, registry.TransferEvent{Name: name, From: from, To: newOwner, TokenID: domain.TokenID})
	return domain, nil
}

// Reclaim releases a Reclaimable domain back to Available. Any remaining
// escrow is credited to the former owner's deposit.
func (s *Service) Reclaim(ctx context.Context, caller id.Address, rawName string) error {
	name, err := names.Parse(rawName)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	var released *registry.Domain
	err = s.mutate(ctx, "reclaim", func(st registry.Store) error {
		d, err := loadDomain(ctx, st, name)
		if err != nil {
			return err
		}
		if d.StatusAt(now, s.cfg.GracePeriod) != registry.StatusReclaimable {
			return registry.ErrNotReclaimable
		}
		escrow, err := st.Escrow(ctx, name)
		if err != nil {
			return err
		}
		if escrow.Sign() > 0 {
			if err := st.SetEscrow(ctx, name, id.Zero()); err != nil {
				return err
			}
			if err := credit(ctx, st, d.Owner, escrow); err != nil {
				return err
			}
		}
		released = d
		return st.DeleteDomain(ctx, name)
	})
	if err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventDomainReclaimed,
		"name", string(name),
		"actor", caller.String(),
		"target", released.Owner.String(),
		"token_id", released.TokenID,
	)
	s.notifyReleased(ctx, registry.DomainEvent{Name: name, Owner: released.Owner, TokenID: released.TokenID, Destroyed: true})
	return nil
}

// -----------------------------------------------------------------------------
// Funds
// -----------------------------------------------------------------------------

// Withdraw pays out the caller's whole deposit balance.
func (s *Service) Withdraw(ctx context.Context, caller id.Address) (*big.Int, error) {
	var amount *big.Int
	err := s.mutate(ctx, "withdraw", func(st registry.Store) error {
		var err error
		amount, err = st.Deposit(ctx, caller)
		if err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return registry.ErrNothingToWithdraw
		}
		if err := st.SetDeposit(ctx, caller, id.Zero()); err != nil {
			return err
		}
		return st.AdjustBalance(ctx, new(big.Int).Neg(amount))
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDepositWithdrawn, "actor", caller.String(), "amount", amount.String())
	return amount, nil
}

// Surplus is the balance not earmarked for deposits, escrows or pending commitments.
func (s *Service) Surplus(ctx context.Context) (*big.Int, error) {
	t, err := s.store.Totals(ctx)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return t.Surplus(), nil
}

// WithdrawSurplus pays the surplus to the contract owner.
func (s *Service) WithdrawSurplus(ctx context.Context, caller id.Address) (*big.Int, error) {
	if err := s.pause.RequireOwner(caller); err != nil {
		return nil, err
	}
	var amount *big.Int
	err := s.mutate(ctx, "withdraw_surplus", func(st registry.Store) error {
		t, err := st.Totals(ctx)
		if err != nil {
			return err
		}
		amount = t.Surplus()
		if amount.Sign() == 0 {
			return registry.ErrNothingToWithdraw
		}
		return st.AdjustBalance(ctx, new(big.Int).Neg(amount))
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventSurplusWithdrawn, "actor", caller.String(), "amount", amount.String())
	return amount, nil
}

// -----------------------------------------------------------------------------
// Pause
// -----------------------------------------------------------------------------

func (s *Service) Pause(ctx context.Context, caller id.Address) error {
	if err := s.pause.Pause(caller); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventContractPaused, "name", s.pause.Name(), "actor", caller.String())
	return nil
}

func (s *Service) Unpause(ctx context.Context, caller id.Address) error {
	if err := s.pause.Unpause(caller); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventContractUnpaused, "name", s.pause.Name(), "actor", caller.String())
	return nil
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (s *Service) Get(ctx context.Context, rawName string) (*registry.Domain, error) {
	name, err := names.Parse(rawName)
	if err != nil {
		return nil, err
	}
	return loadDomain(ctx, s.store, name)
}

// Status reports the lifecycle phase; unregistered names are Available.
func (s *Service) Status(ctx context.Context, rawName string) (registry.Status, error) {
	name, err := names.Parse(rawName)
	if err != nil {
		return "", err
	}
	d, err := loadDomain(ctx, s.store, name)
	if err != nil {
		if errors.Is(err, registry.ErrDomainNotFound) {
			return registry.StatusAvailable, nil
		}
		return "", err
	}
	return d.StatusAt(requestcontext.Now(ctx), s.cfg.GracePeriod), nil
}

// Owner returns the current registrant together with the lifecycle status.
func (s *Service) Owner(ctx context.Context, rawName string) (id.Address, registry.Status, error) {
	name, err := names.Parse(rawName)
	if err != nil {
		return id.ZeroAddress, "", err
	}
	d, err := loadDomain(ctx, s.store, name)
	if err != nil {
		return id.ZeroAddress, "", err
	}
	return d.Owner, d.StatusAt(requestcontext.Now(ctx), s.cfg.GracePeriod), nil
}

func (s *Service) Deposit(ctx context.Context, owner id.Address) (*big.Int, error) {
	v, err := s.store.Deposit(ctx, owner)
	return v, wrapStoreErr(err)
}

func (s *Service) Escrow(ctx context.Context, rawName string) (*big.Int, error) {
	name, err := names.Parse(rawName)
	if err != nil {
		return nil, err
	}
	v, err := s.store.Escrow(ctx, name)
	return v, wrapStoreErr(err)
}

// Price quotes a registration fee.
func (s *Service) Price(rawName string, years int) (*big.Int, error) {
	name, err := names.Parse(rawName)
	if err != nil {
		return nil, err
	}
	if !s.pricing.ValidYears(years) {
		return nil, registry.ErrInvalidDuration
	}
	return s.pricing.Price(name, years), nil
}

// ListExpiring returns registrations whose expiry is before cutoff, oldest first,
// resuming after the cursor when one is given.
func (s *Service) ListExpiring(ctx context.Context, cutoff time.Time, after *registry.ExpiryCursor, limit int) ([]*registry.Domain, error) {
	out, err := s.store.ListExpiringBefore(ctx, cutoff, after, limit)
	return out, wrapStoreErr(err)
}

// GracePeriod exposes the configured grace window for status computations elsewhere.
func (s *Service) GracePeriod() time.Duration { return s.cfg.GracePeriod }

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// mutate runs fn in a registry transaction after the pause check.
func (s *Service) mutate(ctx context.Context, op string, fn func(st registry.Store) error) error {
	if err := s.pause.Ensure(); err != nil {
		return err
	}
	start := time.Now()
	err := s.tx.RunInTx(ctx, fn)
	err = wrapStoreErr(err)
	s.metrics.RecordOperation(op, outcome(err), time.Since(start))
	return err
}

// charge takes fee from the payer's deposit plus payment, leaving the change on deposit.
func (s *Service) charge(ctx context.Context, st registry.Store, payer id.Address, payment, fee *big.Int) error {
	deposit, err := st.Deposit(ctx, payer)
	if err != nil {
		return err
	}
	available := id.Add(deposit, payment)
	if !id.GTE(available, fee) {
		return registry.ErrInsufficientFunds
	}
	if err := st.AdjustBalance(ctx, payment); err != nil {
		return err
	}
	return st.SetDeposit(ctx, payer, id.Sub(available, fee))
}

func credit(ctx context.Context, st registry.Store, to id.Address, amount *big.Int) error {
	if !id.IsPositive(amount) {
		return nil
	}
	current, err := st.Deposit(ctx, to)
	if err != nil {
		return err
	}
	return st.SetDeposit(ctx, to, id.Add(current, amount))
}

func loadDomain(ctx context.Context, st registry.Store, name names.Name) (*registry.Domain, error) {
	d, err := st.GetDomain(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, registry.ErrDomainNotFound
		}
		return nil, wrapStoreErr(err)
	}
	return d, nil
}

// wrapStoreErr classifies infrastructure errors; domain errors pass through.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "registry store failure")
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case dErrors.HasCode(err, dErrors.CodeInternal):
		return "error"
	default:
		return "rejected"
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attrs ...any) {
	observability.LogAudit(ctx, s.logger, s.auditPublisher, event, attrs...)
}
