package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clubdomains/internal/platform/config"
	"clubdomains/internal/platform/pause"
	"clubdomains/internal/registry"
	"clubdomains/internal/registry/store"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/testutil"
)

// =============================================================================
// Registry Service Test Suite
// =============================================================================
// Exercises the lifecycle state machine and the funds ledger against the
// in-memory store with a controlled clock.

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type RegistryServiceSuite struct {
	suite.Suite
	cfg      config.Registry
	store    *store.Memory
	sw       *pause.Switch
	listener *recordingListener
	service  *Service

	owner id.Address
	alice id.Address
	bob   id.Address
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func (s *RegistryServiceSuite) SetupTest() {
	s.owner = testutil.Addr(0xAA)
	s.alice = testutil.Addr(0x0A)
	s.bob = testutil.Addr(0x0B)

	s.cfg = config.DefaultRegistry()
	s.store = store.NewMemory()
	s.sw = pause.New("registry", s.owner)
	s.listener = &recordingListener{}

	var err error
	s.service, err = New(s.store, s.store, s.cfg, s.sw, WithListener(s.listener))
	s.Require().NoError(err)
}

func eth(milli int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(milli), big.NewInt(1e15))
}

func (s *RegistryServiceSuite) commit(at time.Time, name string, owner id.Address, secret string, deposit *big.Int) registry.Hash {
	hash := registry.MakeCommitment(names.MustParse(name), owner, []byte(secret))
	s.Require().NoError(s.service.Commit(testutil.At(at), owner, hash, deposit))
	return hash
}

// registerAt commits at `at` and reveals two minutes later.
func (s *RegistryServiceSuite) registerAt(at time.Time, name string, owner id.Address, years int, payment *big.Int) *registry.Domain {
	s.commit(at, name, owner, "secret-"+name, nil)
	d, err := s.service.Register(testutil.At(at.Add(2*time.Minute)), owner, registry.RegisterRequest{
		Name:    name,
		Owner:   owner,
		Secret:  []byte("secret-" + name),
		Years:   years,
		Payment: payment,
	})
	s.Require().NoError(err)
	return d
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *RegistryServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.store, s.cfg, s.sw)
		s.ErrorContains(err, "registry store is required")
	})

	s.Run("nil tx returns error", func() {
		_, err := New(s.store, nil, s.cfg, s.sw)
		s.ErrorContains(err, "registry tx is required")
	})

	s.Run("nil pause switch returns error", func() {
		_, err := New(s.store, s.store, s.cfg, nil)
		s.ErrorContains(err, "pause switch is required")
	})

	s.Run("missing prices return error", func() {
		_, err := New(s.store, s.store, config.Registry{}, s.sw)
		s.ErrorContains(err, "registry prices are required")
	})
}

// =============================================================================
// Commit Tests
// =============================================================================

func (s *RegistryServiceSuite) TestCommit() {
	s.Run("zero hash is rejected", func() {
		err := s.service.Commit(testutil.At(t0), s.alice, registry.Hash{}, nil)
		s.ErrorIs(err, registry.ErrInvalidCommitment)
	})

	s.Run("negative deposit is rejected", func() {
		hash := registry.MakeCommitment("neg", s.alice, []byte("x"))
		err := s.service.Commit(testutil.At(t0), s.alice, hash, big.NewInt(-1))
		s.ErrorIs(err, registry.ErrInvalidAmount)
	})

	s.Run("pending duplicate is rejected", func() {
		hash := s.commit(t0, "dup", s.alice, "x", nil)
		err := s.service.Commit(testutil.At(t0.Add(time.Hour)), s.alice, hash, nil)
		s.ErrorIs(err, registry.ErrCommitmentExists)
	})

	s.Run("stale duplicate is replaced and its deposit credited", func() {
		hash := s.commit(t0, "stale", s.alice, "x", eth(5))
		later := t0.Add(s.cfg.MaxCommitmentAge + time.Second)

		err := s.service.Commit(testutil.At(later), s.bob, hash, eth(1))
		s.Require().NoError(err)

		dep, err := s.service.Deposit(context.Background(), s.alice)
		s.Require().NoError(err)
		s.Equal(0, dep.Cmp(eth(5)))

		c, err := s.store.GetCommitment(context.Background(), hash)
		s.Require().NoError(err)
		s.Equal(s.bob, c.Committer)
		s.Equal(0, c.Deposit.Cmp(eth(1)))
	})

	s.Run("commitment deposits are earmarked", func() {
		surplus, err := s.service.Surplus(context.Background())
		s.Require().NoError(err)
		s.Equal(0, surplus.Sign())
	})
}

// =============================================================================
// Register Tests
// =============================================================================

func (s *RegistryServiceSuite) TestRegister() {
	req := func(name string) registry.RegisterRequest {
		return registry.RegisterRequest{
			Name:    name,
			Owner:   s.alice,
			Secret:  []byte("s3cret"),
			Years:   1,
			Payment: eth(10),
		}
	}

	s.Run("reveal without commitment is rejected", func() {
		_, err := s.service.Register(testutil.At(t0), s.alice, req("nocommit"))
		s.ErrorIs(err, registry.ErrCommitmentNotFound)
	})

	s.Run("reveal before minimum age is rejected", func() {
		s.commit(t0, "early", s.alice, "s3cret", nil)
		_, err := s.service.Register(testutil.At(t0.Add(30*time.Second)), s.alice, req("early"))
		s.ErrorIs(err, registry.ErrCommitmentTooNew)
	})

	s.Run("reveal after maximum age is rejected", func() {
		s.commit(t0, "late", s.alice, "s3cret", nil)
		_, err := s.service.Register(testutil.At(t0.Add(25*time.Hour)), s.alice, req("late"))
		s.ErrorIs(err, registry.ErrCommitmentExpired)
	})

	s.Run("wrong secret does not match the commitment", func() {
		s.commit(t0, "secretive", s.alice, "right", nil)
		_, err := s.service.Register(testutil.At(t0.Add(2*time.Minute)), s.alice, req("secretive"))
		s.ErrorIs(err, registry.ErrCommitmentNotFound)
	})

	s.Run("invalid duration and name are rejected", func() {
		r := req("alice")
		r.Years = 0
		_, err := s.service.Register(testutil.At(t0), s.alice, r)
		s.ErrorIs(err, registry.ErrInvalidDuration)

		r = req("Bad-Name")
		_, err = s.service.Register(testutil.At(t0), s.alice, r)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("insufficient funds leaves the commitment intact", func() {
		hash := s.commit(t0, "poor", s.alice, "s3cret", nil)
		r := req("poor")
		r.Payment = big.NewInt(1)
		_, err := s.service.Register(testutil.At(t0.Add(2*time.Minute)), s.alice, r)
		s.ErrorIs(err, registry.ErrInsufficientFunds)

		_, err = s.store.GetCommitment(context.Background(), hash)
		s.NoError(err)
		_, err = s.service.Get(context.Background(), "poor")
		s.ErrorIs(err, registry.ErrDomainNotFound)
	})

	s.Run("successful reveal creates the domain and credits change", func() {
		s.commit(t0, "alice", s.alice, "s3cret", eth(2))
		at := t0.Add(2 * time.Minute)
		d, err := s.service.Register(testutil.At(at), s.alice, req("alice.club"))
		s.Require().NoError(err)

		s.Equal(names.Name("alice"), d.Name)
		s.Equal(s.alice, d.Owner)
		s.Equal(at.Add(config.Year), d.Expiry)
		s.NotZero(d.TokenID)

		// 10 paid, 10 base price, 2 commitment deposit returned.
		dep, err := s.service.Deposit(context.Background(), s.alice)
		s.Require().NoError(err)
		s.Equal(0, dep.Cmp(eth(2)))

		status, err := s.service.Status(testutil.At(at), "alice")
		s.Require().NoError(err)
		s.Equal(registry.StatusActive, status)

		s.Require().Len(s.listener.registered, 1)
		s.Equal(names.Name("alice"), s.listener.registered[0].Name)
	})

	s.Run("registered name is unavailable", func() {
		s.commit(t0.Add(time.Hour), "alice", s.bob, "s3cret", nil)
		r := req("alice")
		r.Owner = s.bob
		_, err := s.service.Register(testutil.At(t0.Add(time.Hour+2*time.Minute)), s.bob, r)
		s.ErrorIs(err, registry.ErrNameUnavailable)
	})

	s.Run("premium names cost more", func() {
		short, err := s.service.Price("abc", 1)
		s.Require().NoError(err)
		long, err := s.service.Price("abcde", 1)
		s.Require().NoError(err)
		s.Equal(1, short.Cmp(long))
	})
}

// =============================================================================
// Renewal Tests
// =============================================================================

func (s *RegistryServiceSuite) TestRenew() {
	d := s.registerAt(t0, "renewme", s.alice, 1, eth(10))

	s.Run("active renewal extends from expiry", func() {
		at := t0.Add(24 * time.Hour)
		renewed, err := s.service.Renew(testutil.At(at), s.bob, "renewme", 2, eth(20))
		s.Require().NoError(err)
		s.Equal(d.Expiry.Add(2*config.Year), renewed.Expiry)
		s.Equal(s.alice, renewed.Owner)

		s.Require().Len(s.listener.renewed, 1)
		s.Equal(s.alice, s.listener.renewed[0].Owner)
		s.Equal(d.TokenID, s.listener.renewed[0].TokenID)
	})

	s.Run("grace renewal past the penalty threshold costs extra", func() {
		current, err := s.service.Get(context.Background(), "renewme")
		s.Require().NoError(err)
		at := current.Expiry.Add(40 * 24 * time.Hour)

		_, err = s.service.Renew(testutil.At(at), s.alice, "renewme", 1, eth(10))
		s.ErrorIs(err, registry.ErrInsufficientFunds)

		renewed, err := s.service.Renew(testutil.At(at), s.alice, "renewme", 1, eth(15))
		s.Require().NoError(err)
		s.Equal(at.Add(config.Year), renewed.Expiry)
	})

	s.Run("reclaimable domain cannot be renewed", func() {
		current, err := s.service.Get(context.Background(), "renewme")
		s.Require().NoError(err)
		at := current.Expiry.Add(s.cfg.GracePeriod + time.Hour)
		_, err = s.service.Renew(testutil.At(at), s.alice, "renewme", 1, eth(100))
		s.ErrorIs(err, registry.ErrNotRenewable)
	})

	s.Run("unknown domain is not found", func() {
		_, err := s.service.Renew(testutil.At(t0), s.alice, "ghost", 1, eth(10))
		s.ErrorIs(err, registry.ErrDomainNotFound)
	})
}

// =============================================================================
// Auto-Renewal Tests
// =============================================================================

func (s *RegistryServiceSuite) TestAutoRenewal() {
	d := s.registerAt(t0, "autopay", s.alice, 1, eth(10))
	ctx := testutil.At(t0.Add(time.Hour))

	s.Run("only the owner can fund escrow", func() {
		_, err := s.service.FundAutoRenewal(ctx, s.bob, "autopay", eth(10))
		s.ErrorIs(err, registry.ErrNotDomainOwner)
	})

	s.Run("zero funding is rejected", func() {
		_, err := s.service.FundAutoRenewal(ctx, s.alice, "autopay", id.Zero())
		s.ErrorIs(err, registry.ErrInvalidAmount)
	})

	s.Run("execution before the lead time is rejected", func() {
		_, err := s.service.FundAutoRenewal(ctx, s.alice, "autopay", eth(5))
		s.Require().NoError(err)
		_, err = s.service.ExecuteAutoRenewal(ctx, "autopay")
		s.ErrorIs(err, registry.ErrAutoRenewalNotDue)
	})

	s.Run("insufficient escrow is rejected", func() {
		due := testutil.At(d.Expiry.Add(-24 * time.Hour))
		_, err := s.service.ExecuteAutoRenewal(due, "autopay")
		s.ErrorIs(err, registry.ErrInsufficientEscrow)
	})

	s.Run("execution within the lead time renews one year from escrow", func() {
		escrow, err := s.service.FundAutoRenewal(ctx, s.alice, "autopay", eth(10))
		s.Require().NoError(err)
		s.Equal(0, escrow.Cmp(eth(15)))

		due := testutil.At(d.Expiry.Add(-24 * time.Hour))
		renewed, err := s.service.ExecuteAutoRenewal(due, "autopay")
		s.Require().NoError(err)
		s.Equal(d.Expiry.Add(config.Year), renewed.Expiry)
		s.Require().Len(s.listener.renewed, 1)
		s.Equal(names.Name("autopay"), s.listener.renewed[0].Name)

		left, err := s.service.Escrow(context.Background(), "autopay")
		s.Require().NoError(err)
		s.Equal(0, left.Cmp(eth(5)))
	})

	s.Run("owner withdraws the remaining escrow", func() {
		_, err := s.service.WithdrawAutoRenewal(ctx, s.bob, "autopay")
		s.ErrorIs(err, registry.ErrNotDomainOwner)

		amount, err := s.service.WithdrawAutoRenewal(ctx, s.alice, "autopay")
		s.Require().NoError(err)
		s.Equal(0, amount.Cmp(eth(5)))

		_, err = s.service.WithdrawAutoRenewal(ctx, s.alice, "autopay")
		s.ErrorIs(err, registry.ErrNothingToWithdraw)
	})
}

func (s *RegistryServiceSuite) TestRunAutoRenewals() {
	keep := s.registerAt(t0, "keeper", s.alice, 1, eth(10))
	lazy := s.registerAt(t0, "lazybones", s.bob, 1, eth(10))
	_, err := s.service.FundAutoRenewal(testutil.At(t0.Add(time.Hour)), s.alice, "keeper", eth(10))
	s.Require().NoError(err)

	due := testutil.At(keep.Expiry.Add(-24 * time.Hour))
	n, err := s.service.RunAutoRenewals(due)
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.service.Get(due, "keeper")
	s.Require().NoError(err)
	s.Equal(keep.Expiry.Add(config.Year), got.Expiry)
	got, err = s.service.Get(due, "lazybones")
	s.Require().NoError(err)
	s.Equal(lazy.Expiry, got.Expiry)

	n, err = s.service.RunAutoRenewals(due)
	s.Require().NoError(err)
	s.Zero(n, "a renewed domain is no longer due")
}

func (s *RegistryServiceSuite) TestRunAutoRenewalsPagesPastUnfundedDomains() {
	svc, err := New(s.store, s.store, s.cfg, s.sw, WithKeeperBatchSize(10))
	s.Require().NoError(err)
	s.service = svc

	for i := range 25 {
		s.registerAt(t0, fmt.Sprintf("idle%02d", i), s.bob, 1, eth(10))
	}
	later := t0.Add(30 * 24 * time.Hour)
	funded := s.registerAt(later, "funded", s.alice, 1, eth(10))
	_, err = s.service.FundAutoRenewal(testutil.At(later.Add(time.Hour)), s.alice, "funded", eth(1000))
	s.Require().NoError(err)

	due := testutil.At(funded.Expiry.Add(-time.Hour))
	n, err := s.service.RunAutoRenewals(due)
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.service.Get(due, "funded")
	s.Require().NoError(err)
	s.Equal(funded.Expiry.Add(config.Year), got.Expiry)

	s.Run("reclaimable domains ahead of a funded one are skipped", func() {
		late := testutil.At(got.Expiry.Add(-time.Hour))
		_, err := s.service.FundAutoRenewal(late, s.alice, "funded", eth(1000))
		s.Require().NoError(err)

		n, err := s.service.RunAutoRenewals(late)
		s.Require().NoError(err)
		s.Equal(1, n)
	})
}

// =============================================================================
// Transfer and Reclaim Tests
// =============================================================================

func (s *RegistryServiceSuite) TestTransfer() {
	s.registerAt(t0, "gifted", s.alice, 1, eth(10))
	ctx := testutil.At(t0.Add(time.Hour))

	s.Run("non-owner cannot transfer", func() {
		_, err := s.service.Transfer(ctx, s.bob, "gifted", s.bob)
		s.ErrorIs(err, registry.ErrNotDomainOwner)
	})

	s.Run("zero recipient is rejected", func() {
		_, err := s.service.Transfer(ctx, s.alice, "gifted", id.ZeroAddress)
		s.ErrorIs(err, registry.ErrZeroAddress)
	})

	s.Run("owner transfers and listeners are notified", func() {
		d, err := s.service.Transfer(ctx, s.alice, "gifted", s.bob)
		s.Require().NoError(err)
		s.Equal(s.bob, d.Owner)

		s.Require().Len(s.listener.transferred, 1)
		s.Equal(s.alice, s.listener.transferred[0].From)
		s.Equal(s.bob, s.listener.transferred[0].To)
	})

	s.Run("reclaimable domain cannot be transferred", func() {
		d, err := s.service.Get(context.Background(), "gifted")
		s.Require().NoError(err)
		late := testutil.At(d.Expiry.Add(s.cfg.GracePeriod + time.Hour))
		_, err = s.service.Transfer(late, s.bob, "gifted", s.alice)
		s.ErrorIs(err, registry.ErrNotTransferable)
	})
}

func (s *RegistryServiceSuite) TestReclaim() {
	d := s.registerAt(t0, "lapse", s.alice, 1, eth(10))
	_, err := s.service.FundAutoRenewal(testutil.At(t0.Add(time.Hour)), s.alice, "lapse", eth(3))
	s.Require().NoError(err)

	s.Run("grace domain is not reclaimable", func() {
		err := s.service.Reclaim(testutil.At(d.Expiry.Add(time.Hour)), s.bob, "lapse")
		s.ErrorIs(err, registry.ErrNotReclaimable)
	})

	s.Run("reclaim releases the name and refunds escrow", func() {
		at := testutil.At(d.Expiry.Add(s.cfg.GracePeriod + time.Hour))
		s.Require().NoError(s.service.Reclaim(at, s.bob, "lapse"))

		status, err := s.service.Status(at, "lapse")
		s.Require().NoError(err)
		s.Equal(registry.StatusAvailable, status)

		dep, err := s.service.Deposit(context.Background(), s.alice)
		s.Require().NoError(err)
		s.Equal(0, dep.Cmp(eth(3)))

		s.Require().Len(s.listener.released, 1)
		s.True(s.listener.released[0].Destroyed)
		s.Equal(d.TokenID, s.listener.released[0].TokenID)
	})

	s.Run("re-registration gets a fresh token id", func() {
		at := d.Expiry.Add(s.cfg.GracePeriod + 2*time.Hour)
		again := s.registerAt(at, "lapse", s.bob, 1, eth(10))
		s.NotEqual(d.TokenID, again.TokenID)
		s.Equal(s.bob, again.Owner)
	})
}

// =============================================================================
// Funds Tests
// =============================================================================

func (s *RegistryServiceSuite) TestFunds() {
	s.registerAt(t0, "feeder", s.alice, 1, eth(25))
	ctx := testutil.At(t0.Add(time.Hour))

	s.Run("surplus holds only collected fees", func() {
		surplus, err := s.service.Surplus(ctx)
		s.Require().NoError(err)
		s.Equal(0, surplus.Cmp(eth(10)))
	})

	s.Run("caller withdraws the deposit change", func() {
		amount, err := s.service.Withdraw(ctx, s.alice)
		s.Require().NoError(err)
		s.Equal(0, amount.Cmp(eth(15)))

		_, err = s.service.Withdraw(ctx, s.alice)
		s.ErrorIs(err, registry.ErrNothingToWithdraw)
	})

	s.Run("only the owner withdraws surplus", func() {
		_, err := s.service.WithdrawSurplus(ctx, s.alice)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		amount, err := s.service.WithdrawSurplus(ctx, s.owner)
		s.Require().NoError(err)
		s.Equal(0, amount.Cmp(eth(10)))

		totals, err := s.store.Totals(context.Background())
		s.Require().NoError(err)
		s.Equal(0, totals.Balance.Sign())
	})
}

// =============================================================================
// Pause and Listener Isolation Tests
// =============================================================================

func (s *RegistryServiceSuite) TestPause() {
	ctx := testutil.At(t0)

	s.Run("non-owner cannot pause", func() {
		s.True(dErrors.HasCode(s.service.Pause(ctx, s.alice), dErrors.CodeForbidden))
	})

	s.Run("paused registry rejects mutations", func() {
		s.Require().NoError(s.service.Pause(ctx, s.owner))
		hash := registry.MakeCommitment("paused", s.alice, []byte("x"))
		err := s.service.Commit(ctx, s.alice, hash, nil)
		s.True(dErrors.HasCode(err, dErrors.CodePaused))

		s.Require().NoError(s.service.Unpause(ctx, s.owner))
		s.NoError(s.service.Commit(ctx, s.alice, hash, nil))
	})
}

func (s *RegistryServiceSuite) TestListenerFailureDoesNotRollBack() {
	failing := &recordingListener{err: errors.New("club store down")}
	panicking := &recordingListener{panic: true}
	after := &recordingListener{}
	s.service.AddListener(failing)
	s.service.AddListener(panicking)
	s.service.AddListener(after)

	d := s.registerAt(t0, "sturdy", s.alice, 1, eth(10))

	got, err := s.service.Get(context.Background(), "sturdy")
	s.Require().NoError(err)
	s.Equal(d.TokenID, got.TokenID)
	s.Len(after.registered, 1)
	s.Len(s.listener.registered, 1)
}

// =============================================================================
// Test doubles
// =============================================================================

type recordingListener struct {
	mu          sync.Mutex
	err         error
	panic       bool
	registered  []registry.DomainEvent
	transferred []registry.TransferEvent
	renewed     []registry.DomainEvent
	released    []registry.DomainEvent
}

func (l *recordingListener) fail() error {
	if l.panic {
		panic("listener exploded")
	}
	return l.err
}

func (l *recordingListener) DomainRegistered(_ context.Context, e registry.DomainEvent) error {
	l.mu.Lock()
	l.registered = append(l.registered, e)
	l.mu.Unlock()
	return l.fail()
}

func (l *recordingListener) DomainTransferred(_ context.Context, e registry.TransferEvent) error {
	l.mu.Lock()
	l.transferred = append(l.transferred, e)
	l.mu.Unlock()
	return l.fail()
}

func (l *recordingListener) DomainRenewed(_ context.Context, e registry.DomainEvent) error {
	l.mu.Lock()
	l.renewed = append(l.renewed, e)
	l.mu.Unlock()
	return l.fail()
}

func (l *recordingListener) DomainReleased(_ context.Context, e registry.DomainEvent) error {
	l.mu.Lock()
	l.released = append(l.released, e)
	l.mu.Unlock()
	return l.fail()
}
