package subscription

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clubdomains/internal/membership/source"
	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/testutil"
)

var (
	t0        = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	centiEth  = big.NewInt(10_000_000_000_000_000) // 0.01
	platformB = int64(250)
)

type SubscriptionServiceSuite struct {
	suite.Suite
	sw      *pause.Switch
	service *Service

	owner    id.Address
	admin    id.Address
	receiver id.Address
	alice    id.Address
}

func TestSubscriptionServiceSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.owner = testutil.Addr(0xAA)
	s.admin = testutil.Addr(0x01)
	s.receiver = testutil.Addr(0x02)
	s.alice = testutil.Addr(0x0A)
	s.sw = pause.New("subscription", s.owner)

	var err error
	s.service, err = New(NewMemoryStore(), s.sw, platformB)
	s.Require().NoError(err)

	ctx := testutil.At(t0)
	s.Require().NoError(s.service.InitializeClub(ctx, "alice", s.admin))
	s.Require().NoError(s.service.SetTierPrice(ctx, s.admin, "alice", TierMonthly, centiEth))
}

func (s *SubscriptionServiceSuite) TestNew() {
	_, err := New(nil, s.sw, 0)
	s.ErrorContains(err, "subscription store is required")
	_, err = New(NewMemoryStore(), s.sw, 10_001)
	s.ErrorContains(err, "platform fee")
}

func (s *SubscriptionServiceSuite) TestInitialization() {
	ctx := testutil.At(t0)

	s.Run("double initialization is rejected", func() {
		s.ErrorIs(s.service.InitializeClub(ctx, "alice", s.admin), source.ErrAlreadyInitialized)
	})

	s.Run("uninitialize removes the ledger", func() {
		s.Require().NoError(s.service.InitializeClub(ctx, "temp", s.admin))
		s.Require().NoError(s.service.UninitializeClub(ctx, "temp"))
		_, err := s.service.Club(ctx, "temp")
		s.ErrorIs(err, source.ErrNotInitialized)
	})
}

// TestRepurchaseExtends covers the example of two monthly purchases in one
// active period: expiry lands 60 days after the first purchase.
func (s *SubscriptionServiceSuite) TestRepurchaseExtends() {
	exp1, err := s.service.Purchase(testutil.At(t0), s.alice, "alice", TierMonthly, centiEth)
	s.Require().NoError(err)
	s.Equal(t0.Add(30*day), exp1)

	exp2, err := s.service.Purchase(testutil.At(t0.Add(10*day)), s.alice, "alice", TierMonthly, centiEth)
	s.Require().NoError(err)
	s.Equal(t0.Add(60*day), exp2)
}

func (s *SubscriptionServiceSuite) TestPurchaseAfterLapseStartsFresh() {
	_, err := s.service.Purchase(testutil.At(t0), s.alice, "alice", TierMonthly, centiEth)
	s.Require().NoError(err)

	later := t0.Add(45 * day)
	active, err := s.service.HasActiveMembership(testutil.At(later), "alice", s.alice)
	s.Require().NoError(err)
	s.False(active)
	ever, err := s.service.HasMembership(testutil.At(later), "alice", s.alice)
	s.Require().NoError(err)
	s.True(ever)

	exp, err := s.service.Purchase(testutil.At(later), s.alice, "alice", TierMonthly, centiEth)
	s.Require().NoError(err)
	s.Equal(later.Add(30*day), exp)
}

func (s *SubscriptionServiceSuite) TestPurchaseRejections() {
	ctx := testutil.At(t0)

	s.Run("unpriced tier", func() {
		_, err := s.service.Purchase(ctx, s.alice, "alice", TierYearly, centiEth)
		s.ErrorIs(err, ErrTierNotPriced)
	})

	s.Run("unknown tier", func() {
		_, err := s.service.Purchase(ctx, s.alice, "alice", Tier("weekly"), centiEth)
		s.ErrorIs(err, ErrInvalidTier)
	})

	s.Run("underpayment", func() {
		_, err := s.service.Purchase(ctx, s.alice, "alice", TierMonthly, big.NewInt(1))
		s.ErrorIs(err, source.ErrInsufficientFunds)
		ever, err := s.service.HasMembership(ctx, "alice", s.alice)
		s.Require().NoError(err)
		s.False(ever)
	})
}

func (s *SubscriptionServiceSuite) TestFeeSplit() {
	ctx := testutil.At(t0)
	s.Require().NoError(s.service.SetReceiver(ctx, s.admin, "alice", s.receiver))
	_, err := s.service.Purchase(ctx, s.alice, "alice", TierMonthly, centiEth)
	s.Require().NoError(err)

	fee := new(big.Int).Div(new(big.Int).Mul(centiEth, big.NewInt(platformB)), big.NewInt(10_000))

	s.Run("admin is not the receiver once one is set", func() {
		_, err := s.service.WithdrawPayout(ctx, s.admin, "alice")
		s.ErrorIs(err, ErrNotReceiver)
	})

	s.Run("receiver gets the payment minus the platform fee", func() {
		paid, err := s.service.WithdrawPayout(ctx, s.receiver, "alice")
		s.Require().NoError(err)
		s.Equal(0, paid.Cmp(new(big.Int).Sub(centiEth, fee)))
	})

	s.Run("owner collects the platform fee", func() {
		_, err := s.service.WithdrawPlatformFees(ctx, s.admin, "alice")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		paid, err := s.service.WithdrawPlatformFees(ctx, s.owner, "alice")
		s.Require().NoError(err)
		s.Equal(0, paid.Cmp(fee))
	})
}

func (s *SubscriptionServiceSuite) TestAdminChecks() {
	ctx := testutil.At(t0)

	s.Run("stranger cannot set prices", func() {
		err := s.service.SetTierPrice(ctx, s.alice, "alice", TierYearly, centiEth)
		s.ErrorIs(err, source.ErrNotAdmin)
	})

	s.Run("paused source rejects admin setters", func() {
		s.Require().NoError(s.sw.Pause(s.owner))
		defer func() { s.Require().NoError(s.sw.Unpause(s.owner)) }()
		err := s.service.SetTierPrice(ctx, s.admin, "alice", TierYearly, centiEth)
		s.True(dErrors.HasCode(err, dErrors.CodePaused))
	})

	s.Run("zero price takes a tier off sale", func() {
		s.Require().NoError(s.service.SetTierPrice(ctx, s.admin, "alice", TierMonthly, big.NewInt(0)))
		_, err := s.service.Purchase(ctx, s.alice, "alice", TierMonthly, centiEth)
		s.ErrorIs(err, ErrTierNotPriced)
	})
}

func (s *SubscriptionServiceSuite) TestParseTier() {
	for _, tier := range Tiers {
		got, err := ParseTier(string(tier))
		s.Require().NoError(err)
		s.Equal(tier, got)
	}
	_, err := ParseTier("daily")
	s.ErrorIs(err, ErrInvalidTier)
	s.Equal(90*day, TierQuarterly.Duration())
	s.Equal(365*day, TierYearly.Duration())
}

func (s *SubscriptionServiceSuite) TestUninitializedClubProbe() {
	_, err := s.service.HasActiveMembership(context.Background(), "ghost", s.alice)
	s.ErrorIs(err, source.ErrNotInitialized)
}
