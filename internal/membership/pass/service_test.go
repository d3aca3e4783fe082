package pass

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/suite"

	"clubdomains/internal/membership/source"
	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/testutil"
)

type PassServiceSuite struct {
	suite.Suite
	ctx     context.Context
	sw      *pause.Switch
	roster  *fakeRoster
	service *Service

	owner id.Address
	admin id.Address
	alice id.Address
	bob   id.Address
}

func TestPassServiceSuite(t *testing.T) {
	suite.Run(t, new(PassServiceSuite))
}

func (s *PassServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.owner = testutil.Addr(0xAA)
	s.admin = testutil.Addr(0x01)
	s.alice = testutil.Addr(0x0A)
	s.bob = testutil.Addr(0x0B)
	s.sw = pause.New("pass", s.owner)
	s.roster = &fakeRoster{}

	var err error
	s.service, err = New(NewMemoryStore(), s.sw)
	s.Require().NoError(err)
	s.service.SetRoster(s.roster)
	s.Require().NoError(s.service.CreateClub(s.ctx, "alice", s.admin))
}

func (s *PassServiceSuite) TestNew() {
	_, err := New(nil, s.sw)
	s.ErrorContains(err, "pass store is required")
	_, err = New(NewMemoryStore(), nil)
	s.ErrorContains(err, "pause switch is required")
}

func (s *PassServiceSuite) TestCreateClub() {
	s.Run("second creation is rejected", func() {
		err := s.service.CreateClub(s.ctx, "alice", s.admin)
		s.ErrorIs(err, source.ErrAlreadyInitialized)
	})

	s.Run("zero admin is rejected", func() {
		err := s.service.CreateClub(s.ctx, "bob", id.ZeroAddress)
		s.ErrorIs(err, source.ErrZeroAddress)
	})
}

func (s *PassServiceSuite) TestMint() {
	s.Run("non-admin cannot mint", func() {
		_, err := s.service.Mint(s.ctx, s.alice, "alice", s.alice)
		s.ErrorIs(err, source.ErrNotAdmin)
	})

	s.Run("admin mints and the roster records the holder", func() {
		tokenID, err := s.service.Mint(s.ctx, s.admin, "alice", s.alice)
		s.Require().NoError(err)
		s.Equal(uint64(1), tokenID)

		active, err := s.service.HasActiveMembership(s.ctx, "alice", s.alice)
		s.Require().NoError(err)
		s.True(active)
		s.Equal([]id.Address{s.alice}, s.roster.recorded)
	})

	s.Run("contract owner may mint", func() {
		_, err := s.service.Mint(s.ctx, s.owner, "alice", s.bob)
		s.NoError(err)
	})

	s.Run("uninitialized club is rejected", func() {
		_, err := s.service.Mint(s.ctx, s.admin, "nobody", s.alice)
		s.ErrorIs(err, source.ErrNotInitialized)
	})
}

func (s *PassServiceSuite) TestPurchase() {
	s.Run("closed sale is rejected", func() {
		_, err := s.service.Purchase(s.ctx, s.alice, "alice", big.NewInt(100))
		s.ErrorIs(err, ErrSaleClosed)
	})

	s.Require().NoError(s.service.SetPrice(s.ctx, s.admin, "alice", big.NewInt(100)))

	s.Run("underpayment is rejected", func() {
		_, err := s.service.Purchase(s.ctx, s.alice, "alice", big.NewInt(99))
		s.ErrorIs(err, source.ErrInsufficientFunds)
		active, err := s.service.HasActiveMembership(s.ctx, "alice", s.alice)
		s.Require().NoError(err)
		s.False(active)
	})

	s.Run("purchase grants membership and accrues proceeds", func() {
		_, err := s.service.Purchase(s.ctx, s.alice, "alice", big.NewInt(120))
		s.Require().NoError(err)
		active, err := s.service.HasActiveMembership(s.ctx, "alice", s.alice)
		s.Require().NoError(err)
		s.True(active)

		paid, err := s.service.WithdrawProceeds(s.ctx, s.admin, "alice")
		s.Require().NoError(err)
		s.Equal(int64(120), paid.Int64())

		_, err = s.service.WithdrawProceeds(s.ctx, s.admin, "alice")
		s.ErrorIs(err, source.ErrNothingToWithdraw)
	})
}

func (s *PassServiceSuite) TestTransferMovesMembership() {
	tokenID, err := s.service.Mint(s.ctx, s.admin, "alice", s.alice)
	s.Require().NoError(err)

	s.Run("restricted policy blocks transfer", func() {
		err := s.service.Transfer(s.ctx, s.alice, "alice", tokenID, s.bob)
		s.ErrorIs(err, ErrTransferRestricted)
	})

	s.Run("whitelisted sender may transfer", func() {
		s.Require().NoError(s.service.SetWhitelisted(s.ctx, s.admin, "alice", s.alice, true))
		s.Require().NoError(s.service.Transfer(s.ctx, s.alice, "alice", tokenID, s.bob))

		aliceActive, err := s.service.HasActiveMembership(s.ctx, "alice", s.alice)
		s.Require().NoError(err)
		bobActive, err := s.service.HasActiveMembership(s.ctx, "alice", s.bob)
		s.Require().NoError(err)
		s.False(aliceActive)
		s.True(bobActive)

		holder, err := s.service.HolderOf(s.ctx, "alice", tokenID)
		s.Require().NoError(err)
		s.Equal(s.bob, holder)

		club, err := s.service.Club(s.ctx, "alice")
		s.Require().NoError(err)
		s.Empty(club.TokensOf(s.alice))
		s.Equal([]uint64{tokenID}, club.TokensOf(s.bob))
	})

	s.Run("only the holder can transfer", func() {
		s.Require().NoError(s.service.SetTransferPolicy(s.ctx, s.admin, "alice", true))
		err := s.service.Transfer(s.ctx, s.alice, "alice", tokenID, s.alice)
		s.ErrorIs(err, ErrNotHolder)
	})

	s.Run("unknown token is not found", func() {
		err := s.service.Transfer(s.ctx, s.bob, "alice", 999, s.alice)
		s.ErrorIs(err, ErrTokenNotFound)
	})
}

func (s *PassServiceSuite) TestAdminChanges() {
	s.Run("transfer admin returns the previous admin", func() {
		prev, err := s.service.TransferAdmin(s.ctx, "alice", s.bob)
		s.Require().NoError(err)
		s.Equal(s.admin, prev)

		c, err := s.service.Club(s.ctx, "alice")
		s.Require().NoError(err)
		s.Equal(s.bob, c.Admin)
	})

	s.Run("old admin loses admin rights", func() {
		err := s.service.SetPrice(s.ctx, s.admin, "alice", big.NewInt(1))
		s.ErrorIs(err, source.ErrNotAdmin)
	})
}

func (s *PassServiceSuite) TestPauseBlocksMutationsNotReads() {
	s.Require().NoError(s.sw.Pause(s.owner))

	_, err := s.service.Mint(s.ctx, s.admin, "alice", s.alice)
	s.True(dErrors.HasCode(err, dErrors.CodePaused))

	_, err = s.service.HasActiveMembership(s.ctx, "alice", s.alice)
	s.NoError(err)
}

type fakeRoster struct {
	recorded []id.Address
}

func (r *fakeRoster) RecordMember(_ context.Context, _ names.Name, user id.Address) error {
	r.recorded = append(r.recorded, user)
	return nil
}
