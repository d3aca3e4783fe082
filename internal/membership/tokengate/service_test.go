package tokengate

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clubdomains/internal/membership/source"
	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/testutil"
)

type TokenGateServiceSuite struct {
	suite.Suite
	ctx     context.Context
	ledger  *Ledger
	sw      *pause.Switch
	service *Service

	owner id.Address
	admin id.Address
	alice id.Address
	token id.Address
	nft   id.Address
}

func TestTokenGateServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenGateServiceSuite))
}

func (s *TokenGateServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.owner = testutil.Addr(0xAA)
	s.admin = testutil.Addr(0x01)
	s.alice = testutil.Addr(0x0A)
	s.token = testutil.Addr(0x70)
	s.nft = testutil.Addr(0x71)
	s.ledger = NewLedger()
	s.sw = pause.New("tokengate", s.owner)

	var err error
	s.service, err = New(NewMemoryStore(), s.ledger, s.sw)
	s.Require().NoError(err)
	s.Require().NoError(s.service.InitializeClub(s.ctx, "alice", s.admin))
}

func (s *TokenGateServiceSuite) fungibleGate(threshold int64) Gate {
	return Gate{Kind: KindFungible, TokenAddress: s.token, Threshold: big.NewInt(threshold)}
}

func (s *TokenGateServiceSuite) active() bool {
	ok, err := s.service.HasActiveMembership(s.ctx, "alice", s.alice)
	s.Require().NoError(err)
	return ok
}

// TestLiveBalanceScenario: threshold 100; a balance of 150 passes, and after
// sending 60 away the next check fails.
func (s *TokenGateServiceSuite) TestLiveBalanceScenario() {
	_, err := s.service.AddGate(s.ctx, s.admin, "alice", s.fungibleGate(100))
	s.Require().NoError(err)

	s.ledger.Set(s.token, s.alice, nil, big.NewInt(150))
	s.True(s.active())

	s.Require().NoError(s.ledger.Transfer(s.token, s.alice, testutil.Addr(0x0B), nil, big.NewInt(60)))
	s.False(s.active())
}

func (s *TokenGateServiceSuite) TestGatesAreOred() {
	_, err := s.service.AddGate(s.ctx, s.admin, "alice", s.fungibleGate(1000))
	s.Require().NoError(err)
	_, err = s.service.AddGate(s.ctx, s.admin, "alice", Gate{
		Kind:         KindNFTBalance,
		TokenAddress: s.nft,
		TokenID:      big.NewInt(7),
		Threshold:    big.NewInt(1),
	})
	s.Require().NoError(err)

	s.False(s.active())
	s.ledger.Set(s.nft, s.alice, big.NewInt(7), big.NewInt(1))
	s.True(s.active())
}

func (s *TokenGateServiceSuite) TestCrossChainGatesAreNotLocal() {
	_, err := s.service.AddGate(s.ctx, s.admin, "alice", Gate{
		Kind:          KindCrossChain,
		ChainID:       1,
		Symbol:        "USDC",
		RemoteAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Threshold:     big.NewInt(1),
	})
	s.Require().NoError(err)

	s.False(s.active())
	gates, err := s.service.CrossChainGates(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(gates, 1)
	s.Equal(uint64(1), gates[0].ChainID)
}

func (s *TokenGateServiceSuite) TestAddGateValidation() {
	tests := []struct {
		name string
		gate Gate
	}{
		{"zero threshold", Gate{Kind: KindFungible, TokenAddress: s.token, Threshold: big.NewInt(0)}},
		{"missing token", Gate{Kind: KindNFTCount, Threshold: big.NewInt(1)}},
		{"nft balance without id", Gate{Kind: KindNFTBalance, TokenAddress: s.nft, Threshold: big.NewInt(1)}},
		{"cross chain without chain", Gate{Kind: KindCrossChain, RemoteAddress: "0xabc", Threshold: big.NewInt(1)}},
		{"cross chain without remote", Gate{Kind: KindCrossChain, ChainID: 1, Threshold: big.NewInt(1)}},
		{"unknown kind", Gate{Kind: "magic", TokenAddress: s.token, Threshold: big.NewInt(1)}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.AddGate(s.ctx, s.admin, "alice", tt.gate)
			s.ErrorIs(err, ErrInvalidGate)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func (s *TokenGateServiceSuite) TestGateLifecycle() {
	s.Run("non-admin cannot add", func() {
		_, err := s.service.AddGate(s.ctx, s.alice, "alice", s.fungibleGate(1))
		s.ErrorIs(err, source.ErrNotAdmin)
	})

	s.Run("remove deletes by id", func() {
		g, err := s.service.AddGate(s.ctx, s.admin, "alice", s.fungibleGate(1))
		s.Require().NoError(err)
		s.NotEqual(uuid.Nil, g.ID)

		s.Require().NoError(s.service.RemoveGate(s.ctx, s.owner, "alice", g.ID))
		gates, err := s.service.Gates(s.ctx, "alice")
		s.Require().NoError(err)
		s.Empty(gates)

		s.ErrorIs(s.service.RemoveGate(s.ctx, s.admin, "alice", g.ID), ErrGateNotFound)
	})

	s.Run("gate count is bounded", func() {
		for i := 0; i < MaxGates; i++ {
			_, err := s.service.AddGate(s.ctx, s.admin, "alice", s.fungibleGate(int64(i+1)))
			s.Require().NoError(err)
		}
		_, err := s.service.AddGate(s.ctx, s.admin, "alice", s.fungibleGate(1))
		s.ErrorIs(err, ErrTooManyGates)
	})
}

func (s *TokenGateServiceSuite) TestFailingReaderCountsAsNo() {
	svc, err := New(NewMemoryStore(), failingReader{}, s.sw)
	s.Require().NoError(err)
	s.Require().NoError(svc.InitializeClub(s.ctx, "alice", s.admin))
	_, err = svc.AddGate(s.ctx, s.admin, "alice", s.fungibleGate(1))
	s.Require().NoError(err)

	ok, err := svc.HasActiveMembership(s.ctx, "alice", s.alice)
	s.False(ok)
	s.Error(err)
}

func (s *TokenGateServiceSuite) TestUninitialize() {
	s.Require().NoError(s.service.UninitializeClub(s.ctx, "alice"))
	_, err := s.service.Gates(s.ctx, "alice")
	s.ErrorIs(err, source.ErrNotInitialized)
}

type failingReader struct{}

func (failingReader) BalanceOf(context.Context, id.Address, id.Address) (*big.Int, error) {
	return nil, errors.New("rpc unavailable")
}

func (failingReader) BalanceOfID(context.Context, id.Address, id.Address, *big.Int) (*big.Int, error) {
	return nil, errors.New("rpc unavailable")
}
