//go:build integration

package pass_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/suite"

	"clubdomains/internal/membership/pass"
	"clubdomains/internal/membership/source"
	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/testutil"
	"clubdomains/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	service  *pass.Service

	owner id.Address
	admin id.Address
	alice id.Address
	bob   id.Address
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(pass.NewPostgresStore(s.postgres.DB).Migrate(context.Background()))
	s.owner = testutil.Addr(0xAA)
	s.admin = testutil.Addr(0x01)
	s.alice = testutil.Addr(0x0A)
	s.bob = testutil.Addr(0x0B)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), pass.PostgresTable))
	s.service = s.newService()
}

func (s *PostgresStoreSuite) newService() *pass.Service {
	svc, err := pass.New(pass.NewPostgresStore(s.postgres.DB), pause.New("pass", s.owner))
	s.Require().NoError(err)
	return svc
}

func (s *PostgresStoreSuite) TestLedgerSurvivesRestart() {
	ctx := context.Background()
	s.Require().NoError(s.service.CreateClub(ctx, "alice", s.admin))
	s.Require().NoError(s.service.SetPrice(ctx, s.admin, "alice", big.NewInt(5)))
	s.Require().NoError(s.service.SetWhitelisted(ctx, s.admin, "alice", s.alice, true))
	tokenID, err := s.service.Purchase(ctx, s.alice, "alice", big.NewInt(7))
	s.Require().NoError(err)
	s.Require().NoError(s.service.Transfer(ctx, s.alice, "alice", tokenID, s.bob))

	restarted := s.newService()
	c, err := restarted.Club(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(s.admin, c.Admin)
	s.Equal(0, big.NewInt(5).Cmp(c.Price))
	s.Equal(0, big.NewInt(7).Cmp(c.Proceeds))
	s.True(c.Whitelist[s.alice])
	s.Equal(map[uint64]id.Address{tokenID: s.bob}, c.Holders)

	ok, err := restarted.HasActiveMembership(ctx, "alice", s.bob)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *PostgresStoreSuite) TestDuplicateAndMissingClubs() {
	ctx := context.Background()
	s.Require().NoError(s.service.CreateClub(ctx, "alice", s.admin))
	s.ErrorIs(s.service.CreateClub(ctx, "alice", s.admin), source.ErrAlreadyInitialized)

	_, err := s.service.Mint(ctx, s.admin, "nobody", s.alice)
	s.ErrorIs(err, source.ErrNotInitialized)
}
