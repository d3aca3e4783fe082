//go:build integration

package crosschain_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clubdomains/internal/membership/crosschain"
	"clubdomains/pkg/platform/sentinel"
	"clubdomains/pkg/testutil"
	"clubdomains/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *crosschain.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = crosschain.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	alice := testutil.Addr(0x0A)
	verifiedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := &crosschain.Record{
		Name:         "alice",
		User:         alice,
		ChainID:      1,
		TokenAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Balance:      new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil),
		Active:       true,
		Oracle:       testutil.Addr(0x0C),
		VerifiedAt:   verifiedAt,
	}
	s.Require().NoError(s.store.Put(ctx, rec))

	got, err := s.store.Get(ctx, "alice", alice, 1)
	s.Require().NoError(err)
	s.Equal(0, rec.Balance.Cmp(got.Balance))
	s.Equal(rec.Oracle, got.Oracle)
	s.True(verifiedAt.Equal(got.VerifiedAt))
	s.True(got.Active)
}

func (s *RedisStoreSuite) TestOverwriteListAndDelete() {
	ctx := context.Background()
	alice := testutil.Addr(0x0A)

	for _, chain := range []uint64{137, 1} {
		s.Require().NoError(s.store.Put(ctx, &crosschain.Record{
			Name: "alice", User: alice, ChainID: chain, TokenAddress: "0x1", Balance: big.NewInt(1), Active: true,
		}))
	}
	s.Require().NoError(s.store.Put(ctx, &crosschain.Record{
		Name: "alice", User: alice, ChainID: 1, TokenAddress: "0x1", Balance: big.NewInt(7), Active: true,
	}))

	recs, err := s.store.List(ctx, "alice", alice)
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal(uint64(1), recs[0].ChainID)
	s.Equal(int64(7), recs[0].Balance.Int64())

	s.Require().NoError(s.store.Delete(ctx, "alice", alice, 1))
	s.Require().NoError(s.store.Delete(ctx, "alice", alice, 1))
	_, err = s.store.Get(ctx, "alice", alice, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestOracleAllowList() {
	ctx := context.Background()
	oracle := testutil.Addr(0x0C)

	s.Require().NoError(s.store.AllowOracle(ctx, oracle))
	ok, err := s.store.IsOracle(ctx, oracle)
	s.Require().NoError(err)
	s.True(ok)

	removed, err := s.store.RevokeOracle(ctx, oracle)
	s.Require().NoError(err)
	s.True(removed)
	removed, err = s.store.RevokeOracle(ctx, oracle)
	s.Require().NoError(err)
	s.False(removed)
	ok, err = s.store.IsOracle(ctx, oracle)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisStoreSuite) TestFees() {
	ctx := context.Background()
	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)

	s.Run("empty total is zero", func() {
		fees, err := s.store.Fees(ctx)
		s.Require().NoError(err)
		s.Equal(0, fees.Sign())
	})

	s.Run("concurrent credits beyond int64 all land", func() {
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.NoError(s.store.AddFees(ctx, wei))
			}()
		}
		wg.Wait()

		fees, err := s.store.Fees(ctx)
		s.Require().NoError(err)
		s.Equal(0, new(big.Int).Mul(wei, big.NewInt(10)).Cmp(fees))
	})

	s.Run("take zeroes the total", func() {
		taken, err := s.store.TakeFees(ctx)
		s.Require().NoError(err)
		s.Equal(0, new(big.Int).Mul(wei, big.NewInt(10)).Cmp(taken))

		fees, err := s.store.Fees(ctx)
		s.Require().NoError(err)
		s.Equal(0, fees.Sign())
	})
}
