package crosschain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubdomains/pkg/platform/sentinel"
	"clubdomains/pkg/testutil"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	alice := testutil.Addr(0x0A)

	rec := &Record{
		Name:         "alice",
		User:         alice,
		ChainID:      137,
		TokenAddress: usdc,
		Balance:      big.NewInt(5),
		Active:       true,
		VerifiedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(ctx, rec))
	require.NoError(t, store.Put(ctx, &Record{Name: "alice", User: alice, ChainID: 1, Balance: big.NewInt(1)}))

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := store.Get(ctx, "alice", alice, 137)
		require.NoError(t, err)
		got.Balance.SetInt64(99)
		again, err := store.Get(ctx, "alice", alice, 137)
		require.NoError(t, err)
		assert.Equal(t, int64(5), again.Balance.Int64())
	})

	t.Run("list is ordered by chain", func(t *testing.T) {
		recs, err := store.List(ctx, "alice", alice)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, uint64(1), recs[0].ChainID)
		assert.Equal(t, uint64(137), recs[1].ChainID)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "alice", alice, 137))
		require.NoError(t, store.Delete(ctx, "alice", alice, 137))
		_, err := store.Get(ctx, "alice", alice, 137)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestMemoryStoreOraclesAndFees(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	oracle := testutil.Addr(0x0C)

	t.Run("allow-list", func(t *testing.T) {
		require.NoError(t, store.AllowOracle(ctx, oracle))
		require.NoError(t, store.AllowOracle(ctx, oracle))
		ok, err := store.IsOracle(ctx, oracle)
		require.NoError(t, err)
		assert.True(t, ok)

		removed, err := store.RevokeOracle(ctx, oracle)
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = store.RevokeOracle(ctx, oracle)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("fees accumulate and are taken once", func(t *testing.T) {
		require.NoError(t, store.AddFees(ctx, big.NewInt(3)))
		require.NoError(t, store.AddFees(ctx, big.NewInt(4)))
		fees, err := store.Fees(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), fees.Int64())

		taken, err := store.TakeFees(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), taken.Int64())
		taken, err = store.TakeFees(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, taken.Sign())
	})
}
