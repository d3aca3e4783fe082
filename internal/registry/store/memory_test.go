package store

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clubdomains/internal/registry"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/sentinel"
	"clubdomains/pkg/testutil"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Memory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
}

func newDomain(name string, expiry time.Time, token uint64) *registry.Domain {
	return &registry.Domain{
		Name:         names.MustParse(name),
		Owner:        testutil.Addr(0x0A),
		RegisteredAt: expiry.Add(-time.Hour),
		Expiry:       expiry,
		TokenID:      token,
	}
}

func (s *MemoryStoreSuite) TestRunInTx() {
	ctx := context.Background()
	alice := testutil.Addr(0x0A)

	s.Run("failed transaction applies nothing", func() {
		boom := errors.New("boom")
		err := s.store.RunInTx(ctx, func(st registry.Store) error {
			s.Require().NoError(st.AdjustBalance(ctx, big.NewInt(100)))
			s.Require().NoError(st.SetDeposit(ctx, alice, big.NewInt(100)))
			s.Require().NoError(st.SaveDomain(ctx, newDomain("rollback", time.Now(), 1)))
			return boom
		})
		s.ErrorIs(err, boom)

		_, err = s.store.GetDomain(ctx, "rollback")
		s.ErrorIs(err, sentinel.ErrNotFound)
		dep, err := s.store.Deposit(ctx, alice)
		s.Require().NoError(err)
		s.Equal(0, dep.Sign())
		totals, err := s.store.Totals(ctx)
		s.Require().NoError(err)
		s.Equal(0, totals.Balance.Sign())
	})

	s.Run("successful transaction reads its own writes and commits", func() {
		err := s.store.RunInTx(ctx, func(st registry.Store) error {
			s.Require().NoError(st.AdjustBalance(ctx, big.NewInt(70)))
			s.Require().NoError(st.SetDeposit(ctx, alice, big.NewInt(50)))
			dep, err := st.Deposit(ctx, alice)
			s.Require().NoError(err)
			s.Equal(int64(50), dep.Int64())

			totals, err := st.Totals(ctx)
			s.Require().NoError(err)
			s.Equal(int64(70), totals.Balance.Int64())
			s.Equal(int64(20), totals.Surplus().Int64())
			return nil
		})
		s.Require().NoError(err)

		totals, err := s.store.Totals(ctx)
		s.Require().NoError(err)
		s.Equal(int64(50), totals.Deposits.Int64())
		s.Equal(int64(20), totals.Surplus().Int64())
	})

	s.Run("cancelled context aborts before running", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := s.store.RunInTx(cancelled, func(registry.Store) error {
			called = true
			return nil
		})
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
		s.False(called)
	})
}

func (s *MemoryStoreSuite) TestOverlayDeletes() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveDomain(ctx, newDomain("gone", time.Now(), 1)))
	s.Require().NoError(s.store.SetEscrow(ctx, "gone", big.NewInt(9)))

	err := s.store.RunInTx(ctx, func(st registry.Store) error {
		s.Require().NoError(st.DeleteDomain(ctx, "gone"))
		s.Require().NoError(st.SetEscrow(ctx, "gone", id.Zero()))
		_, err := st.GetDomain(ctx, "gone")
		s.ErrorIs(err, sentinel.ErrNotFound)
		return nil
	})
	s.Require().NoError(err)

	_, err = s.store.GetDomain(ctx, "gone")
	s.ErrorIs(err, sentinel.ErrNotFound)
	escrow, err := s.store.Escrow(ctx, "gone")
	s.Require().NoError(err)
	s.Equal(0, escrow.Sign())
}

func (s *MemoryStoreSuite) TestListExpiringBefore() {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.SaveDomain(ctx, newDomain("third", base.Add(3*time.Hour), 3)))
	s.Require().NoError(s.store.SaveDomain(ctx, newDomain("first", base.Add(time.Hour), 1)))
	s.Require().NoError(s.store.SaveDomain(ctx, newDomain("second", base.Add(2*time.Hour), 2)))

	out, err := s.store.ListExpiringBefore(ctx, base.Add(150*time.Minute), nil, 10)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal(names.Name("first"), out[0].Name)
	s.Equal(names.Name("second"), out[1].Name)

	out, err = s.store.ListExpiringBefore(ctx, base.Add(24*time.Hour), nil, 1)
	s.Require().NoError(err)
	s.Len(out, 1)

	s.Run("cursor resumes after ties on expiry", func() {
		s.Require().NoError(s.store.SaveDomain(ctx, newDomain("tied", base.Add(time.Hour), 4)))

		page, err := s.store.ListExpiringBefore(ctx, base.Add(24*time.Hour), nil, 2)
		s.Require().NoError(err)
		s.Require().Len(page, 2)
		s.Equal(names.Name("first"), page[0].Name)
		s.Equal(names.Name("tied"), page[1].Name)

		page, err = s.store.ListExpiringBefore(ctx, base.Add(24*time.Hour), registry.CursorAfter(page[1]), 2)
		s.Require().NoError(err)
		s.Require().Len(page, 2)
		s.Equal(names.Name("second"), page[0].Name)
		s.Equal(names.Name("third"), page[1].Name)

		page, err = s.store.ListExpiringBefore(ctx, base.Add(24*time.Hour), registry.CursorAfter(page[1]), 2)
		s.Require().NoError(err)
		s.Empty(page)
	})

	s.Run("cursor sees staged writes inside a transaction", func() {
		err := s.store.RunInTx(ctx, func(tx registry.Store) error {
			if err := tx.SaveDomain(ctx, newDomain("staged", base.Add(2*time.Hour), 5)); err != nil {
				return err
			}
			page, err := tx.ListExpiringBefore(ctx, base.Add(24*time.Hour), &registry.ExpiryCursor{Expiry: base.Add(2 * time.Hour), Name: "second"}, 10)
			s.Require().NoError(err)
			s.Require().Len(page, 2)
			s.Equal(names.Name("staged"), page[0].Name)
			s.Equal(names.Name("third"), page[1].Name)
			return nil
		})
		s.Require().NoError(err)
	})
}

func (s *MemoryStoreSuite) TestReturnedValuesAreCopies() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveDomain(ctx, newDomain("copy", time.Now(), 1)))

	d, err := s.store.GetDomain(ctx, "copy")
	s.Require().NoError(err)
	d.Owner = testutil.Addr(0x0B)

	again, err := s.store.GetDomain(ctx, "copy")
	s.Require().NoError(err)
	s.Equal(testutil.Addr(0x0A), again.Owner)
}

func (s *MemoryStoreSuite) TestConcurrentTokenIDs() {
	ctx := context.Background()
	const workers = 32

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[uint64]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got uint64
			err := s.store.RunInTx(ctx, func(st registry.Store) error {
				var err error
				got, err = st.NextTokenID(ctx)
				return err
			})
			s.NoError(err)
			mu.Lock()
			ids[got] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	s.Len(ids, workers)
}
