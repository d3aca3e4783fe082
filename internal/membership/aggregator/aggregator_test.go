package aggregator

//go:generate mockgen -source=aggregator.go -destination=mocks/mocks.go -package=mocks Subscriptions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clubdomains/internal/membership/aggregator/mocks"
	"clubdomains/internal/membership/source"
	sourcemocks "clubdomains/internal/membership/source/mocks"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/requestcontext"
	"clubdomains/pkg/testutil"
)

type AggregatorSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	permanent  *sourcemocks.MockProvider
	temporary  *mocks.MockSubscriptions
	tokenGate  *sourcemocks.MockProvider
	crossChain *sourcemocks.MockProvider
	agg        *Aggregator

	ctx  context.Context
	now  time.Time
	name names.Name
	user id.Address
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.permanent = sourcemocks.NewMockProvider(s.ctrl)
	s.temporary = mocks.NewMockSubscriptions(s.ctrl)
	s.tokenGate = sourcemocks.NewMockProvider(s.ctrl)
	s.crossChain = sourcemocks.NewMockProvider(s.ctrl)

	s.permanent.EXPECT().Kind().Return(source.KindPermanent).AnyTimes()
	s.temporary.EXPECT().Kind().Return(source.KindTemporary).AnyTimes()
	s.tokenGate.EXPECT().Kind().Return(source.KindTokenGate).AnyTimes()
	s.crossChain.EXPECT().Kind().Return(source.KindCrossChain).AnyTimes()

	var err error
	s.agg, err = New(s.permanent, s.temporary, s.tokenGate, s.crossChain,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)

	s.now = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.name = "alice"
	s.user = testutil.Addr(0x0A)
}

func (s *AggregatorSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AggregatorSuite) active(p *sourcemocks.MockProvider, active bool, err error) {
	p.EXPECT().HasActiveMembership(gomock.Any(), s.name, s.user).Return(active, err)
}

func (s *AggregatorSuite) TestNew() {
	_, err := New(nil, s.temporary, s.tokenGate, s.crossChain)
	s.Error(err)
}

func (s *AggregatorSuite) TestClassify() {
	s.Run("permanent wins without probing further", func() {
		s.active(s.permanent, true, nil)
		c := s.agg.Classify(s.ctx, s.name, s.user)
		s.Equal(Classification{IsMember: true, Type: TypePermanent}, c)
	})

	s.Run("active subscription reports its expiry", func() {
		expiry := s.now.Add(24 * time.Hour)
		s.active(s.permanent, false, nil)
		s.temporary.EXPECT().Expiry(gomock.Any(), s.name, s.user).Return(expiry, true, nil)
		c := s.agg.Classify(s.ctx, s.name, s.user)
		s.Equal(Classification{IsMember: true, Expiry: expiry, Type: TypeTemporary}, c)
	})

	s.Run("token gate beats cross-chain", func() {
		s.active(s.permanent, false, nil)
		s.temporary.EXPECT().Expiry(gomock.Any(), s.name, s.user).Return(time.Time{}, false, nil)
		s.active(s.tokenGate, true, nil)
		c := s.agg.Classify(s.ctx, s.name, s.user)
		s.Equal(TypeTokenGate, c.Type)
		s.True(c.IsMember)
	})

	s.Run("cross-chain is the last resort", func() {
		s.active(s.permanent, false, nil)
		s.temporary.EXPECT().Expiry(gomock.Any(), s.name, s.user).Return(time.Time{}, false, nil)
		s.active(s.tokenGate, false, nil)
		s.active(s.crossChain, true, nil)
		s.Equal(TypeCrossChain, s.agg.Classify(s.ctx, s.name, s.user).Type)
	})

	s.Run("lapsed subscription is inactive with its stale expiry", func() {
		expired := s.now.Add(-time.Hour)
		s.active(s.permanent, false, nil)
		s.temporary.EXPECT().Expiry(gomock.Any(), s.name, s.user).Return(expired, true, nil)
		s.active(s.tokenGate, false, nil)
		s.active(s.crossChain, false, nil)
		c := s.agg.Classify(s.ctx, s.name, s.user)
		s.Equal(Classification{Expiry: expired, Type: TypeInactive}, c)
	})

	s.Run("lapsed subscription does not hide a token gate", func() {
		s.active(s.permanent, false, nil)
		s.temporary.EXPECT().Expiry(gomock.Any(), s.name, s.user).Return(s.now, true, nil)
		s.active(s.tokenGate, true, nil)
		s.Equal(TypeTokenGate, s.agg.Classify(s.ctx, s.name, s.user).Type)
	})

	s.Run("no membership anywhere", func() {
		s.active(s.permanent, false, nil)
		s.temporary.EXPECT().Expiry(gomock.Any(), s.name, s.user).Return(time.Time{}, false, nil)
		s.active(s.tokenGate, false, nil)
		s.active(s.crossChain, false, nil)
		s.Equal(Classification{Type: TypeNone}, s.agg.Classify(s.ctx, s.name, s.user))
	})
}

func (s *AggregatorSuite) TestFailingSourcesCountAsNo() {
	s.Run("error in a higher source falls through", func() {
		s.active(s.permanent, false, errors.New("rpc down"))
		s.temporary.EXPECT().Expiry(gomock.Any(), s.name, s.user).Return(time.Time{}, false, source.ErrNotInitialized)
		s.active(s.tokenGate, true, nil)
		s.Equal(TypeTokenGate, s.agg.Classify(s.ctx, s.name, s.user).Type)
	})

	s.Run("panicking source is isolated", func() {
		s.permanent.EXPECT().HasActiveMembership(gomock.Any(), s.name, s.user).
			DoAndReturn(func(context.Context, names.Name, id.Address) (bool, error) {
				panic("boom")
			})
		s.temporary.EXPECT().Expiry(gomock.Any(), s.name, s.user).Return(s.now.Add(time.Hour), true, nil)
		s.Equal(TypeTemporary, s.agg.Classify(s.ctx, s.name, s.user).Type)
	})

	s.Run("every source failing is a plain no", func() {
		s.active(s.permanent, false, errors.New("a"))
		s.temporary.EXPECT().Expiry(gomock.Any(), s.name, s.user).Return(time.Time{}, false, errors.New("b"))
		s.active(s.tokenGate, false, errors.New("c"))
		s.active(s.crossChain, false, errors.New("d"))
		s.Equal(Classification{Type: TypeNone}, s.agg.Classify(s.ctx, s.name, s.user))
	})
}

func (s *AggregatorSuite) TestHasAnyActiveMembership() {
	s.Run("short-circuits in precedence order", func() {
		gomock.InOrder(
			s.permanent.EXPECT().HasActiveMembership(gomock.Any(), s.name, s.user).Return(false, nil),
			s.temporary.EXPECT().HasActiveMembership(gomock.Any(), s.name, s.user).Return(true, nil),
		)
		s.True(s.agg.HasAnyActiveMembership(s.ctx, s.name, s.user))
	})

	s.Run("errors fold to no", func() {
		s.active(s.permanent, false, errors.New("a"))
		s.temporary.EXPECT().HasActiveMembership(gomock.Any(), s.name, s.user).Return(false, errors.New("b"))
		s.active(s.tokenGate, false, nil)
		s.active(s.crossChain, true, nil)
		s.True(s.agg.IsMember(s.ctx, s.name, s.user))
	})

	s.Run("nobody home", func() {
		s.active(s.permanent, false, nil)
		s.temporary.EXPECT().HasActiveMembership(gomock.Any(), s.name, s.user).Return(false, nil)
		s.active(s.tokenGate, false, nil)
		s.active(s.crossChain, false, nil)
		s.False(s.agg.HasAnyActiveMembership(s.ctx, s.name, s.user))
	})
}

func (s *AggregatorSuite) TestDetailsProbesEverySource() {
	s.active(s.permanent, true, nil)
	s.temporary.EXPECT().HasActiveMembership(gomock.Any(), s.name, s.user).Return(false, errors.New("down"))
	s.active(s.tokenGate, true, nil)
	s.crossChain.EXPECT().HasActiveMembership(gomock.Any(), s.name, s.user).
		DoAndReturn(func(context.Context, names.Name, id.Address) (bool, error) {
			panic("boom")
		})

	d := s.agg.Details(s.ctx, s.name, s.user)
	s.Equal(Details{IsPermanent: true, IsTokenBased: true}, d)
}
