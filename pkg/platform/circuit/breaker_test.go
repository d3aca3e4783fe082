package circuit

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	b *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.b = New("oracle-bus", WithFailureThreshold(2), WithSuccessThreshold(2))
}

func (s *BreakerSuite) fail(n int) (bool, StateChange) {
	var (
		fallback bool
		change   StateChange
	)
	for range n {
		fallback, change = s.b.RecordFailure()
	}
	return fallback, change
}

func (s *BreakerSuite) TestDefaults() {
	b := New("ratelimit", WithFailureThreshold(0), WithSuccessThreshold(-1))
	s.Equal("ratelimit", b.Name())
	s.Equal(StateClosed, b.State())

	for range 4 {
		fallback, _ := b.RecordFailure()
		s.False(fallback)
	}
	fallback, change := b.RecordFailure()
	s.True(fallback, "fifth consecutive failure opens with the default threshold")
	s.True(change.Opened)

	usePrimary, change := b.RecordSuccess()
	s.True(usePrimary, "one success closes with the default threshold")
	s.True(change.Closed)
}

func (s *BreakerSuite) TestOutageAndRecovery() {
	s.Run("first failure stays on the primary", func() {
		fallback, change := s.fail(1)
		s.False(fallback)
		s.Equal(StateChange{}, change)
	})

	s.Run("threshold opens the circuit once", func() {
		fallback, change := s.fail(1)
		s.True(fallback)
		s.True(change.Opened)
		s.Equal(StateOpen, s.b.State())

		fallback, change = s.fail(1)
		s.True(fallback)
		s.False(change.Opened, "already open")
	})

	s.Run("recovery needs consecutive successes", func() {
		usePrimary, change := s.b.RecordSuccess()
		s.False(usePrimary)
		s.False(change.Closed)

		s.fail(1)
		usePrimary, _ = s.b.RecordSuccess()
		s.False(usePrimary, "a failure restarts the success count")

		usePrimary, change = s.b.RecordSuccess()
		s.True(usePrimary)
		s.True(change.Closed)
		s.Equal(StateClosed, s.b.State())
	})
}

func (s *BreakerSuite) TestSuccessClearsFailureStreak() {
	s.fail(1)
	usePrimary, change := s.b.RecordSuccess()
	s.True(usePrimary)
	s.Equal(StateChange{}, change)

	fallback, _ := s.fail(1)
	s.False(fallback, "streak restarted after the success")
	s.Equal(StateClosed, s.b.State())
}
