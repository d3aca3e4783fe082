package pause

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clubdomains/pkg/domain"
	"clubdomains/pkg/testutil"
)

func TestSwitch(t *testing.T) {
	owner := testutil.Addr(1)
	stranger := testutil.Addr(2)
	s := New("registry", owner)

	t.Run("only owner may pause", func(t *testing.T) {
		err := s.Pause(stranger)
		assert.True(t, errors.Is(err, ErrNotOwner))
		assert.NoError(t, s.Ensure())
	})

	t.Run("paused switch rejects mutations", func(t *testing.T) {
		require.NoError(t, s.Pause(owner))
		assert.True(t, errors.Is(s.Ensure(), ErrPaused))
		require.NoError(t, s.Unpause(owner))
		assert.NoError(t, s.Ensure())
	})

	t.Run("zero owner never matches", func(t *testing.T) {
		unowned := New("x", id.ZeroAddress)
		assert.False(t, unowned.IsOwner(id.ZeroAddress))
	})
}
