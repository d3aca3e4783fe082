package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubdomains/pkg/platform/sentinel"
)

type counter struct {
	N    int
	Tags []string
}

func cloneCounter(c *counter) *counter {
	out := *c
	out.Tags = append([]string(nil), c.Tags...)
	return &out
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("create rejects an existing key", func(t *testing.T) {
		m := NewMemory[string](cloneCounter)
		require.NoError(t, m.Create(ctx, "a", &counter{}))
		assert.ErrorIs(t, m.Create(ctx, "a", &counter{}), sentinel.ErrConflict)
	})

	t.Run("failed update leaves the value untouched", func(t *testing.T) {
		m := NewMemory[string](cloneCounter)
		require.NoError(t, m.Create(ctx, "a", &counter{N: 1}))

		boom := errors.New("boom")
		err := m.Update(ctx, "a", func(c *counter) error {
			c.N = 99
			c.Tags = append(c.Tags, "x")
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := m.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 1, got.N)
		assert.Empty(t, got.Tags)
	})

	t.Run("returned values are copies", func(t *testing.T) {
		m := NewMemory[string](cloneCounter)
		require.NoError(t, m.Create(ctx, "a", &counter{Tags: []string{"x"}}))
		got, err := m.Get(ctx, "a")
		require.NoError(t, err)
		got.Tags[0] = "mutated"

		again, err := m.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "x", again.Tags[0])
	})

	t.Run("missing keys report not found", func(t *testing.T) {
		m := NewMemory[string](cloneCounter)
		_, err := m.Get(ctx, "nope")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.ErrorIs(t, m.Update(ctx, "nope", func(*counter) error { return nil }), sentinel.ErrNotFound)
		assert.ErrorIs(t, m.Delete(ctx, "nope"), sentinel.ErrNotFound)
	})

	t.Run("keys are sorted", func(t *testing.T) {
		m := NewMemory[string](cloneCounter)
		for _, k := range []string{"c", "a", "b"} {
			require.NoError(t, m.Create(ctx, k, &counter{}))
		}
		assert.Equal(t, []string{"a", "b", "c"}, m.Keys(func(a, b string) bool { return a < b }))
	})
}
