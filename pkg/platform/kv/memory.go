// Package kv is the in-memory keyed aggregate store used by the membership
// ledgers. Each value is one aggregate; Update is all-or-nothing per key.
package kv

import (
	"context"
	"sort"
	"sync"

	"clubdomains/pkg/platform/sentinel"
)

// Memory stores aggregates by key. Values are cloned on the way in and out
// so callers never share state with the store.
type Memory[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	clone func(V) V
}

func NewMemory[K comparable, V any](clone func(V) V) *Memory[K, V] {
	return &Memory[K, V]{
		items: make(map[K]V),
		clone: clone,
	}
}

// Create stores v under k, failing with sentinel.ErrConflict if k exists.
func (m *Memory[K, V]) Create(_ context.Context, k K, v V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[k]; ok {
		return sentinel.ErrConflict
	}
	m.items[k] = m.clone(v)
	return nil
}

func (m *Memory[K, V]) Get(_ context.Context, k K) (V, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[k]
	if !ok {
		var zero V
		return zero, sentinel.ErrNotFound
	}
	return m.clone(v), nil
}

// Update applies fn to a copy of the value at k and stores the copy only if
// fn succeeds. Updates of the same store are serialized.
func (m *Memory[K, V]) Update(ctx context.Context, k K, fn func(V) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	v, ok := m.items[k]
	if !ok {
		return sentinel.ErrNotFound
	}
	staged := m.clone(v)
	if err := fn(staged); err != nil {
		return err
	}
	m.items[k] = staged
	return nil
}

func (m *Memory[K, V]) Delete(_ context.Context, k K) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[k]; !ok {
		return sentinel.ErrNotFound
	}
	delete(m.items, k)
	return nil
}

// Keys returns every key, sorted by less.
func (m *Memory[K, V]) Keys(less func(a, b K) bool) []K {
	m.mu.RLock()
	keys := make([]K, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}
