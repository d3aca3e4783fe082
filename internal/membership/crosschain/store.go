package crosschain

import (
	"context"
	"math/big"
	"sort"
	"sync"

	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/sentinel"
)

// Store holds one record per (club, user, chain). Put overwrites.
// Get returns sentinel.ErrNotFound for a missing record; Delete of a missing
// record is not an error.
type Store interface {
	Get(ctx context.Context, name names.Name, user id.Address, chainID uint64) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, name names.Name, user id.Address, chainID uint64) error
	List(ctx context.Context, name names.Name, user id.Address) ([]*Record, error)

	// AllowOracle adds oracle to the allow-list; allowing twice is not an error.
	AllowOracle(ctx context.Context, oracle id.Address) error
	// RevokeOracle removes oracle and reports whether it was allowed.
	RevokeOracle(ctx context.Context, oracle id.Address) (bool, error)
	IsOracle(ctx context.Context, oracle id.Address) (bool, error)

	// AddFees credits amount to the collected verification fees.
	AddFees(ctx context.Context, amount *big.Int) error
	Fees(ctx context.Context) (*big.Int, error)
	// TakeFees zeroes the collected fees and returns what was there.
	TakeFees(ctx context.Context) (*big.Int, error)
}

type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]*Record
	oracles map[id.Address]struct{}
	fees    *big.Int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]*Record),
		oracles: make(map[id.Address]struct{}),
		fees:    id.Zero(),
	}
}

func (s *MemoryStore) Get(_ context.Context, name names.Name, user id.Address, chainID uint64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordKey{name: name, user: user, chainID: chainID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.key()] = rec.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name names.Name, user id.Address, chainID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordKey{name: name, user: user, chainID: chainID})
	return nil
}

func (s *MemoryStore) List(_ context.Context, name names.Name, user id.Address) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for k, rec := range s.records {
		if k.name == name && k.user == user {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out, nil
}

func (s *MemoryStore) AllowOracle(_ context.Context, oracle id.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oracles[oracle] = struct{}{}
	return nil
}

func (s *MemoryStore) RevokeOracle(_ context.Context, oracle id.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.oracles[oracle]
	delete(s.oracles, oracle)
	return ok, nil
}

func (s *MemoryStore) IsOracle(_ context.Context, oracle id.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.oracles[oracle]
	return ok, nil
}

func (s *MemoryStore) AddFees(_ context.Context, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees = id.Add(s.fees, amount)
	return nil
}

func (s *MemoryStore) Fees(_ context.Context) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return id.Copy(s.fees), nil
}

func (s *MemoryStore) TakeFees(_ context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.fees
	s.fees = id.Zero()
	return out, nil
}
