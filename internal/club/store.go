package club

import (
	"context"
	"database/sql"

	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/kv"
)

// Store persists club records keyed by name.
type Store interface {
	Create(ctx context.Context, name names.Name, rec *Record) error
	Get(ctx context.Context, name names.Name) (*Record, error)
	Update(ctx context.Context, name names.Name, fn func(*Record) error) error
	Names(ctx context.Context) ([]names.Name, error)
}

type memoryStore struct {
	*kv.Memory[names.Name, *Record]
}

func NewMemoryStore() Store {
	return memoryStore{kv.NewMemory[names.Name]((*Record).Clone)}
}

func (s memoryStore) Names(context.Context) ([]names.Name, error) {
	return s.Keys(func(a, b names.Name) bool { return a < b }), nil
}

// PostgresTable holds one JSONB club record per name.
const PostgresTable = "club_records"

// PostgresStore keeps club records in Postgres.
type PostgresStore struct {
	*kv.Postgres[names.Name, *Record]
}

func NewPostgresStore(db *sql.DB) PostgresStore {
	return PostgresStore{kv.NewPostgres[names.Name](db, PostgresTable, (*Record).Clone)}
}

func (s PostgresStore) Names(ctx context.Context) ([]names.Name, error) {
	return s.Keys(ctx)
}
