package pass

import (
	"context"
	"database/sql"

	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/kv"
)

// Store persists pass ledgers keyed by club name. Update is atomic per club.
type Store interface {
	Create(ctx context.Context, name names.Name, club *Club) error
	Get(ctx context.Context, name names.Name) (*Club, error)
	Update(ctx context.Context, name names.Name, fn func(*Club) error) error
}

func NewMemoryStore() Store {
	return kv.NewMemory[names.Name]((*Club).Clone)
}

// PostgresTable holds one JSONB pass ledger per club.
const PostgresTable = "pass_clubs"

func NewPostgresStore(db *sql.DB) *kv.Postgres[names.Name, *Club] {
	return kv.NewPostgres[names.Name](db, PostgresTable, (*Club).Clone)
}
