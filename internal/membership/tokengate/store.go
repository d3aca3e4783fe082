package tokengate

import (
	"context"
	"database/sql"

	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/kv"
)

// Store persists gate lists keyed by club name.
type Store interface {
	Create(ctx context.Context, name names.Name, club *Club) error
	Get(ctx context.Context, name names.Name) (*Club, error)
	Update(ctx context.Context, name names.Name, fn func(*Club) error) error
	Delete(ctx context.Context, name names.Name) error
}

func NewMemoryStore() Store {
	return kv.NewMemory[names.Name]((*Club).Clone)
}

// PostgresTable holds one JSONB gate list per club.
const PostgresTable = "tokengate_clubs"

func NewPostgresStore(db *sql.DB) *kv.Postgres[names.Name, *Club] {
	return kv.NewPostgres[names.Name](db, PostgresTable, (*Club).Clone)
}
