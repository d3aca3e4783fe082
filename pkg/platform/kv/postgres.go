package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"clubdomains/pkg/platform/sentinel"
)

// Postgres stores each aggregate as one JSONB row keyed by text. Update holds
// a row lock for the duration of fn, so writers to the same key serialize
// across processes.
type Postgres[K ~string, V any] struct {
	db    *sql.DB
	table string
	clone func(V) V
}

// NewPostgres stores aggregates in table. Decoded values pass through clone so
// they come back in the same shape the memory store hands out.
func NewPostgres[K ~string, V any](db *sql.DB, table string, clone func(V) V) *Postgres[K, V] {
	return &Postgres[K, V]{db: db, table: pq.QuoteIdentifier(table), clone: clone}
}

// Migrate creates the table if it does not exist.
func (p *Postgres[K, V]) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, p.table))
	if err != nil {
		return fmt.Errorf("migrate %s: %w", p.table, err)
	}
	return nil
}

// Create stores v under k, failing with sentinel.ErrConflict if k exists.
func (p *Postgres[K, V]) Create(ctx context.Context, k K, v V) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.table, err)
	}
	res, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING`, p.table), string(k), string(data))
	if err != nil {
		return fmt.Errorf("create in %s: %w", p.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create in %s: %w", p.table, err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (p *Postgres[K, V]) Get(ctx context.Context, k K) (V, error) {
	return p.get(ctx, p.db, k, "")
}

// Update applies fn to the value at k inside a transaction that holds the row
// lock, and writes the result only if fn succeeds.
func (p *Postgres[K, V]) Update(ctx context.Context, k K, fn func(V) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", p.table, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	v, err := p.get(ctx, tx, k, " FOR UPDATE")
	if err != nil {
		return err
	}
	if err := fn(v); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.table, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET value = $2, updated_at = NOW() WHERE key = $1`, p.table), string(k), string(data)); err != nil {
		return fmt.Errorf("update %s: %w", p.table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s tx: %w", p.table, err)
	}
	return nil
}

func (p *Postgres[K, V]) Delete(ctx context.Context, k K) error {
	res, err := p.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, p.table), string(k))
	if err != nil {
		return fmt.Errorf("delete from %s: %w", p.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", p.table, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Keys returns every key in byte order.
func (p *Postgres[K, V]) Keys(ctx context.Context) ([]K, error) {
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT key FROM %s ORDER BY key COLLATE "C"`, p.table))
	if err != nil {
		return nil, fmt.Errorf("list %s keys: %w", p.table, err)
	}
	defer rows.Close()

	var out []K
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", p.table, err)
		}
		out = append(out, K(k))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s keys: %w", p.table, err)
	}
	return out, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (p *Postgres[K, V]) get(ctx context.Context, q rowQuerier, k K, lock string) (V, error) {
	var (
		zero V
		data []byte
	)
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`+lock, p.table), string(k)).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, sentinel.ErrNotFound
		}
		return zero, fmt.Errorf("get from %s: %w", p.table, err)
	}
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, fmt.Errorf("decode %s: %w", p.table, err)
	}
	return p.clone(v), nil
}
