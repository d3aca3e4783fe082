package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"time"

	"clubdomains/internal/registry"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/sentinel"
)

//go:embed schema.sql
var Schema string

// Tables lists every registry table, for test truncation.
var Tables = []string{"registry_domains", "registry_commitments", "registry_deposits", "registry_escrows", "registry_ledger"}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists the registry ledger. RunInTx locks the singleton ledger
// row so registry transactions are serialized across processes.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
	*queries
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, queries: &queries{q: db}}
}

// Migrate applies Schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate registry schema: %w", err)
	}
	return nil
}

func (p *Postgres) RunInTx(ctx context.Context, fn func(store registry.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	timeout := p.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registry tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT 1 FROM registry_ledger WHERE id = 1 FOR UPDATE`); err != nil {
		return fmt.Errorf("lock registry ledger: %w", err)
	}
	if err := fn(&queries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registry tx: %w", err)
	}
	return nil
}

type queries struct {
	q querier
}

func (s *queries) GetDomain(ctx context.Context, name names.Name) (*registry.Domain, error) {
	var (
		d     registry.Domain
		owner []byte
		token int64
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT name, owner, registered_at, expiry, token_id FROM registry_domains WHERE name = $1`,
		string(name),
	).Scan(&d.Name, &owner, &d.RegisteredAt, &d.Expiry, &token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get domain: %w", err)
	}
	d.Owner = addressFromBytes(owner)
	d.TokenID = uint64(token)
	return &d, nil
}

func (s *queries) SaveDomain(ctx context.Context, d *registry.Domain) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO registry_domains (name, owner, registered_at, expiry, token_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET owner = EXCLUDED.owner,
		    registered_at = EXCLUDED.registered_at,
		    expiry = EXCLUDED.expiry,
		    token_id = EXCLUDED.token_id`,
		string(d.Name), d.Owner.Bytes(), d.RegisteredAt, d.Expiry, int64(d.TokenID),
	)
	if err != nil {
		return fmt.Errorf("save domain: %w", err)
	}
	return nil
}

func (s *queries) DeleteDomain(ctx context.Context, name names.Name) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM registry_domains WHERE name = $1`, string(name)); err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	return nil
}

func (s *queries) ListExpiringBefore(ctx context.Context, cutoff time.Time, after *registry.ExpiryCursor, limit int) ([]*registry.Domain, error) {
	if limit <= 0 {
		limit = 1000
	}
	var (
		rows *sql.Rows
		err  error
	)
	if after == nil {
		rows, err = s.q.QueryContext(ctx, `
			SELECT name, owner, registered_at, expiry, token_id
			FROM registry_domains
			WHERE expiry < $1
			ORDER BY expiry ASC, name COLLATE "C" ASC
			LIMIT $2`, cutoff, limit)
	} else {
		rows, err = s.q.QueryContext(ctx, `
			SELECT name, owner, registered_at, expiry, token_id
			FROM registry_domains
			WHERE expiry < $1 AND (expiry, name COLLATE "C") > ($2, $3::TEXT COLLATE "C")
			ORDER BY expiry ASC, name COLLATE "C" ASC
			LIMIT $4`, cutoff, after.Expiry, string(after.Name), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list expiring domains: %w", err)
	}
	defer rows.Close()

	var out []*registry.Domain
	for rows.Next() {
		var (
			d     registry.Domain
			owner []byte
			token int64
		)
		if err := rows.Scan(&d.Name, &owner, &d.RegisteredAt, &d.Expiry, &token); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		d.Owner = addressFromBytes(owner)
		d.TokenID = uint64(token)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return out, nil
}

func (s *queries) GetCommitment(ctx context.Context, hash registry.Hash) (*registry.Commitment, error) {
	var (
		c         registry.Commitment
		committer []byte
		deposit   string
	)
	err := s.q.QueryRowContext(ctx,
		`SELECT committer, created_at, deposit::TEXT FROM registry_commitments WHERE hash = $1`,
		hash[:],
	).Scan(&committer, &c.CreatedAt, &deposit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get commitment: %w", err)
	}
	c.Hash = hash
	c.Committer = addressFromBytes(committer)
	if c.Deposit, err = parseNumeric(deposit); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *queries) SaveCommitment(ctx context.Context, c *registry.Commitment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO registry_commitments (hash, committer, created_at, deposit)
		VALUES ($1, $2, $3, $4::NUMERIC)
		ON CONFLICT (hash) DO UPDATE
		SET committer = EXCLUDED.committer,
		    created_at = EXCLUDED.created_at,
		    deposit = EXCLUDED.deposit`,
		c.Hash[:], c.Committer.Bytes(), c.CreatedAt, id.Copy(c.Deposit).String(),
	)
	if err != nil {
		return fmt.Errorf("save commitment: %w", err)
	}
	return nil
}

func (s *queries) DeleteCommitment(ctx context.Context, hash registry.Hash) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM registry_commitments WHERE hash = $1`, hash[:]); err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	return nil
}

func (s *queries) Deposit(ctx context.Context, owner id.Address) (*big.Int, error) {
	return s.amount(ctx, `SELECT amount::TEXT FROM registry_deposits WHERE owner = $1`, owner.Bytes())
}

func (s *queries) SetDeposit(ctx context.Context, owner id.Address, amount *big.Int) error {
	if id.Copy(amount).Sign() == 0 {
		_, err := s.q.ExecContext(ctx, `DELETE FROM registry_deposits WHERE owner = $1`, owner.Bytes())
		return wrapErr("clear deposit", err)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO registry_deposits (owner, amount) VALUES ($1, $2::NUMERIC)
		ON CONFLICT (owner) DO UPDATE SET amount = EXCLUDED.amount`,
		owner.Bytes(), amount.String(),
	)
	return wrapErr("set deposit", err)
}

func (s *queries) Escrow(ctx context.Context, name names.Name) (*big.Int, error) {
	return s.amount(ctx, `SELECT amount::TEXT FROM registry_escrows WHERE name = $1`, string(name))
}

func (s *queries) SetEscrow(ctx context.Context, name names.Name, amount *big.Int) error {
	if id.Copy(amount).Sign() == 0 {
		_, err := s.q.ExecContext(ctx, `DELETE FROM registry_escrows WHERE name = $1`, string(name))
		return wrapErr("clear escrow", err)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO registry_escrows (name, amount) VALUES ($1, $2::NUMERIC)
		ON CONFLICT (name) DO UPDATE SET amount = EXCLUDED.amount`,
		string(name), amount.String(),
	)
	return wrapErr("set escrow", err)
}

func (s *queries) Totals(ctx context.Context) (registry.Totals, error) {
	var balance, deposits, escrows, commitments string
	err := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT balance FROM registry_ledger WHERE id = 1)::TEXT,
			(SELECT COALESCE(SUM(amount), 0) FROM registry_deposits)::TEXT,
			(SELECT COALESCE(SUM(amount), 0) FROM registry_escrows)::TEXT,
			(SELECT COALESCE(SUM(deposit), 0) FROM registry_commitments)::TEXT`,
	).Scan(&balance, &deposits, &escrows, &commitments)
	if err != nil {
		return registry.Totals{}, fmt.Errorf("read totals: %w", err)
	}
	var t registry.Totals
	for _, f := range []struct {
		dst **big.Int
		raw string
	}{
		{&t.Balance, balance},
		{&t.Deposits, deposits},
		{&t.Escrows, escrows},
		{&t.CommitmentDeposits, commitments},
	} {
		v, err := parseNumeric(f.raw)
		if err != nil {
			return registry.Totals{}, err
		}
		*f.dst = v
	}
	return t, nil
}

func (s *queries) AdjustBalance(ctx context.Context, delta *big.Int) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE registry_ledger SET balance = balance + $1::NUMERIC WHERE id = 1`,
		id.Copy(delta).String(),
	)
	return wrapErr("adjust balance", err)
}

func (s *queries) NextTokenID(ctx context.Context) (uint64, error) {
	var next int64
	err := s.q.QueryRowContext(ctx,
		`UPDATE registry_ledger SET next_token_id = next_token_id + 1 WHERE id = 1 RETURNING next_token_id`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next token id: %w", err)
	}
	return uint64(next), nil
}

func (s *queries) amount(ctx context.Context, query string, arg any) (*big.Int, error) {
	var raw string
	err := s.q.QueryRowContext(ctx, query, arg).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id.Zero(), nil
		}
		return nil, fmt.Errorf("read amount: %w", err)
	}
	return parseNumeric(raw)
}

func parseNumeric(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("parse numeric %q", raw)
	}
	return v, nil
}

func addressFromBytes(b []byte) id.Address {
	a, err := id.AddressFromBytes(b)
	if err != nil {
		return id.ZeroAddress
	}
	return a
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
