// Package store persists buildings, rooms, tenants, leases and bills in SQLite
// through ent's dialect/sql query builders. Every method runs against either
// the driver or, inside WithTx, a single transaction.
package store

import (
	"context"
	stdsql "database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	_ "modernc.org/sqlite"
)

// DefaultDSN points at a database file in the working directory with
// foreign keys enabled.
const DefaultDSN = "file:propmanage.db?_pragma=foreign_keys(1)"

var builder = entsql.Dialect(dialect.SQLite)

// Store is the persistence layer. The zero value is not usable; construct
// one with Open or New.
type Store struct {
	drv  *entsql.Driver
	conn dialect.ExecQuerier
	inTx bool
}

// Open opens the SQLite database at dsn. The pool is limited to one
// connection so the foreign_keys pragma holds for every statement and
// transactions serialize.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := stdsql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return New(entsql.OpenDB(dialect.SQLite, db)), nil
}

// New wraps an existing ent SQL driver.
func New(drv *entsql.Driver) *Store {
	return &Store{drv: drv, conn: drv}
}

// Driver returns the underlying ent driver.
func (s *Store) Driver() *entsql.Driver { return s.drv }

// Close closes the database.
func (s *Store) Close() error { return s.drv.Close() }

// Migrate creates or updates the billing tables.
func (s *Store) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(s.drv)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("running schema migration: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction and commits when fn returns nil. The
// Store passed to fn is bound to the transaction. Calls on a Store already
// inside a transaction reuse it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() {
		if v := recover(); v != nil {
			tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(&Store{drv: s.drv, conn: tx, inTx: true}); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, q entsql.Querier) (stdsql.Result, error) {
	query, args := q.Query()
	var res stdsql.Result
	if err := s.conn.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) query(ctx context.Context, q entsql.Querier) (*entsql.Rows, error) {
	query, args := q.Query()
	rows := &entsql.Rows{}
	if err := s.conn.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) insert(ctx context.Context, q entsql.Querier) (int64, error) {
	res, err := s.exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// count runs a single-column COUNT selector.
func (s *Store) count(ctx context.Context, sel *entsql.Selector) (int, error) {
	rows, err := s.query(ctx, sel)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
