// Package storage provides the SQLite-backed canonical store: persistence
// for canonical entities, aliases, mentions and candidate links, the
// read-only query surface for downstream consumers, and the adjudication
// operations that resolve PENDING candidate links.
//
// Only the ingestion pipeline writes here, and always inside a single
// per-document transaction obtained via WithTx.
package storage

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/caselight/caselight/errors"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Store methods accept a Querier so the same code serves both the
// per-document ingestion transaction and direct reads.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the canonical entity store.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// NewStore creates a store over an opened, migrated database.
// logger may be nil for silent operation.
func NewStore(db *sql.DB, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, log: logger}
}

// DB exposes the underlying handle for callers that manage their own
// transactions (the ingestion pipeline).
func (s *Store) DB() *sql.DB {
	return s.db
}

// q returns the given querier, falling back to the store's own connection
// when the caller passed nil (reads outside any transaction).
func (s *Store) q(q Querier) Querier {
	if q == nil {
		return s.db
	}
	return q
}

// WithTx runs fn inside a single transaction and commits iff fn returns nil.
// SQLite's single-writer model makes this the serializable view resolution
// requires for the duration of one document.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
