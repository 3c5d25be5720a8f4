// Package postgres implements repository.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/scoreline/internal/adapters/repository"
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/metrics"
)

const backend = "postgres"

// SQLSTATE codes mapErr understands.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL-backed repository.Store.
type Store struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// New connects to url, verifies the connection and returns a Store.
func New(ctx context.Context, url string) (*Store, error) {
	const op = "postgres.new"
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	return &Store{pool: pool, q: pool}, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return repository.ErrClosed
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s.pool != nil && !s.inTx {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Matches() repository.MatchRepository           { return matches{q: s.q} }
func (s *Store) Predictions() repository.PredictionRepository { return predictions{q: s.q} }
func (s *Store) Users() repository.UserRepository             { return users{q: s.q} }

// Tx runs fn inside a database transaction. Nested calls join the outer one.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	start := time.Now()
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, &Store{pool: s.pool, q: tx, inTx: true})
	})
	observe("tx", start, err)
	return err
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(backend, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStoreError(backend, op)
	}
}

// mapErr translates driver errors into the repository's error kinds.
func mapErr(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return model.NotFound(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s (%s)", model.ErrDuplicate, entity, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s %s still referenced (%s)", repository.ErrConflict, entity, id, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}

// exists reports whether a row with id is present in table.
func exists(ctx context.Context, q querier, table, id string) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&ok)
	return ok, err
}

// missingOrConflict explains a guarded write that touched no rows.
func missingOrConflict(ctx context.Context, q querier, table, entity, id, why string) error {
	ok, err := exists(ctx, q, table, id)
	if err != nil {
		return mapErr(err, entity, id)
	}
	if !ok {
		return model.NotFound(entity, id)
	}
	return fmt.Errorf("%w: %s %s %s", repository.ErrConflict, entity, id, why)
}

// track is observe for deferred use with a named error result.
func track(op string, start time.Time, err *error) {
	observe(op, start, *err)
}
