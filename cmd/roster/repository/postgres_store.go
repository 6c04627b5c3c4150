package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lyzr/coffeeroster/common/db"
)

// Postgres SQLSTATE codes mapped to repository errors
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore is the pgx-backed Store
type PostgresStore struct {
	db *db.DB
	postgresRepositories
}

type postgresRepositories struct {
	q    db.Querier
	inTx bool
}

// NewPostgresStore creates a store over the shared connection pool
func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{
		db:                   database,
		postgresRepositories: postgresRepositories{q: database.Pool},
	}
}

func (r postgresRepositories) Participants() ParticipantRepository {
	return NewParticipantRepository(r.q, r.inTx)
}

func (r postgresRepositories) Purchases() PurchaseRepository {
	return NewPurchaseRepository(r.q)
}

func (r postgresRepositories) History() ReorderHistoryRepository {
	return NewReorderHistoryRepository(r.q)
}

// WithTx runs fn with repositories bound to a single transaction
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	return s.db.WithTx(ctx, func(ctx context.Context, q db.Querier) error {
		return fn(ctx, postgresRepositories{q: q, inTx: true})
	})
}

// mapError converts driver errors into repository errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
		}
	}
	return err
}
