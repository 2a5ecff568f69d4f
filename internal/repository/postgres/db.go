package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/resortbook/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

var _ repository.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// RunTx runs fn in a SERIALIZABLE read-write transaction.
func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repositories) error,
) error {
	return s.RunTxWithOpts(ctx, nil, fn)
}

func (s *Store) RunTxWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx repository.Repositories) error,
) error {
	const op = "postgresrepo.Store.RunTx"

	txOpts := pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}

	if opts != nil {
		txOpts.IsoLevel = opts.IsoLevel
		txOpts.AccessMode = opts.AccessMode
		txOpts.DeferrableMode = opts.DeferrableMode
	}

	tx, err := s.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, txRepos{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, translateDBErr(err))
	}

	return nil
}

func (s *Store) Bookings() repository.BookingRepository { return &BookingRepo{pool: s.pool} }
func (s *Store) Audit() repository.AuditRepository      { return &AuditRepo{pool: s.pool} }
func (s *Store) Holidays() repository.HolidayRepository { return &HolidayRepo{pool: s.pool} }
func (s *Store) Availability() repository.AvailabilityRepository {
	return &AvailabilityRepo{pool: s.pool}
}

// txRepos hands out repositories bound to one transaction.
type txRepos struct {
	tx pgx.Tx
}

func (t txRepos) Bookings() repository.BookingRepository { return (&BookingRepo{}).With(t.tx) }
func (t txRepos) Audit() repository.AuditRepository      { return (&AuditRepo{}).With(t.tx) }
func (t txRepos) Holidays() repository.HolidayRepository { return (&HolidayRepo{}).With(t.tx) }
func (t txRepos) Availability() repository.AvailabilityRepository {
	return (&AvailabilityRepo{}).With(t.tx)
}
