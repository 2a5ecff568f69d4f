package uow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/kirinyoku/resortbook/internal/metrics"
	"github.com/kirinyoku/resortbook/internal/pkg/errs"
	"github.com/kirinyoku/resortbook/internal/repository"
)

var ErrMaxRetriesExceeded = errs.New("transaction failed after max retries")

// AfterCommit runs once the transaction has committed. Its error cannot
// undo the commit; it is reported in Result.AfterErr.
type AfterCommit func(ctx context.Context) error

type Config struct {
	// Attempts bounds how often a transaction that lost a serialization
	// race is run in total.
	Attempts    int
	BaseBackoff time.Duration
}

type Result struct {
	Attempts int
	AfterErr error
}

// UoW represents a unit of work.
type UoW struct {
	tx      repository.Transactor
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

func New(tx repository.Transactor, cfg Config, log *slog.Logger, m *metrics.Metrics) *UoW {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 50 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}

	return &UoW{tx: tx, cfg: cfg, log: log, metrics: m}
}

// Do runs fn inside a transaction, retrying the whole of fn when the store
// reports repository.ErrSerialization. Hooks registered through after
// belong to the attempt that registered them and run only once that
// attempt commits.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repositories, after func(AfterCommit)) error,
) (Result, error) {
	for attempt := 1; ; attempt++ {
		var hooks []AfterCommit

		err := u.tx.RunTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil {
			return Result{Attempts: attempt, AfterErr: runHooks(ctx, hooks)}, nil
		}

		if !errors.Is(err, repository.ErrSerialization) {
			return Result{Attempts: attempt}, err
		}

		if attempt >= u.cfg.Attempts {
			u.log.Error("transaction failed after max retries",
				"attempts", attempt,
				"error", err.Error())
			return Result{Attempts: attempt}, errs.Mark(err, ErrMaxRetriesExceeded)
		}

		wait := calculateBackoff(attempt-1, u.cfg.BaseBackoff)
		u.metrics.TxRetry()
		u.log.Warn("retrying transaction after serialization failure",
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return Result{Attempts: attempt}, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func runHooks(ctx context.Context, hooks []AfterCommit) error {
	var all []error
	for _, h := range hooks {
		if err := h(ctx); err != nil {
			all = append(all, err)
		}
	}
	return errors.Join(all...)
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	return int64(uval) % n
}
