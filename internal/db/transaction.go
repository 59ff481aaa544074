package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tOgg1/mxview/internal/logging"
)

// RetryPolicy bounds how often a write is retried while SQLite reports the
// database busy. The poller and a command writing at the same time is the
// usual cause.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is used by Write.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultRetryPolicy.Backoff
	}
	return p
}

// Write runs fn in a transaction, retrying with DefaultRetryPolicy while the
// database is busy.
func (db *DB) Write(ctx context.Context, fn func(*sql.Tx) error) error {
	return db.WriteWithPolicy(ctx, DefaultRetryPolicy, fn)
}

// WriteWithPolicy runs fn in a transaction. A busy database rolls the
// attempt back and retries with doubling backoff; any other error is
// returned as is.
func (db *DB) WriteWithPolicy(ctx context.Context, policy RetryPolicy, fn func(*sql.Tx) error) error {
	return retryBusy(ctx, policy, func() error {
		return db.Transaction(ctx, fn)
	})
}

func retryBusy(ctx context.Context, policy RetryPolicy, attemptFn func() error) error {
	policy = policy.normalized()
	backoff := policy.Backoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := attemptFn()
		if err == nil || !IsBusy(err) || attempt >= policy.Attempts {
			return err
		}

		logger := logging.Component("db")
		logger.Debug().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("database busy, retrying write")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

// IsBusy reports whether err is SQLite's busy or locked condition. Driver
// errors are matched on their primary result code; wrapped or foreign
// errors fall back to the message text.
func IsBusy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database is busy") ||
		strings.Contains(message, "sqlite_busy")
}
