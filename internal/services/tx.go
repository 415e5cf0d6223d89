package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/lib/pq"
)

const txAttempts = 3

// runTx executes fn inside a database transaction, retrying when Postgres
// aborts the transaction due to a conflicting concurrent writer
// (serialization failure or deadlock). Conflicts are never surfaced raw:
// after the attempts are spent the caller sees ErrServiceUnavailable.
func runTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		if err := fn(tx); err != nil {
			tx.Rollback()
			if isConflict(err) {
				lastErr = err
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if isConflict(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}

	log.Printf("[TX] Giving up after %d conflict aborts: %v", txAttempts, lastErr)
	return ErrServiceUnavailable
}

// isConflict matches the Postgres abort codes that are safe to retry.
func isConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// notifyTx queues a change-feed notification. The store delivers it only if
// the surrounding transaction commits, so subscribers never observe rolled
// back changes. Failures are logged, not propagated: a lost notification
// only delays a dashboard refresh.
func notifyTx(tx *sql.Tx, channel, payload string) {
	if _, err := tx.Exec(`SELECT pg_notify($1, $2)`, channel, payload); err != nil {
		log.Printf("[TX] pg_notify %s failed: %v", channel, err)
	}
}
