package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albadr/zatca-integration/internal/domain/repository"
)

var _ repository.InvoiceLocker = (*AdvisoryLocker)(nil)

// lockNamespace keeps invoice locks apart from any other advisory lock users
// of the same database.
const lockNamespace = 0x7A61 // "za"

// AdvisoryLocker serializes per-invoice work with PostgreSQL advisory locks.
// Lock and unlock must run on the same connection, so one is pinned from the
// pool for the duration of the callback.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLocker builds the locker on the shared pool.
func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

// WithInvoiceLock acquires the invoice lock, runs fn and releases the lock.
// Acquisition blocks until the holder releases, so concurrent submitters of
// the same invoice run one after the other.
func (l *AdvisoryLocker) WithInvoiceLock(ctx context.Context, invoiceID int64, fn func() error) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection for invoice lock: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1, $2)`, lockNamespace, invoiceID); err != nil {
		return fmt.Errorf("acquire invoice lock: %w", err)
	}
	defer func() {
		// Unlock on a background context: the callback's cancellation must
		// not leak the lock for the rest of the session.
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1, $2)`, lockNamespace, invoiceID)
	}()

	return fn()
}
