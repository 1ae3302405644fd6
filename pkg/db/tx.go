package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DefaultTxTimeout bounds a scoped transaction when the caller passes zero.
const DefaultTxTimeout = 15 * time.Second

var ErrTxTimeout = errors.New("transaction_timeout")

// Transaction runs fn on a single pooled connection inside BEGIN/COMMIT.
// Any error or panic from fn rolls back; the connection is returned to the
// pool on every exit path. The context deadline caps how long the
// transaction may hold its connection.
func Transaction(ctx context.Context, conn *gorm.DB, timeout time.Duration, fn func(tx *gorm.DB) error) error {
	if conn == nil {
		return errors.New("db handle is required")
	}
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}

	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := conn.WithContext(txCtx).Transaction(fn)
	if err != nil && errors.Is(txCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", ErrTxTimeout, err)
	}
	return err
}

// Exec runs a single statement outside of any transaction, bounded by timeout.
func Exec(ctx context.Context, conn *gorm.DB, timeout time.Duration, sql string, values ...any) (int64, error) {
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	stmtCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := conn.WithContext(stmtCtx).Exec(sql, values...)
	return res.RowsAffected, res.Error
}
