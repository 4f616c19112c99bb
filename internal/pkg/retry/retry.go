package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// backoffIntervals описывает интервалы ожидания между повторными попытками.
var backoffIntervals = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// IsRetriableNetError проверяет, является ли ошибка сетевой и «временной».
func IsRetriableNetError(err error) bool {
	var netErr net.Error
	if !errors.As(err, &netErr) {
		return false
	}
	if netErr.Timeout() {
		return true
	}
	lowerMsg := strings.ToLower(err.Error())
	return strings.Contains(lowerMsg, "connection refused") ||
		strings.Contains(lowerMsg, "connection reset") ||
		strings.Contains(lowerMsg, "network is unreachable") ||
		strings.Contains(lowerMsg, "no such host")
}

// IsRetriablePGError reports connection exceptions (class 08) and a server
// that is still starting up or shutting down.
func IsRetriablePGError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgerrcode.IsConnectionException(pgErr.Code) ||
		pgErr.Code == pgerrcode.CannotConnectNow ||
		pgErr.Code == pgerrcode.AdminShutdown
}

// DoWithRetry делает до 4 попыток вызвать fn(). Only transient network and
// connection errors are retried; ctx cancellation stops the waiting.
func DoWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i <= len(backoffIntervals); i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !(IsRetriableNetError(err) || IsRetriablePGError(err)) {
			return err
		}

		if i < len(backoffIntervals) {
			timer := time.NewTimer(backoffIntervals[i])
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
		}
	}

	return lastErr
}
