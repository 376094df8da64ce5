package database

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm/logger"
)

var (
	busyErrors   atomic.Uint64
	lockedErrors atomic.Uint64
)

// SQLiteStats is a snapshot of lock contention seen by the diagnostics store
type SQLiteStats struct {
	Up           bool   `json:"up"`
	BusyErrors   uint64 `json:"busy_errors"`
	LockedErrors uint64 `json:"locked_errors"`
}

// Stats reports connectivity and the contention counters
func Stats(ctx context.Context) SQLiteStats {
	return SQLiteStats{
		Up:           SQLiteUp(ctx),
		BusyErrors:   busyErrors.Load(),
		LockedErrors: lockedErrors.Load(),
	}
}

// SQLiteUp pings the database with a short deadline
func SQLiteUp(ctx context.Context) bool {
	if DB == nil {
		return false
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return false
	}
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) <= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
	}
	return sqlDB.PingContext(ctx) == nil
}

func classifySQLiteError(err error) (busy bool, locked bool) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, false
	}
	msg := strings.ToLower(err.Error())
	busy = strings.Contains(msg, "sqlite_busy") || strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy timeout")
	locked = strings.Contains(msg, "sqlite_locked") || strings.Contains(msg, "database table is locked")
	return busy, locked
}

func recordSQLiteError(err error) {
	busy, locked := classifySQLiteError(err)
	if busy {
		busyErrors.Add(1)
	}
	if locked {
		lockedErrors.Add(1)
	}
}

// countingLogger feeds query errors into the contention counters
type countingLogger struct {
	logger.Interface
}

func (l countingLogger) LogMode(level logger.LogLevel) logger.Interface {
	return countingLogger{Interface: l.Interface.LogMode(level)}
}

func (l countingLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err != nil {
		recordSQLiteError(err)
	}
	l.Interface.Trace(ctx, begin, fc, err)
}
