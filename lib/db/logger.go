package db

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowThreshold is the query duration above which a trace is logged as a
// warning instead of debug.
const slowThreshold = 200 * time.Millisecond

// GormLogger implements gorm.logger.Interface on top of slog, so GORM's
// output lands in the same structured stream as the rest of the service.
type GormLogger struct {
	logger *slog.Logger
}

func NewGormLogger(logger *slog.Logger) *GormLogger {
	return &GormLogger{logger: logger}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return l
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.logger.Info(msg, slog.Any("data", data))
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.logger.Warn(msg, slog.Any("data", data))
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.logger.Error(msg, slog.Any("data", data))
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	attrs := []any{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Misses are expected when the slot has never been written.
		l.logger.Debug("query", attrs...)
	case err != nil:
		l.logger.Error("query failed", append(attrs, slog.Any("error", err))...)
	case elapsed > slowThreshold:
		l.logger.Warn("slow query", attrs...)
	default:
		l.logger.Debug("query", attrs...)
	}
}
