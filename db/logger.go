package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// gormLogger forwards gorm output to the zap logger
type gormLogger struct {
	logger        logger.Logger
	level         glogger.LogLevel
	slowThreshold time.Duration
}

func (g *gormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *gormLogger) Info(_ context.Context, msg string, data ...any) {
	g.printf(glogger.Info, g.logger.Info, msg, data)
}

func (g *gormLogger) Warn(_ context.Context, msg string, data ...any) {
	g.printf(glogger.Warn, g.logger.Warn, msg, data)
}

func (g *gormLogger) Error(_ context.Context, msg string, data ...any) {
	g.printf(glogger.Error, g.logger.Error, msg, data)
}

func (g *gormLogger) printf(min glogger.LogLevel, log func(string, ...zap.Field), msg string, data []any) {
	if g.level >= min {
		log(fmt.Sprintf(msg, data...), zap.String("component", "gorm"))
	}
}

// Trace logs statement execution. A missing row is a normal cache miss for
// the key-value table and is not reported as an error. At info level every
// statement is traced at debug, since the store runs one per cache access.
func (g *gormLogger) Trace(
	_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error,
) {
	if g.level <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := g.slowThreshold > 0 && elapsed > g.slowThreshold
	if !failed && !slow && g.level < glogger.Info {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	switch {
	case failed && g.level >= glogger.Error:
		g.logger.Error("sql error", append(fields, zap.Error(err))...)
	case slow && g.level >= glogger.Warn:
		g.logger.Warn("slow sql", append(fields, zap.Duration("threshold", g.slowThreshold))...)
	case g.level >= glogger.Info:
		g.logger.Debug("sql trace", fields...)
	}
}
