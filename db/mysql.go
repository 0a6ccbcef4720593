package db

import (
	"context"
	"strings"

	"github.com/campuscommunity/synckit/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

type defaultMySQLDatabase struct {
	logger logger.Logger
	db     *gorm.DB
}

// NewMySQL opens a pooled MySQL connection and verifies it with a ping
func NewMySQL(log logger.Logger, cfg *Config) (Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dd := &defaultMySQLDatabase{
		logger: log,
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: &gormLogger{
			logger:        log,
			level:         parseLogLevel(cfg.LogLevel),
			slowThreshold: cfg.SlowThreshold,
		},
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}

	sqldb.SetMaxOpenConns(cfg.Pool.MaxOpen)
	sqldb.SetMaxIdleConns(cfg.Pool.MaxIdle)
	sqldb.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.Pool.MaxIdleTime)

	if err := sqldb.Ping(); err != nil {
		return nil, ErrConnection(err)
	}
	dd.db = gdb

	log.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int("pool_max_open", cfg.Pool.MaxOpen),
	)

	return dd, nil
}

func parseLogLevel(level string) glogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return glogger.Silent
	case "error":
		return glogger.Error
	case "info":
		return glogger.Info
	default:
		return glogger.Warn
	}
}

func (dd *defaultMySQLDatabase) DB() (*gorm.DB, error) {
	if dd.db == nil {
		return nil, ErrConnectionNotEstablished
	}
	return dd.db, nil
}

func (dd *defaultMySQLDatabase) Migrate(ctx context.Context, models ...any) error {
	if dd.db == nil {
		return ErrConnectionNotEstablished
	}
	if err := dd.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return ErrMigrate(err)
	}
	return nil
}

func (dd *defaultMySQLDatabase) Ping(ctx context.Context) error {
	if dd.db == nil {
		return ErrConnectionNotEstablished
	}
	sqldb, err := dd.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.PingContext(ctx)
}

func (dd *defaultMySQLDatabase) Close() error {
	if dd.db == nil {
		return nil
	}
	sqldb, err := dd.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.Close()
}
