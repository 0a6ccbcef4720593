package ch

import (
	"context"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/campuscommunity/synckit/logger"
	"go.uber.org/zap"
)

type defaultClient struct {
	config *Config
	logger logger.Logger

	conn driver.Conn

	writer     Writer
	writerOnce sync.Once

	closed bool
	mu     sync.RWMutex
}

// NewClient connects to ClickHouse and verifies the connection with a ping
func NewClient(config *Config, log logger.Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.MergeDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: config.Hosts,
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		DialTimeout: config.DialTimeout,
		Debug:       config.Debug,
		Settings:    config.Settings,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, ErrConnection(err)
	}

	log.Info("clickhouse client initialized",
		zap.Strings("hosts", config.Hosts),
		zap.String("database", config.Database),
	)

	return &defaultClient{
		config: config,
		logger: log,
		conn:   conn,
	}, nil
}

// Writer returns the lazily created batch writer. The caller starts it.
func (c *defaultClient) Writer() (Writer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrConnectionClosed
	}
	if c.config.WriterConfig == nil {
		return nil, ErrWriterDisabled
	}

	c.writerOnce.Do(func() {
		c.writer = newWriter(connInserter{conn: c.conn}, c.config.WriterConfig, c.logger)
	})
	return c.writer, nil
}

func (c *defaultClient) EnsureSchema(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}

	if err := c.conn.Exec(ctx, syncEventsDDL); err != nil {
		return ErrSchema(TableSyncEvents, err)
	}
	c.logger.Info("clickhouse schema ready", zap.String("table", string(TableSyncEvents)))
	return nil
}

func (c *defaultClient) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrConnectionClosed
	}

	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		c.logger.Error("clickhouse query failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// QueryRow returns nil once the client is closed
func (c *defaultClient) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Error("clickhouse connection is closed", zap.String("query", query))
		return nil
	}
	return c.conn.QueryRow(ctx, query, args...)
}

// Close flushes the writer, if any, and closes the connection
func (c *defaultClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.writer != nil {
		if err := c.writer.Close(); err != nil {
			c.logger.Error("failed to close clickhouse writer", zap.Error(err))
		}
	}

	if err := c.conn.Close(); err != nil {
		return ErrConnection(err)
	}
	c.logger.Info("clickhouse client closed")
	return nil
}
