// Package ch records sync activity in ClickHouse. Replay outcomes are
// buffered in memory and inserted in batches.
package ch

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type TableName string

// Table is a row that knows its table and column layout. Columns and Values
// must have the same length and order.
type Table interface {
	TableName() TableName
	Columns() []string
	Values() []any
}

// Writer buffers rows and inserts them in batches
type Writer interface {
	Start() error
	// Close stops accepting rows and flushes everything buffered
	Close() error
	Write(ctx context.Context, rows []Table) error
}

// Client is the ClickHouse client used for the audit trail
type Client interface {
	// Writer returns the shared batch writer
	Writer() (Writer, error)
	// EnsureSchema creates the audit tables when missing
	EnsureSchema(ctx context.Context) error
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) driver.Row
	Close() error
}

// batchInserter inserts rows of one table in a single batch
type batchInserter interface {
	InsertBatch(ctx context.Context, table TableName, rows []Table) error
}
