package ch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/routine"
	"github.com/smallnest/chanx"
	"go.uber.org/zap"
)

// connInserter inserts batches through a clickhouse connection
type connInserter struct {
	conn driver.Conn
}

func (c connInserter) InsertBatch(ctx context.Context, table TableName, rows []Table) error {
	if len(rows) == 0 {
		return nil
	}

	columns := rows[0].Columns()
	query := fmt.Sprintf("INSERT INTO `%s` (%s)", table, strings.Join(columns, ", "))
	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return ErrInsert(table, err)
	}
	for _, row := range rows {
		if err := batch.Append(row.Values()...); err != nil {
			_ = batch.Abort()
			return ErrInsert(table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return ErrInsert(table, err)
	}
	return nil
}

type defaultWriter struct {
	config *WriterConfig
	logger logger.Logger

	inserter batchInserter

	dataChan *chanx.UnboundedChan[Table]
	now      func() time.Time

	// mu keeps Close from closing the input while a Write sends
	mu      sync.RWMutex
	started atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup
}

func newWriter(inserter batchInserter, config *WriterConfig, log logger.Logger) *defaultWriter {
	if config == nil {
		config = DefaultWriterConfig()
	}

	w := &defaultWriter{
		config:   config,
		logger:   log,
		inserter: inserter,
		dataChan: chanx.NewUnboundedChan[Table](context.Background(), config.FlushSize),
		now:      time.Now,
	}

	log.Info("clickhouse writer initialized",
		zap.Duration("flush_interval", config.FlushInterval),
		zap.Int("flush_size", config.FlushSize),
		zap.Int("min_flush_size", config.MinFlushSize),
		zap.Duration("max_wait_time", config.MaxWaitTime),
	)
	return w
}

// Start launches the batching loop. Calling it twice is a no-op.
func (w *defaultWriter) Start() error {
	if w.closed.Load() {
		return ErrWriterClosed
	}
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}

	w.wg.Add(1)
	routine.Go(w.logger, func() {
		defer w.wg.Done()
		w.processLoop()
	})

	w.logger.Info("clickhouse writer started")
	return nil
}

// Write buffers rows. The buffer is unbounded, so a send only waits for the
// buffering goroutine to pick the row up.
func (w *defaultWriter) Write(ctx context.Context, rows []Table) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed.Load() {
		return ErrWriterClosed
	}

	for _, row := range rows {
		select {
		case w.dataChan.In <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops intake and waits until every buffered row was flushed
func (w *defaultWriter) Close() error {
	w.mu.Lock()
	if !w.closed.CompareAndSwap(false, true) {
		w.mu.Unlock()
		return nil
	}
	close(w.dataChan.In)
	w.mu.Unlock()

	w.logger.Info("clickhouse writer shutting down", zap.Int("buffered", w.dataChan.Len()))

	if w.started.Load() {
		w.wg.Wait()
	}

	w.logger.Info("clickhouse writer shutdown complete")
	return nil
}

// processLoop batches rows until the input channel is closed and drained
func (w *defaultWriter) processLoop() {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	b := newBatch()
	for {
		select {
		case row, ok := <-w.dataChan.Out:
			if !ok {
				if b.size > 0 {
					w.flush(b)
				}
				return
			}
			if row == nil {
				continue
			}
			b.add(row, w.now())
			if b.size >= w.config.FlushSize {
				w.flush(b)
				b = newBatch()
			}

		case <-ticker.C:
			if b.size == 0 {
				continue
			}
			if w.shouldFlush(b.size, b.first) {
				w.flush(b)
				b = newBatch()
			} else {
				w.logger.Debug("skipping flush, waiting for more rows",
					zap.Int("current_rows", b.size),
					zap.Int("min_flush_size", w.config.MinFlushSize),
				)
			}
		}
	}
}

// shouldFlush decides whether an interval tick flushes a buffer of
// totalRows whose oldest row arrived at first
func (w *defaultWriter) shouldFlush(totalRows int, first time.Time) bool {
	if w.config.MinFlushSize == 0 || totalRows >= w.config.MinFlushSize {
		return true
	}
	return w.config.MaxWaitTime > 0 && w.now().Sub(first) >= w.config.MaxWaitTime
}

func (w *defaultWriter) flush(b *batch) {
	failed := 0
	for table, rows := range b.rows {
		if err := w.inserter.InsertBatch(context.Background(), table, rows); err != nil {
			w.logger.Error("clickhouse batch insert failed",
				zap.String("table", string(table)),
				zap.Int("rows", len(rows)),
				zap.Error(err),
			)
			failed += len(rows)
		}
	}

	w.logger.Debug("clickhouse flush completed",
		zap.Int("total_rows", b.size),
		zap.Int("failed_rows", failed),
	)
}

type batch struct {
	rows  map[TableName][]Table
	size  int
	first time.Time
}

func newBatch() *batch {
	return &batch{rows: make(map[TableName][]Table)}
}

func (b *batch) add(row Table, now time.Time) {
	if b.size == 0 {
		b.first = now
	}
	b.rows[row.TableName()] = append(b.rows[row.TableName()], row)
	b.size++
}
