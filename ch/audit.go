package ch

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/queue"
	"go.uber.org/zap"
)

// TableSyncEvents holds one row per queue event
const TableSyncEvents TableName = "campus_sync_events"

// OutcomeEnqueued marks a row recording an enqueue rather than a replay
const OutcomeEnqueued = "enqueued"

const syncEventsDDL = "CREATE TABLE IF NOT EXISTS `campus_sync_events` (" +
	"`action_id` String, " +
	"`action_type` LowCardinality(String), " +
	"`outcome` LowCardinality(String), " +
	"`retry_count` UInt16, " +
	"`duration_ms` Int64, " +
	"`error` String, " +
	"`event_time` DateTime64(3)" +
	") ENGINE = MergeTree ORDER BY (event_time, action_id)"

var syncEventColumns = []string{
	"action_id", "action_type", "outcome", "retry_count", "duration_ms", "error", "event_time",
}

// SyncEvent is one audit row
type SyncEvent struct {
	ActionID   string    `json:"actionId"`
	ActionType string    `json:"actionType"`
	Outcome    string    `json:"outcome"`
	RetryCount uint16    `json:"retryCount"`
	DurationMs int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
	EventTime  time.Time `json:"eventTime"`
}

func (SyncEvent) TableName() TableName { return TableSyncEvents }

func (SyncEvent) Columns() []string { return syncEventColumns }

func (e SyncEvent) Values() []any {
	return []any{e.ActionID, e.ActionType, e.Outcome, e.RetryCount, e.DurationMs, e.Error, e.EventTime}
}

// AuditWriter records queue events through a Writer. It implements
// queue.Observer; write failures are logged and never block the queue.
type AuditWriter struct {
	logger logger.Logger
	writer Writer
	now    func() time.Time
}

var _ queue.Observer = (*AuditWriter)(nil)

// NewAuditWriter returns an AuditWriter writing through w
func NewAuditWriter(log logger.Logger, w Writer) *AuditWriter {
	return &AuditWriter{logger: log, writer: w, now: time.Now}
}

func (a *AuditWriter) ActionEnqueued(action queue.PendingAction) {
	a.write(SyncEvent{
		ActionID:   action.ID,
		ActionType: string(action.Type),
		Outcome:    OutcomeEnqueued,
		EventTime:  a.now(),
	})
}

func (a *AuditWriter) ActionReplayed(action queue.PendingAction, outcome queue.Outcome, elapsed time.Duration, err error) {
	e := SyncEvent{
		ActionID:   action.ID,
		ActionType: string(action.Type),
		Outcome:    string(outcome),
		RetryCount: uint16(action.RetryCount),
		DurationMs: elapsed.Milliseconds(),
		EventTime:  a.now(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.write(e)
}

// QueueLength is not audited
func (a *AuditWriter) QueueLength(int) {}

func (a *AuditWriter) write(e SyncEvent) {
	if err := a.writer.Write(context.Background(), []Table{e}); err != nil {
		a.logger.Warn("sync event not audited",
			zap.String("action_id", e.ActionID),
			zap.String("outcome", e.Outcome),
			zap.Error(err),
		)
	}
}

const (
	recentEventsQuery = "SELECT action_id, action_type, outcome, retry_count, duration_ms, error, event_time " +
		"FROM campus_sync_events ORDER BY event_time DESC LIMIT ?"
	countEventsQuery = "SELECT count() FROM campus_sync_events WHERE outcome = ? AND event_time >= ?"
)

type querier interface {
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) driver.Row
}

// AuditReader reads back the sync event trail
type AuditReader struct {
	client querier
}

// NewAuditReader returns an AuditReader over c
func NewAuditReader(c Client) *AuditReader {
	return &AuditReader{client: c}
}

// Recent returns up to limit events, newest first
func (r *AuditReader) Recent(ctx context.Context, limit int) ([]SyncEvent, error) {
	rows, err := r.client.Query(ctx, recentEventsQuery, limit)
	if err != nil {
		return nil, ErrQuery(err)
	}
	defer rows.Close()

	events := make([]SyncEvent, 0, limit)
	for rows.Next() {
		var e SyncEvent
		if err := rows.Scan(&e.ActionID, &e.ActionType, &e.Outcome, &e.RetryCount,
			&e.DurationMs, &e.Error, &e.EventTime); err != nil {
			return nil, ErrQuery(err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrQuery(err)
	}
	return events, nil
}

// Count returns the number of events with outcome since the given time
func (r *AuditReader) Count(ctx context.Context, outcome string, since time.Time) (uint64, error) {
	row := r.client.QueryRow(ctx, countEventsQuery, outcome, since)
	if row == nil {
		return 0, ErrConnectionClosed
	}
	var n uint64
	if err := row.Scan(&n); err != nil {
		return 0, ErrQuery(err)
	}
	return n, nil
}
