package ch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// fakeRows serves canned events; unimplemented driver.Rows methods panic
type fakeRows struct {
	driver.Rows
	events []SyncEvent
	i      int
	closed bool
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.events)
}

func (r *fakeRows) Scan(dest ...any) error {
	e := r.events[r.i-1]
	*dest[0].(*string) = e.ActionID
	*dest[1].(*string) = e.ActionType
	*dest[2].(*string) = e.Outcome
	*dest[3].(*uint16) = e.RetryCount
	*dest[4].(*int64) = e.DurationMs
	*dest[5].(*string) = e.Error
	*dest[6].(*time.Time) = e.EventTime
	return nil
}

func (r *fakeRows) Err() error   { return nil }
func (r *fakeRows) Close() error { r.closed = true; return nil }

type fakeRow struct {
	driver.Row
	n   uint64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*uint64) = r.n
	return nil
}

type fakeQuerier struct {
	rows     *fakeRows
	row      driver.Row
	queryErr error
	args     []any
}

func (f *fakeQuerier) Query(_ context.Context, _ string, args ...any) (driver.Rows, error) {
	f.args = args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) driver.Row {
	f.args = args
	return f.row
}

func TestAuditReader_Recent(t *testing.T) {
	now := time.Now()
	q := &fakeQuerier{rows: &fakeRows{events: []SyncEvent{
		{ActionID: "CREATE_NEWS_2", Outcome: "success", EventTime: now},
		{ActionID: "CREATE_NEWS_1", Outcome: "failure", RetryCount: 1, Error: "503", EventTime: now.Add(-time.Minute)},
	}}}
	r := &AuditReader{client: q}

	events, err := r.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 || events[1].RetryCount != 1 || events[1].Error != "503" {
		t.Errorf("unexpected events %+v", events)
	}
	if q.args[0] != 10 {
		t.Errorf("limit arg = %v, want 10", q.args[0])
	}
	if !q.rows.closed {
		t.Error("rows not closed")
	}
}

func TestAuditReader_RecentQueryError(t *testing.T) {
	r := &AuditReader{client: &fakeQuerier{queryErr: errors.New("timeout")}}
	_, err := r.Recent(context.Background(), 5)
	if err == nil || !strings.HasPrefix(err.Error(), "ch: query failed") {
		t.Errorf("err = %v", err)
	}
}

func TestAuditReader_Count(t *testing.T) {
	tests := []struct {
		name    string
		row     driver.Row
		want    uint64
		wantErr bool
	}{
		{"counted", fakeRow{n: 7}, 7, false},
		{"scan error", fakeRow{err: errors.New("bad column")}, 0, true},
		{"closed client", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &AuditReader{client: &fakeQuerier{row: tt.row}}
			n, err := r.Count(context.Background(), "dropped", time.Now().Add(-time.Hour))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.want {
				t.Errorf("n = %d, want %d", n, tt.want)
			}
		})
	}
}
