package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campuscommunity/synckit/cache"
	"github.com/campuscommunity/synckit/queue"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return m
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func TestCollector_QueueObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	news := queue.PendingAction{Type: queue.ActionCreateNews}
	c.ActionEnqueued(news)
	c.ActionEnqueued(news)
	c.ActionReplayed(news, queue.OutcomeSuccess, 200*time.Millisecond, nil)
	c.ActionReplayed(news, queue.OutcomeDropped, time.Second, nil)
	c.QueueLength(3)

	if v := findMetric(t, reg, "campus_sync_actions_enqueued_total", map[string]string{"type": "CREATE_NEWS"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("enqueued = %v, want 2", v)
	}
	if v := findMetric(t, reg, "campus_sync_replay_total", map[string]string{"outcome": "dropped"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("dropped = %v, want 1", v)
	}
	if v := findMetric(t, reg, "campus_sync_replay_duration_seconds", nil).GetHistogram().GetSampleCount(); v != 2 {
		t.Errorf("duration samples = %v, want 2", v)
	}
	if v := findMetric(t, reg, "campus_sync_queue_length", nil).GetGauge().GetValue(); v != 3 {
		t.Errorf("queue length = %v, want 3", v)
	}
}

func TestCollector_CacheReadsAndPasses(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	var observe cache.ReadObserver = c.CacheRead
	observe("news", cache.SourceCache)
	observe("news", cache.SourceCache)
	c.PassStarted("reconnect")

	if v := findMetric(t, reg, "campus_cache_reads_total", map[string]string{"cache": "news", "source": "cache"}).GetCounter().GetValue(); v != 2 {
		t.Errorf("cache reads = %v, want 2", v)
	}
	if v := findMetric(t, reg, "campus_sync_passes_total", map[string]string{"trigger": "reconnect"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("passes = %v, want 1", v)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.QueueLength(1)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "campus_sync_queue_length 1") {
		t.Errorf("status %d, body:\n%s", resp.StatusCode, body)
	}
}
