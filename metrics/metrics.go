// Package metrics exposes Prometheus metrics for the sync queue, replay
// passes and read caches.
package metrics

import (
	"net/http"
	"time"

	"github.com/campuscommunity/synckit/cache"
	"github.com/campuscommunity/synckit/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records sync activity. It implements queue.Observer, and its
// CacheRead method fits cache.ReadObserver.
type Collector struct {
	enqueued       *prometheus.CounterVec
	replayed       *prometheus.CounterVec
	replayDuration prometheus.Histogram
	queueLength    prometheus.Gauge
	cacheReads     *prometheus.CounterVec
	passes         *prometheus.CounterVec
}

var _ queue.Observer = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_sync_actions_enqueued_total",
			Help: "Offline actions added to the sync queue.",
		}, []string{"type"}),
		replayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_sync_replay_total",
			Help: "Replay attempts by action type and outcome.",
		}, []string{"type", "outcome"}),
		replayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "campus_sync_replay_duration_seconds",
			Help:    "Duration of individual action replays.",
			Buckets: prometheus.DefBuckets,
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campus_sync_queue_length",
			Help: "Actions currently waiting in the sync queue.",
		}),
		cacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_cache_reads_total",
			Help: "Read-through cache reads by cache and source.",
		}, []string{"cache", "source"}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_sync_passes_total",
			Help: "Replay passes by trigger.",
		}, []string{"trigger"}),
	}

	reg.MustRegister(
		c.enqueued,
		c.replayed,
		c.replayDuration,
		c.queueLength,
		c.cacheReads,
		c.passes,
	)
	return c
}

func (c *Collector) ActionEnqueued(action queue.PendingAction) {
	c.enqueued.WithLabelValues(string(action.Type)).Inc()
}

func (c *Collector) ActionReplayed(action queue.PendingAction, outcome queue.Outcome, elapsed time.Duration, _ error) {
	c.replayed.WithLabelValues(string(action.Type), string(outcome)).Inc()
	c.replayDuration.Observe(elapsed.Seconds())
}

func (c *Collector) QueueLength(n int) {
	c.queueLength.Set(float64(n))
}

// CacheRead records where a read-through cache served a read from
func (c *Collector) CacheRead(name string, src cache.Source) {
	c.cacheReads.WithLabelValues(name, string(src)).Inc()
}

// PassStarted records a replay pass, e.g. trigger "reconnect", "manual", "cron"
func (c *Collector) PassStarted(trigger string) {
	c.passes.WithLabelValues(trigger).Inc()
}

// Handler returns the scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
