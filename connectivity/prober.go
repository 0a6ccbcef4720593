package connectivity

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/routine"
	"go.uber.org/zap"
)

// ProberConfig holds configuration for Prober
type ProberConfig struct {
	// URL is polled with GET; any response below 500 counts as reachable
	URL string `mapstructure:"url" toml:"url"`
	// default: 15 * time.Second
	Interval time.Duration `mapstructure:"interval" toml:"interval"`
	// default: 5 * time.Second
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
	// FailureThreshold is the number of consecutive failed probes before
	// going offline
	// default: 2
	FailureThreshold int `mapstructure:"failure_threshold" toml:"failure_threshold"`
}

// DefaultProberConfig returns the default prober configuration
func DefaultProberConfig() *ProberConfig {
	return &ProberConfig{
		Interval:         15 * time.Second,
		Timeout:          5 * time.Second,
		FailureThreshold: 2,
	}
}

// MergeDefaults fills zero values with defaults
func (c *ProberConfig) MergeDefaults() *ProberConfig {
	defaults := DefaultProberConfig()
	if c.Interval == 0 {
		c.Interval = defaults.Interval
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = defaults.FailureThreshold
	}
	return c
}

// Validate validates the prober configuration
func (c *ProberConfig) Validate() error {
	switch {
	case c.URL == "":
		return ErrInvalidConfig("url is required")
	case c.Interval <= 0:
		return ErrInvalidConfig("interval must be > 0")
	case c.Timeout <= 0:
		return ErrInvalidConfig("timeout must be > 0")
	case c.FailureThreshold < 1:
		return ErrInvalidConfig("failure_threshold must be >= 1")
	}
	return nil
}

// Prober is a Signal fed by polling a health endpoint. It starts online.
type Prober struct {
	*broadcaster
	logger logger.Logger
	cfg    *ProberConfig
	http   *http.Client

	mu       sync.Mutex
	failures int
	task     *routine.Task
}

// NewProber creates a Prober. Call Start to begin polling.
func NewProber(log logger.Logger, cfg *ProberConfig) (*Prober, error) {
	if cfg == nil {
		cfg = DefaultProberConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Prober{
		broadcaster: newBroadcaster(true),
		logger:      log,
		cfg:         cfg,
		http:        &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Start probes immediately and then every Interval until ctx ends or Stop
// is called
func (p *Prober) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.task != nil {
		return
	}
	p.task = routine.Start(ctx, p.logger, "connectivity-prober", func(ctx context.Context) error {
		p.Probe(ctx)
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Probe(ctx)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// Stop stops polling and waits for the poll loop to exit
func (p *Prober) Stop() {
	p.mu.Lock()
	task := p.task
	p.mu.Unlock()
	if task != nil {
		task.Cancel()
		_ = task.Wait()
	}
}

// Probe runs one health check and updates the state
func (p *Prober) Probe(ctx context.Context) {
	err := p.check(ctx)

	p.mu.Lock()
	if err == nil {
		p.failures = 0
	} else {
		p.failures++
	}
	failures := p.failures
	p.mu.Unlock()

	if err == nil {
		if p.set(true) {
			p.logger.Info("connectivity restored", zap.String("url", p.cfg.URL))
		}
		return
	}

	p.logger.Debug("health probe failed",
		zap.String("url", p.cfg.URL),
		zap.Int("consecutive_failures", failures),
		zap.Error(err),
	)
	if failures >= p.cfg.FailureThreshold && p.set(false) {
		p.logger.Warn("connectivity lost",
			zap.String("url", p.cfg.URL),
			zap.Int("consecutive_failures", failures),
		)
	}
}

func (p *Prober) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return ErrUnhealthy(resp.StatusCode)
	}
	return nil
}
