package main

import (
	"context"
	"errors"

	"github.com/campuscommunity/synckit/cache"
	"github.com/campuscommunity/synckit/ch"
	"github.com/campuscommunity/synckit/config"
	"github.com/campuscommunity/synckit/connectivity"
	"github.com/campuscommunity/synckit/cron"
	"github.com/campuscommunity/synckit/kafka"
	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/metrics"
	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/notification"
	"github.com/campuscommunity/synckit/queue"
	"github.com/campuscommunity/synckit/remote"
	"github.com/campuscommunity/synckit/server"
	"github.com/campuscommunity/synckit/store"
	"github.com/campuscommunity/synckit/syncer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// app owns every long-lived component. Closers run in reverse order of
// registration.
type app struct {
	logger  logger.Logger
	cfg     *config.Config
	closers []func() error

	signal   connectivity.Signal
	prober   *connectivity.Prober
	caches   []syncer.Refresher
	news     cache.ReadThrough[model.NewsItem]
	clubs    cache.ReadThrough[model.Club]
	starters []interface{ Start() error }
	consumer kafka.Consumer
	handler  kafka.ConsumerMsgHandler
	syncer   *syncer.Syncer
	cron     cron.Cron
	server   *server.Server
}

func (a *app) onShutdown(fn func() error) {
	a.closers = append(a.closers, fn)
}

func newApp(ctx context.Context, log logger.Logger, cfg *config.Config) (_ *app, err error) {
	a := &app{logger: log, cfg: cfg}
	defer func() {
		if err != nil {
			a.shutdown()
		}
	}()

	st, err := store.Open(ctx, logger.Component(log, "store"), cfg.Store)
	if err != nil {
		return nil, err
	}
	a.onShutdown(st.Close)

	notifications := notification.New(logger.Component(log, "notification"), cache.NewNotificationCache(log, st))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	observers := []queue.Observer{collector}
	var auditReader server.AuditSource
	if cfg.ClickHouse.Enabled {
		audit, reader, err := a.openAudit(ctx)
		if err != nil {
			return nil, err
		}
		observers = append(observers, audit)
		auditReader = reader
	}

	q, err := queue.New(logger.Component(log, "queue"), st, cfg.Queue,
		queue.WithNotifier(notifications),
		queue.WithObservers(observers...),
	)
	if err != nil {
		return nil, err
	}
	q.Initialize(ctx)

	token := cfg.APIToken
	api, err := remote.New(logger.Component(log, "remote"), cfg.Remote,
		remote.WithTokenSource(func(context.Context) (string, error) { return token, nil }),
	)
	if err != nil {
		return nil, err
	}

	var sw server.ConnectivitySwitch
	if cfg.Connectivity.Manual() {
		manual := connectivity.NewManual(!cfg.Connectivity.StartOffline)
		a.signal, sw = manual, manual
	} else {
		a.prober, err = connectivity.NewProber(logger.Component(log, "connectivity"), &cfg.Connectivity.ProberConfig)
		if err != nil {
			return nil, err
		}
		a.signal = a.prober
	}

	if err := a.openCaches(st, api, collector); err != nil {
		return nil, err
	}

	replay := queue.ReplayFunc(api.Replay)
	if cfg.Kafka.Enabled {
		if replay, err = a.openKafka(notifications); err != nil {
			return nil, err
		}
	}

	a.syncer, err = syncer.New(logger.Component(log, "syncer"), cfg.Sync, q, replay, a.signal,
		syncer.WithRefreshers(a.caches...),
		syncer.WithPassObserver(collector),
	)
	if err != nil {
		return nil, err
	}

	a.cron = cron.NewCron(logger.Component(log, "cron"), cron.TimeoutMiddleware(cfg.Sync.PassTimeout))
	if err := a.syncer.RegisterCron(a.cron); err != nil {
		return nil, err
	}

	deps := &server.Deps{
		Queue:         q,
		Syncer:        a.syncer,
		Notifications: notifications,
		News:          a.news,
		Clubs:         a.clubs,
		Switch:        sw,
		Audit:         auditReader,
		Gatherer:      reg,
	}
	router := server.NewRouter(logger.Component(log, "http"), deps)
	if a.server, err = server.New(log, cfg.HTTP, router); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openAudit(ctx context.Context) (queue.Observer, *ch.AuditReader, error) {
	client, err := ch.NewClient(a.cfg.ClickHouse, logger.Component(a.logger, "clickhouse"))
	if err != nil {
		return nil, nil, err
	}
	a.onShutdown(client.Close)

	if err := client.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}
	w, err := client.Writer()
	if err != nil {
		return nil, nil, err
	}
	if err := w.Start(); err != nil {
		return nil, nil, err
	}
	return ch.NewAuditWriter(a.logger, w), ch.NewAuditReader(client), nil
}

func (a *app) openCaches(st store.Store, api *remote.Client, collector *metrics.Collector) error {
	md := cache.NewSyncMetadata(a.logger, st)
	opts := []cache.ReadThroughOption{
		cache.WithSyncMetadata(md),
		cache.WithReadObserver(collector.CacheRead),
	}
	log := logger.Component(a.logger, "cache")

	news, err := cache.NewReadThrough[model.NewsItem](log, a.cfg.Cache.News,
		api.FetchNews, cache.NewNewsCache(log, st), a.signal.IsOnline, opts...)
	if err != nil {
		return err
	}
	clubs, err := cache.NewReadThrough[model.Club](log, a.cfg.Cache.Clubs,
		api.FetchClubs, cache.NewClubsCache(log, st), a.signal.IsOnline, opts...)
	if err != nil {
		return err
	}

	a.news, a.clubs = news, clubs
	for _, rt := range []interface {
		syncer.Refresher
		Start() error
		Stop()
	}{news, clubs} {
		a.caches = append(a.caches, rt)
		a.starters = append(a.starters, rt)
		a.onShutdown(func() error { rt.Stop(); return nil })
	}

	// club updates follow the clubs list, so they refresh after it
	clubList := cache.NewClubsCache(log, st)
	updates := cache.NewKeyedRefresher(log, cache.NewClubUpdatesCache(log, st),
		func(ctx context.Context) []string {
			clubs, _ := clubList.Get(ctx)
			ids := make([]string, 0, len(clubs))
			for _, c := range clubs {
				ids = append(ids, c.ID)
			}
			return ids
		}, api.FetchClubUpdates)
	a.caches = append(a.caches, updates)
	return nil
}

func (a *app) openKafka(notifications notification.Service) (queue.ReplayFunc, error) {
	log := logger.Component(a.logger, "kafka")
	producer, err := kafka.NewProducer(log, a.cfg.Kafka.Producer)
	if err != nil {
		return nil, err
	}
	a.onShutdown(producer.Close)

	a.consumer, err = kafka.NewConsumer(log, a.cfg.Kafka.Consumer)
	if err != nil {
		return nil, err
	}
	a.onShutdown(a.consumer.Close)
	a.handler = kafka.NewBroadcastHandler(log, notifications)

	return kafka.NewPublisher(log, producer, a.cfg.Kafka.MutationTopic).Replay, nil
}

// start brings the background work up: probing, cache refresh, broadcast
// consumption, the syncer, its schedule and the admin server
func (a *app) start(ctx context.Context) error {
	if a.prober != nil {
		a.prober.Start(ctx)
		a.onShutdown(func() error { a.prober.Stop(); return nil })
	}
	for _, s := range a.starters {
		if err := s.Start(); err != nil {
			return err
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Start(ctx, a.handler); err != nil {
			return err
		}
	}

	if err := a.syncer.Start(ctx); err != nil {
		return err
	}
	a.onShutdown(func() error { a.syncer.Stop(); return nil })

	a.cron.Start()
	a.onShutdown(func() error { a.cron.Close(); return nil })

	if _, err := a.server.Start(ctx); err != nil {
		return err
	}
	a.onShutdown(func() error { return a.server.Shutdown(context.Background()) })
	return nil
}

func (a *app) shutdown() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown finished with errors", zap.Error(err))
	}
}
