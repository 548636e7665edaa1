// Package app wires configuration, storage, transports and the dispatch
// manager into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	dispatchapi "github.com/kilianp07/fooddispatch/api/dispatch"
	"github.com/kilianp07/fooddispatch/api/drivers"
	"github.com/kilianp07/fooddispatch/app/plugins"
	"github.com/kilianp07/fooddispatch/config"
	"github.com/kilianp07/fooddispatch/core/courier"
	"github.com/kilianp07/fooddispatch/core/dispatch"
	dispatchlog "github.com/kilianp07/fooddispatch/core/dispatch/logging"
	"github.com/kilianp07/fooddispatch/core/driverstatus"
	coremetrics "github.com/kilianp07/fooddispatch/core/metrics"
	"github.com/kilianp07/fooddispatch/core/model"
	coremon "github.com/kilianp07/fooddispatch/core/monitoring"
	corerouting "github.com/kilianp07/fooddispatch/core/routing"
	"github.com/kilianp07/fooddispatch/core/scheduler"
	"github.com/kilianp07/fooddispatch/infra/amqp"
	_ "github.com/kilianp07/fooddispatch/infra/courier/stuart"
	"github.com/kilianp07/fooddispatch/infra/logger"
	"github.com/kilianp07/fooddispatch/infra/metrics"
	"github.com/kilianp07/fooddispatch/infra/monitoring"
	"github.com/kilianp07/fooddispatch/infra/mqtt"
	"github.com/kilianp07/fooddispatch/infra/routing"
	"github.com/kilianp07/fooddispatch/infra/store/postgres"
	"github.com/kilianp07/fooddispatch/internal/eventbus"
)

// Backend is the persistence the service runs against.
type Backend interface {
	dispatch.Store
	dispatch.SettingsProvider
	ListUndispatched(ctx context.Context, since time.Time) ([]model.Order, error)
}

// Service orchestrates the dispatch manager and its transports.
type Service struct {
	Manager *dispatch.DispatchManager
	Filter  *dispatch.CandidateFilter
	Network courier.Network
	Status  *driverstatus.MemoryStore
	Logs    dispatchlog.LogStore

	cfg      *config.Config
	backend  Backend
	routes   *routing.CachedService
	notifier *mqtt.AssignmentNotifier
	consumer *amqp.Consumer
	sched    *scheduler.Scheduler
	sink     coremetrics.MetricsSink
	bus      *eventbus.Bus
	monitor  coremon.Monitor
	log      logger.Logger
	closers  []func()
}

// New connects to Postgres, applies the schema and assembles the service.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	pool, err := postgres.Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	store := postgres.New(pool)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	store.SetDefaultSettings(cfg.Dispatch.ToSettings())
	svc, err := Assemble(cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	svc.closers = append(svc.closers, store.Close)
	return svc, nil
}

// Assemble builds every dispatch component over backend. Optional transports
// are only created when configured.
func Assemble(cfg *config.Config, backend Backend) (*Service, error) {
	logg := logger.New("service")
	svc := &Service{cfg: cfg, backend: backend, log: logg}
	ok := false
	defer func() {
		if !ok {
			_ = svc.Close()
		}
	}()

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	svc.monitor = mon

	var routes corerouting.Service
	if cfg.Routing.APIKey != "" {
		gm := routing.NewGoogleMapsClient(cfg.Routing)
		routes = gm
		if cfg.Routing.CachePath != "" {
			ttl := time.Duration(cfg.Routing.CacheTTLMinutes) * time.Minute
			cached, err := routing.NewCachedService(gm, cfg.Routing.CachePath, ttl)
			if err != nil {
				return nil, fmt.Errorf("route cache: %w", err)
			}
			svc.routes = cached
			routes = cached
		}
	} else {
		logg.Warnf("no routing api key; candidates use straight-line distance only")
	}

	var notifier dispatch.Notifier
	if cfg.MQTT.Broker != "" {
		n, err := mqtt.NewAssignmentNotifier(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		n.SetMonitor(mon)
		svc.notifier = n
		notifier = n
	}

	var external *dispatch.ExternalDispatcher
	if cfg.Courier.Type != "" {
		network, err := courier.NewNetwork(cfg.Courier)
		if err != nil {
			return nil, fmt.Errorf("courier network: %w", err)
		}
		svc.Network = network
		sizer := dispatch.NewMealPackageSizer(backend, logger.New("package_size"))
		external = dispatch.NewExternalDispatcher(network, backend, sizer, cfg.Dispatch.PlaceholderPhone, time.Now, logger.New("fallback"))
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	svc.sink = sink
	svc.bus = eventbus.New()

	batching := dispatch.NewBatchingEvaluator(backend)
	svc.Filter = dispatch.NewCandidateFilter(routes, batching, logger.New("candidate_filter"))
	assigner := dispatch.NewInternalAssigner(backend, notifier, cfg.Dispatch.SystemUserID, time.Now, logger.New("assigner"))
	predictive := dispatch.NewPredictiveScheduler(backend, logger.New("predictive"))
	svc.sched = scheduler.New()

	manager, err := dispatch.NewDispatchManager(backend, backend, svc.Filter, assigner, predictive, svc.sched, external, sink, svc.bus, logger.New("dispatch"))
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}
	svc.Manager = manager

	logs, err := plugins.NewLogStore(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("log store: %w", err)
	}
	svc.Logs = logs
	manager.SetLogStore(logs)
	svc.Status = driverstatus.NewMemoryStore()
	manager.SetStatusStore(svc.Status)
	manager.SetMonitor(mon)
	manager.SetAttemptTimeout(cfg.Dispatch.AttemptTimeout())

	if cfg.AMQP.URL != "" {
		svc.consumer = amqp.NewConsumer(cfg.AMQP, manager, logger.New("amqp"))
	}
	ok = true
	return svc, nil
}

// Store returns the backend the service reads orders from.
func (s *Service) Store() Backend { return s.backend }

// Handler returns the HTTP API serving dispatch logs and driver status.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/dispatch/logs", dispatchapi.NewLogHandler(s.Logs, s.cfg.API.Token))
	mux.Handle("/api/drivers/status", drivers.NewStatusHandler(s.Status))
	return mux
}

// Recover re-enqueues orders placed within the recovery window that have not
// been dispatched yet. It returns how many were enqueued.
func (s *Service) Recover(ctx context.Context) (int, error) {
	hours := s.cfg.Dispatch.RecoveryWindowHours
	if hours <= 0 {
		return 0, nil
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	orders, err := s.backend.ListUndispatched(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list undispatched: %w", err)
	}
	n := 0
	for _, o := range orders {
		if !s.Manager.Enqueue(dispatch.Request{OrderID: o.ID}) {
			break
		}
		n++
	}
	if n > 0 {
		s.log.Infof("recovered %d undispatched orders", n)
	}
	return n, nil
}

// Run starts the background services and blocks until the context is
// cancelled or the order consumer fails.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if addr := s.cfg.API.Addr; addr != "" {
		go func() {
			if err := s.serveAPI(ctx, addr); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	if _, err := s.Recover(ctx); err != nil {
		s.log.Errorf("startup recovery: %v", err)
	}
	if s.consumer != nil {
		if err := s.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("order consumer: %w", err)
		}
		return nil
	}
	s.log.Warnf("no amqp url configured; orders are only dispatched on recovery")
	<-ctx.Done()
	return nil
}

func (s *Service) serveAPI(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("serving api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close waits for in-flight attempts and releases every held resource.
func (s *Service) Close() error {
	var errs []error
	if s.Manager != nil {
		if err := s.Manager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("manager: %w", err))
		}
	} else if s.Logs != nil {
		if err := s.Logs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("log store: %w", err))
		}
	}
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	if s.routes != nil {
		if err := s.routes.Close(); err != nil {
			errs = append(errs, fmt.Errorf("route cache: %w", err))
		}
	}
	if s.bus != nil {
		s.bus.Close()
	}
	if s.monitor != nil {
		s.monitor.Flush(2 * time.Second)
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	return errors.Join(errs...)
}
