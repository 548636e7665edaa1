package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/fooddispatch/core/dispatch/logging"
	"github.com/kilianp07/fooddispatch/core/driverstatus"
	"github.com/kilianp07/fooddispatch/core/events"
	"github.com/kilianp07/fooddispatch/core/logger"
	"github.com/kilianp07/fooddispatch/core/metrics"
	"github.com/kilianp07/fooddispatch/core/model"
	"github.com/kilianp07/fooddispatch/core/monitoring"
	"github.com/kilianp07/fooddispatch/core/scheduler"
	"github.com/kilianp07/fooddispatch/internal/eventbus"
)

// DispatchManager sequences one dispatch attempt per order: load, optional
// predictive deferral, candidate search, then internal assignment or external
// fallback. Attempts never return errors; every path ends in a Result.
type DispatchManager struct {
	store      Store
	settings   SettingsProvider
	filter     *CandidateFilter
	assigner   *InternalAssigner
	predictive *PredictiveScheduler
	sched      *scheduler.Scheduler
	external   *ExternalDispatcher
	metrics    metrics.MetricsSink
	bus        eventbus.EventBus
	logger     logger.Logger

	mu          sync.Mutex
	logStore    logging.LogStore
	statusStore driverstatus.Store
	monitor     monitoring.Monitor
	timeout     time.Duration
	closed      bool
	inflight    sync.WaitGroup
}

// NewDispatchManager creates a new manager. external may be nil when no
// courier network is configured. sink and bus are optional.
func NewDispatchManager(store Store, settings SettingsProvider, filter *CandidateFilter, assigner *InternalAssigner, predictive *PredictiveScheduler, sched *scheduler.Scheduler, external *ExternalDispatcher, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*DispatchManager, error) {
	if store == nil || settings == nil || filter == nil || assigner == nil || predictive == nil || sched == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewDispatchManager")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &DispatchManager{
		store:      store,
		settings:   settings,
		filter:     filter,
		assigner:   assigner,
		predictive: predictive,
		sched:      sched,
		external:   external,
		metrics:    sink,
		bus:        bus,
		logger:     log,
		monitor:    monitoring.NopMonitor{},
		timeout:    DefaultAttemptTimeout,
	}, nil
}

// SetLogStore configures the store used to persist dispatch logs.
func (m *DispatchManager) SetLogStore(store logging.LogStore) {
	m.mu.Lock()
	m.logStore = store
	m.mu.Unlock()
}

// SetStatusStore configures the store used to persist driver status information.
func (m *DispatchManager) SetStatusStore(store driverstatus.Store) {
	m.mu.Lock()
	m.statusStore = store
	m.mu.Unlock()
}

// SetMonitor configures where swallowed errors are reported.
func (m *DispatchManager) SetMonitor(mon monitoring.Monitor) {
	if mon == nil {
		mon = monitoring.NopMonitor{}
	}
	m.mu.Lock()
	m.monitor = mon
	m.mu.Unlock()
}

// SetAttemptTimeout bounds each attempt. Non-positive values are ignored.
func (m *DispatchManager) SetAttemptTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

// Enqueue runs an attempt in the background. It returns false once the
// manager is closed.
func (m *DispatchManager) Enqueue(req Request) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.inflight.Add(1)
	m.mu.Unlock()
	go func() {
		defer m.inflight.Done()
		m.Dispatch(context.Background(), req)
	}()
	return true
}

// Run enqueues every request received on the channel until the context is
// canceled or the channel is closed.
func (m *DispatchManager) Run(ctx context.Context, reqs <-chan Request) {
	for {
		select {
		case req, ok := <-reqs:
			if !ok {
				return
			}
			if !m.Enqueue(req) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close stops pending deferrals, waits for in-flight attempts and releases
// resources held by the manager.
func (m *DispatchManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.sched.Close()
	m.inflight.Wait()
	if m.bus != nil {
		m.bus.Close()
	}
	m.mu.Lock()
	store := m.logStore
	m.mu.Unlock()
	if store != nil {
		return store.Close()
	}
	return nil
}

// Dispatch reads the current settings and runs one attempt with them.
func (m *DispatchManager) Dispatch(ctx context.Context, req Request) Result {
	s, err := m.settings.Settings(ctx)
	if err != nil {
		m.capture(err, req.OrderID, "settings")
		res := Result{OrderID: req.OrderID, Delayed: req.Delayed, Outcome: OutcomeUnassigned, Reason: ReasonSettingsUnavailable, Err: err}
		m.finish(ctx, &res, m.sched.Now())
		return res
	}
	return m.DispatchWith(ctx, req, s)
}

// DispatchWith runs one attempt against a fixed settings snapshot.
func (m *DispatchManager) DispatchWith(ctx context.Context, req Request, s model.Settings) (res Result) {
	start := m.sched.Now()
	m.mu.Lock()
	timeout := m.timeout
	m.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res = Result{OrderID: req.OrderID, Delayed: req.Delayed}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("dispatch panic: %v", r)
			m.capture(err, req.OrderID, "panic")
			res.Outcome = OutcomeUnassigned
			res.Reason = ReasonPanic
			res.Err = err
		}
		m.finish(ctx, &res, start)
	}()

	m.publish(events.AttemptEvent{OrderID: req.OrderID, Delayed: req.Delayed, Time: start})
	m.run(ctx, req, s, &res)
	return res
}

//gocyclo:ignore
func (m *DispatchManager) run(ctx context.Context, req Request, s model.Settings, res *Result) {
	order, err := m.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		m.skipLookup(res, err, ReasonOrderNotFound, ReasonOrderLookupFailed, "order")
		return
	}
	if !order.Status.Open() {
		res.Outcome = OutcomeSkipped
		res.Reason = ReasonOrderClosed
		m.logger.Infof("order %s is %s, nothing to dispatch", order.ID, order.Status)
		return
	}
	if order.ExternalJobID != "" {
		res.Outcome = OutcomeSkipped
		res.Reason = ReasonAlreadyAssigned
		m.logger.Infof("order %s already has courier job %s", order.ID, order.ExternalJobID)
		return
	}
	booked, err := m.store.OrderBooked(ctx, order.ID)
	if err != nil {
		res.Err = err
		res.Outcome = OutcomeUnassigned
		res.Reason = ReasonOrderLookupFailed
		m.logger.Errorf("dispatch %s: check existing assignment: %v", order.ID, err)
		m.capture(err, order.ID, "booked_lookup")
		return
	}
	if booked {
		res.Outcome = OutcomeSkipped
		res.Reason = ReasonAlreadyAssigned
		m.logger.Infof("order %s already has an assignment", order.ID)
		return
	}
	chef, err := m.store.GetChef(ctx, order.ChefID)
	if err != nil {
		m.skipLookup(res, err, ReasonChefNotFound, ReasonChefLookupFailed, "chef")
		return
	}

	now := m.sched.Now()
	if runAt, ok := m.predictive.DeferUntil(ctx, order, s, req.Delayed, now); ok {
		m.deferAttempt(res, order.ID, runAt, now)
		return
	}

	res.Candidates, res.Search = m.searchCandidates(ctx, order, chef, s)
	if len(res.Candidates) > 0 {
		m.assignInternal(ctx, res, order, chef, res.Candidates[0])
		return
	}

	switch {
	case !s.FallbackEnabled:
		res.Outcome = OutcomeUnassigned
		res.Reason = ReasonFallbackDisabled
		m.logger.Warnf("no driver available for order %s and external fallback is disabled", order.ID)
	case m.external == nil:
		res.Outcome = OutcomeUnassigned
		res.Reason = ReasonNoCourierNetwork
		m.logger.Warnf("no driver available for order %s and no courier network is configured", order.ID)
	default:
		m.bookExternal(ctx, res, order, chef, s)
	}
}

func (m *DispatchManager) skipLookup(res *Result, err error, notFound, failed, entity string) {
	res.Err = err
	if errors.Is(err, model.ErrNotFound) {
		res.Outcome = OutcomeSkipped
		res.Reason = notFound
		m.logger.Warnf("dispatch %s: %s not found", res.OrderID, entity)
		return
	}
	res.Outcome = OutcomeUnassigned
	res.Reason = failed
	m.logger.Errorf("dispatch %s: load %s: %v", res.OrderID, entity, err)
	m.capture(err, res.OrderID, entity+"_lookup")
}

func (m *DispatchManager) deferAttempt(res *Result, orderID string, runAt, now time.Time) {
	res.Outcome = OutcomeDeferred
	res.DeferredUntil = &runAt
	scheduled := m.sched.Schedule(orderID, runAt, func(ctx context.Context) {
		m.Dispatch(ctx, Request{OrderID: orderID, Delayed: true})
	})
	if !scheduled {
		res.Reason = ReasonAlreadyScheduled
		if pending, ok := m.sched.Pending(orderID); ok {
			res.DeferredUntil = &pending
		}
		m.logger.Debugf("order %s already has a deferred dispatch", orderID)
		return
	}
	res.Reason = ReasonAwaitingPreparation
	dispatchDeferred.Inc()
	m.publish(events.DeferredEvent{OrderID: orderID, RunAt: runAt, Time: now})
	m.logger.Infof("deferring dispatch of order %s until %s", orderID, runAt.Format(time.RFC3339))
}

// searchCandidates returns the ranked drivers for the chef's pickup point.
// A chef without coordinates or a failing roster yields no candidates.
func (m *DispatchManager) searchCandidates(ctx context.Context, o model.Order, chef model.Chef, s model.Settings) ([]Candidate, FilterStats) {
	if chef.Location == nil || !chef.Location.Valid() {
		m.logger.Warnf("chef %s has no usable location, skipping driver search for order %s", chef.ID, o.ID)
		return nil, FilterStats{}
	}
	drivers, err := m.store.ListDrivers(ctx)
	if err != nil {
		m.logger.Errorf("list drivers for order %s: %v", o.ID, err)
		m.capture(err, o.ID, "list_drivers")
		return nil, FilterStats{}
	}
	cands, stats := m.filter.Candidates(ctx, *chef.Location, drivers, s)

	now := m.sched.Now()
	candidateSearch.Observe(stats.Duration.Seconds())
	routeLookups.WithLabelValues("ok").Add(float64(stats.RouteLookups - stats.RouteFailures))
	routeLookups.WithLabelValues("failed").Add(float64(stats.RouteFailures))
	m.publish(events.CandidateEvent{
		OrderID:       o.ID,
		Considered:    stats.Considered,
		Candidates:    len(cands),
		Batched:       stats.Batched,
		RouteLookups:  stats.RouteLookups,
		RouteFailures: stats.RouteFailures,
		Duration:      stats.Duration,
		Time:          now,
	})
	if st := m.status(); st != nil {
		for _, c := range cands {
			st.RecordCandidate(c.Driver.ID, now)
		}
	}
	m.logger.Infof("found %d candidates among %d drivers for order %s", len(cands), stats.Considered, o.ID)
	return cands, stats
}

func (m *DispatchManager) assignInternal(ctx context.Context, res *Result, o model.Order, chef model.Chef, c Candidate) {
	asn, err := m.assigner.Assign(ctx, o, chef, c)
	if err != nil {
		res.Err = err
		if errors.Is(err, model.ErrAlreadyAssigned) {
			res.Outcome = OutcomeSkipped
			res.Reason = ReasonAlreadyAssigned
			m.logger.Infof("order %s already has an assignment", o.ID)
			return
		}
		res.Outcome = OutcomeUnassigned
		res.Reason = ReasonAssignmentFailed
		m.logger.Errorf("assign order %s to driver %s: %v", o.ID, c.Driver.ID, err)
		m.capture(err, o.ID, "assign")
		return
	}
	res.Outcome = OutcomeAssigned
	res.Assignment = &asn
	if st := m.status(); st != nil {
		st.RecordAssignment(asn.DriverID, driverstatus.LastAssignment{
			OrderID:        asn.OrderID,
			AssignmentID:   asn.ID,
			DistanceKm:     c.DistanceKm,
			DistanceSource: c.Source,
			Batched:        c.IsBatched,
			Timestamp:      asn.AssignedAt,
		})
	}
}

func (m *DispatchManager) bookExternal(ctx context.Context, res *Result, o model.Order, chef model.Chef, s model.Settings) {
	ea, err := m.external.Book(ctx, o, chef, s)
	provider := m.external.network.Name()
	m.publish(events.BookingEvent{
		OrderID:     o.ID,
		Provider:    provider,
		JobID:       ea.ExternalJobID,
		PackageSize: string(ea.Metadata.PackageSize),
		Err:         err,
		Time:        m.sched.Now(),
	})
	if err != nil {
		externalBookings.WithLabelValues("failed").Inc()
		res.Outcome = OutcomeUnassigned
		res.Reason = ReasonBookingFailed
		res.Err = err
		if ea.ExternalJobID != "" {
			res.External = &ea
		}
		m.logger.Errorf("external booking for order %s failed: %v", o.ID, err)
		m.capture(err, o.ID, "external_booking")
		return
	}
	externalBookings.WithLabelValues("ok").Inc()
	res.Outcome = OutcomeExternal
	res.External = &ea
}

// finish emits every side output of an attempt.
func (m *DispatchManager) finish(ctx context.Context, res *Result, start time.Time) {
	end := m.sched.Now()
	res.Duration = end.Sub(start)
	dispatchAttempts.WithLabelValues(string(res.Outcome)).Inc()
	dispatchLatency.WithLabelValues(string(res.Outcome)).Observe(res.Duration.Seconds())

	out := metrics.DispatchOutcome{
		OrderID:    res.OrderID,
		Outcome:    string(res.Outcome),
		Reason:     res.Reason,
		Delayed:    res.Delayed,
		Candidates: len(res.Candidates),
		Duration:   res.Duration,
		Time:       end,
	}
	rec := logging.LogRecord{
		Timestamp:     end,
		OrderID:       res.OrderID,
		Delayed:       res.Delayed,
		Outcome:       string(res.Outcome),
		Reason:        res.Reason,
		DeferredUntil: res.DeferredUntil,
		DurationMs:    res.Duration.Milliseconds(),
	}
	for _, c := range res.Candidates {
		rec.Candidates = append(rec.Candidates, c.Driver.ID)
	}
	if a := res.Assignment; a != nil {
		out.DriverID, rec.DriverID = a.DriverID, a.DriverID
		out.DistanceKm, rec.DistanceKm = a.Metadata.DistanceKm, a.Metadata.DistanceKm
		out.DistanceSource, rec.DistanceSource = a.Metadata.DistanceSource, a.Metadata.DistanceSource
		out.Batched, rec.Batched = a.Metadata.IsBatched, a.Metadata.IsBatched
		rec.AssignmentID = a.ID
	}
	if ea := res.External; ea != nil {
		out.Provider, rec.Provider = ea.Provider, ea.Provider
		out.ExternalJobID, rec.ExternalJobID = ea.ExternalJobID, ea.ExternalJobID
		rec.TrackingURL = ea.TrackingURL
	}

	if err := m.metrics.RecordDispatchOutcome(out); err != nil {
		m.logger.Errorf("metrics error: %v", err)
	}
	m.publish(events.OutcomeEvent{
		OrderID:        out.OrderID,
		Outcome:        out.Outcome,
		Reason:         out.Reason,
		DriverID:       out.DriverID,
		DistanceKm:     out.DistanceKm,
		DistanceSource: out.DistanceSource,
		Batched:        out.Batched,
		Delayed:        out.Delayed,
		ExternalJobID:  out.ExternalJobID,
		Candidates:     out.Candidates,
		Duration:       out.Duration,
		Time:           end,
	})
	m.mu.Lock()
	store := m.logStore
	m.mu.Unlock()
	if store != nil {
		if err := store.Append(context.WithoutCancel(ctx), rec); err != nil {
			m.logger.Errorf("dispatch log error: %v", err)
		}
	}
	m.logger.Infow("dispatch attempt finished", map[string]any{
		"order_id":    res.OrderID,
		"outcome":     string(res.Outcome),
		"reason":      res.Reason,
		"delayed":     res.Delayed,
		"driver_id":   out.DriverID,
		"job_id":      out.ExternalJobID,
		"candidates":  out.Candidates,
		"duration_ms": rec.DurationMs,
	})
}

func (m *DispatchManager) publish(ev eventbus.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

func (m *DispatchManager) status() driverstatus.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusStore
}

func (m *DispatchManager) capture(err error, orderID, stage string) {
	m.mu.Lock()
	mon := m.monitor
	m.mu.Unlock()
	mon.CaptureException(err, map[string]string{"order_id": orderID, "stage": stage})
}
