package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fooddispatch/core/metrics"
	"github.com/kilianp07/fooddispatch/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDispatchOutcome writes one point per finished attempt.
func (s *InfluxSink) RecordDispatchOutcome(o coremetrics.DispatchOutcome) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_outcome").
		AddTag("order_id", o.OrderID).
		AddTag("outcome", o.Outcome).
		AddTag("delayed", strconv.FormatBool(o.Delayed)).
		AddTag("component", "dispatch_manager")
	if o.Reason != "" {
		p = p.AddTag("reason", o.Reason)
	}
	if o.DriverID != "" {
		p = p.AddTag("driver_id", o.DriverID).
			AddTag("distance_source", o.DistanceSource).
			AddField("distance_km", round3(o.DistanceKm)).
			AddField("batched", o.Batched)
	}
	if o.ExternalJobID != "" {
		p = p.AddTag("provider", o.Provider).
			AddField("external_job_id", o.ExternalJobID)
	}
	p = p.AddField("candidates", o.Candidates).
		AddField("duration_ms", round3(float64(o.Duration.Microseconds())/1000)).
		SetTime(o.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCandidateSearch persists the statistics of a candidate search.
func (s *InfluxSink) RecordCandidateSearch(ev coremetrics.CandidateSearchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("candidate_search").
		AddTag("order_id", ev.OrderID).
		AddTag("component", "candidate_filter").
		AddField("considered", ev.Considered).
		AddField("candidates", ev.Candidates).
		AddField("batched", ev.Batched).
		AddField("route_lookups", ev.RouteLookups).
		AddField("route_failures", ev.RouteFailures).
		AddField("duration_ms", round3(float64(ev.Duration.Microseconds())/1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordExternalBooking records a courier booking attempt.
func (s *InfluxSink) RecordExternalBooking(ev coremetrics.ExternalBookingEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("external_booking").
		AddTag("order_id", ev.OrderID).
		AddTag("provider", ev.Provider).
		AddTag("success", strconv.FormatBool(ev.Success)).
		AddTag("component", "fallback")
	if ev.PackageSize != "" {
		p = p.AddTag("package_size", ev.PackageSize)
	}
	p = p.AddField("job_id", ev.JobID).
		AddField("errors", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDeferral records a predictive deferral.
func (s *InfluxSink) RecordDeferral(ev coremetrics.DeferralEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_deferred").
		AddTag("order_id", ev.OrderID).
		AddTag("component", "predictive_scheduler").
		AddField("delay_minutes", round3(ev.Delay.Minutes())).
		AddField("run_at", ev.RunAt.UTC().Format(time.RFC3339)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
