package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/fooddispatch/core/metrics"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (l *lineRecorder) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.bodies) == 0 {
		return ""
	}
	return l.bodies[len(l.bodies)-1]
}

func TestInfluxSink_RecordDispatchOutcome(t *testing.T) {
	rec := &lineRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Unix(1714564800, 0)
	err := sink.RecordDispatchOutcome(coremetrics.DispatchOutcome{
		OrderID:        "o1",
		Outcome:        "assigned",
		DriverID:       "d1",
		DistanceKm:     2.34567,
		DistanceSource: "google_maps",
		Candidates:     3,
		Duration:       1500 * time.Microsecond,
		Time:           now,
	})
	require.NoError(t, err)

	line := rec.last()
	assert.True(t, strings.HasPrefix(line, "dispatch_outcome,"), line)
	for _, part := range []string{"order_id=o1", "outcome=assigned", "driver_id=d1", "distance_source=google_maps", "distance_km=2.346", "candidates=3i", "duration_ms=1.5"} {
		assert.Contains(t, line, part)
	}
	assert.NotContains(t, line, "provider=")
	assert.True(t, strings.HasSuffix(line, " 1714564800000000000"), line)
}

func TestInfluxSink_RecordExternalBooking(t *testing.T) {
	rec := &lineRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()

	err := sink.RecordExternalBooking(coremetrics.ExternalBookingEvent{
		OrderID:     "o1",
		Provider:    "stuart",
		JobID:       "987",
		PackageSize: "small",
		Success:     true,
		Time:        time.Now(),
	})
	require.NoError(t, err)
	line := rec.last()
	assert.True(t, strings.HasPrefix(line, "external_booking,"), line)
	for _, part := range []string{"provider=stuart", "package_size=small", "success=true", `job_id="987"`} {
		assert.Contains(t, line, part)
	}
}

func TestInfluxSink_RecordCandidateSearchAndDeferral(t *testing.T) {
	rec := &lineRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()

	require.NoError(t, sink.RecordCandidateSearch(coremetrics.CandidateSearchEvent{OrderID: "o1", Considered: 4, Candidates: 2, RouteLookups: 2, Time: time.Now()}))
	assert.Contains(t, rec.last(), "considered=4i")

	require.NoError(t, sink.RecordDeferral(coremetrics.DeferralEvent{OrderID: "o1", Delay: 20 * time.Minute, RunAt: time.Now(), Time: time.Now()}))
	assert.Contains(t, rec.last(), "delay_minutes=20")
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
