package stuart

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fooddispatch/auth"
	"github.com/kilianp07/fooddispatch/core/courier"
	"github.com/kilianp07/fooddispatch/core/factory"
	"github.com/kilianp07/fooddispatch/core/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Auth: auth.Conf{APIKey: "key"}})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func request() courier.JobRequest {
	return courier.JobRequest{
		Pickup:          courier.Stop{Address: "1 Kitchen Lane, London", Contact: courier.Contact{FirstName: "Ada", Phone: "+447700900001"}},
		Dropoff:         courier.Stop{Address: "9 Customer Road, London", Contact: courier.Contact{FirstName: "Grace", LastName: "Hopper", Phone: "+447700900000"}},
		PackageType:     model.PackageSmall,
		ClientReference: "ORD-1",
	}
}

func TestConfigURL(t *testing.T) {
	assert.Equal(t, SandboxURL, Config{}.URL())
	assert.Equal(t, SandboxURL, Config{Env: "sandbox"}.URL())
	assert.Equal(t, ProductionURL, Config{Env: "production"}.URL())
	assert.Equal(t, "http://local", Config{Env: "production", BaseURL: "http://local/"}.URL())
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, auth.ErrNoCredentials)
}

func TestCreateJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/jobs", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var body jobPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Job.Dropoffs, 1)
		assert.Equal(t, "small", body.Job.Dropoffs[0].PackageType)
		assert.Equal(t, "ORD-1", body.Job.Dropoffs[0].ClientReference)
		assert.Equal(t, "Hopper", body.Job.Dropoffs[0].Contact.LastName)
		assert.Equal(t, "Ada", body.Job.Pickups[0].Contact.FirstName)
		assert.False(t, body.Job.PickupAt.IsZero())
		_, _ = w.Write([]byte(`{"id":987,"status":"searching","deliveries":[{"tracking_url":"https://stuart.example/track/987","pickup_at":"2024-05-01T12:15:00Z","dropoff_at":"2024-05-01T12:40:00Z"}]}`))
	})

	job, err := c.CreateJob(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "987", job.ID)
	assert.Equal(t, "searching", job.Status)
	assert.Equal(t, "https://stuart.example/track/987", job.TrackingURL())
	require.NotNil(t, job.EstimatedDropoff())
	assert.Equal(t, 40, job.EstimatedDropoff().Minute())
	assert.Contains(t, string(job.Raw), `"id":987`)
}

func TestCreateJobAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"ADDRESS_NOT_SERVED"}`))
	})

	_, err := c.CreateJob(context.Background(), request())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "ADDRESS_NOT_SERVED")
}

func TestQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/jobs/pricing", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		assert.NotContains(t, string(b), "contact")
		_, _ = w.Write([]byte(`{"amount":11.5,"currency":"GBP"}`))
	})

	q, err := c.Quote(context.Background(), request())
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.InDelta(t, 11.5, q.Amount, 1e-9)
	assert.Equal(t, "GBP", q.Currency)
}

func TestQuoteWithoutAmount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	q, err := c.Quote(context.Background(), request())
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestCancelJobDefaultReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/jobs/987/cancel", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultCancelReason, body["reason_key"])
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.CancelJob(context.Background(), "987", ""))
}

func TestETA(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/jobs/987/eta_to_pickup":
			_, _ = w.Write([]byte(`{"eta":120}`))
		case "/v2/jobs/987/eta_to_dropoff":
			_, _ = w.Write([]byte(`{"eta":900}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	d, err := c.ETA(context.Background(), "987", LegPickup)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)
	d, err = c.ETA(context.Background(), "987", LegDropoff)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)
	_, err = c.ETA(context.Background(), "987", Leg("elsewhere"))
	assert.Error(t, err)
}

func TestJobDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/jobs/987", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":987,"status":"in_progress","driver":{"firstname":"Sam","phone":"+4470","latitude":51.5,"longitude":-0.1,"transport_type":"bike"}}`))
	})

	job, err := c.Job(context.Background(), "987")
	require.NoError(t, err)
	require.NotNil(t, job.Courier)
	assert.Equal(t, "Sam", job.Courier.Name)
	assert.Equal(t, "bike", job.Courier.TransportType)
	require.NotNil(t, job.Courier.Location)
	assert.InDelta(t, 51.5, job.Courier.Location.Lat, 1e-9)
}

func TestValidateAddress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("address") {
		case "good":
			assert.Equal(t, "delivering", r.URL.Query().Get("type"))
			_, _ = w.Write([]byte(`{"success":true}`))
		case "bad":
			w.WriteHeader(http.StatusUnprocessableEntity)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})

	ok, err := c.ValidateAddress(context.Background(), "good", AddressDelivering)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.ValidateAddress(context.Background(), "bad", AddressDelivering)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = c.ValidateAddress(context.Background(), "down", AddressPicking)
	assert.Error(t, err)
}

func TestRetryOnUnauthorized(t *testing.T) {
	var tokens, calls int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&tokens, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok` + string(rune('0'+n)) + `","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer tok2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"55","status":"new"}`))
	}))
	defer api.Close()

	c, err := New(Config{BaseURL: api.URL, Auth: auth.Conf{ClientID: "id", ClientSecret: "s", AuthURL: tokenSrv.URL}})
	require.NoError(t, err)
	job, err := c.Job(context.Background(), "55")
	require.NoError(t, err)
	assert.Equal(t, "55", job.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokens))
}

func TestRegisteredNetwork(t *testing.T) {
	n, err := courier.NewNetwork(factory.ModuleConfig{
		Type: ProviderName,
		Conf: map[string]any{"env": "production", "auth": map[string]any{"api_key": "k"}},
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, n.Name())
	assert.Equal(t, ProductionURL, n.(*Client).baseURL)
}
