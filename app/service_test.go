package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fooddispatch/config"
	"github.com/kilianp07/fooddispatch/core/dispatch"
	dispatchlog "github.com/kilianp07/fooddispatch/core/dispatch/logging"
	"github.com/kilianp07/fooddispatch/core/factory"
	"github.com/kilianp07/fooddispatch/core/model"
	"github.com/kilianp07/fooddispatch/infra/store/memory"
)

type memBackend struct {
	*memory.Store
	dispatch.StaticSettings
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Logging.Path = filepath.Join(t.TempDir(), "dispatch.jsonl")
	cfg.API.Token = "secret"
	cfg.Dispatch.RecoveryWindowHours = 2
	cfg.SetDefaults()
	return cfg
}

func seededBackend(cfg *config.Config) *memBackend {
	st := memory.New()
	kitchen := model.Coordinates{Lat: 51.5, Lng: -0.1}
	st.PutChef(model.Chef{ID: "chef-1", Name: "Ada Kitchen", Location: &kitchen, KitchenAddress: "1 High St"})
	st.PutDriver(model.Driver{
		ID:           "driver-1",
		Status:       model.DriverActive,
		Availability: model.AvailabilityAvailable,
		Location:     &model.Coordinates{Lat: 51.51, Lng: -0.1},
	})
	st.PutOrder(model.Order{
		ID:              "order-1",
		ChefID:          "chef-1",
		Status:          model.OrderReady,
		DeliveryAddress: model.DeliveryAddress{Raw: "2 Low St"},
		CreatedAt:       time.Now().Add(-30 * time.Minute),
	})
	st.PutOrder(model.Order{
		ID:        "order-old",
		ChefID:    "chef-1",
		Status:    model.OrderReady,
		CreatedAt: time.Now().Add(-5 * time.Hour),
	})
	return &memBackend{Store: st, StaticSettings: dispatch.StaticSettings(cfg.Dispatch.ToSettings())}
}

func TestAssembleWithoutOptionalTransports(t *testing.T) {
	cfg := testConfig(t)
	svc, err := Assemble(cfg, seededBackend(cfg))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	assert.NotNil(t, svc.Manager)
	assert.Nil(t, svc.Network)
	assert.Nil(t, svc.routes)
	assert.Nil(t, svc.notifier)
	assert.Nil(t, svc.consumer)
}

func TestRecoverEnqueuesWithinWindow(t *testing.T) {
	cfg := testConfig(t)
	backend := seededBackend(cfg)
	svc, err := Assemble(cfg, backend)
	require.NoError(t, err)

	n, err := svc.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Close waits for the enqueued attempt.
	require.NoError(t, svc.Close())
	asns := backend.Assignments()
	require.Len(t, asns, 1)
	assert.Equal(t, "order-1", asns[0].OrderID)
	assert.Equal(t, "driver-1", asns[0].DriverID)
}

func TestRecoverDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dispatch.RecoveryWindowHours = 0
	svc, err := Assemble(cfg, seededBackend(cfg))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	n, err := svc.Recover(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandlerServesLogsAndStatus(t *testing.T) {
	cfg := testConfig(t)
	svc, err := Assemble(cfg, seededBackend(cfg))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	res := svc.Manager.Dispatch(context.Background(), dispatch.Request{OrderID: "order-1"})
	require.Equal(t, dispatch.OutcomeAssigned, res.Outcome)

	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/dispatch/logs?order_id=order-1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var recs []dispatchlog.LogRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "driver-1", recs[0].DriverID)

	resp2, err := http.Get(srv.URL + "/api/drivers/status?status=on_delivery")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	var statuses []map[string]any
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "driver-1", statuses[0]["driver_id"])
}

func TestAssembleCourierNetwork(t *testing.T) {
	cfg := testConfig(t)
	cfg.Courier = factory.ModuleConfig{Type: "stuart", Conf: map[string]any{
		"env":  "sandbox",
		"auth": map[string]any{"api_key": "key"},
	}}
	svc, err := Assemble(cfg, seededBackend(cfg))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	require.NotNil(t, svc.Network)
	assert.Equal(t, "stuart", svc.Network.Name())
}

func TestAssembleUnknownCourier(t *testing.T) {
	cfg := testConfig(t)
	cfg.Courier = factory.ModuleConfig{Type: "pigeon"}
	_, err := Assemble(cfg, seededBackend(cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "courier network")
}
