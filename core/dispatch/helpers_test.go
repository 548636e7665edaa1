package dispatch

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/kilianp07/fooddispatch/core/courier"
	"github.com/kilianp07/fooddispatch/core/geo"
	"github.com/kilianp07/fooddispatch/core/model"
	"github.com/kilianp07/fooddispatch/core/routing"
	"github.com/kilianp07/fooddispatch/infra/logger"
	"github.com/kilianp07/fooddispatch/infra/store/memory"
)

var pickup = model.Coordinates{Lat: 51.5, Lng: -0.1}

// kmPerDegree is the haversine length of one degree of latitude.
const kmPerDegree = geo.EarthRadiusKm * math.Pi / 180

// north returns a point km kilometres due north of the pickup.
func north(km float64) *model.Coordinates {
	return &model.Coordinates{Lat: pickup.Lat + km/kmPerDegree, Lng: pickup.Lng}
}

func activeDriver(id string, km float64) model.Driver {
	return model.Driver{ID: id, Status: model.DriverActive, Availability: model.AvailabilityAvailable, Location: north(km)}
}

func intp(v int) *int { return &v }

type fakeRoutes struct {
	mu    sync.Mutex
	calls int
	fn    func(from model.Coordinates) (routing.Route, error)
}

func (f *fakeRoutes) Distance(_ context.Context, from, _ model.Coordinates) (routing.Route, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(from)
}

// routeByDriver answers with the route registered for the driver's location.
func routeByDriver(routes map[*model.Coordinates]routing.Route) func(model.Coordinates) (routing.Route, error) {
	return func(from model.Coordinates) (routing.Route, error) {
		for c, r := range routes {
			if c.Equal(from) {
				return r, nil
			}
		}
		return routing.Route{}, errors.New("no route")
	}
}

type fakeNetwork struct {
	mu        sync.Mutex
	quote     *courier.Quote
	quoteErr  error
	job       courier.Job
	createErr error
	quotes    int
	requests  []courier.JobRequest
	ctxErr    error
}

func (f *fakeNetwork) Name() string { return "stuart" }

func (f *fakeNetwork) Quote(context.Context, courier.JobRequest) (*courier.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes++
	return f.quote, f.quoteErr
}

func (f *fakeNetwork) CreateJob(ctx context.Context, req courier.JobRequest) (courier.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.ctxErr = ctx.Err()
	return f.job, f.createErr
}

func (f *fakeNetwork) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []model.Assignment
}

func (f *fakeNotifier) NotifyAssignment(_ context.Context, a model.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, a)
	return f.err
}

type captureMonitor struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (c *captureMonitor) CaptureException(err error, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
}

func (c *captureMonitor) Flush(time.Duration) {}

func (c *captureMonitor) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

func bookedJob() courier.Job {
	pickupAt := time.Date(2024, 5, 1, 12, 20, 0, 0, time.UTC)
	dropoffAt := pickupAt.Add(25 * time.Minute)
	return courier.Job{
		ID:     "987",
		Status: "searching",
		Deliveries: []courier.Delivery{{
			TrackingURL: "https://stuart.example/track/987",
			PickupAt:    &pickupAt,
			DropoffAt:   &dropoffAt,
		}},
		Raw: []byte(`{"id":987}`),
	}
}

// seedOrder stores a chef at the pickup point and one order from them.
func seedOrder(s *memory.Store, created time.Time) (model.Order, model.Chef) {
	loc := pickup
	chef := model.Chef{ID: "c1", Name: "Ada Lovelace", Phone: "+441111111111", Location: &loc, KitchenAddress: "1 Kitchen Lane, London"}
	order := model.Order{
		ID:              "o1",
		PublicID:        "ORD-1",
		ChefID:          chef.ID,
		CustomerName:    "Grace Hopper",
		DeliveryAddress: model.DeliveryAddress{Raw: "9 Customer Road, London"},
		Items:           []model.LineItem{{MealID: "m1", Quantity: 1}},
		Status:          model.OrderConfirmed,
		CreatedAt:       created,
	}
	s.PutChef(chef)
	s.PutOrder(order)
	s.PutMeal(model.Meal{ID: "m1", Name: "Pie", PrepTimeMinutes: 5, ServingCount: 1})
	return order, chef
}

func nopLog() logger.Logger { return logger.NopLogger{} }
