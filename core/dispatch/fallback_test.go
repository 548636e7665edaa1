package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/fooddispatch/core/courier"
	"github.com/kilianp07/fooddispatch/core/model"
	"github.com/kilianp07/fooddispatch/infra/store/memory"
)

func newExternal(store *memory.Store, net *fakeNetwork) *ExternalDispatcher {
	now := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return NewExternalDispatcher(net, store, NewMealPackageSizer(store, nopLog()), "", now, nopLog())
}

func TestExternalDispatcher_Book(t *testing.T) {
	store := memory.New()
	order, chef := seedOrder(store, time.Now())
	net := &fakeNetwork{job: bookedJob(), quote: &courier.Quote{Amount: 7.5, Currency: "GBP"}}

	ea, err := newExternal(store, net).Book(context.Background(), order, chef, model.Settings{})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if net.calls() != 1 || net.quotes != 1 {
		t.Fatalf("expected one quote and one booking, got %d/%d", net.quotes, net.calls())
	}
	req := net.requests[0]
	if req.Pickup.Address != "1 Kitchen Lane, London" || req.Dropoff.Address != "9 Customer Road, London" {
		t.Fatalf("unexpected addresses %+v", req)
	}
	if req.Pickup.Contact.Phone != "+441111111111" || req.Dropoff.Contact.Phone != DefaultContactPhone {
		t.Fatalf("unexpected phones %q/%q", req.Pickup.Contact.Phone, req.Dropoff.Contact.Phone)
	}
	if req.Dropoff.Contact.FirstName != "Grace" || req.Dropoff.Contact.LastName != "Hopper" {
		t.Fatalf("unexpected drop-off contact %+v", req.Dropoff.Contact)
	}
	if req.ClientReference != "ORD-1" || req.PackageType != model.PackageXSmall {
		t.Fatalf("unexpected reference/package %q/%q", req.ClientReference, req.PackageType)
	}

	if ea.Provider != "stuart" || ea.ExternalJobID != "987" || ea.TrackingURL != "https://stuart.example/track/987" {
		t.Fatalf("unexpected external assignment %+v", ea)
	}
	if ea.EstimatedPickupAt == nil || ea.EstimatedDeliveryAt == nil {
		t.Fatalf("etas not copied")
	}
	if !ea.Metadata.Fallback || ea.Metadata.PackageSize != model.PackageXSmall || string(ea.Metadata.ProviderResponse) != `{"id":987}` {
		t.Fatalf("unexpected metadata %+v", ea.Metadata)
	}
	if got := store.ExternalAssignments(); len(got) != 1 || got[0].ID != ea.ID {
		t.Fatalf("external assignment not stored")
	}
	o, _ := store.GetOrder(context.Background(), "o1")
	if o.TrackingURL != ea.TrackingURL || o.ExternalJobID != "987" {
		t.Fatalf("order not updated: %+v", o)
	}
}

func TestExternalDispatcher_NoPickupAddress(t *testing.T) {
	store := memory.New()
	order, chef := seedOrder(store, time.Now())
	chef.KitchenAddress = ""
	net := &fakeNetwork{job: bookedJob()}

	_, err := newExternal(store, net).Book(context.Background(), order, chef, model.Settings{})
	if !errors.Is(err, ErrNoPickupAddress) {
		t.Fatalf("expected ErrNoPickupAddress, got %v", err)
	}
	if net.calls() != 0 || net.quotes != 0 {
		t.Fatalf("network must not be called")
	}
}

func TestExternalDispatcher_NoDeliveryAddress(t *testing.T) {
	store := memory.New()
	order, chef := seedOrder(store, time.Now())
	order.DeliveryAddress = model.DeliveryAddress{}
	net := &fakeNetwork{job: bookedJob()}

	if _, err := newExternal(store, net).Book(context.Background(), order, chef, model.Settings{}); !errors.Is(err, ErrNoDeliveryAddress) {
		t.Fatalf("expected ErrNoDeliveryAddress, got %v", err)
	}
}

func TestExternalDispatcher_QuoteFailureIgnored(t *testing.T) {
	store := memory.New()
	order, chef := seedOrder(store, time.Now())
	net := &fakeNetwork{job: bookedJob(), quoteErr: errors.New("pricing unavailable")}

	if _, err := newExternal(store, net).Book(context.Background(), order, chef, model.Settings{}); err != nil {
		t.Fatalf("quote failure must not block booking: %v", err)
	}
	if net.calls() != 1 {
		t.Fatalf("expected booking")
	}
}

func TestExternalDispatcher_RequireQuote(t *testing.T) {
	store := memory.New()
	order, chef := seedOrder(store, time.Now())
	net := &fakeNetwork{job: bookedJob(), quoteErr: errors.New("pricing unavailable")}

	_, err := newExternal(store, net).Book(context.Background(), order, chef, model.Settings{RequireQuote: true})
	if !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
	if net.calls() != 0 {
		t.Fatalf("booking must not be attempted")
	}
}

func TestExternalDispatcher_BookingNotCancellable(t *testing.T) {
	store := memory.New()
	order, chef := seedOrder(store, time.Now())
	net := &fakeNetwork{job: bookedJob()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newExternal(store, net).Book(ctx, order, chef, model.Settings{}); err != nil {
		t.Fatalf("book: %v", err)
	}
	if net.ctxErr != nil {
		t.Fatalf("booking context was cancelled: %v", net.ctxErr)
	}
	if len(store.ExternalAssignments()) != 1 {
		t.Fatalf("booked job not recorded")
	}
}

func TestExternalDispatcher_CreateJobError(t *testing.T) {
	store := memory.New()
	order, chef := seedOrder(store, time.Now())
	net := &fakeNetwork{createErr: errors.New("422 unprocessable")}

	if _, err := newExternal(store, net).Book(context.Background(), order, chef, model.Settings{}); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.ExternalAssignments()) != 0 {
		t.Fatalf("failed booking must not be recorded")
	}
	o, _ := store.GetOrder(context.Background(), "o1")
	if o.TrackingURL != "" {
		t.Fatalf("order must not be updated")
	}
}
