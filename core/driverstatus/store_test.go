package driverstatus

import (
	"testing"
	"time"
)

func TestMemoryStore_Filter(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{DriverID: "d1", CurrentStatus: "available"})
	s.Set(Status{DriverID: "d2", CurrentStatus: "offline"})
	out := s.List(Filter{CurrentStatus: "available"})
	if len(out) != 1 || out[0].DriverID != "d1" {
		t.Fatalf("filter failed: %#v", out)
	}
}

func TestMemoryStore_RecordAssignment(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{DriverID: "d1", CurrentStatus: "available"})
	s.RecordAssignment("d1", LastAssignment{OrderID: "o1", DistanceKm: 2})
	s.RecordAssignment("d1", LastAssignment{OrderID: "o2", Batched: true})
	out := s.List(Filter{DriverID: "d1"})
	if len(out) != 1 {
		t.Fatalf("expected one driver, got %#v", out)
	}
	st := out[0]
	if st.CurrentStatus != "on_delivery" {
		t.Fatalf("status not updated: %s", st.CurrentStatus)
	}
	if st.LastAssignment.OrderID != "o2" || !st.LastAssignment.Batched {
		t.Fatalf("last assignment not replaced: %#v", st.LastAssignment)
	}
	if len(st.ActiveOrders) != 2 {
		t.Fatalf("active orders: %v", st.ActiveOrders)
	}
}

func TestMemoryStore_RecordCandidateNew(t *testing.T) {
	s := NewMemoryStore()
	at := time.Unix(100, 0)
	s.RecordCandidate("d3", at)
	out := s.List(Filter{})
	if len(out) != 1 || out[0].DriverID != "d3" || !out[0].LastCandidate.Equal(at) {
		t.Fatalf("auto create failed %#v", out)
	}
	if out[0].CurrentStatus != "available" {
		t.Fatalf("unexpected status %s", out[0].CurrentStatus)
	}
}
