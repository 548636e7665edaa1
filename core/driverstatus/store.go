package driverstatus

import (
	"sort"
	"sync"
	"time"
)

// LastAssignment summarises the most recent order given to a driver.
type LastAssignment struct {
	OrderID        string    `json:"order_id"`
	AssignmentID   string    `json:"assignment_id"`
	DistanceKm     float64   `json:"distance_km"`
	DistanceSource string    `json:"distance_source"`
	Batched        bool      `json:"batched"`
	Timestamp      time.Time `json:"timestamp"`
}

// Status captures the current known dispatch state of a driver.
type Status struct {
	DriverID       string         `json:"driver_id"`
	CurrentStatus  string         `json:"current_status"`
	ActiveOrders   []string       `json:"active_orders,omitempty"`
	LastCandidate  time.Time      `json:"last_candidate,omitempty"`
	LastAssignment LastAssignment `json:"last_assignment"`
}

// Filter narrows List results. Zero fields match all.
type Filter struct {
	DriverID      string
	CurrentStatus string
}

type Store interface {
	Set(Status)
	List(Filter) []Status
	RecordAssignment(driverID string, a LastAssignment)
	RecordCandidate(driverID string, at time.Time)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	s.data[st.DriverID] = st
	s.mu.Unlock()
}

// RecordAssignment stores a as the driver's latest assignment and adds the
// order to its active list, creating the entry if needed.
func (s *MemoryStore) RecordAssignment(driverID string, a LastAssignment) {
	s.mu.Lock()
	st := s.data[driverID]
	st.DriverID = driverID
	st.LastAssignment = a
	st.CurrentStatus = "on_delivery"
	st.ActiveOrders = append(st.ActiveOrders, a.OrderID)
	s.data[driverID] = st
	s.mu.Unlock()
}

// RecordCandidate notes that the driver was shortlisted at the given time.
func (s *MemoryStore) RecordCandidate(driverID string, at time.Time) {
	s.mu.Lock()
	st := s.data[driverID]
	st.DriverID = driverID
	if st.CurrentStatus == "" {
		st.CurrentStatus = "available"
	}
	st.LastCandidate = at
	s.data[driverID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.DriverID != "" && st.DriverID != f.DriverID {
			continue
		}
		if f.CurrentStatus != "" && st.CurrentStatus != f.CurrentStatus {
			continue
		}
		st.ActiveOrders = append([]string(nil), st.ActiveOrders...)
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].DriverID < res[j].DriverID })
	return res
}
