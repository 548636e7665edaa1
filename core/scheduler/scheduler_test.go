package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestScheduleRunsAtTarget(t *testing.T) {
	clk := NewManualClock(t0)
	s := New(WithClock(clk))
	defer s.Close()

	var runs atomic.Int32
	if !s.Schedule("o1", t0.Add(15*time.Minute), func(context.Context) { runs.Add(1) }) {
		t.Fatalf("expected schedule to succeed")
	}
	if at, ok := s.Pending("o1"); !ok || !at.Equal(t0.Add(15*time.Minute)) {
		t.Fatalf("unexpected pending state %v %v", at, ok)
	}
	clk.Advance(14 * time.Minute)
	if runs.Load() != 0 {
		t.Fatalf("ran too early")
	}
	clk.Advance(time.Minute)
	if runs.Load() != 1 {
		t.Fatalf("expected one run got %d", runs.Load())
	}
	if _, ok := s.Pending("o1"); ok {
		t.Fatalf("entry should be cleared after firing")
	}
}

func TestScheduleIsIdempotentPerKey(t *testing.T) {
	clk := NewManualClock(t0)
	s := New(WithClock(clk))
	defer s.Close()

	var runs atomic.Int32
	task := func(context.Context) { runs.Add(1) }
	if !s.Schedule("o1", t0.Add(time.Minute), task) {
		t.Fatalf("first schedule failed")
	}
	if s.Schedule("o1", t0.Add(2*time.Minute), task) {
		t.Fatalf("second schedule for same key should be rejected")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 pending got %d", s.Len())
	}
	clk.Advance(5 * time.Minute)
	if runs.Load() != 1 {
		t.Fatalf("expected exactly one run got %d", runs.Load())
	}
	if !s.Schedule("o1", t0.Add(10*time.Minute), task) {
		t.Fatalf("key should be schedulable again after firing")
	}
}

func TestCancel(t *testing.T) {
	clk := NewManualClock(t0)
	s := New(WithClock(clk))
	defer s.Close()

	var runs atomic.Int32
	s.Schedule("o1", t0.Add(time.Minute), func(context.Context) { runs.Add(1) })
	if !s.Cancel("o1") {
		t.Fatalf("expected cancel to report pending task")
	}
	if s.Cancel("o1") {
		t.Fatalf("second cancel should report nothing pending")
	}
	clk.Advance(time.Hour)
	if runs.Load() != 0 {
		t.Fatalf("cancelled task ran")
	}
}

func TestCloseRejectsNewWork(t *testing.T) {
	clk := NewManualClock(t0)
	s := New(WithClock(clk))
	s.Schedule("o1", t0.Add(time.Minute), func(context.Context) {})
	s.Close()
	if s.Len() != 0 {
		t.Fatalf("pending tasks should be dropped on close")
	}
	if s.Schedule("o2", t0, func(context.Context) {}) {
		t.Fatalf("schedule after close should fail")
	}
	s.Close()
}

func TestSystemClockPastTargetRunsImmediately(t *testing.T) {
	s := New()
	defer s.Close()
	done := make(chan struct{})
	s.Schedule("o1", time.Now().Add(-time.Minute), func(context.Context) { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("task did not run")
	}
}
