package main

import (
	"math"
	"testing"
	"time"
)

func TestMetricsEmptyWindow(t *testing.T) {
	var m Metrics
	if m.AvgTickMs() != 0 {
		t.Errorf("expected 0 average with no samples, got %v", m.AvgTickMs())
	}
	if m.MaxTickRate() != 0 {
		t.Errorf("expected 0 max tick rate with no samples, got %d", m.MaxTickRate())
	}
}

func TestMetricsWindowEviction(t *testing.T) {
	var m Metrics
	base := time.Unix(1000, 0)

	m.RecordTick(base, 4*time.Millisecond)
	m.RecordTick(base.Add(500*time.Millisecond), 2*time.Millisecond)

	if got := m.AvgTickMs(); !floatEq(got, 3) {
		t.Errorf("expected average 3ms, got %v", got)
	}

	// 1.2s after the first sample: it falls out of the window.
	m.RecordTick(base.Add(1200*time.Millisecond), 6*time.Millisecond)

	if got := m.AvgTickMs(); !floatEq(got, 4) {
		t.Errorf("expected average (2+6)/2=4ms after eviction, got %v", got)
	}
	if got := m.LastTickMs(); !floatEq(got, 6) {
		t.Errorf("expected last tick 6ms, got %v", got)
	}
}

func TestMetricsFPSSmoothing(t *testing.T) {
	var m Metrics

	m.RecordFrame(0.1) // instantaneous 10fps
	if !floatEq(m.FPS(), 1.0) {
		t.Errorf("expected fps 1.0 after first frame, got %v", m.FPS())
	}

	m.RecordFrame(0.1)
	if !floatEq(m.FPS(), 1.9) {
		t.Errorf("expected fps 1.9, got %v", m.FPS())
	}

	m.RecordFrame(0) // ignored
	if !floatEq(m.FPS(), 1.9) {
		t.Errorf("zero delta must not change fps, got %v", m.FPS())
	}
}

func TestMetricsMaxTickRate(t *testing.T) {
	var m Metrics
	base := time.Unix(1000, 0)

	m.RecordTick(base, 2*time.Millisecond)
	m.RecordTick(base.Add(100*time.Millisecond), 4*time.Millisecond)

	// Baseline is max(avg=3ms, last=4ms) = 4ms -> 250 ticks/sec.
	if got := m.MaxTickRate(); got != 250 {
		t.Errorf("expected max tick rate 250, got %d", got)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	var m Metrics
	base := time.Unix(1000, 0)
	m.RecordTick(base, 5*time.Millisecond)
	m.RecordFrame(0.025)

	snap := m.Snapshot()
	if !floatEq(snap.LastTickMs, 5) || !floatEq(snap.AvgTickMs, 5) {
		t.Errorf("unexpected snapshot tick values: %+v", snap)
	}
	if snap.MaxTickRate != 200 {
		t.Errorf("expected max tick rate 200, got %d", snap.MaxTickRate)
	}
	if math.Abs(snap.FPS-4.0) > 1e-9 {
		t.Errorf("expected fps 4.0, got %v", snap.FPS)
	}
}
