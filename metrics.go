package main

import (
	"math"
	"time"
)

const tickWindow = time.Second

// tickSample is one recorded tick with the wall-clock time it finished.
type tickSample struct {
	at time.Time
	ms float64
}

// Metrics tracks tick and frame timing for one runner. Not safe for
// concurrent use; the frame loop records, and snapshots are taken from
// the same goroutine.
type Metrics struct {
	lastTickMs float64
	window     []tickSample
	windowSum  float64
	fps        float64
}

// MetricsSnapshot is the exported metrics block for broadcasts and APIs.
type MetricsSnapshot struct {
	LastTickMs  float64 `json:"lastTickMs" msgpack:"tms"`
	AvgTickMs   float64 `json:"avgTickMs" msgpack:"avg"`
	FPS         float64 `json:"fps" msgpack:"fps"`
	MaxTickRate int     `json:"maxTickRate" msgpack:"max"`
}

// RecordTick records one tick's duration, evicting window samples older
// than one second.
func (m *Metrics) RecordTick(at time.Time, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	m.lastTickMs = ms
	m.window = append(m.window, tickSample{at: at, ms: ms})
	m.windowSum += ms

	cutoff := at.Add(-tickWindow)
	evict := 0
	for evict < len(m.window) && m.window[evict].at.Before(cutoff) {
		m.windowSum -= m.window[evict].ms
		evict++
	}
	if evict > 0 {
		m.window = append(m.window[:0], m.window[evict:]...)
	}
}

// RecordFrame updates the smoothed fps from one frame's delta in seconds.
func (m *Metrics) RecordFrame(delta float64) {
	if delta <= 0 {
		return
	}
	m.fps = m.fps*0.9 + (1/delta)*0.1
}

// LastTickMs returns the most recent tick duration in milliseconds.
func (m *Metrics) LastTickMs() float64 { return m.lastTickMs }

// AvgTickMs returns the mean tick duration over the trailing second,
// 0 when no ticks ran in the window.
func (m *Metrics) AvgTickMs() float64 {
	if len(m.window) == 0 {
		return 0
	}
	return m.windowSum / float64(len(m.window))
}

// FPS returns the exponentially smoothed frames per second.
func (m *Metrics) FPS() float64 { return m.fps }

// MaxTickRate derives the highest tick rate the current tick cost could
// sustain: 1000ms divided by the slower of the windowed average and the
// most recent tick. 0 when that baseline is 0.
func (m *Metrics) MaxTickRate() int {
	baseline := math.Max(m.AvgTickMs(), m.lastTickMs)
	if baseline == 0 {
		return 0
	}
	return int(math.Round(1000 / baseline))
}

// Snapshot returns the current metrics block.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		LastTickMs:  m.lastTickMs,
		AvgTickMs:   m.AvgTickMs(),
		FPS:         m.fps,
		MaxTickRate: m.MaxTickRate(),
	}
}
