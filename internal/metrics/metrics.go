package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// TimerMetric captures timing information
type TimerMetric struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
}

// Metrics collects in-process counters, gauges and timers for the ordering
// pipeline (group fetches, adjustments, submissions). Safe for concurrent use.
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]*int64
	gauges   map[string]*int64
	timers   map[string]*timer
	started  time.Time
}

type timer struct {
	count       int64
	totalTimeMs int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]*int64),
		gauges:   make(map[string]*int64),
		timers:   make(map[string]*timer),
		started:  time.Now(),
	}
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	atomic.AddInt64(m.counter(name), 1)
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if g, ok = m.gauges[name]; !ok {
			var v int64
			g = &v
			m.gauges[name] = g
		}
		m.mu.Unlock()
	}
	atomic.StoreInt64(g, value)
}

// RecordTimer records a timing measurement
func (m *Metrics) RecordTimer(name string, d time.Duration) {
	m.mu.RLock()
	t, ok := m.timers[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if t, ok = m.timers[name]; !ok {
			t = &timer{}
			m.timers[name] = t
		}
		m.mu.Unlock()
	}
	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalTimeMs, d.Milliseconds())
}

func (m *Metrics) counter(name string) *int64 {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if c, ok = m.counters[name]; !ok {
			var v int64
			c = &v
			m.counters[name] = c
		}
		m.mu.Unlock()
	}
	return c
}

// GetCounters returns all counters
func (m *Metrics) GetCounters() map[string]int64 {
	out := make(map[string]int64)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, c := range m.counters {
		out[name] = atomic.LoadInt64(c)
	}
	return out
}

// GetGauges returns all gauges
func (m *Metrics) GetGauges() map[string]int64 {
	out := make(map[string]int64)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, g := range m.gauges {
		out[name] = atomic.LoadInt64(g)
	}
	return out
}

// GetTimers returns all timers
func (m *Metrics) GetTimers() map[string]TimerMetric {
	out := make(map[string]TimerMetric)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, t := range m.timers {
		count := atomic.LoadInt64(&t.count)
		total := atomic.LoadInt64(&t.totalTimeMs)

		var avg float64
		if count > 0 {
			avg = float64(total) / float64(count)
		}
		out[name] = TimerMetric{Count: count, TotalTimeMs: total, AverageTimeMs: avg}
	}
	return out
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.started).Seconds()),
		"counters":       m.GetCounters(),
		"gauges":         m.GetGauges(),
		"timers":         m.GetTimers(),
	}
}
