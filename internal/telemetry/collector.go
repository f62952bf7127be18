// Package telemetry tracks simple per-transfer network metrics: throughput
// observed while streaming Data frames, and round-trip latency observed via
// a pre-transfer Ping probe.
package telemetry

import (
	"sync"
	"time"
)

// Collector is a single instance per CLI invocation, shared by the Ping
// probe and every file sent; its byte count accumulates across all of them.
type Collector struct {
	mu sync.RWMutex

	windowStart time.Time
	bytesSent   uint64
	lastRTT     time.Duration
}

// NewCollector creates a new collector with an initialized time window.
func NewCollector() *Collector {
	return &Collector{windowStart: time.Now()}
}

// RecordBytesSent records that n bytes have been sent.
func (c *Collector) RecordBytesSent(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesSent += uint64(n)
}

// RecordRTT records a round-trip time measurement, e.g. from a Ping probe.
func (c *Collector) RecordRTT(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRTT = d
}

// BandwidthMbps estimates bandwidth in megabits per second based on bytes
// sent in the current window divided by elapsed time. Returns 0 if not
// enough data is available.
func (c *Collector) BandwidthMbps() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elapsed := time.Since(c.windowStart).Seconds()
	if elapsed <= 0 || c.bytesSent == 0 {
		return 0
	}
	bps := float64(c.bytesSent*8) / elapsed
	return bps / 1e6
}

// LatencyMs returns the last recorded RTT in milliseconds, or 0 if none has
// been recorded yet.
func (c *Collector) LatencyMs() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastRTT <= 0 {
		return 0
	}
	return float64(c.lastRTT) / float64(time.Millisecond)
}
