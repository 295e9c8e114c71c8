// Package metrics provides lightweight, lock-free counters and gauges
// for tracking the connection and reconnection activity of a node.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a peerkeep node.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	cycles            atomic.Int64
	cyclesSkipped     atomic.Int64
	reconnectAttempts atomic.Int64
	connectFailures   atomic.Int64
	dnsLookups        atomic.Int64
	dnsFailures       atomic.Int64
	errorsTotal       atomic.Int64

	mu              sync.RWMutex
	startTime       time.Time
	lastHealthCheck time.Time
	lastError       time.Time
	lastErrorMsg    string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── Supervisor metrics ───────────────────────────────────────────────

// CycleCompleted records one supervisor cycle.  skipped is true when
// the target was already connected and no attempt was made.
func (c *Collector) CycleCompleted(skipped bool) {
	if c == nil {
		return
	}
	c.cycles.Add(1)
	if skipped {
		c.cyclesSkipped.Add(1)
	}
	c.mu.Lock()
	c.lastHealthCheck = time.Now()
	c.mu.Unlock()
}

// Cycles returns the total number of supervisor cycles.
func (c *Collector) Cycles() int64 {
	if c == nil {
		return 0
	}
	return c.cycles.Load()
}

// ReconnectAttempt records an outbound connection attempt.
func (c *Collector) ReconnectAttempt() {
	if c == nil {
		return
	}
	c.reconnectAttempts.Add(1)
}

// ReconnectAttempts returns the total reconnection attempt count.
func (c *Collector) ReconnectAttempts() int64 {
	if c == nil {
		return 0
	}
	return c.reconnectAttempts.Load()
}

// ConnectFailed records a failed outbound attempt.
func (c *Collector) ConnectFailed(msg string) {
	if c == nil {
		return
	}
	c.connectFailures.Add(1)
	c.RecordError(msg)
}

// ConnectFailures returns the total failed attempt count.
func (c *Collector) ConnectFailures() int64 {
	if c == nil {
		return 0
	}
	return c.connectFailures.Load()
}

// ── DNS metrics ──────────────────────────────────────────────────────

// DNSLookup records a seed lookup; failed marks it unsuccessful.
func (c *Collector) DNSLookup(failed bool) {
	if c == nil {
		return
	}
	c.dnsLookups.Add(1)
	if failed {
		c.dnsFailures.Add(1)
	}
}

// DNSLookups returns the total seed lookup count.
func (c *Collector) DNSLookups() int64 {
	if c == nil {
		return 0
	}
	return c.dnsLookups.Load()
}

// DNSFailures returns the failed seed lookup count.
func (c *Collector) DNSFailures() int64 {
	if c == nil {
		return 0
	}
	return c.dnsFailures.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	ConnectionsActive int64  `json:"connections_active"`
	ConnectionsTotal  int64  `json:"connections_total"`
	Cycles            int64  `json:"cycles"`
	CyclesSkipped     int64  `json:"cycles_skipped"`
	ReconnectAttempts int64  `json:"reconnect_attempts"`
	ConnectFailures   int64  `json:"connect_failures"`
	DNSLookups        int64  `json:"dns_lookups"`
	DNSFailures       int64  `json:"dns_failures"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastHealthCheck   string `json:"last_health_check,omitempty"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		Cycles:            c.cycles.Load(),
		CyclesSkipped:     c.cyclesSkipped.Load(),
		ReconnectAttempts: c.reconnectAttempts.Load(),
		ConnectFailures:   c.connectFailures.Load(),
		DNSLookups:        c.dnsLookups.Load(),
		DNSFailures:       c.dnsFailures.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastHealthCheck.IsZero() {
		s.LastHealthCheck = c.lastHealthCheck.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
