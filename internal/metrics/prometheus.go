package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const namespace = "peerkeep"

// Register exposes c on reg.  The Prometheus collectors read the atomic
// counters on scrape, so c stays the single source of truth.
func Register(reg prometheus.Registerer, c *Collector) error {
	counter := func(name, help string, fn func() int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(fn()) })
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Peer connections currently registered.",
		}, func() float64 { return float64(c.ActiveConnections()) }),
		counter("connections_total", "Peer connections registered since start.", c.TotalConnections),
		counter("supervisor_cycles_total", "Supervisor cycles run.", c.Cycles),
		counter("supervisor_cycles_skipped_total", "Cycles where the target was already connected.",
			func() int64 { return c.Snapshot().CyclesSkipped }),
		counter("reconnect_attempts_total", "Outbound reconnection attempts.", c.ReconnectAttempts),
		counter("connect_failures_total", "Failed outbound reconnection attempts.", c.ConnectFailures),
		counter("dns_lookups_total", "DNS seed lookups.", c.DNSLookups),
		counter("dns_failures_total", "Failed DNS seed lookups.", c.DNSFailures),
		counter("errors_total", "Errors recorded.", c.ErrorCount),
	}

	var err error
	for _, col := range collectors {
		err = multierr.Append(err, reg.Register(col))
	}
	return err
}
