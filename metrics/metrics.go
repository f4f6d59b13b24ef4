// Package metrics wraps a prometheus.Registerer with the concrete
// counters and gauges this runtime's network and scheduler layers need:
// turns, sub-passes, packets, skip counts, and inbox depth.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics wraps a prometheus.Registerer, plus the concrete collectors
// this runtime populates every turn.
type Metrics struct {
	Registry prometheus.Registerer

	TurnsCompleted   prometheus.Counter
	SubPassesPerStep prometheus.Histogram
	PacketsSent      prometheus.Counter
	PacketsReceived  prometheus.Counter
	TurnsSkipped     prometheus.Counter
	BatchBytesSent   prometheus.Histogram
	InboxDepth       prometheus.Gauge
	PeerTurnDistance prometheus.Gauge
}

// New constructs and registers every collector against reg. Callers in
// tests typically pass prometheus.NewRegistry() to avoid colliding with
// the default global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registry: reg,
		TurnsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lockstep_turns_completed_total",
			Help: "Turns this peer has finished applying.",
		}),
		SubPassesPerStep: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lockstep_subpasses_per_step",
			Help:    "Number of drain sub-passes a single World.Step took.",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}),
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lockstep_packets_sent_total",
			Help: "Packets mirrored to remote peers.",
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lockstep_packets_received_total",
			Help: "Packets applied from remote peers.",
		}),
		TurnsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lockstep_turns_skipped_total",
			Help: "Extra turns requested via the turn-skip flow-control signal.",
		}),
		BatchBytesSent: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lockstep_batch_bytes_sent",
			Help:    "Size in bytes of each outgoing turn batch.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 12),
		}),
		InboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lockstep_inbox_depth",
			Help: "Packets currently queued across all routes after the last Step.",
		}),
		PeerTurnDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lockstep_peer_turn_distance",
			Help: "local_turn minus the slowest peer's reported turn.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.TurnsCompleted, m.SubPassesPerStep, m.PacketsSent, m.PacketsReceived,
		m.TurnsSkipped, m.BatchBytesSent, m.InboxDepth, m.PeerTurnDistance,
	} {
		_ = m.Registry.Register(c)
	}
	return m
}

// Register registers an additional collector against the same registry.
func (m *Metrics) Register(collector prometheus.Collector) error {
	return m.Registry.Register(collector)
}
