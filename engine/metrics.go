// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "audspace"

// Metrics are the engine's prometheus collectors.
type Metrics struct {
	TickDuration   prometheus.Histogram
	Underruns      prometheus.Counter
	DecodeErrors   prometheus.Counter
	DroppedEvents  prometheus.Counter
	RejectedCmds   prometheus.Counter
	ActiveSources  prometheus.Gauge
	RenderedFrames prometheus.Counter
}

// NewMetrics builds the collectors and registers them on reg when it is not
// nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "render",
			Name:      "tick_duration_seconds",
			Help:      "Time spent in one render tick.",
			Buckets:   prometheus.ExponentialBuckets(50e-6, 2, 12),
		}),
		Underruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "stream",
			Name:      "underruns_total",
			Help:      "Stream sources that ran dry during a tick.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "stream",
			Name:      "decode_errors_total",
			Help:      "Sources stopped by a decoder failure.",
		}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_events_total",
			Help:      "Events discarded because the consumer lagged.",
		}),
		RejectedCmds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejected_commands_total",
			Help:      "Control calls refused with a full queue.",
		}),
		ActiveSources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "render",
			Name:      "active_sources",
			Help:      "Sources playing during the last tick.",
		}),
		RenderedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "render",
			Name:      "frames_total",
			Help:      "Output frames produced.",
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.TickDuration, m.Underruns, m.DecodeErrors, m.DroppedEvents,
		m.RejectedCmds, m.ActiveSources, m.RenderedFrames,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}
