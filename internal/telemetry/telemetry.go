// Package telemetry provides TelemetrySink implementations: a structured-log
// sink, a Prometheus sink, and a fan-out combinator. The streaming core only
// knows the interface; wiring happens in cmd/bugstreamd.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

// ZapSink logs every telemetry event as a structured record.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink creates a sink writing to the given logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{log: logger.Named("telemetry")}
}

// Record implements bugstream.TelemetrySink.
func (s *ZapSink) Record(event string, fields map[string]any) {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	s.log.Info(event, zapFields...)
}

// PromSink counts telemetry events by name.
type PromSink struct {
	events *prometheus.CounterVec
}

// NewPromSink creates a Prometheus-backed sink and registers its collectors
// with the given registerer.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugstream",
		Name:      "telemetry_events_total",
		Help:      "Telemetry events recorded by the streaming service, by event name.",
	}, []string{"event"})
	reg.MustRegister(events)
	return &PromSink{events: events}
}

// Record implements bugstream.TelemetrySink.
func (s *PromSink) Record(event string, _ map[string]any) {
	s.events.WithLabelValues(event).Inc()
}

// MultiSink fans one Record call out to several sinks.
type MultiSink []bugstream.TelemetrySink

// Record implements bugstream.TelemetrySink.
func (m MultiSink) Record(event string, fields map[string]any) {
	for _, sink := range m {
		sink.Record(event, fields)
	}
}

var (
	_ bugstream.TelemetrySink = (*ZapSink)(nil)
	_ bugstream.TelemetrySink = (*PromSink)(nil)
	_ bugstream.TelemetrySink = (MultiSink)(nil)
)

// StatsFunc returns a point-in-time streaming snapshot; it decouples gauge
// registration from the concrete service type.
type StatsFunc func() (bugQueueDepth, analyticsQueueDepth, connections, subscriptions int)

// RegisterGauges exposes live service state (the queue-depth alarm hook) as
// Prometheus gauges.
func RegisterGauges(reg prometheus.Registerer, stats StatsFunc) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bugstream",
		Name:      "bug_queue_depth",
		Help:      "Events waiting in the bug ingestion queue.",
	}, func() float64 {
		depth, _, _, _ := stats()
		return float64(depth)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bugstream",
		Name:      "analytics_queue_depth",
		Help:      "Events waiting in the analytics ingestion queue.",
	}, func() float64 {
		_, depth, _, _ := stats()
		return float64(depth)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bugstream",
		Name:      "connections",
		Help:      "Live client connections.",
	}, func() float64 {
		_, _, conns, _ := stats()
		return float64(conns)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "bugstream",
		Name:      "subscriptions",
		Help:      "Active stream subscriptions across all connections.",
	}, func() float64 {
		_, _, _, subs := stats()
		return float64(subs)
	}))
}
