package bus

import (
	"context"
	"time"
)

// MetricsRecorder is the slice of the metrics recorder the bus needs.
// Declared here to keep the bus free of a metrics import.
type MetricsRecorder interface {
	Count(name string, delta float64, labels ...string)
	Since(name string, start time.Time, labels ...string)
}

// Metric names recorded by InstrumentedBus.
const (
	metricPublished = "relevance_bus_events_published_total"
	metricErrors    = "relevance_bus_errors_total"
)

// InstrumentedBus wraps a Bus and counts publishes and failures per topic.
type InstrumentedBus struct {
	inner   Bus
	metrics MetricsRecorder
}

// NewInstrumentedBus creates a new instrumented bus that records metrics.
func NewInstrumentedBus(inner Bus, metrics MetricsRecorder) *InstrumentedBus {
	return &InstrumentedBus{
		inner:   inner,
		metrics: metrics,
	}
}

// Publish publishes an event to a topic and records metrics.
func (b *InstrumentedBus) Publish(ctx context.Context, topic string, event Event) error {
	err := b.inner.Publish(ctx, topic, event)

	if b.metrics != nil {
		b.metrics.Count(metricPublished, 1, "topic", topic)
		if err != nil {
			b.metrics.Count(metricErrors, 1, "topic", topic)
		}
	}

	return err
}

// Subscribe subscribes to events on a topic.
func (b *InstrumentedBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

// Close closes the underlying bus.
func (b *InstrumentedBus) Close() error {
	return b.inner.Close()
}
