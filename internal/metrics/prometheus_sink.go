package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusSink mirrors observations into client_golang collectors.
// Collectors are created and registered on first use; as with the Registry
// the first observation fixes the label names of a metric.
type PrometheusSink struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusSink creates a sink registering into reg. A nil reg gets a
// fresh registry.
func NewPrometheusSink(reg *prometheus.Registry) *PrometheusSink {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &PrometheusSink{
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Observe implements Sink.
func (s *PrometheusSink) Observe(o Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := labelNames(o.Labels)

	switch o.Kind {
	case KindCounter:
		vec, ok := s.counters[o.Name]
		if !ok {
			vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: o.Name, Help: helpFor(o.Name)}, names)
			if err := s.registry.Register(vec); err != nil {
				return fmt.Errorf("registering %s: %w", o.Name, err)
			}
			s.counters[o.Name] = vec
		}
		c, err := vec.GetMetricWith(o.Labels)
		if err != nil {
			return err
		}
		if o.Value < 0 {
			return fmt.Errorf("metric %s: negative counter delta", o.Name)
		}
		c.Add(o.Value)

	case KindGauge:
		vec, ok := s.gauges[o.Name]
		if !ok {
			vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: o.Name, Help: helpFor(o.Name)}, names)
			if err := s.registry.Register(vec); err != nil {
				return fmt.Errorf("registering %s: %w", o.Name, err)
			}
			s.gauges[o.Name] = vec
		}
		g, err := vec.GetMetricWith(o.Labels)
		if err != nil {
			return err
		}
		g.Set(o.Value)

	case KindHistogram:
		vec, ok := s.histograms[o.Name]
		if !ok {
			vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    o.Name,
				Help:    helpFor(o.Name),
				Buckets: bucketsFor(o.Name),
			}, names)
			if err := s.registry.Register(vec); err != nil {
				return fmt.Errorf("registering %s: %w", o.Name, err)
			}
			s.histograms[o.Name] = vec
		}
		h, err := vec.GetMetricWith(o.Labels)
		if err != nil {
			return err
		}
		h.Observe(o.Value)

	default:
		return fmt.Errorf("metric %s: unknown kind %q", o.Name, o.Kind)
	}

	return nil
}

// Gatherer exposes the underlying registry.
func (s *PrometheusSink) Gatherer() prometheus.Gatherer {
	return s.registry
}

// Handler serves the collected metrics.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
