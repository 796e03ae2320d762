package metrics

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is an in-process Sink that aggregates observations into
// counters, gauges and histograms and can render them in Prometheus text
// format. Series are created on first observation; the label names of the
// first observation fix the family's label set.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*family[*Counter]
	gauges     map[string]*family[*Gauge]
	histograms map[string]*family[*Histogram]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*family[*Counter]),
		gauges:     make(map[string]*family[*Gauge]),
		histograms: make(map[string]*family[*Histogram]),
	}
}

// Observe implements Sink.
func (r *Registry) Observe(o Observation) error {
	if o.Name == "" {
		return fmt.Errorf("observation without name")
	}
	if err := r.checkKind(o.Name, o.Kind); err != nil {
		return err
	}

	switch o.Kind {
	case KindCounter:
		c, err := r.counterFamily(o.Name, o.Labels).with(o.Labels)
		if err != nil {
			return err
		}
		c.Add(o.Value)
	case KindGauge:
		g, err := r.gaugeFamily(o.Name, o.Labels).with(o.Labels)
		if err != nil {
			return err
		}
		g.Set(o.Value)
	case KindHistogram:
		h, err := r.histogramFamily(o.Name, o.Labels).with(o.Labels)
		if err != nil {
			return err
		}
		h.Observe(o.Value)
	default:
		return fmt.Errorf("metric %s: unknown kind %q", o.Name, o.Kind)
	}
	return nil
}

// CounterValue returns the value of the counter series, or 0.
func (r *Registry) CounterValue(name string, labels map[string]string) float64 {
	r.mu.RLock()
	f, ok := r.counters[name]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	c, err := f.with(labels)
	if err != nil {
		return 0
	}
	return c.Value()
}

// GaugeValue returns the value of the gauge series, or 0.
func (r *Registry) GaugeValue(name string, labels map[string]string) float64 {
	r.mu.RLock()
	f, ok := r.gauges[name]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	g, err := f.with(labels)
	if err != nil {
		return 0
	}
	return g.Value()
}

// Histogram returns the histogram series, or nil.
func (r *Registry) Histogram(name string, labels map[string]string) *Histogram {
	r.mu.RLock()
	f, ok := r.histograms[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	h, err := f.with(labels)
	if err != nil {
		return nil
	}
	return h
}

// Names returns every metric name seen so far, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.counters)+len(r.gauges)+len(r.histograms))
	for n := range r.counters {
		names = append(names, n)
	}
	for n := range r.gauges {
		names = append(names, n)
	}
	for n := range r.histograms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// checkKind rejects reusing a name with a different kind.
func (r *Registry) checkKind(name string, kind Kind) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, isCounter := r.counters[name]
	_, isGauge := r.gauges[name]
	_, isHistogram := r.histograms[name]

	switch {
	case isCounter && kind != KindCounter,
		isGauge && kind != KindGauge,
		isHistogram && kind != KindHistogram:
		return fmt.Errorf("metric %s already registered with another kind", name)
	}
	return nil
}

func (r *Registry) counterFamily(name string, labels map[string]string) *family[*Counter] {
	return getOrCreate(&r.mu, r.counters, name, func() *family[*Counter] {
		help := helpFor(name)
		return newFamily(name, help, labelNames(labels), func(l map[string]string) *Counter {
			return NewCounter(name, help, l)
		})
	})
}

func (r *Registry) gaugeFamily(name string, labels map[string]string) *family[*Gauge] {
	return getOrCreate(&r.mu, r.gauges, name, func() *family[*Gauge] {
		help := helpFor(name)
		return newFamily(name, help, labelNames(labels), func(l map[string]string) *Gauge {
			return NewGauge(name, help, l)
		})
	})
}

func (r *Registry) histogramFamily(name string, labels map[string]string) *family[*Histogram] {
	return getOrCreate(&r.mu, r.histograms, name, func() *family[*Histogram] {
		help := helpFor(name)
		buckets := bucketsFor(name)
		return newFamily(name, help, labelNames(labels), func(l map[string]string) *Histogram {
			return NewHistogram(name, help, buckets, l)
		})
	})
}

func getOrCreate[T any](mu *sync.RWMutex, m map[string]T, name string, create func() T) T {
	mu.RLock()
	v, ok := m[name]
	mu.RUnlock()
	if ok {
		return v
	}

	mu.Lock()
	defer mu.Unlock()
	if v, ok := m[name]; ok {
		return v
	}
	v = create()
	m[name] = v
	return v
}
