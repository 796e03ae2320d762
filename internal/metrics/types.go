package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// atomicFloat is a float64 updated with compare-and-swap on its bit pattern.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

func (f *atomicFloat) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

func (f *atomicFloat) Add(delta float64) {
	for {
		old := f.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Counter represents a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	value  atomicFloat
	labels map[string]string
}

// NewCounter creates a new counter.
func NewCounter(name, help string, labels map[string]string) *Counter {
	return &Counter{
		name:   name,
		help:   help,
		labels: copyLabels(labels),
	}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds delta to the counter. Negative deltas are ignored.
func (c *Counter) Add(delta float64) {
	if delta < 0 || math.IsNaN(delta) {
		return
	}
	c.value.Add(delta)
}

// Value returns the current counter value.
func (c *Counter) Value() float64 {
	return c.value.Load()
}

// Reset resets the counter to 0.
func (c *Counter) Reset() {
	c.value.Store(0)
}

// Name returns the metric name.
func (c *Counter) Name() string {
	return c.name
}

// Help returns the metric help text.
func (c *Counter) Help() string {
	return c.help
}

// Labels returns a copy of the metric labels.
func (c *Counter) Labels() map[string]string {
	return copyLabels(c.labels)
}

// Gauge represents a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	value  atomicFloat
	labels map[string]string
}

// NewGauge creates a new gauge.
func NewGauge(name, help string, labels map[string]string) *Gauge {
	return &Gauge{
		name:   name,
		help:   help,
		labels: copyLabels(labels),
	}
}

// Set sets the gauge to value.
func (g *Gauge) Set(value float64) {
	g.value.Store(value)
}

// Add adds delta to the gauge.
func (g *Gauge) Add(delta float64) {
	g.value.Add(delta)
}

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	return g.value.Load()
}

// Name returns the metric name.
func (g *Gauge) Name() string {
	return g.name
}

// Help returns the metric help text.
func (g *Gauge) Help() string {
	return g.help
}

// Labels returns a copy of the metric labels.
func (g *Gauge) Labels() map[string]string {
	return copyLabels(g.labels)
}

// DefaultBuckets are millisecond latency buckets.
var DefaultBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	labels  map[string]string

	mu     sync.Mutex
	counts []uint64 // cumulative; last entry is +Inf
	sum    float64
	count  uint64
}

// NewHistogram creates a histogram with the given bucket upper bounds.
func NewHistogram(name, help string, buckets []float64, labels map[string]string) *Histogram {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)

	return &Histogram{
		name:    name,
		help:    help,
		buckets: sorted,
		labels:  copyLabels(labels),
		counts:  make([]uint64, len(sorted)+1),
	}
}

// Observe adds a single observation.
func (h *Histogram) Observe(value float64) {
	if math.IsNaN(value) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++

	idx := sort.SearchFloat64s(h.buckets, value)
	for i := idx; i < len(h.counts); i++ {
		h.counts[i]++
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Sum returns the sum of all observations.
func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// Buckets returns the bucket upper bounds.
func (h *Histogram) Buckets() []float64 {
	return append([]float64(nil), h.buckets...)
}

// BucketCounts returns the cumulative count per bucket, +Inf last.
func (h *Histogram) BucketCounts() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uint64(nil), h.counts...)
}

// Name returns the metric name.
func (h *Histogram) Name() string {
	return h.name
}

// Help returns the metric help text.
func (h *Histogram) Help() string {
	return h.help
}

// Labels returns a copy of the metric labels.
func (h *Histogram) Labels() map[string]string {
	return copyLabels(h.labels)
}

// family is a set of same-named series distinguished by label values.
type family[T any] struct {
	name       string
	help       string
	labelNames []string
	newSeries  func(labels map[string]string) T

	mu     sync.RWMutex
	series map[string]T
}

func newFamily[T any](name, help string, labelNames []string, newSeries func(map[string]string) T) *family[T] {
	return &family[T]{
		name:       name,
		help:       help,
		labelNames: labelNames,
		newSeries:  newSeries,
		series:     make(map[string]T),
	}
}

// with returns the series for labels, creating it on first use. labels must
// carry exactly the family's label names.
func (f *family[T]) with(labels map[string]string) (T, error) {
	var zero T
	if len(labels) != len(f.labelNames) {
		return zero, fmt.Errorf("metric %s: expected labels %v, got %v", f.name, f.labelNames, labelNames(labels))
	}
	for _, n := range f.labelNames {
		if _, ok := labels[n]; !ok {
			return zero, fmt.Errorf("metric %s: expected labels %v, got %v", f.name, f.labelNames, labelNames(labels))
		}
	}

	key := labelsToKey(labels)

	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if s, ok := f.series[key]; ok {
		return s, nil
	}
	s = f.newSeries(labels)
	f.series[key] = s
	return s, nil
}

// all returns the series ordered by label key.
func (f *family[T]) all() []T {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.series[k])
	}
	return out
}

func copyLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// labelsToKey creates a stable key from label map.
func labelsToKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, k := range labelNames(labels) {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(labels[k])
	}
	return sb.String()
}
