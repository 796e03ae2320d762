// Package metrics records named numeric observations from the relevance
// engine and fans them out to pluggable sinks (in-process registry,
// Prometheus, Redis history, event bus). Recording never blocks the caller
// and sink failures never reach it.
package metrics

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the shape of an observation.
type Kind string

const (
	// KindCounter adds Value to a monotonically increasing total.
	KindCounter Kind = "counter"

	// KindHistogram adds Value to a distribution.
	KindHistogram Kind = "histogram"

	// KindGauge sets the current value.
	KindGauge Kind = "gauge"
)

// Observation is a single named measurement.
type Observation struct {
	Name   string            `json:"name"`
	Kind   Kind              `json:"kind"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
	Time   time.Time         `json:"time"`
}

// Sink receives observations.
type Sink interface {
	Observe(o Observation) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(o Observation) error

// Observe calls f(o).
func (f SinkFunc) Observe(o Observation) error {
	return f(o)
}

// Nop discards every observation.
type Nop struct{}

// Observe does nothing.
func (Nop) Observe(Observation) error { return nil }

// Fanout delivers each observation to every sink, in order. A sink that
// fails or panics does not stop delivery to the rest.
type Fanout []Sink

// Observe implements Sink.
func (f Fanout) Observe(o Observation) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := observeSafely(s, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// observeSafely turns a panic in s into an error.
func observeSafely(s Sink, o Observation) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sink panicked on %s: %v", o.Name, p)
		}
	}()
	return s.Observe(o)
}
