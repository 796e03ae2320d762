package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ricesearch/relevance/internal/pkg/logger"
)

// DefaultBufferSize is the recorder queue length when none is given.
const DefaultBufferSize = 1024

// Recorder queues observations and delivers them to a Sink on a single
// background goroutine. Emitting never blocks: when the queue is full the
// observation is dropped and counted. Sink errors and panics are logged at
// debug level and swallowed.
//
// All methods are safe on a nil *Recorder, which records nothing.
type Recorder struct {
	sink Sink
	log  *logger.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan Observation
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRecorder starts a recorder that feeds sink. A nil sink is a Nop.
func NewRecorder(sink Sink, log *logger.Logger, bufferSize int) *Recorder {
	if sink == nil {
		sink = Nop{}
	}
	if log == nil {
		log = logger.Discard()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	r := &Recorder{
		sink:  sink,
		log:   log.WithComponent("metrics"),
		queue: make(chan Observation, bufferSize),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Count adds delta to counter name.
func (r *Recorder) Count(name string, delta float64, labels ...string) {
	r.emit(name, KindCounter, delta, labels)
}

// Observe adds value to histogram name.
func (r *Recorder) Observe(name string, value float64, labels ...string) {
	r.emit(name, KindHistogram, value, labels)
}

// Set sets gauge name to value.
func (r *Recorder) Set(name string, value float64, labels ...string) {
	r.emit(name, KindGauge, value, labels)
}

// Since observes the milliseconds elapsed since start on histogram name.
func (r *Recorder) Since(name string, start time.Time, labels ...string) {
	r.emit(name, KindHistogram, float64(time.Since(start).Microseconds())/1000, labels)
}

// Dropped returns the number of observations discarded on a full queue.
func (r *Recorder) Dropped() int64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Failed returns the number of observations the sink rejected.
func (r *Recorder) Failed() int64 {
	if r == nil {
		return 0
	}
	return r.failed.Load()
}

// Close stops accepting observations, delivers the ones already queued and
// waits for the delivery goroutine to exit.
func (r *Recorder) Close() {
	if r == nil {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

// labels are key/value pairs; an odd trailing key is ignored.
func (r *Recorder) emit(name string, kind Kind, value float64, labels []string) {
	if r == nil {
		return
	}

	o := Observation{Name: name, Kind: kind, Value: value, Time: time.Now()}
	if len(labels) >= 2 {
		o.Labels = make(map[string]string, len(labels)/2)
		for i := 0; i+1 < len(labels); i += 2 {
			o.Labels[labels[i]] = labels[i+1]
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- o:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for o := range r.queue {
		r.deliver(o)
	}
}

func (r *Recorder) deliver(o Observation) {
	defer func() {
		if p := recover(); p != nil {
			r.failed.Add(1)
			r.log.Debug("Metrics sink panicked", "metric", o.Name, "panic", fmt.Sprint(p))
		}
	}()

	if err := r.sink.Observe(o); err != nil {
		r.failed.Add(1)
		r.log.Debug("Metrics sink failed", "metric", o.Name, "error", err)
	}
}
