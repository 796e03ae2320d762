package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ricesearch/relevance/internal/bus"
	"github.com/ricesearch/relevance/internal/metrics"
)

// services are the long-lived collaborators of evaluate and serve: the
// event bus and the metrics pipeline.
type services struct {
	source  string
	raw     bus.Bus
	bus     bus.Bus // raw, counting publishes into the pipeline
	metrics *metrics.Pipeline
}

// startServices opens the configured bus and metrics sinks. Remote
// observations arriving on the bus are folded into the local registry.
func (a *app) startServices(ctx context.Context) (*services, error) {
	s := &services{source: instanceID()}

	raw, err := bus.NewBus(a.cfg.Bus, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	s.raw = raw

	// The pipeline publishes on the raw bus; counting those publishes
	// through the instrumented bus would feed back into itself.
	pipeline, err := metrics.Setup(a.cfg.Metrics, raw, s.source, a.log)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	s.metrics = pipeline
	s.bus = bus.NewInstrumentedBus(raw, pipeline.Recorder)

	if pipeline.Registry != nil && a.cfg.Metrics.HasSink("bus") {
		sub := metrics.NewEventSubscriber(pipeline.Registry, raw, s.source)
		if err := sub.SubscribeToEvents(ctx); err != nil {
			s.close(a)
			return nil, fmt.Errorf("failed to subscribe to observations: %w", err)
		}
	}

	a.log.Info("Services started", "source", s.source, "bus", a.cfg.Bus.Type, "sinks", a.cfg.Metrics.SinkList())
	return s, nil
}

// close drains the recorder before the bus goes away so the bus sink can
// still publish.
func (s *services) close(a *app) {
	if err := s.metrics.Close(); err != nil {
		a.log.Warn("Error closing metrics pipeline", "error", err)
	}
	if err := s.raw.Close(); err != nil {
		a.log.Warn("Error closing event bus", "error", err)
	}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "relevance"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
