package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ricesearch/relevance/internal/bus"
)

// BusSink publishes every observation as an event on bus.TopicObservation so
// other processes can aggregate them.
type BusSink struct {
	bus     bus.Bus
	source  string
	timeout time.Duration
}

// NewBusSink creates a sink publishing on b, tagging events with source.
func NewBusSink(b bus.Bus, source string) *BusSink {
	return &BusSink{bus: b, source: source, timeout: 2 * time.Second}
}

// Observe implements Sink.
func (s *BusSink) Observe(o Observation) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.bus.Publish(ctx, bus.TopicObservation, bus.NewEvent(bus.TypeObservation, s.source, o))
}

// EventSubscriber feeds observations received on the bus into a Sink.
// Events published by its own source are skipped so a process running both a
// BusSink and an EventSubscriber does not count its observations twice.
type EventSubscriber struct {
	sink   Sink
	bus    bus.Bus
	source string
}

// NewEventSubscriber creates a new event subscriber.
func NewEventSubscriber(sink Sink, eventBus bus.Bus, source string) *EventSubscriber {
	return &EventSubscriber{
		sink:   sink,
		bus:    eventBus,
		source: source,
	}
}

// SubscribeToEvents subscribes to observation events.
func (es *EventSubscriber) SubscribeToEvents(ctx context.Context) error {
	return es.bus.Subscribe(ctx, bus.TopicObservation, es.handleObservation)
}

func (es *EventSubscriber) handleObservation(ctx context.Context, event bus.Event) error {
	if es.source != "" && event.Source == es.source {
		return nil
	}

	o, err := decodeObservation(event.Payload)
	if err != nil {
		return fmt.Errorf("event %s: %w", event.ID, err)
	}
	return es.sink.Observe(o)
}

// decodeObservation accepts the in-process payload as-is and re-decodes
// anything else, such as the generic map a Kafka round trip produces.
func decodeObservation(payload any) (Observation, error) {
	switch p := payload.(type) {
	case Observation:
		return p, nil
	case *Observation:
		if p == nil {
			return Observation{}, fmt.Errorf("nil observation payload")
		}
		return *p, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Observation{}, fmt.Errorf("encoding observation payload: %w", err)
	}
	var o Observation
	if err := json.Unmarshal(data, &o); err != nil {
		return Observation{}, fmt.Errorf("decoding observation payload: %w", err)
	}
	if o.Name == "" {
		return Observation{}, fmt.Errorf("observation payload without name")
	}
	return o, nil
}
