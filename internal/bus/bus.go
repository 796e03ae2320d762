// Package bus provides the event bus the relevance service uses to publish
// metric observations, weight changes and evaluation results.
package bus

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe registers a handler for events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "metrics.observation").
	Type string `json:"type"`

	// Source is the service that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// Topics.
const (
	TopicObservation         = "relevance.metrics.observation"
	TopicWeightsUpdated      = "relevance.weights.updated"
	TopicEvaluationCompleted = "relevance.evaluation.completed"
)

// Event types.
const (
	TypeObservation         = "metrics.observation"
	TypeWeightsUpdated      = "weights.updated"
	TypeEvaluationCompleted = "evaluation.completed"
)

var eventSeq atomic.Uint64

// NewEvent builds an event with a process-unique ID and the current time.
func NewEvent(eventType, source string, payload any) Event {
	now := time.Now()
	return Event{
		ID:        strconv.FormatInt(now.UnixNano(), 36) + "-" + strconv.FormatUint(eventSeq.Add(1), 36),
		Type:      eventType,
		Source:    source,
		Timestamp: now.UnixMilli(),
		Payload:   payload,
	}
}
