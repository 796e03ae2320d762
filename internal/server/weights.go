package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ricesearch/relevance/internal/bus"
	"github.com/ricesearch/relevance/internal/metrics"
	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/search"
)

func (s *Server) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Weights().Load())
}

// handlePutWeights merges the fields present in the body into the live
// weights and swaps the result in atomically.
func (s *Server) handlePutWeights(w http.ResponseWriter, r *http.Request) {
	var patch search.WeightsPatch
	if err := decodeJSON(r, &patch); err != nil {
		apperrors.WriteError(w, err)
		return
	}
	if patch.IsEmpty() {
		apperrors.WriteError(w, apperrors.InvalidRequestError("no weights given"))
		return
	}

	updated, err := s.engine.Weights().Update(patch.Apply)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	s.recorder().Count(metrics.WeightUpdates, 1, "origin", "http")
	s.log.WithContext(r.Context()).Info("Weights updated", "weights", fmt.Sprintf("%+v", updated))
	s.publishWeights(r.Context(), updated)

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) publishWeights(ctx context.Context, weights search.Weights) {
	if s.bus == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	event := bus.NewEvent(bus.TypeWeightsUpdated, s.source, weights)
	if err := s.bus.Publish(ctx, bus.TopicWeightsUpdated, event); err != nil {
		s.log.WithError(err).Warn("Failed to publish weight update")
	}
}

// subscribeWeights applies weight updates published by other instances.
func (s *Server) subscribeWeights(ctx context.Context) error {
	return s.bus.Subscribe(ctx, bus.TopicWeightsUpdated, s.handleWeightsEvent)
}

func (s *Server) handleWeightsEvent(ctx context.Context, event bus.Event) error {
	if s.source != "" && event.Source == s.source {
		return nil
	}

	weights, err := search.DecodeWeights(event.Payload)
	if err != nil {
		return fmt.Errorf("decoding weights event %s: %w", event.ID, err)
	}
	if err := s.engine.Weights().Store(weights); err != nil {
		return err
	}

	s.recorder().Count(metrics.WeightUpdates, 1, "origin", "bus")
	s.log.Info("Weights updated from bus", "source", event.Source, "event_id", event.ID)
	return nil
}
