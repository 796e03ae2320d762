package evaluation

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/search"
)

// Handler provides HTTP handlers for evaluation.
type Handler struct {
	harness *Harness
	weights *search.WeightStore
	samples []Sample
	grid    Grid
}

// NewHandler creates a new evaluation handler. samples and grid are used
// when a request carries none; weights receives the winner of applied runs.
func NewHandler(h *Harness, weights *search.WeightStore, samples []Sample, grid Grid) *Handler {
	return &Handler{harness: h, weights: weights, samples: samples, grid: grid}
}

// RegisterRoutes registers evaluation routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/evaluation/run", h.handleRun)
}

// RunRequest is the body of POST /v1/evaluation/run.
type RunRequest struct {
	Samples []Sample `json:"samples,omitempty"`
	Grid    *Grid    `json:"grid,omitempty"`

	// Apply stores the winning weights as the live weights.
	Apply bool `json:"apply,omitempty"`
}

// RunResponse is the body returned by POST /v1/evaluation/run.
type RunResponse struct {
	Report  *Report `json:"report"`
	Record  Record  `json:"record"`
	Applied bool    `json:"applied"`
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteError(w, apperrors.InvalidRequestError("invalid JSON body"))
			return
		}
	}

	samples := req.Samples
	if len(samples) == 0 {
		samples = h.samples
	}
	grid := h.grid
	if req.Grid != nil {
		grid = *req.Grid
	}

	report, err := h.harness.Run(r.Context(), samples, grid)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	resp := RunResponse{Report: report, Record: NewRecord(report)}
	if req.Apply && h.weights != nil {
		if err := h.weights.Store(report.Best.Weights); err != nil {
			apperrors.WriteError(w, err)
			return
		}
		resp.Applied = true
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
