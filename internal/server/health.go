package server

import (
	"net/http"
	"runtime"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Documents int    `json:"documents"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   s.cfg.Version,
		Documents: s.catalog.Len(),
	})
}

// handleReady reports ready once there is a catalog to rank.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.catalog.Len() == 0 {
		apperrors.WriteError(w, apperrors.ServiceUnavailableError("catalog"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": s.cfg.Version,
		"go":      runtime.Version(),
	})
}
