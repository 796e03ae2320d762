package server

import (
	"net/http"
	"time"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
	"github.com/ricesearch/relevance/internal/pkg/security"
	"github.com/ricesearch/relevance/internal/query"
	"github.com/ricesearch/relevance/internal/search"
	"github.com/ricesearch/relevance/internal/synonym"
)

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query            string          `json:"query"`
	Limit            int             `json:"limit,omitempty"`
	MaxPerCategory   int             `json:"max_per_category,omitempty"`
	IncludeUnmatched bool            `json:"include_unmatched,omitempty"`
	Weights          *search.Weights `json:"weights,omitempty"`

	// Plain skips query syntax and ranks with the bare scorer.
	Plain bool `json:"plain,omitempty"`
}

// SearchResponse is the body returned by POST /v1/search.
type SearchResponse struct {
	*search.QueryResponse
	LatencyMS int64 `json:"latency_ms"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, err)
		return
	}

	v := security.SearchRequestValidator{
		Query:          req.Query,
		Limit:          req.Limit,
		MaxPerCategory: req.MaxPerCategory,
		MaxQueryLength: s.cfg.Security.MaxQueryLength,
		MaxLimit:       s.cfg.MaxLimit,
	}
	if err := v.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Weights != nil {
		if err := req.Weights.Validate(); err != nil {
			apperrors.WriteError(w, err)
			return
		}
	}
	if req.Limit == 0 {
		req.Limit = s.cfg.DefaultLimit
	}

	var resp *search.QueryResponse
	if req.Plain {
		resp = s.plainSearch(req)
	} else {
		resp = s.engine.Query(r.Context(), s.catalog, req.Query, search.QueryOptions{
			Weights:          req.Weights,
			Limit:            req.Limit,
			MaxPerCategory:   req.MaxPerCategory,
			IncludeUnmatched: req.IncludeUnmatched,
		})
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		QueryResponse: resp,
		LatencyMS:     time.Since(start).Milliseconds(),
	})
}

// plainSearch ranks the catalog with the bare scorer and shapes the result
// the way Query does.
func (s *Server) plainSearch(req SearchRequest) *search.QueryResponse {
	results, total := search.Shape(s.engine.Rank(s.catalog, req.Query, req.Weights), search.QueryOptions{
		Limit:            req.Limit,
		MaxPerCategory:   req.MaxPerCategory,
		IncludeUnmatched: req.IncludeUnmatched,
	})
	return &search.QueryResponse{Query: req.Query, Results: results, Total: total}
}

// ExplainRequest is the body of POST /v1/explain. It names a catalog
// document by ID or carries one inline.
type ExplainRequest struct {
	Query      string           `json:"query"`
	DocumentID string           `json:"document_id,omitempty"`
	Document   *search.Document `json:"document,omitempty"`
	Weights    *search.Weights  `json:"weights,omitempty"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, err)
		return
	}
	if err := security.ValidateQuery(req.Query, s.cfg.Security.MaxQueryLength); err != nil {
		writeValidationError(w, err)
		return
	}
	if req.Weights != nil {
		if err := req.Weights.Validate(); err != nil {
			apperrors.WriteError(w, err)
			return
		}
	}

	doc, err := s.resolveDocument(req.DocumentID, req.Document)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.engine.Explain(doc, req.Query, req.Weights))
}

// ParseRequest is the body of POST /v1/parse.
type ParseRequest struct {
	Query string `json:"query"`
}

// ParseResponse is the body returned by POST /v1/parse.
type ParseResponse struct {
	Parsed    query.Parsed `json:"parsed"`
	Validated query.Parsed `json:"validated"`
	Clamped   bool         `json:"clamped"`
	Empty     bool         `json:"empty"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, err)
		return
	}
	if err := security.ValidateQuery(req.Query, s.cfg.Security.MaxQueryLength); err != nil {
		writeValidationError(w, err)
		return
	}

	parsed := query.Parse(req.Query)
	validated := query.Validate(parsed, s.engine.Limits())

	writeJSON(w, http.StatusOK, ParseResponse{
		Parsed:    parsed,
		Validated: validated,
		Clamped: len(parsed.Positive) != len(validated.Positive) ||
			len(parsed.Negatives) != len(validated.Negatives) ||
			len(parsed.Phrases) != len(validated.Phrases),
		Empty: validated.IsEmpty(),
	})
}

// MatchRequest is the body of POST /v1/match. Keywords come from the named
// catalog document when DocumentID is set.
type MatchRequest struct {
	Query      string   `json:"query"`
	Keywords   []string `json:"keywords,omitempty"`
	DocumentID string   `json:"document_id,omitempty"`
}

// MatchResponse is the body returned by POST /v1/match.
type MatchResponse struct {
	Matches          bool         `json:"matches"`
	NegativeExcluded bool         `json:"negative_excluded"`
	PhrasesCovered   bool         `json:"phrases_covered"`
	PositivesCovered bool         `json:"positives_covered"`
	Parsed           query.Parsed `json:"parsed"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, err)
		return
	}
	if err := security.ValidateQuery(req.Query, s.cfg.Security.MaxQueryLength); err != nil {
		writeValidationError(w, err)
		return
	}

	keywords := req.Keywords
	if req.DocumentID != "" {
		doc, err := s.resolveDocument(req.DocumentID, nil)
		if err != nil {
			apperrors.WriteError(w, err)
			return
		}
		keywords = doc.Keywords
	}

	p := query.Validate(query.Parse(req.Query), s.engine.Limits())
	writeJSON(w, http.StatusOK, MatchResponse{
		Matches:          query.Matches(keywords, p),
		NegativeExcluded: query.NegativeExcluded(keywords, p),
		PhrasesCovered:   query.PhrasesCovered(keywords, p),
		PositivesCovered: query.PositivesCovered(keywords, p),
		Parsed:           p,
	})
}

// ExpandResponse is the body returned by POST /v1/expand.
type ExpandResponse struct {
	Base     []string `json:"base"`
	Expanded []string `json:"expanded"`
	Synonyms []string `json:"synonyms"`
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := decodeJSON(r, &req); err != nil {
		apperrors.WriteError(w, err)
		return
	}
	if err := security.ValidateQuery(req.Query, s.cfg.Security.MaxQueryLength); err != nil {
		writeValidationError(w, err)
		return
	}

	base, expanded := s.engine.Expand(req.Query)
	writeJSON(w, http.StatusOK, ExpandResponse{
		Base:     base,
		Expanded: expanded,
		Synonyms: synonym.PureSynonyms(base, expanded),
	})
}

// DocumentList is the body returned by GET /v1/documents.
type DocumentList struct {
	Documents []search.Document `json:"documents"`
	Total     int               `json:"total"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	docs := s.catalog.Documents()
	if category != "" {
		filtered := docs[:0]
		for _, d := range docs {
			if d.Category == category {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}

	writeJSON(w, http.StatusOK, DocumentList{Documents: docs, Total: len(docs)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.resolveDocument(r.PathValue("id"), nil)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// resolveDocument returns inline when set, otherwise the catalog document
// with the given ID.
func (s *Server) resolveDocument(id string, inline *search.Document) (search.Document, error) {
	if inline != nil {
		return *inline, nil
	}
	if err := security.ValidateDocumentID(id); err != nil {
		if ve, ok := err.(*security.ValidationError); ok {
			return search.Document{}, ve.AppError()
		}
		return search.Document{}, err
	}

	doc, ok := s.catalog.Get(id)
	if !ok {
		return search.Document{}, apperrors.NotFoundError("document").WithDetail("id", security.SanitizeForLog(id))
	}
	return doc, nil
}

func writeValidationError(w http.ResponseWriter, err error) {
	if ve, ok := err.(*security.ValidationError); ok {
		apperrors.WriteError(w, ve.AppError())
		return
	}
	apperrors.WriteError(w, err)
}
