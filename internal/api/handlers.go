package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pipeline"
)

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	pipeline *pipeline.Pipeline
	opts     pipeline.Options
}

// NewHandlers creates the handler set.
func NewHandlers(p *pipeline.Pipeline, opts pipeline.Options) *Handlers {
	return &Handlers{pipeline: p, opts: opts}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type syncRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	UserID    string `json:"user_id"`
	NewSource string `json:"new_source,omitempty"`
}

// TriggerSync runs the aggregation pipeline for a brand and date range
// and returns the full SyncResult. The pipeline itself never errors
// out of band; a failed run is a 200 with success=false so callers
// always get the structured result.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	brandID := chi.URLParam(r, "brandID")

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date, want YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date, want YYYY-MM-DD"})
		return
	}
	// The range is half-open; make the end date itself part of it.
	end = end.AddDate(0, 0, 1)

	opts := h.opts
	switch req.NewSource {
	case "":
	case string(domain.SourceMeta), string(domain.SourceGoogle), string(domain.SourceShopify):
		opts.NewSource = domain.Source(req.NewSource)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid new_source"})
		return
	}

	result := h.pipeline.Run(r.Context(), brandID, req.UserID, start, end, opts)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
