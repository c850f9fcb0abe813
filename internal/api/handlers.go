package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sylva-labs/algorun/internal/ledger"
)

// orderSummary is the list projection of a run order: identity and
// descriptor only, no raw source.
type orderSummary struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Algorithm ledger.Algorithm `json:"algorithm"`
	Dataset   string           `json:"dataset,omitempty"`
	LocalPath string           `json:"localPath,omitempty"`
}

// runSummary is the list projection of a run.
type runSummary struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Start  time.Time  `json:"start"`
	End    *time.Time `json:"end,omitempty"`
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.store.ListOrders(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}

	out := make([]orderSummary, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderSummary{
			ID:        o.ID,
			Status:    string(o.Status),
			Algorithm: o.Algorithm,
			Dataset:   o.Dataset,
			LocalPath: o.LocalPath,
		})
	}
	s.writeJSON(w, out)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	ord, err := s.store.GetOrder(r.Context(), orderID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if ord == nil {
		http.NotFound(w, r)
		return
	}

	runs, err := s.store.ListRuns(r.Context(), orderID)
	if err != nil {
		s.serverError(w, err)
		return
	}

	out := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, runSummary{
			ID:     run.ID,
			Status: string(run.Status),
			Start:  run.Start,
			End:    run.End,
		})
	}
	s.writeJSON(w, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	runID := chi.URLParam(r, "runID")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if run == nil || run.OrderID != orderID {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, run)
}

// handleDownloadFile serves one collected output file. The requested
// path must match an entry of the run's recorded manifest; files that
// happen to exist on disk but are not in the manifest are not served.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	relPath := chi.URLParam(r, "*")

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if run == nil {
		http.NotFound(w, r)
		return
	}

	for _, f := range run.OutputFiles {
		if f.FilePath == relPath {
			http.ServeFile(w, r, filepath.Join(s.outputPath, runID, filepath.FromSlash(relPath)))
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
