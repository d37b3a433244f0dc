package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/history"
)

// handleListHistory lists recent runs, newest first.
//
// Query parameters: limit, offset, file_type, crm, since.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	since, err := parseTimeParam(r, "since")
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	fileType, err := core.ParseFileType(r.URL.Query().Get("file_type"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	opts := history.ListOptions{
		FileType: fileType,
		CRM:      r.URL.Query().Get("crm"),
		Since:    since,
		Limit:    parseIntParam(r, "limit", s.cfg.History.ListLimit),
		Offset:   parseIntParam(r, "offset", 0),
	}

	runs, err := s.history.Recent(r.Context(), opts)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns one run report.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := s.history.Get(r.Context(), runID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, run)
}
