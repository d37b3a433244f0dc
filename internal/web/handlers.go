package web

import (
	"net/http"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/history"
)

// serviceInfo describes one service in the catalogue.
type serviceInfo struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	FileTypes   []core.FileType `json:"file_types"`
	Formats     []core.Format   `json:"export_formats"`
	Dialects    []dialectInfo   `json:"crm_dialects"`
}

type dialectInfo struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Fields int    `json:"fields"`
}

// handleHealth reports liveness and run capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, historyOff := s.history.(history.Disabled)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"runs":    s.limiter.Status(),
		"history": !historyOff,
	})
}

// handleListServices returns the service catalogue.
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	dialects := core.Dialects()
	infos := make([]dialectInfo, len(dialects))
	for i, d := range dialects {
		infos[i] = dialectInfo{Name: d.Name, Label: d.Label, Fields: len(d.Fields)}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"services": []serviceInfo{{
			ID:          "data-clean",
			Name:        "Data Clean Engine",
			Description: "Cleans, standardizes, and fixes messy CSV, TSV, JSON and Excel files",
			Category:    "data",
			FileTypes:   []core.FileType{core.FileCSV, core.FileTSV, core.FileJSON, core.FileExcel},
			Formats:     core.AllFormats,
			Dialects:    infos,
		}},
	})
}
