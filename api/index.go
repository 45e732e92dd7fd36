package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/consts"
	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/metadata"
	"github.com/felipemarinho97/torrent-aggregator/search"
	"github.com/gorilla/mux"
)

type Handler struct {
	searcher *search.Searcher
	metadata *metadata.Manager
}

// New builds the HTTP handlers. manager may be nil, in which case metadata
// lookups are refused.
func New(searcher *search.Searcher, manager *metadata.Manager) *Handler {
	return &Handler{searcher: searcher, metadata: manager}
}

func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", HandlerIndex).Methods(http.MethodGet)
	r.HandleFunc("/sources", h.HandlerSources).Methods(http.MethodGet)
	r.HandleFunc("/search", h.HandlerSearch).Methods(http.MethodGet)
	r.HandleFunc("/metadata", h.HandlerMetadata).Methods(http.MethodGet)
	return logging.HTTPLoggingMiddleware(r)
}

func HandlerIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"time":  time.Now().Format(time.RFC850),
		"build": consts.GetBuildInfo(),
		"endpoints": map[string]string{
			"/sources":  "sources grouped by category",
			"/search":   "q, source, limit, enrich",
			"/metadata": "title, year, sources",
		},
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.ErrorWithRequest(r).Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}
