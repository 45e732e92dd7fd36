package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/schema"
	"github.com/felipemarinho97/torrent-aggregator/search"
	"github.com/felipemarinho97/torrent-aggregator/utils"
)

type Response struct {
	Results []schema.Movie `json:"results"`
	Count   int            `json:"count"`
	Message string         `json:"message,omitempty"`
}

type SourcesResponse struct {
	Categories []schema.CategoryGroup `json:"categories"`
	// Available lists the ids of the sources that can actually be searched.
	Available []string `json:"available"`
}

func (h *Handler) HandlerSources(w http.ResponseWriter, r *http.Request) {
	available := []string{}
	for _, s := range h.searcher.Sources() {
		available = append(available, s.ID)
	}
	writeJSON(w, r, http.StatusOK, SourcesResponse{
		Categories: schema.SourcesByCategory(),
		Available:  available,
	})
}

// HandlerSearch supports the query params q, source, limit and enrich.
// enrich is "true"/"all" for every metadata source or a comma separated list.
func (h *Handler) HandlerSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := strings.TrimSpace(params.Get("q"))
	if q == "" {
		writeError(w, r, http.StatusBadRequest, MsgEmptyQuery)
		return
	}

	limit := 0
	if raw := params.Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
	}

	var opts []search.SearchOption
	switch enrich := strings.TrimSpace(params.Get("enrich")); strings.ToLower(enrich) {
	case "", "false", "0":
	case "true", "all", "1":
		opts = append(opts, search.WithEnrichment())
	default:
		opts = append(opts, search.WithEnrichment(splitList(enrich)...))
	}

	movies, err := h.searcher.Search(r.Context(), q, params.Get("source"), limit, opts...)
	if err != nil {
		status, msg := UserMessage(err)
		logging.WarnWithRequest(r).Err(err).Int("status", status).Msg("Search request failed")
		writeError(w, r, status, msg)
		return
	}

	resp := Response{Results: movies, Count: len(movies)}
	if len(movies) == 0 {
		resp.Results = []schema.Movie{}
		resp.Message = MsgNoResults
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandlerMetadata supports the query params title, year and sources.
func (h *Handler) HandlerMetadata(w http.ResponseWriter, r *http.Request) {
	if h.metadata == nil {
		writeError(w, r, http.StatusServiceUnavailable, "metadata lookups are not configured")
		return
	}

	params := r.URL.Query()
	title := strings.TrimSpace(params.Get("title"))
	if title == "" {
		writeError(w, r, http.StatusBadRequest, MsgEmptyQuery)
		return
	}
	year := 0
	if raw := params.Get("year"); raw != "" {
		var err error
		year, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid year parameter")
			return
		}
	}

	writeJSON(w, r, http.StatusOK, h.metadata.GetMetadata(r.Context(), title, year, splitList(params.Get("sources"))...))
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return utils.Filter(parts, func(s string) bool { return s != "" })
}
