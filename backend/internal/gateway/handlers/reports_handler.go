package handlers

import (
	"net/http"
	"strconv"

	"attendtrack/backend/internal/cache"
	"attendtrack/backend/internal/gateway/util"
	"attendtrack/backend/internal/records"
)

// ReportsHandler exposes read-only rollups over the record store.
type ReportsHandler struct {
	Records *records.Service
	Cache   *cache.SummaryCache // nil disables caching
}

// GetSummary handles GET /reports/summary?stream=&semester=&from=&to=.
func (h *ReportsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	semester, err := strconv.Atoi(q.Get("semester"))
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "semester must be an integer")
		return
	}
	stream, from, to := q.Get("stream"), q.Get("from"), q.Get("to")

	key := cache.Key(stream, int32(semester), from, to)
	var cached records.Summary
	if h.Cache.Get(r.Context(), key, &cached) {
		util.WriteJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := h.Records.Summarize(r.Context(), stream, int32(semester), from, to)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	h.Cache.Put(r.Context(), key, summary)
	util.WriteJSON(w, http.StatusOK, summary)
}
