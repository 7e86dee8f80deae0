package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"attendtrack/backend/internal/cache"
	"attendtrack/backend/internal/gateway/util"
	"attendtrack/backend/internal/records"
	"attendtrack/backend/internal/shared"
)

// RecordsHandler exposes attendance record lookup and correction.
type RecordsHandler struct {
	Records *records.Service
	Cache   *cache.SummaryCache // nil disables invalidation
}

// UpdateRecordRequest mirrors the JSON input for PATCH /records/{id}.
// Pointer fields distinguish "leave unchanged" from zero values.
type UpdateRecordRequest struct {
	StudentsPresent       *[]string            `json:"students_present,omitempty"`
	StudentsTotal         *int32               `json:"students_total,omitempty" validate:"omitempty,min=0"`
	TotalPossibleStudents *int32               `json:"total_possible_students,omitempty" validate:"omitempty,min=0"`
	Language              *shared.LanguageInfo `json:"language,omitempty"`
}

// recordView decorates a record with its derived classification, which is
// computed on read and never persisted.
type recordView struct {
	shared.AttendanceRecord
	Status string `json:"status"`
}

func toView(rec *shared.AttendanceRecord) recordView {
	return recordView{AttendanceRecord: *rec, Status: rec.Status()}
}

// ListByDimensions handles GET /records. With date and subject set it returns
// the attempts for that exact class session; without them it lists the
// stream/semester, optionally bounded by from/to dates, for dashboards.
func (h *RecordsHandler) ListByDimensions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	semester, err := strconv.Atoi(q.Get("semester"))
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "semester must be an integer")
		return
	}

	var recs []shared.AttendanceRecord
	if q.Get("date") == "" && q.Get("subject") == "" {
		recs, err = h.Records.FindByStream(r.Context(), q.Get("stream"), int32(semester), q.Get("from"), q.Get("to"))
	} else {
		recs, err = h.Records.FindByDimensions(r.Context(), q.Get("date"), q.Get("subject"), q.Get("stream"), int32(semester))
	}
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	views := make([]recordView, 0, len(recs))
	for i := range recs {
		views = append(views, toView(&recs[i]))
	}
	util.WriteJSON(w, http.StatusOK, views)
}

// GetRecord handles GET /records/{id}.
func (h *RecordsHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, toView(rec))
}

// UpdateRecord handles PATCH /records/{id}: the explicit correction path.
func (h *RecordsHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rec, err := h.Records.Update(r.Context(), chi.URLParam(r, "id"), records.Patch{
		StudentsPresent:       req.StudentsPresent,
		StudentsTotal:         req.StudentsTotal,
		TotalPossibleStudents: req.TotalPossibleStudents,
		Language:              req.Language,
	})
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	h.Cache.InvalidateStream(r.Context(), rec.Stream, rec.Semester)
	util.WriteJSON(w, http.StatusOK, toView(rec))
}
