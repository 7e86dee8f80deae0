package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"attendtrack/backend/internal/cache"
	"attendtrack/backend/internal/gateway/util"
	"attendtrack/backend/internal/identity"
	"attendtrack/backend/internal/shared"
	"attendtrack/backend/internal/teacher"
)

// validate checks request DTO tags before anything reaches the services.
var validate = validator.New()

// TeacherHandler exposes profile, subject and queue operations.
type TeacherHandler struct {
	Teachers *teacher.Service
	Cache    *cache.SummaryCache // nil disables invalidation
}

// SyncRequest has no body; the principal comes from the verified token.

// CreateSubjectRequest mirrors the JSON input for POST /subjects.
type CreateSubjectRequest struct {
	Stream   string `json:"stream" validate:"required"`
	Semester int32  `json:"semester" validate:"required,min=1,max=6"`
	Subject  string `json:"subject" validate:"required"`
}

// EnqueueRequest mirrors the JSON input for POST /queue.
type EnqueueRequest struct {
	Stream   string `json:"stream" validate:"required"`
	Semester int32  `json:"semester" validate:"required,min=1,max=8"`
	Subject  string `json:"subject" validate:"required"`
}

// SubmitAttendanceRequest mirrors the JSON input for POST /queue/{id}/attendance.
type SubmitAttendanceRequest struct {
	Date                  string               `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StudentsPresent       []string             `json:"students_present"`
	StudentsTotal         int32                `json:"students_total" validate:"min=0"`
	TotalPossibleStudents int32                `json:"total_possible_students" validate:"min=0"`
	Language              *shared.LanguageInfo `json:"language,omitempty"`
}

// Sync handles POST /auth/sync: first call creates the profile.
func (h *TeacherHandler) Sync(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Teachers.Sync(r.Context(), identity.FromRequest(r))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, profile)
}

// GetProfile handles GET /profile.
func (h *TeacherHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Teachers.Profile(r.Context(), identity.FromRequest(r))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, profile)
}

// CreateSubject handles POST /subjects.
func (h *TeacherHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req CreateSubjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := h.Teachers.CreateSubject(r.Context(), identity.FromRequest(r), req.Stream, req.Semester, req.Subject)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, entry)
}

// ListSubjects handles GET /subjects.
func (h *TeacherHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Teachers.Profile(r.Context(), identity.FromRequest(r))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, profile.CreatedSubjects)
}

// GetQueue handles GET /queue.
func (h *TeacherHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Teachers.Profile(r.Context(), identity.FromRequest(r))
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"attendance_queue":  profile.AttendanceQueue,
		"completed_classes": profile.CompletedClasses,
		"last_queue_update": profile.LastQueueUpdate,
	})
}

// Enqueue handles POST /queue.
func (h *TeacherHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.Teachers.Enqueue(r.Context(), identity.FromRequest(r), req.Stream, req.Semester, req.Subject)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, item)
}

// Dequeue handles DELETE /queue/{id}.
func (h *TeacherHandler) Dequeue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Teachers.Dequeue(r.Context(), identity.FromRequest(r), id); err != nil {
		util.HandleServiceError(w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"removed": id})
}

// SubmitAttendance handles POST /queue/{id}/attendance.
func (h *TeacherHandler) SubmitAttendance(w http.ResponseWriter, r *http.Request) {
	var req SubmitAttendanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.Teachers.SubmitAttendance(r.Context(), identity.FromRequest(r), chi.URLParam(r, "id"), teacher.SubmitInput{
		Date:                  req.Date,
		StudentsPresent:       req.StudentsPresent,
		StudentsTotal:         req.StudentsTotal,
		TotalPossibleStudents: req.TotalPossibleStudents,
		Language:              req.Language,
	})
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}
	h.Cache.InvalidateStream(r.Context(), result.Record.Stream, result.Record.Semester)
	util.WriteJSON(w, http.StatusCreated, result)
}

// decodeAndValidate decodes the JSON body into dst and runs the validator,
// writing the 400 response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
