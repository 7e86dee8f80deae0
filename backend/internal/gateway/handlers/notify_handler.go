package handlers

import (
	"io"
	"log"
	"net/http"
	"time"

	"attendtrack/backend/internal/gateway/util"
	"attendtrack/backend/internal/notify"
	"attendtrack/backend/internal/records"
)

// NotifyHandler exposes message dispatch and the provider webhook.
type NotifyHandler struct {
	Client        *notify.Client
	Records       *records.Service
	WebhookSecret string
}

// SendRequest mirrors the JSON input for POST /notify/send.
type SendRequest struct {
	To      string `json:"to" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// BulkSendRequest mirrors the JSON input for POST /notify/bulk.
type BulkSendRequest struct {
	Recipients []string `json:"recipients" validate:"required,min=1"`
	Message    string   `json:"message" validate:"required"`
	DelayMs    int      `json:"delay_ms" validate:"min=0"`
}

// Send handles POST /notify/send. Provider failures come back as a
// structured failure result, not an HTTP error: the messaging path never
// fails the caller's workflow.
func (h *NotifyHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result := h.Client.SendSingle(r.Context(), req.To, req.Message)
	util.WriteJSON(w, http.StatusOK, result)
}

// SendBulk handles POST /notify/bulk.
func (h *NotifyHandler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkSendRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result := h.Client.SendBulk(r.Context(), req.Recipients, req.Message, time.Duration(req.DelayMs)*time.Millisecond)
	util.WriteJSON(w, http.StatusOK, result)
}

// AbsenteeContact pairs an absent student with the number to notify.
type AbsenteeContact struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// AttendanceNoticesRequest mirrors the JSON input for POST /notify/attendance.
type AttendanceNoticesRequest struct {
	RecordID  string            `json:"record_id" validate:"required"`
	Absentees []AbsenteeContact `json:"absentees" validate:"dive"`
	SummaryTo string            `json:"summary_to"`
}

// AttendanceNoticesResponse reports the per-message delivery outcomes.
type AttendanceNoticesResponse struct {
	Absentees []notify.SendResult `json:"absentees"`
	Summary   *notify.SendResult  `json:"summary,omitempty"`
}

// AttendanceNotices handles POST /notify/attendance: composes and sends the
// absence notice for each listed student and, optionally, the class summary
// to a group contact. Message text comes from the stored record, so the
// notices always reflect what was actually recorded.
func (h *NotifyHandler) AttendanceNotices(w http.ResponseWriter, r *http.Request) {
	var req AttendanceNoticesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if len(req.Absentees) == 0 && req.SummaryTo == "" {
		util.WriteJSONError(w, http.StatusBadRequest, "at least one absentee or a summary recipient is required")
		return
	}

	rec, err := h.Records.Get(r.Context(), req.RecordID)
	if err != nil {
		util.HandleServiceError(w, err)
		return
	}

	resp := AttendanceNoticesResponse{Absentees: make([]notify.SendResult, 0, len(req.Absentees))}
	for _, a := range req.Absentees {
		msg := notify.AbsenceMessage(a.Name, rec.Subject, rec.Stream, rec.Semester, rec.Date)
		resp.Absentees = append(resp.Absentees, h.Client.SendSingle(r.Context(), a.Phone, msg))
	}
	if req.SummaryTo != "" {
		msg := notify.ClassSummaryMessage(rec.Subject, rec.Stream, rec.Semester, rec.Date,
			int32(len(rec.StudentsPresent)), rec.StudentsTotal, rec.AttendancePercentage)
		res := h.Client.SendSingle(r.Context(), req.SummaryTo, msg)
		resp.Summary = &res
	}
	util.WriteJSON(w, http.StatusOK, resp)
}

// Webhook handles POST /webhooks/whatsapp: delivery-status callbacks from
// the provider. The body signature must verify before anything is processed.
func (h *NotifyHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if !notify.VerifyWebhookSignature(body, signature, h.WebhookSecret) {
		util.WriteJSONError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	// Status callbacks are informational; log and acknowledge.
	log.Printf("INFO: whatsapp webhook received (%d bytes)", len(body))
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
