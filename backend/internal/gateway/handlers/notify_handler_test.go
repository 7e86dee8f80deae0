package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"attendtrack/backend/internal/notify"
	"attendtrack/backend/internal/records"
)

// capturingProvider records every message body the handler sends out.
type capturingProvider struct {
	mu     sync.Mutex
	bodies []string
}

func (p *capturingProvider) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To   string `json:"to"`
			Body string `json:"body"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		p.mu.Lock()
		p.bodies = append(p.bodies, req.Body)
		p.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"message_id": "wamid." + req.To})
	}
}

func TestAttendanceNotices(t *testing.T) {
	provider := &capturingProvider{}
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	recordService := records.NewService(records.NewMemoryStore())
	rec, err := recordService.Record(context.Background(), records.Input{
		Date:                  "2026-03-02",
		Stream:                "CSE",
		Semester:              3,
		Subject:               "DBMS",
		StudentsPresent:       []string{"S1", "S2", "S3"},
		StudentsTotal:         5,
		TotalPossibleStudents: 5,
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}

	h := &NotifyHandler{
		Client: notify.NewClient(notify.Config{
			APIURL:         srv.URL,
			RequestTimeout: 2 * time.Second,
			MaxRetries:     1,
		}),
		Records: recordService,
	}

	post := func(t *testing.T, payload interface{}) *httptest.ResponseRecorder {
		t.Helper()
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/notify/attendance", bytes.NewReader(body))
		h.AttendanceNotices(w, r)
		return w
	}

	t.Run("sends absence notices and the class summary", func(t *testing.T) {
		provider.bodies = nil
		w := post(t, AttendanceNoticesRequest{
			RecordID: rec.ID,
			Absentees: []AbsenteeContact{
				{Name: "Asha R", Phone: "9876543210"},
				{Name: "Kiran S", Phone: "9876543211"},
			},
			SummaryTo: "9876543299",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}

		var envelope struct {
			Data AttendanceNoticesResponse `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(envelope.Data.Absentees) != 2 {
			t.Fatalf("got %d absentee results, want 2", len(envelope.Data.Absentees))
		}
		for _, res := range envelope.Data.Absentees {
			if !res.Success {
				t.Errorf("absentee result = %+v, want success", res)
			}
		}
		if envelope.Data.Summary == nil || !envelope.Data.Summary.Success {
			t.Errorf("summary result = %+v, want success", envelope.Data.Summary)
		}

		if len(provider.bodies) != 3 {
			t.Fatalf("provider received %d messages, want 3", len(provider.bodies))
		}
		for _, want := range []string{"Asha R", "DBMS", "ABSENT"} {
			if !strings.Contains(provider.bodies[0], want) {
				t.Errorf("absence notice missing %q: %s", want, provider.bodies[0])
			}
		}
		if !strings.Contains(provider.bodies[2], "3/5") {
			t.Errorf("summary message missing recorded counts: %s", provider.bodies[2])
		}
	})

	t.Run("unknown record", func(t *testing.T) {
		w := post(t, AttendanceNoticesRequest{
			RecordID:  "REC_missing",
			Absentees: []AbsenteeContact{{Name: "Asha R", Phone: "9876543210"}},
		})
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("no recipients at all", func(t *testing.T) {
		w := post(t, AttendanceNoticesRequest{RecordID: rec.ID})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("absentee missing a phone", func(t *testing.T) {
		w := post(t, AttendanceNoticesRequest{
			RecordID:  rec.ID,
			Absentees: []AbsenteeContact{{Name: "Asha R"}},
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}
