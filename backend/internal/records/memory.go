package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"attendtrack/backend/internal/shared"
)

// MemoryStore is an in-memory Store for local development and tests,
// selectable with STORE_BACKEND=memory.
type MemoryStore struct {
	mu   sync.Mutex
	byID map[string]shared.AttendanceRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]shared.AttendanceRecord)}
}

func (s *MemoryStore) Insert(_ context.Context, rec *shared.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[rec.ID] = *rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*shared.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: attendance record %s", shared.ErrNotFound, id)
	}
	return &rec, nil
}

func (s *MemoryStore) Replace(_ context.Context, rec *shared.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[rec.ID]; !ok {
		return fmt.Errorf("%w: attendance record %s", shared.ErrNotFound, rec.ID)
	}
	s.byID[rec.ID] = *rec
	return nil
}

func (s *MemoryStore) CountForDay(_ context.Context, date, stream string, semester int32, subject string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, rec := range s.byID {
		if rec.Date == date && rec.Stream == stream && rec.Semester == semester && rec.Subject == subject {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) FindByDimensions(_ context.Context, date, subject, stream string, semester int32) ([]shared.AttendanceRecord, error) {
	return s.filter(func(rec *shared.AttendanceRecord) bool {
		return rec.Date == date && rec.Subject == subject && rec.Stream == stream && rec.Semester == semester
	}), nil
}

func (s *MemoryStore) FindByStream(_ context.Context, stream string, semester int32, from, to string) ([]shared.AttendanceRecord, error) {
	return s.filter(func(rec *shared.AttendanceRecord) bool {
		if rec.Stream != stream || rec.Semester != semester {
			return false
		}
		if from != "" && rec.Date < from {
			return false
		}
		if to != "" && rec.Date > to {
			return false
		}
		return true
	}), nil
}

func (s *MemoryStore) MarkReconciliation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: attendance record %s", shared.ErrNotFound, id)
	}
	rec.NeedsReconciliation = true
	rec.LastUpdated = time.Now()
	s.byID[id] = rec
	return nil
}

func (s *MemoryStore) filter(keep func(*shared.AttendanceRecord) bool) []shared.AttendanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shared.AttendanceRecord
	for _, rec := range s.byID {
		if keep(&rec) {
			out = append(out, rec)
		}
	}
	// Newest-created first, matching the Mongo store's sort.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
