package teacher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"attendtrack/backend/internal/shared"
)

// MemoryProfileStore is an in-memory ProfileStore for local development and
// tests, selectable with STORE_BACKEND=memory. It mirrors the Mongo store's
// compare-and-swap semantics.
type MemoryProfileStore struct {
	mu    sync.Mutex
	byUID map[string]shared.TeacherProfile
}

// NewMemoryProfileStore creates an empty in-memory store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{byUID: make(map[string]shared.TeacherProfile)}
}

func (s *MemoryProfileStore) GetByUID(_ context.Context, uid string) (*shared.TeacherProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byUID[uid]
	if !ok {
		return nil, fmt.Errorf("%w: teacher profile", shared.ErrNotFound)
	}
	cp := clone(p)
	return &cp, nil
}

func (s *MemoryProfileStore) GetByEmail(_ context.Context, email string) (*shared.TeacherProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byUID {
		if p.Email == email {
			cp := clone(p)
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: teacher profile", shared.ErrNotFound)
}

func (s *MemoryProfileStore) Insert(_ context.Context, p *shared.TeacherProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUID[p.UID]; ok {
		return fmt.Errorf("%w: profile %s already exists", shared.ErrVersionConflict, p.UID)
	}
	s.byUID[p.UID] = clone(*p)
	return nil
}

func (s *MemoryProfileStore) Replace(_ context.Context, p *shared.TeacherProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byUID[p.UID]
	if !ok || stored.Version != p.Version {
		return fmt.Errorf("%w: profile %s", shared.ErrVersionConflict, p.UID)
	}
	next := clone(*p)
	next.Version = p.Version + 1
	next.UpdatedAt = time.Now()
	s.byUID[p.UID] = next
	*p = clone(next)
	return nil
}

// clone deep-copies the embedded slices so callers never alias stored state.
func clone(p shared.TeacherProfile) shared.TeacherProfile {
	cp := p
	cp.CreatedSubjects = append([]shared.SubjectEntry(nil), p.CreatedSubjects...)
	cp.AttendanceQueue = append([]shared.QueueItem(nil), p.AttendanceQueue...)
	cp.CompletedClasses = append([]shared.CompletedClass(nil), p.CompletedClasses...)
	return cp
}
