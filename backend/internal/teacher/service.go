// Package teacher owns the teacher profile aggregate and the class queue
// workflow: a subject moves created -> queued -> completed, with the
// attendance record written at the queued -> completed transition.
package teacher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"attendtrack/backend/internal/identity"
	"attendtrack/backend/internal/records"
	"attendtrack/backend/internal/shared"
)

// casRetries bounds the reload-and-retry loop on profile version conflicts.
const casRetries = 3

// Service coordinates profile mutations and the queue state machine.
type Service struct {
	profiles ProfileStore
	records  *records.Service
}

// NewService creates a teacher service over the given stores.
func NewService(profiles ProfileStore, recs *records.Service) *Service {
	return &Service{profiles: profiles, records: recs}
}

// Sync resolves the principal's profile, creating it on first login.
// UID is the preferred identity; email is the fallback for principals whose
// provider does not issue a stable subject.
func (s *Service) Sync(ctx context.Context, p *identity.Principal) (*shared.TeacherProfile, error) {
	profile, err := s.load(ctx, p)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	uid := p.UID
	if uid == "" {
		uid = p.Email
	}
	now := time.Now()
	profile = &shared.TeacherProfile{
		UID:              uid,
		Email:            p.Email,
		Name:             p.Name,
		CreatedSubjects:  []shared.SubjectEntry{},
		AttendanceQueue:  []shared.QueueItem{},
		CompletedClasses: []shared.CompletedClass{},
		CreatedAt:        now,
	}
	if err := s.profiles.Insert(ctx, profile); err != nil {
		if errors.Is(err, shared.ErrVersionConflict) {
			// Lost the first-sync race; the other request's profile wins.
			return s.load(ctx, p)
		}
		return nil, err
	}
	return profile, nil
}

// Profile returns the principal's profile.
func (s *Service) Profile(ctx context.Context, p *identity.Principal) (*shared.TeacherProfile, error) {
	return s.load(ctx, p)
}

// CreateSubject appends a subject to the teacher's term catalog.
func (s *Service) CreateSubject(ctx context.Context, p *identity.Principal, stream string, semester int32, subject string) (*shared.SubjectEntry, error) {
	stream = strings.ToUpper(strings.TrimSpace(stream))
	subject = strings.ToUpper(strings.TrimSpace(subject))
	if stream == "" || subject == "" {
		return nil, fmt.Errorf("%w: stream and subject are required", shared.ErrValidation)
	}
	if semester < shared.MinSemester || semester > shared.MaxSubjectSemester {
		return nil, fmt.Errorf("%w: semester must be between %d and %d", shared.ErrValidation, shared.MinSemester, shared.MaxSubjectSemester)
	}

	var entry shared.SubjectEntry
	err := s.update(ctx, p, func(profile *shared.TeacherProfile) error {
		entry = shared.SubjectEntry{
			ID:           shared.GenerateSubjectID(),
			Stream:       stream,
			Semester:     semester,
			Subject:      subject,
			TeacherEmail: profile.Email,
			CreatedAt:    time.Now(),
		}
		profile.CreatedSubjects = append(profile.CreatedSubjects, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Enqueue adds a created subject to the teacher's pending queue for today.
// An identical (stream, semester, subject) already in the queue is rejected;
// re-taking a completed class goes through a fresh enqueue instead.
func (s *Service) Enqueue(ctx context.Context, p *identity.Principal, stream string, semester int32, subject string) (*shared.QueueItem, error) {
	stream = strings.ToUpper(strings.TrimSpace(stream))
	subject = strings.ToUpper(strings.TrimSpace(subject))

	var item shared.QueueItem
	err := s.update(ctx, p, func(profile *shared.TeacherProfile) error {
		if !profile.HasSubject(stream, semester, subject) {
			return fmt.Errorf("%w: %s sem %d %s is not in your created subjects", shared.ErrValidation, stream, semester, subject)
		}
		if profile.HasQueuedClass(stream, semester, subject) {
			return fmt.Errorf("%w: %s sem %d %s", shared.ErrDuplicateQueueItem, stream, semester, subject)
		}
		now := time.Now()
		item = shared.QueueItem{
			ID:           shared.GenerateQueueItemID(),
			Stream:       stream,
			Semester:     semester,
			Subject:      subject,
			TeacherEmail: profile.Email,
			AddedAt:      now,
		}
		profile.AttendanceQueue = append(profile.AttendanceQueue, item)
		profile.LastQueueUpdate = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Dequeue removes a pending item without recording attendance.
func (s *Service) Dequeue(ctx context.Context, p *identity.Principal, queueItemID string) error {
	return s.update(ctx, p, func(profile *shared.TeacherProfile) error {
		if profile.FindQueueItem(queueItemID) == nil {
			return fmt.Errorf("%w: %s", shared.ErrQueueItemNotFound, queueItemID)
		}
		profile.AttendanceQueue = removeItem(profile.AttendanceQueue, queueItemID)
		profile.LastQueueUpdate = time.Now()
		return nil
	})
}

// SubmitInput carries the attendance figures for a queued class.
type SubmitInput struct {
	Date                  string // defaults to today
	StudentsPresent       []string
	StudentsTotal         int32
	TotalPossibleStudents int32
	Language              *shared.LanguageInfo
}

// SubmitResult reports the persisted record and the completed-class entry.
type SubmitResult struct {
	Record    *shared.AttendanceRecord `json:"record"`
	Completed shared.CompletedClass    `json:"completed"`
}

// SubmitAttendance completes a queued class: it persists the attendance
// record, removes the item from the queue and appends it to the completed
// history. Validation failures happen before any write. If the record write
// succeeds but the queue move cannot be applied, the record is flagged for
// reconciliation rather than deleted, so the submission is never lost and
// the item is never left in both lists.
func (s *Service) SubmitAttendance(ctx context.Context, p *identity.Principal, queueItemID string, in SubmitInput) (*SubmitResult, error) {
	profile, err := s.load(ctx, p)
	if err != nil {
		return nil, err
	}
	item := profile.FindQueueItem(queueItemID)
	if item == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrQueueItemNotFound, queueItemID)
	}

	date := in.Date
	if date == "" {
		date = time.Now().Format(shared.DateLayout)
	}

	// Record first: the service validates counts and performs no mutation on
	// failure, so a rejected submission leaves the queue untouched.
	rec, err := s.records.Record(ctx, records.Input{
		Date:                  date,
		Stream:                item.Stream,
		Semester:              item.Semester,
		Subject:               item.Subject,
		StudentsPresent:       in.StudentsPresent,
		StudentsTotal:         in.StudentsTotal,
		TotalPossibleStudents: in.TotalPossibleStudents,
		Language:              in.Language,
		TeacherEmail:          profile.Email,
	})
	if err != nil {
		return nil, err
	}

	var completed shared.CompletedClass
	moveErr := s.updateFrom(ctx, p, profile, func(profile *shared.TeacherProfile) error {
		current := profile.FindQueueItem(queueItemID)
		if current == nil {
			// A concurrent request already moved or removed the item; our
			// record stays behind flagged for the reconciliation sweep.
			return fmt.Errorf("%w: %s", shared.ErrQueueItemNotFound, queueItemID)
		}
		now := time.Now()
		completed = shared.CompletedClass{
			ID:           current.ID,
			Stream:       current.Stream,
			Semester:     current.Semester,
			Subject:      current.Subject,
			TeacherEmail: current.TeacherEmail,
			CompletedAt:  now,
		}
		profile.AttendanceQueue = removeItem(profile.AttendanceQueue, queueItemID)
		profile.CompletedClasses = append(profile.CompletedClasses, completed)
		profile.LastQueueUpdate = now
		return nil
	})
	if moveErr != nil {
		if err := s.records.MarkReconciliation(ctx, rec.ID); err != nil {
			log.Printf("WARNING: failed to flag record %s for reconciliation: %v", rec.ID, err)
		}
		return nil, moveErr
	}

	return &SubmitResult{Record: rec, Completed: completed}, nil
}

// ============================================================================
// Internal Helpers
// ============================================================================

func (s *Service) load(ctx context.Context, p *identity.Principal) (*shared.TeacherProfile, error) {
	if p == nil || (p.UID == "" && p.Email == "") {
		return nil, shared.ErrUnauthorized
	}
	if p.UID != "" {
		profile, err := s.profiles.GetByUID(ctx, p.UID)
		if err == nil || !errors.Is(err, shared.ErrNotFound) {
			return profile, err
		}
	}
	if p.Email != "" {
		return s.profiles.GetByEmail(ctx, p.Email)
	}
	return nil, fmt.Errorf("%w: teacher profile", shared.ErrNotFound)
}

// update runs a load-mutate-replace cycle with bounded retries on version
// conflicts. The mutation callback sees a fresh profile on every attempt.
func (s *Service) update(ctx context.Context, p *identity.Principal, mutate func(*shared.TeacherProfile) error) error {
	profile, err := s.load(ctx, p)
	if err != nil {
		return err
	}
	return s.updateFrom(ctx, p, profile, mutate)
}

func (s *Service) updateFrom(ctx context.Context, p *identity.Principal, profile *shared.TeacherProfile, mutate func(*shared.TeacherProfile) error) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		if attempt > 0 {
			var err error
			profile, err = s.load(ctx, p)
			if err != nil {
				return err
			}
		}
		if err := mutate(profile); err != nil {
			return err
		}
		err := s.profiles.Replace(ctx, profile)
		if err == nil {
			return nil
		}
		if !errors.Is(err, shared.ErrVersionConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: profile update contention persisted", shared.ErrUnavailable)
}

func removeItem(queue []shared.QueueItem, id string) []shared.QueueItem {
	out := queue[:0]
	for _, item := range queue {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
