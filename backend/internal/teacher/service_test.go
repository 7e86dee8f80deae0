package teacher

import (
	"context"
	"errors"
	"testing"

	"attendtrack/backend/internal/identity"
	"attendtrack/backend/internal/records"
	"attendtrack/backend/internal/shared"
)

func testPrincipal() *identity.Principal {
	return &identity.Principal{
		UID:   "teacher-uid-1",
		Email: "teacher@example.edu",
		Name:  "Test Teacher",
	}
}

func newTestServices() (*Service, *records.Service) {
	recordService := records.NewService(records.NewMemoryStore())
	return NewService(NewMemoryProfileStore(), recordService), recordService
}

// syncWithSubject returns a service whose principal already has DBMS in the
// catalog, the common starting point for queue tests.
func syncWithSubject(t *testing.T) (*Service, *records.Service, *identity.Principal) {
	t.Helper()
	svc, recs := newTestServices()
	p := testPrincipal()
	ctx := context.Background()
	if _, err := svc.Sync(ctx, p); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if _, err := svc.CreateSubject(ctx, p, "CSE", 3, "DBMS"); err != nil {
		t.Fatalf("CreateSubject failed: %v", err)
	}
	return svc, recs, p
}

func validSubmit() SubmitInput {
	return SubmitInput{
		StudentsPresent:       []string{"S1", "S2", "S3", "S4"},
		StudentsTotal:         5,
		TotalPossibleStudents: 8,
	}
}

func TestSync(t *testing.T) {
	ctx := context.Background()

	t.Run("first login creates an empty profile", func(t *testing.T) {
		svc, _ := newTestServices()
		profile, err := svc.Sync(ctx, testPrincipal())
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if profile.UID != "teacher-uid-1" || profile.Email != "teacher@example.edu" {
			t.Errorf("profile identity = %s/%s", profile.UID, profile.Email)
		}
		if len(profile.CreatedSubjects)+len(profile.AttendanceQueue)+len(profile.CompletedClasses) != 0 {
			t.Error("new profile must start with empty collections")
		}
	})

	t.Run("second login returns the same profile", func(t *testing.T) {
		svc, _ := newTestServices()
		p := testPrincipal()
		if _, err := svc.Sync(ctx, p); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.CreateSubject(ctx, p, "CSE", 3, "DBMS"); err != nil {
			t.Fatal(err)
		}
		profile, err := svc.Sync(ctx, p)
		if err != nil {
			t.Fatalf("second Sync failed: %v", err)
		}
		if len(profile.CreatedSubjects) != 1 {
			t.Errorf("got %d subjects, want the existing catalog back", len(profile.CreatedSubjects))
		}
	})

	t.Run("falls back to email when provider has no stable subject", func(t *testing.T) {
		svc, _ := newTestServices()
		p := &identity.Principal{Email: "nouid@example.edu", Name: "No UID"}
		profile, err := svc.Sync(ctx, p)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if profile.UID != "nouid@example.edu" {
			t.Errorf("uid = %s, want the email fallback", profile.UID)
		}
		if _, err := svc.Profile(ctx, p); err != nil {
			t.Errorf("Profile by email failed: %v", err)
		}
	})

	t.Run("anonymous principal is rejected", func(t *testing.T) {
		svc, _ := newTestServices()
		if _, err := svc.Sync(ctx, &identity.Principal{}); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("Sync error = %v, want ErrUnauthorized", err)
		}
	})
}

func TestCreateSubject(t *testing.T) {
	ctx := context.Background()

	t.Run("appends to the catalog", func(t *testing.T) {
		svc, _ := newTestServices()
		p := testPrincipal()
		if _, err := svc.Sync(ctx, p); err != nil {
			t.Fatal(err)
		}
		entry, err := svc.CreateSubject(ctx, p, "cse", 3, "dbms")
		if err != nil {
			t.Fatalf("CreateSubject failed: %v", err)
		}
		if entry.Stream != "CSE" || entry.Subject != "DBMS" {
			t.Errorf("entry = %+v, want uppercased codes", entry)
		}
		if entry.TeacherEmail != p.Email {
			t.Errorf("teacher email = %s, want %s", entry.TeacherEmail, p.Email)
		}
	})

	t.Run("semester bounds", func(t *testing.T) {
		svc, _ := newTestServices()
		p := testPrincipal()
		if _, err := svc.Sync(ctx, p); err != nil {
			t.Fatal(err)
		}
		for _, sem := range []int32{0, 7, -1} {
			if _, err := svc.CreateSubject(ctx, p, "CSE", sem, "DBMS"); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("semester %d: error = %v, want ErrValidation", sem, err)
			}
		}
	})
}

func TestEnqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("queues a created subject", func(t *testing.T) {
		svc, _, p := syncWithSubject(t)
		item, err := svc.Enqueue(ctx, p, "CSE", 3, "DBMS")
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if item.ID == "" || item.Subject != "DBMS" {
			t.Errorf("item = %+v", item)
		}
		profile, _ := svc.Profile(ctx, p)
		if len(profile.AttendanceQueue) != 1 {
			t.Errorf("queue length = %d, want 1", len(profile.AttendanceQueue))
		}
		if profile.LastQueueUpdate.IsZero() {
			t.Error("LastQueueUpdate must be set")
		}
	})

	t.Run("rejects subjects missing from the catalog", func(t *testing.T) {
		svc, _, p := syncWithSubject(t)
		if _, err := svc.Enqueue(ctx, p, "CSE", 3, "OS"); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("Enqueue error = %v, want ErrValidation", err)
		}
	})

	t.Run("duplicate enqueue leaves the queue unchanged", func(t *testing.T) {
		svc, _, p := syncWithSubject(t)
		if _, err := svc.Enqueue(ctx, p, "CSE", 3, "DBMS"); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Enqueue(ctx, p, "cse", 3, "dbms"); !errors.Is(err, shared.ErrDuplicateQueueItem) {
			t.Fatalf("Enqueue error = %v, want ErrDuplicateQueueItem", err)
		}
		profile, _ := svc.Profile(ctx, p)
		if len(profile.AttendanceQueue) != 1 {
			t.Errorf("queue length = %d, want 1", len(profile.AttendanceQueue))
		}
	})
}

func TestDequeue(t *testing.T) {
	ctx := context.Background()
	svc, _, p := syncWithSubject(t)
	item, err := svc.Enqueue(ctx, p, "CSE", 3, "DBMS")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Dequeue(ctx, p, item.ID); err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	profile, _ := svc.Profile(ctx, p)
	if len(profile.AttendanceQueue) != 0 {
		t.Errorf("queue length = %d, want 0", len(profile.AttendanceQueue))
	}
	if len(profile.CompletedClasses) != 0 {
		t.Error("dequeue must not record a completed class")
	}

	if err := svc.Dequeue(ctx, p, item.ID); !errors.Is(err, shared.ErrQueueItemNotFound) {
		t.Errorf("second Dequeue error = %v, want ErrQueueItemNotFound", err)
	}
}

func TestSubmitAttendance(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the item to completed and writes a record", func(t *testing.T) {
		svc, recs, p := syncWithSubject(t)
		item, err := svc.Enqueue(ctx, p, "CSE", 3, "DBMS")
		if err != nil {
			t.Fatal(err)
		}

		in := validSubmit()
		in.Date = "2026-03-02"
		res, err := svc.SubmitAttendance(ctx, p, item.ID, in)
		if err != nil {
			t.Fatalf("SubmitAttendance failed: %v", err)
		}
		if res.Record.AttendancePercentage != 80 {
			t.Errorf("percentage = %v, want 80", res.Record.AttendancePercentage)
		}
		if res.Record.TeacherEmail != p.Email {
			t.Errorf("record teacher = %s, want %s", res.Record.TeacherEmail, p.Email)
		}
		if res.Completed.ID != item.ID {
			t.Errorf("completed id = %s, want %s", res.Completed.ID, item.ID)
		}

		profile, _ := svc.Profile(ctx, p)
		if len(profile.AttendanceQueue) != 0 {
			t.Errorf("queue length = %d, want 0", len(profile.AttendanceQueue))
		}
		if len(profile.CompletedClasses) != 1 {
			t.Errorf("completed length = %d, want 1", len(profile.CompletedClasses))
		}

		stored, err := recs.Get(ctx, res.Record.ID)
		if err != nil {
			t.Fatalf("record not persisted: %v", err)
		}
		if stored.NeedsReconciliation {
			t.Error("clean submission must not be flagged for reconciliation")
		}
	})

	t.Run("invalid counts leave the queue untouched", func(t *testing.T) {
		svc, recs, p := syncWithSubject(t)
		item, err := svc.Enqueue(ctx, p, "CSE", 3, "DBMS")
		if err != nil {
			t.Fatal(err)
		}

		in := validSubmit()
		in.Date = "2026-03-02"
		in.StudentsTotal = 2 // fewer than the 4 present
		if _, err := svc.SubmitAttendance(ctx, p, item.ID, in); !errors.Is(err, shared.ErrValidation) {
			t.Fatalf("SubmitAttendance error = %v, want ErrValidation", err)
		}

		profile, _ := svc.Profile(ctx, p)
		if len(profile.AttendanceQueue) != 1 || len(profile.CompletedClasses) != 0 {
			t.Error("failed submission must not move the queue item")
		}
		all, _ := recs.FindByDimensions(ctx, "2026-03-02", "DBMS", "CSE", 3)
		if len(all) != 0 {
			t.Errorf("store has %d records after rejected submission, want 0", len(all))
		}
	})

	t.Run("unknown queue item", func(t *testing.T) {
		svc, _, p := syncWithSubject(t)
		if _, err := svc.SubmitAttendance(ctx, p, "QI_missing", validSubmit()); !errors.Is(err, shared.ErrQueueItemNotFound) {
			t.Errorf("SubmitAttendance error = %v, want ErrQueueItemNotFound", err)
		}
	})

	t.Run("retake produces a second record and keeps the first", func(t *testing.T) {
		svc, recs, p := syncWithSubject(t)

		submit := func() *SubmitResult {
			t.Helper()
			item, err := svc.Enqueue(ctx, p, "CSE", 3, "DBMS")
			if err != nil {
				t.Fatal(err)
			}
			in := validSubmit()
			in.Date = "2026-03-02"
			res, err := svc.SubmitAttendance(ctx, p, item.ID, in)
			if err != nil {
				t.Fatalf("SubmitAttendance failed: %v", err)
			}
			return res
		}

		first := submit()
		second := submit()

		if second.Record.RecordNumber != 2 {
			t.Errorf("retake record number = %d, want 2", second.Record.RecordNumber)
		}
		stored, err := recs.Get(ctx, first.Record.ID)
		if err != nil {
			t.Fatalf("first record missing: %v", err)
		}
		if stored.RecordNumber != 1 {
			t.Error("retake must not modify the first record")
		}
		profile, _ := svc.Profile(ctx, p)
		if len(profile.CompletedClasses) != 2 {
			t.Errorf("completed length = %d, want 2", len(profile.CompletedClasses))
		}
	})

	t.Run("record is flagged when the queue move cannot be applied", func(t *testing.T) {
		base := NewMemoryProfileStore()
		recs := records.NewService(records.NewMemoryStore())
		p := testPrincipal()

		setup := NewService(base, recs)
		if _, err := setup.Sync(ctx, p); err != nil {
			t.Fatal(err)
		}
		if _, err := setup.CreateSubject(ctx, p, "CSE", 3, "DBMS"); err != nil {
			t.Fatal(err)
		}
		item, err := setup.Enqueue(ctx, p, "CSE", 3, "DBMS")
		if err != nil {
			t.Fatal(err)
		}

		// The conflicting store accepts reads but rejects every replace, so
		// the queue move exhausts its retries after the record is written.
		svc := NewService(&conflictingStore{ProfileStore: base}, recs)
		in := validSubmit()
		in.Date = "2026-03-02"
		if _, err := svc.SubmitAttendance(ctx, p, item.ID, in); !errors.Is(err, shared.ErrUnavailable) {
			t.Fatalf("SubmitAttendance error = %v, want ErrUnavailable", err)
		}

		all, err := recs.FindByDimensions(ctx, "2026-03-02", "DBMS", "CSE", 3)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 1 {
			t.Fatalf("got %d records, want the submission preserved", len(all))
		}
		if !all[0].NeedsReconciliation {
			t.Error("stranded record must be flagged for reconciliation")
		}

		profile, _ := setup.Profile(ctx, p)
		if len(profile.AttendanceQueue) != 1 || len(profile.CompletedClasses) != 0 {
			t.Error("failed move must leave the queue as it was")
		}
	})
}

// conflictingStore reports a version conflict on every replace.
type conflictingStore struct {
	ProfileStore
}

func (s *conflictingStore) Replace(context.Context, *shared.TeacherProfile) error {
	return shared.ErrVersionConflict
}
