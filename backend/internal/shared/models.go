// ============================================================================
// backend/internal/shared/models.go
// Shared data models and structs for MongoDB documents
// ============================================================================

package shared

import (
	"math"
	"time"
)

// ============================================================================
// Attendance Record Models
// ============================================================================

// LanguageInfo describes the language-subject variant of a record. A nil
// LanguageInfo means the record is for a regular (non-language) subject.
type LanguageInfo struct {
	Type  string `bson:"type" json:"type"`                       // HINDI, KANNADA, SANSKRIT
	Group string `bson:"group,omitempty" json:"group,omitempty"` // free-text language group
}

// AttendanceRecord represents one attendance session for a class. Multiple
// records may exist for the same (date, stream, semester, subject) tuple on
// the same day; RecordNumber disambiguates the attempts.
type AttendanceRecord struct {
	ID           string `bson:"_id" json:"id"`
	Date         string `bson:"date" json:"date"` // calendar date, YYYY-MM-DD
	Stream       string `bson:"stream" json:"stream"`
	Semester     int32  `bson:"semester" json:"semester"`
	Subject      string `bson:"subject" json:"subject"`
	RecordNumber int32  `bson:"record_number" json:"record_number"`

	StudentsPresent       []string `bson:"students_present" json:"students_present"`
	StudentsTotal         int32    `bson:"students_total" json:"students_total"`
	TotalPossibleStudents int32    `bson:"total_possible_students" json:"total_possible_students"`

	// Always computed server-side; client-supplied values are ignored.
	AttendancePercentage float64 `bson:"attendance_percentage" json:"attendance_percentage"`

	Language *LanguageInfo `bson:"language,omitempty" json:"language,omitempty"`

	// Set when the record was written but the teacher's queue move could not
	// be applied; a later sweep resolves these instead of deleting the record.
	NeedsReconciliation bool `bson:"needs_reconciliation,omitempty" json:"needs_reconciliation,omitempty"`

	TeacherEmail string    `bson:"teacher_email,omitempty" json:"teacher_email,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	LastUpdated  time.Time `bson:"last_updated" json:"last_updated"`
}

// Status returns the classification band for this record's percentage.
func (r *AttendanceRecord) Status() string {
	return ClassifyPercentage(r.AttendancePercentage)
}

// ============================================================================
// Teacher Profile Models
// ============================================================================

// SubjectEntry is one subject a teacher has set up for the term.
type SubjectEntry struct {
	ID           string    `bson:"id" json:"id"`
	Stream       string    `bson:"stream" json:"stream"`
	Semester     int32     `bson:"semester" json:"semester"`
	Subject      string    `bson:"subject" json:"subject"`
	TeacherEmail string    `bson:"teacher_email" json:"teacher_email"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// QueueItem is a unit of pending work: "take attendance for this subject today".
type QueueItem struct {
	ID           string    `bson:"id" json:"id"`
	Stream       string    `bson:"stream" json:"stream"`
	Semester     int32     `bson:"semester" json:"semester"`
	Subject      string    `bson:"subject" json:"subject"`
	TeacherEmail string    `bson:"teacher_email" json:"teacher_email"`
	AddedAt      time.Time `bson:"added_at" json:"added_at"`
}

// CompletedClass is a queue item whose attendance was taken and recorded.
type CompletedClass struct {
	ID           string    `bson:"id" json:"id"`
	Stream       string    `bson:"stream" json:"stream"`
	Semester     int32     `bson:"semester" json:"semester"`
	Subject      string    `bson:"subject" json:"subject"`
	TeacherEmail string    `bson:"teacher_email" json:"teacher_email"`
	CompletedAt  time.Time `bson:"completed_at" json:"completed_at"`
}

// TeacherProfile is one document per teacher with the subject catalog and the
// queue/completed lists embedded. Version guards concurrent mutation: every
// replace must match the version it loaded, so concurrent enqueue and submit
// on the same profile cannot silently drop each other's updates.
type TeacherProfile struct {
	UID              string           `bson:"_id" json:"uid"`
	Email            string           `bson:"email" json:"email"`
	Name             string           `bson:"name,omitempty" json:"name,omitempty"`
	CreatedSubjects  []SubjectEntry   `bson:"created_subjects" json:"created_subjects"`
	AttendanceQueue  []QueueItem      `bson:"attendance_queue" json:"attendance_queue"`
	CompletedClasses []CompletedClass `bson:"completed_classes" json:"completed_classes"`
	LastQueueUpdate  time.Time        `bson:"last_queue_update,omitempty" json:"last_queue_update,omitempty"`
	Version          int64            `bson:"version" json:"-"`
	CreatedAt        time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// FindQueueItem returns the queue item with the given id, or nil.
func (p *TeacherProfile) FindQueueItem(id string) *QueueItem {
	for i := range p.AttendanceQueue {
		if p.AttendanceQueue[i].ID == id {
			return &p.AttendanceQueue[i]
		}
	}
	return nil
}

// HasQueuedClass reports whether an identical (stream, semester, subject) is
// already awaiting attendance.
func (p *TeacherProfile) HasQueuedClass(stream string, semester int32, subject string) bool {
	for _, item := range p.AttendanceQueue {
		if item.Stream == stream && item.Semester == semester && item.Subject == subject {
			return true
		}
	}
	return false
}

// HasSubject reports whether the teacher has created the given class.
func (p *TeacherProfile) HasSubject(stream string, semester int32, subject string) bool {
	for _, s := range p.CreatedSubjects {
		if s.Stream == stream && s.Semester == semester && s.Subject == subject {
			return true
		}
	}
	return false
}

// ============================================================================
// Percentage Computation and Classification
// ============================================================================

// AttendancePercentage computes present/total as a percentage rounded to two
// decimal places. Zero total yields zero, not an error; sessions with no
// expected students are valid placeholders.
func AttendancePercentage(present, total int32) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(present) / float64(total) * 100)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Classification bands for attendance percentages.
const (
	StatusExcellent = "EXCELLENT" // >= 90
	StatusGood      = "GOOD"      // >= 75
	StatusAverage   = "AVERAGE"   // >= 60
	StatusLow       = "LOW"       // >= 40
	StatusVeryLow   = "VERY_LOW"
)

// ClassifyPercentage maps a percentage to its status band.
func ClassifyPercentage(pct float64) string {
	switch {
	case pct >= 90:
		return StatusExcellent
	case pct >= 75:
		return StatusGood
	case pct >= 60:
		return StatusAverage
	case pct >= 40:
		return StatusLow
	default:
		return StatusVeryLow
	}
}

// ============================================================================
// Validation Constants
// ============================================================================

const (
	// Semester bounds. Attendance records accept the full degree span while
	// subject creation is limited to the currently running terms.
	MinSemester        = 1
	MaxRecordSemester  = 8
	MaxSubjectSemester = 6

	// DateLayout is the canonical calendar-date format for record dimensions.
	DateLayout = "2006-01-02"
)

// Language subject types.
const (
	LanguageHindi    = "HINDI"
	LanguageKannada  = "KANNADA"
	LanguageSanskrit = "SANSKRIT"
)

// ValidLanguageType reports whether t is a recognized language subject type.
func ValidLanguageType(t string) bool {
	return t == LanguageHindi || t == LanguageKannada || t == LanguageSanskrit
}
