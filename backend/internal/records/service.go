// Package records persists attendance sessions and computes the percentage
// and summary figures derived from them.
package records

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"attendtrack/backend/internal/shared"
)

// Service validates, persists and aggregates attendance records. The
// percentage is always computed here; values supplied by clients are ignored
// so stale or manipulated client math never reaches the store.
type Service struct {
	store Store
}

// NewService creates a record service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Input carries the fields for a new attendance record.
type Input struct {
	Date                  string
	Stream                string
	Semester              int32
	Subject               string
	StudentsPresent       []string
	StudentsTotal         int32
	TotalPossibleStudents int32
	Language              *shared.LanguageInfo
	TeacherEmail          string
}

// Patch carries the correction fields for an existing record. Nil fields are
// left unchanged; the percentage is recomputed whenever either count moves,
// against the other's stored value.
type Patch struct {
	StudentsPresent       *[]string
	StudentsTotal         *int32
	TotalPossibleStudents *int32
	Language              *shared.LanguageInfo
}

// Record validates the input and persists a new attendance record with a
// server-computed percentage and the next record number for its dimensions.
func (s *Service) Record(ctx context.Context, in Input) (*shared.AttendanceRecord, error) {
	in.Stream = strings.ToUpper(strings.TrimSpace(in.Stream))
	in.Subject = strings.ToUpper(strings.TrimSpace(in.Subject))
	in.StudentsPresent = dedupe(in.StudentsPresent)

	if err := validateDimensions(in.Date, in.Stream, in.Semester, in.Subject); err != nil {
		return nil, err
	}
	if err := validateCounts(int32(len(in.StudentsPresent)), in.StudentsTotal, in.TotalPossibleStudents); err != nil {
		return nil, err
	}
	if err := validateLanguage(in.Language); err != nil {
		return nil, err
	}

	count, err := s.store.CountForDay(ctx, in.Date, in.Stream, in.Semester, in.Subject)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &shared.AttendanceRecord{
		ID:                    shared.GenerateRecordID(),
		Date:                  in.Date,
		Stream:                in.Stream,
		Semester:              in.Semester,
		Subject:               in.Subject,
		RecordNumber:          int32(count) + 1,
		StudentsPresent:       in.StudentsPresent,
		StudentsTotal:         in.StudentsTotal,
		TotalPossibleStudents: in.TotalPossibleStudents,
		AttendancePercentage:  shared.AttendancePercentage(int32(len(in.StudentsPresent)), in.StudentsTotal),
		Language:              in.Language,
		TeacherEmail:          in.TeacherEmail,
		CreatedAt:             now,
		LastUpdated:           now,
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update applies an explicit correction to an existing record. The invariants
// are re-checked against the merged state before anything is written, so a
// failing correction leaves the stored record untouched.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*shared.AttendanceRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *rec
	if patch.StudentsPresent != nil {
		updated.StudentsPresent = dedupe(*patch.StudentsPresent)
	}
	if patch.StudentsTotal != nil {
		updated.StudentsTotal = *patch.StudentsTotal
	}
	if patch.TotalPossibleStudents != nil {
		updated.TotalPossibleStudents = *patch.TotalPossibleStudents
	}
	if patch.Language != nil {
		if err := validateLanguage(patch.Language); err != nil {
			return nil, err
		}
		updated.Language = patch.Language
	}

	if err := validateCounts(int32(len(updated.StudentsPresent)), updated.StudentsTotal, updated.TotalPossibleStudents); err != nil {
		return nil, err
	}

	updated.AttendancePercentage = shared.AttendancePercentage(int32(len(updated.StudentsPresent)), updated.StudentsTotal)
	updated.LastUpdated = time.Now()

	if err := s.store.Replace(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Get returns a single record by id.
func (s *Service) Get(ctx context.Context, id string) (*shared.AttendanceRecord, error) {
	return s.store.Get(ctx, id)
}

// FindByDimensions returns all attempts for a dimension tuple, newest first.
func (s *Service) FindByDimensions(ctx context.Context, date, subject, stream string, semester int32) ([]shared.AttendanceRecord, error) {
	stream = strings.ToUpper(strings.TrimSpace(stream))
	subject = strings.ToUpper(strings.TrimSpace(subject))
	if err := validateDimensions(date, stream, semester, subject); err != nil {
		return nil, err
	}
	return s.store.FindByDimensions(ctx, date, subject, stream, semester)
}

// FindByStream returns a stream/semester's records, newest first, optionally
// bounded by an inclusive [from, to] date range.
func (s *Service) FindByStream(ctx context.Context, stream string, semester int32, from, to string) ([]shared.AttendanceRecord, error) {
	stream = strings.ToUpper(strings.TrimSpace(stream))
	if stream == "" {
		return nil, fmt.Errorf("%w: stream is required", shared.ErrValidation)
	}
	if semester < shared.MinSemester || semester > shared.MaxRecordSemester {
		return nil, fmt.Errorf("%w: semester must be between %d and %d", shared.ErrValidation, shared.MinSemester, shared.MaxRecordSemester)
	}
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(shared.DateLayout, d); err != nil {
			return nil, fmt.Errorf("%w: date %q must be %s", shared.ErrValidation, d, shared.DateLayout)
		}
	}
	return s.store.FindByStream(ctx, stream, semester, from, to)
}

// MarkReconciliation flags a record for the reconciliation sweep.
func (s *Service) MarkReconciliation(ctx context.Context, id string) error {
	return s.store.MarkReconciliation(ctx, id)
}

// ============================================================================
// Summaries
// ============================================================================

// SubjectSummary aggregates the records of one subject.
//
// AveragePercentage is the mean of per-record percentages ("how did a typical
// session go"); OverallPercentage is headcount-weighted across all sessions
// ("what share of expected attendances actually happened"). The two answer
// different questions and diverge when session sizes differ, so both are
// always reported. Status is driven by the headcount-weighted overall figure.
type SubjectSummary struct {
	Subject           string  `json:"subject"`
	RecordCount       int     `json:"record_count"`
	AveragePercentage float64 `json:"average_percentage"`
	OverallPercentage float64 `json:"overall_percentage"`
	Status            string  `json:"status"`
}

// Summary is the per-stream rollup for dashboards.
type Summary struct {
	Stream            string           `json:"stream"`
	Semester          int32            `json:"semester"`
	From              string           `json:"from,omitempty"`
	To                string           `json:"to,omitempty"`
	Subjects          []SubjectSummary `json:"subjects"`
	RecordCount       int              `json:"record_count"`
	AveragePercentage float64          `json:"average_percentage"`
	OverallPercentage float64          `json:"overall_percentage"`
	Status            string           `json:"status"`
}

// Summarize groups the stream's records by subject and computes both the
// average-of-percentages and the headcount-weighted overall per group and
// across the whole stream.
func (s *Service) Summarize(ctx context.Context, stream string, semester int32, from, to string) (*Summary, error) {
	stream = strings.ToUpper(strings.TrimSpace(stream))
	recs, err := s.FindByStream(ctx, stream, semester, from, to)
	if err != nil {
		return nil, err
	}

	type acc struct {
		count      int
		pctSum     float64
		presentSum int64
		totalSum   int64
	}
	groups := make(map[string]*acc)
	var all acc
	for i := range recs {
		rec := &recs[i]
		g, ok := groups[rec.Subject]
		if !ok {
			g = &acc{}
			groups[rec.Subject] = g
		}
		for _, a := range []*acc{g, &all} {
			a.count++
			a.pctSum += rec.AttendancePercentage
			a.presentSum += int64(len(rec.StudentsPresent))
			a.totalSum += int64(rec.StudentsTotal)
		}
	}

	summary := &Summary{Stream: stream, Semester: semester, From: from, To: to, Subjects: []SubjectSummary{}}
	for subject, g := range groups {
		summary.Subjects = append(summary.Subjects, SubjectSummary{
			Subject:           subject,
			RecordCount:       g.count,
			AveragePercentage: average(g.pctSum, g.count),
			OverallPercentage: overall(g.presentSum, g.totalSum),
			Status:            shared.ClassifyPercentage(overall(g.presentSum, g.totalSum)),
		})
	}
	sort.Slice(summary.Subjects, func(i, j int) bool {
		return summary.Subjects[i].Subject < summary.Subjects[j].Subject
	})

	summary.RecordCount = all.count
	summary.AveragePercentage = average(all.pctSum, all.count)
	summary.OverallPercentage = overall(all.presentSum, all.totalSum)
	summary.Status = shared.ClassifyPercentage(summary.OverallPercentage)
	return summary, nil
}

func average(pctSum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return shared.Round2(pctSum / float64(count))
}

func overall(present, total int64) float64 {
	if total == 0 {
		return 0
	}
	return shared.Round2(float64(present) / float64(total) * 100)
}

// ============================================================================
// Validation Helpers
// ============================================================================

func validateDimensions(date, stream string, semester int32, subject string) error {
	if _, err := time.Parse(shared.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q must be %s", shared.ErrValidation, date, shared.DateLayout)
	}
	if stream == "" {
		return fmt.Errorf("%w: stream is required", shared.ErrValidation)
	}
	if subject == "" {
		return fmt.Errorf("%w: subject is required", shared.ErrValidation)
	}
	if semester < shared.MinSemester || semester > shared.MaxRecordSemester {
		return fmt.Errorf("%w: semester must be between %d and %d", shared.ErrValidation, shared.MinSemester, shared.MaxRecordSemester)
	}
	return nil
}

func validateCounts(present, total, possible int32) error {
	if total < 0 || possible < 0 {
		return fmt.Errorf("%w: student counts must be non-negative", shared.ErrValidation)
	}
	if present > total {
		return fmt.Errorf("%w: %d present exceeds %d expected students", shared.ErrValidation, present, total)
	}
	if total > possible {
		return fmt.Errorf("%w: %d expected exceeds roster size %d", shared.ErrValidation, total, possible)
	}
	return nil
}

func validateLanguage(lang *shared.LanguageInfo) error {
	if lang == nil {
		return nil
	}
	if !shared.ValidLanguageType(lang.Type) {
		return fmt.Errorf("%w: unknown language type %q", shared.ErrValidation, lang.Type)
	}
	return nil
}

// dedupe removes repeated student identifiers, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
