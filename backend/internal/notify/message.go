package notify

import "fmt"

// AbsenceMessage builds the text sent to an absent student's contact.
func AbsenceMessage(studentName, subject, stream string, semester int32, date string) string {
	return fmt.Sprintf(
		"Dear Parent/Student, %s was marked ABSENT for %s (%s, Semester %d) on %s. Please contact the class teacher for any clarification.",
		studentName, subject, stream, semester, date,
	)
}

// ClassSummaryMessage builds the text sent to a class group after attendance
// is recorded.
func ClassSummaryMessage(subject, stream string, semester int32, date string, present, total int32, percentage float64) string {
	return fmt.Sprintf(
		"Attendance recorded for %s (%s, Semester %d) on %s: %d/%d present (%.2f%%).",
		subject, stream, semester, date, present, total, percentage,
	)
}
