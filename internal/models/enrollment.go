package models

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment. Enrollments are
// never hard-deleted; removal is a status transition.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive  EnrollmentStatus = "active"
	EnrollmentStatusRemoved EnrollmentStatus = "removed"
)

// Enrollment is the canonical membership of a student in a classroom.
type Enrollment struct {
	ID              string           `db:"id" json:"id"`
	ClassroomID     string           `db:"classroom_id" json:"classroom_id"`
	OwnerID         string           `db:"owner_id" json:"owner_id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	StudentName     string           `db:"student_name" json:"student_name,omitempty"`
	StudentEmail    string           `db:"student_email" json:"student_email,omitempty"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	SubmissionCount int              `db:"submission_count" json:"submission_count"`
	GradedCount     int              `db:"graded_count" json:"graded_count"`
	Payload         Attributes       `db:"payload" json:"payload,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// ContentFields returns the fields participating in content equality.
func (e Enrollment) ContentFields() map[string]interface{} {
	fields := map[string]interface{}{
		"classroom_id":  e.ClassroomID,
		"student_id":    e.StudentID,
		"student_name":  e.StudentName,
		"student_email": e.StudentEmail,
		"status":        string(e.Status),
	}
	for k, v := range e.Payload.Clean() {
		fields[k] = v
	}
	return fields
}
