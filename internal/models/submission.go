package models

import (
	"strings"
	"time"
)

// SubmissionStatus is the lifecycle state of a submission.
type SubmissionStatus string

// Possible submission statuses.
const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusGrading   SubmissionStatus = "grading"
	SubmissionStatusGraded    SubmissionStatus = "graded"
	SubmissionStatusReturned  SubmissionStatus = "returned"
	SubmissionStatusError     SubmissionStatus = "error"
)

// ParseSubmissionStatus normalizes a source status string, falling back to
// pending for anything unrecognized. Collector exports use the upstream
// vocabulary (NEW, CREATED, TURNED_IN, RETURNED), which is folded into the
// canonical set here.
func ParseSubmissionStatus(raw string) SubmissionStatus {
	switch SubmissionStatus(strings.ToLower(raw)) {
	case SubmissionStatusPending, SubmissionStatusSubmitted, SubmissionStatusGrading,
		SubmissionStatusGraded, SubmissionStatusReturned, SubmissionStatusError:
		return SubmissionStatus(strings.ToLower(raw))
	case "turned_in":
		return SubmissionStatusSubmitted
	case "new", "created", "reclaimed_by_student":
		return SubmissionStatusPending
	default:
		return SubmissionStatusPending
	}
}

// Submission is the canonical, versioned submission entity. For every
// (assignment_id, student_id) pair at most one row has is_latest = true.
type Submission struct {
	ID                string           `db:"id" json:"id"`
	AssignmentID      string           `db:"assignment_id" json:"assignment_id"`
	ClassroomID       string           `db:"classroom_id" json:"classroom_id"`
	OwnerID           string           `db:"owner_id" json:"owner_id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	StudentName       string           `db:"student_name" json:"student_name,omitempty"`
	StudentEmail      string           `db:"student_email" json:"student_email,omitempty"`
	Status            SubmissionStatus `db:"status" json:"status"`
	Version           int              `db:"version" json:"version"`
	IsLatest          bool             `db:"is_latest" json:"is_latest"`
	PreviousVersionID *string          `db:"previous_version_id" json:"previous_version_id,omitempty"`
	ContentHash       string           `db:"content_hash" json:"content_hash"`
	SubmittedAt       *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	Payload           Attributes       `db:"payload" json:"payload,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionKey identifies a submission lineage by its parents.
func SubmissionKey(assignmentID, studentID string) string {
	return assignmentID + "|" + studentID
}

// Graded reports whether the submission has reached a graded state.
func (s Submission) Graded() bool {
	return s.Status == SubmissionStatusGraded || s.Status == SubmissionStatusReturned
}

// ContentFields returns the fields participating in content equality.
// Version bookkeeping is excluded: two versions of the same lineage differ by
// content, not by their version metadata.
func (s Submission) ContentFields() map[string]interface{} {
	fields := map[string]interface{}{
		"assignment_id": s.AssignmentID,
		"student_id":    s.StudentID,
		"status":        string(s.Status),
		"content_hash":  s.ContentHash,
	}
	for k, v := range s.Payload.Clean() {
		fields[k] = v
	}
	return fields
}
