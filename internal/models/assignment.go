package models

import "time"

// DefaultMaxPoints is applied when the source omits a point value.
const DefaultMaxPoints = 100

// Assignment is the canonical course-work entity.
type Assignment struct {
	ID              string     `db:"id" json:"id"`
	ClassroomID     string     `db:"classroom_id" json:"classroom_id"`
	OwnerID         string     `db:"owner_id" json:"owner_id"`
	Title           string     `db:"title" json:"title"`
	MaxPoints       float64    `db:"max_points" json:"max_points"`
	DueDate         *time.Time `db:"due_date" json:"due_date,omitempty"`
	IsQuiz          bool       `db:"is_quiz" json:"is_quiz"`
	SubmissionCount int        `db:"submission_count" json:"submission_count"`
	GradedCount     int        `db:"graded_count" json:"graded_count"`
	PendingCount    int        `db:"pending_count" json:"pending_count"`
	Payload         Attributes `db:"payload" json:"payload,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ContentFields returns the fields participating in content equality.
func (a Assignment) ContentFields() map[string]interface{} {
	fields := map[string]interface{}{
		"classroom_id": a.ClassroomID,
		"title":        a.Title,
		"max_points":   a.MaxPoints,
		"is_quiz":      a.IsQuiz,
	}
	if a.DueDate != nil {
		fields["due_date"] = a.DueDate.UTC().Format(time.RFC3339)
	}
	for k, v := range a.Payload.Clean() {
		fields[k] = v
	}
	return fields
}
