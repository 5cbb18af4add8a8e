package models

import "time"

// Classroom is the canonical course entity. The derived counts are recomputed
// from child rows after every import, never incremented in place.
type Classroom struct {
	ID                  string     `db:"id" json:"id"`
	OwnerID             string     `db:"owner_id" json:"owner_id"`
	Name                string     `db:"name" json:"name"`
	Section             string     `db:"section" json:"section,omitempty"`
	StudentCount        int        `db:"student_count" json:"student_count"`
	AssignmentCount     int        `db:"assignment_count" json:"assignment_count"`
	ActiveSubmissions   int        `db:"active_submissions" json:"active_submissions"`
	UngradedSubmissions int        `db:"ungraded_submissions" json:"ungraded_submissions"`
	Payload             Attributes `db:"payload" json:"payload,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// ContentFields returns the fields participating in content equality.
// Derived counts and row timestamps are excluded.
func (c Classroom) ContentFields() map[string]interface{} {
	fields := map[string]interface{}{
		"name":    c.Name,
		"section": c.Section,
	}
	for k, v := range c.Payload.Clean() {
		fields[k] = v
	}
	return fields
}
