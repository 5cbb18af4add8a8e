package models

import (
	"encoding/json"
	"time"
)

// OwnerContext identifies the authenticated owner an import runs for. It is
// passed in explicitly; there is no process-wide owner registry.
type OwnerContext struct {
	OwnerID     string `json:"owner_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// ImportStats aggregates per-entity write counts for one import.
type ImportStats struct {
	ClassroomsCreated    int `json:"classrooms_created"`
	ClassroomsUpdated    int `json:"classrooms_updated"`
	AssignmentsCreated   int `json:"assignments_created"`
	AssignmentsUpdated   int `json:"assignments_updated"`
	SubmissionsCreated   int `json:"submissions_created"`
	SubmissionsUpdated   int `json:"submissions_updated"`
	SubmissionsVersioned int `json:"submissions_versioned"`
	EnrollmentsCreated   int `json:"enrollments_created"`
	EnrollmentsUpdated   int `json:"enrollments_updated"`
	EnrollmentsRemoved   int `json:"enrollments_removed"`
}

// ImportError is one non-fatal failure captured during an import.
type ImportError struct {
	Stage   string `json:"stage"`
	Entity  string `json:"entity,omitempty"`
	Message string `json:"message"`
}

// ImportResult is the terminal result of one import run. Fatal errors
// short-circuit before any write; everything else lands in Errors.
type ImportResult struct {
	RunID            string        `json:"run_id"`
	OwnerID          string        `json:"owner_id"`
	Success          bool          `json:"success"`
	ShortCircuited   bool          `json:"short_circuited"`
	StaleCounts      bool          `json:"stale_counts,omitempty"`
	Stats            ImportStats   `json:"stats"`
	Errors           []ImportError `json:"errors,omitempty"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
}

// ImportRunOutcome labels a finished run.
const (
	ImportOutcomeImported       = "imported"
	ImportOutcomeShortCircuited = "short_circuited"
	ImportOutcomePartial        = "partial"
	ImportOutcomeFailed         = "failed"
)

// ImportRun is the persisted audit row of one import.
type ImportRun struct {
	ID             string          `db:"id" json:"id"`
	OwnerID        string          `db:"owner_id" json:"owner_id"`
	Outcome        string          `db:"outcome" json:"outcome"`
	ShortCircuited bool            `db:"short_circuited" json:"short_circuited"`
	Stats          json.RawMessage `db:"stats" json:"stats"`
	ErrorCount     int             `db:"error_count" json:"error_count"`
	DurationMs     int64           `db:"duration_ms" json:"duration_ms"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
