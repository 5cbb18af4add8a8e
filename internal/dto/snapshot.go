package dto

import (
	"github.com/codepet/classroom-sync-api/internal/canonical"
	"github.com/codepet/classroom-sync-api/internal/models"
	"github.com/codepet/classroom-sync-api/internal/schema"
)

// ValidateResponse reports which schema generation a payload matched.
type ValidateResponse struct {
	Valid  bool        `json:"valid"`
	Schema schema.Kind `json:"schema,omitempty"`
}

// ValidationFailure lists the issues from both candidate schemas when a
// payload matches neither.
type ValidationFailure struct {
	Valid           bool           `json:"valid"`
	OptimizedIssues []schema.Issue `json:"optimizedIssues"`
	LegacyIssues    []schema.Issue `json:"legacyIssues"`
}

// DiffResponse summarizes the comparison between an incoming snapshot and
// the owner's archived baseline.
type DiffResponse struct {
	HasBaseline bool                  `json:"hasBaseline"`
	Identical   bool                  `json:"identical"`
	Summary     *DiffSummary          `json:"summary,omitempty"`
	Diff        *canonical.DiffResult `json:"diff,omitempty"`
}

// DiffSummary carries per-collection change counts.
type DiffSummary struct {
	Classrooms  CollectionCounts `json:"classrooms"`
	Assignments CollectionCounts `json:"assignments"`
	Submissions CollectionCounts `json:"submissions"`
	Enrollments CollectionCounts `json:"enrollments"`
}

// CollectionCounts is one collection's change tally.
type CollectionCounts struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// NewDiffSummary tallies a diff into counts.
func NewDiffSummary(d *canonical.DiffResult) *DiffSummary {
	if d == nil {
		return nil
	}
	count := func(c canonical.CollectionDiff) CollectionCounts {
		return CollectionCounts{
			Added:    len(c.Added),
			Removed:  len(c.Removed),
			Modified: len(c.Modified),
		}
	}
	return &DiffSummary{
		Classrooms:  count(d.Classrooms),
		Assignments: count(d.Assignments),
		Submissions: count(d.Submissions),
		Enrollments: count(d.Enrollments),
	}
}

// ImportRunListResponse wraps the run history for an owner.
type ImportRunListResponse struct {
	Runs []models.ImportRun `json:"runs"`
}

// StatusResponse is the cached result of the owner's most recent import, or
// an empty marker when none is cached.
type StatusResponse struct {
	HasResult bool                 `json:"hasResult"`
	Result    *models.ImportResult `json:"result,omitempty"`
}
