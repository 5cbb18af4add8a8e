package canonical

import "reflect"

// FieldChange records one modified field within an entity.
type FieldChange struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
}

// CollectionDiff is the id-set diff of one entity collection.
type CollectionDiff struct {
	Added    []string                 `json:"added,omitempty"`
	Removed  []string                 `json:"removed,omitempty"`
	Modified map[string][]FieldChange `json:"modified,omitempty"`
}

// Empty reports whether the collection is unchanged.
func (d CollectionDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// DiffResult is the structural difference between two canonical snapshots.
// It is used only as a short-circuit signal; persistence always re-derives
// its writes from the full new snapshot.
type DiffResult struct {
	Classrooms  CollectionDiff `json:"classrooms"`
	Assignments CollectionDiff `json:"assignments"`
	Submissions CollectionDiff `json:"submissions"`
	Enrollments CollectionDiff `json:"enrollments"`
}

// Empty reports whether nothing changed between the snapshots.
func (r *DiffResult) Empty() bool {
	return r.Classrooms.Empty() && r.Assignments.Empty() &&
		r.Submissions.Empty() && r.Enrollments.Empty()
}

// Diff compares two canonical snapshots collection by collection. Records
// present only in curr are added, only in old are removed, and records in
// both are field-diffed.
func Diff(old, curr *Snapshot) *DiffResult {
	return &DiffResult{
		Classrooms:  diffCollection(old.Classrooms, curr.Classrooms),
		Assignments: diffCollection(old.Assignments, curr.Assignments),
		Submissions: diffCollection(old.Submissions, curr.Submissions),
		Enrollments: diffCollection(old.Enrollments, curr.Enrollments),
	}
}

func diffCollection(old, curr []Record) CollectionDiff {
	oldByID := make(map[string]Record, len(old))
	for _, rec := range old {
		oldByID[rec.ID] = rec
	}

	diff := CollectionDiff{}
	seen := make(map[string]struct{}, len(curr))
	for _, rec := range curr {
		seen[rec.ID] = struct{}{}
		prev, ok := oldByID[rec.ID]
		if !ok {
			diff.Added = append(diff.Added, rec.ID)
			continue
		}
		if changes := diffFields(prev.Fields, rec.Fields); len(changes) > 0 {
			if diff.Modified == nil {
				diff.Modified = make(map[string][]FieldChange)
			}
			diff.Modified[rec.ID] = changes
		}
	}
	for _, rec := range old {
		if _, ok := seen[rec.ID]; !ok {
			diff.Removed = append(diff.Removed, rec.ID)
		}
	}
	return diff
}

func diffFields(old, curr map[string]interface{}) []FieldChange {
	var changes []FieldChange
	for field, newVal := range curr {
		oldVal, ok := old[field]
		if !ok {
			changes = append(changes, FieldChange{Field: field, New: newVal})
			continue
		}
		if !reflect.DeepEqual(oldVal, newVal) {
			changes = append(changes, FieldChange{Field: field, Old: oldVal, New: newVal})
		}
	}
	for field, oldVal := range old {
		if _, ok := curr[field]; !ok {
			changes = append(changes, FieldChange{Field: field, Old: oldVal})
		}
	}
	return changes
}
