// Package canonical produces the stable, order-independent representation of
// a snapshot used for change detection. Two semantically identical snapshots
// canonicalize to byte-identical serializations.
package canonical

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/codepet/classroom-sync-api/internal/mapper"
	"github.com/codepet/classroom-sync-api/internal/models"
)

// Record is one entity reduced to its identifier and content fields.
type Record struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// Snapshot is the canonical form of one owner's export. Volatile metadata
// (fetch time, expiry) is stripped; collections are sorted by id.
type Snapshot struct {
	Teacher     models.TeacherInfo `json:"teacher"`
	Source      string             `json:"source"`
	Version     string             `json:"version"`
	Classrooms  []Record           `json:"classrooms"`
	Assignments []Record           `json:"assignments"`
	Submissions []Record           `json:"submissions"`
	Enrollments []Record           `json:"enrollments"`
}

// Build canonicalizes a mapped entity set. The result is round-tripped
// through JSON so field values live in the JSON type domain and compare
// stably against records parsed back out of the archive.
func Build(teacher models.TeacherInfo, meta models.SnapshotMetadata, ents *mapper.Entities) (*Snapshot, error) {
	snap := &Snapshot{
		Teacher: teacher,
		Source:  meta.Source,
		Version: meta.Version,
	}
	for _, c := range ents.Classrooms {
		snap.Classrooms = append(snap.Classrooms, Record{ID: c.ID, Fields: c.ContentFields()})
	}
	for _, a := range ents.Assignments {
		snap.Assignments = append(snap.Assignments, Record{ID: a.ID, Fields: a.ContentFields()})
	}
	for _, s := range ents.Submissions {
		snap.Submissions = append(snap.Submissions, Record{ID: s.ID, Fields: s.ContentFields()})
	}
	for _, e := range ents.Enrollments {
		snap.Enrollments = append(snap.Enrollments, Record{ID: e.ID, Fields: e.ContentFields()})
	}
	snap.sortCollections()

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("normalize canonical snapshot: %w", err)
	}
	normalized := &Snapshot{}
	if err := json.Unmarshal(raw, normalized); err != nil {
		return nil, fmt.Errorf("reparse canonical snapshot: %w", err)
	}
	return normalized, nil
}

// Marshal serializes the snapshot deterministically. Collections are sorted
// and map keys are emitted in sorted order by encoding/json.
func (s *Snapshot) Marshal() ([]byte, error) {
	s.sortCollections()
	return json.Marshal(s)
}

// Parse reads a canonical snapshot back from its serialized form.
func Parse(raw []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("parse canonical snapshot: %w", err)
	}
	return snap, nil
}

func (s *Snapshot) sortCollections() {
	sortRecords(s.Classrooms)
	sortRecords(s.Assignments)
	sortRecords(s.Submissions)
	sortRecords(s.Enrollments)
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
