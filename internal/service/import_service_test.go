package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codepet/classroom-sync-api/internal/canonical"
	"github.com/codepet/classroom-sync-api/internal/mapper"
	"github.com/codepet/classroom-sync-api/internal/models"
	"github.com/codepet/classroom-sync-api/internal/schema"
)

type fakeClassroomStore struct {
	upserts   [][]models.Classroom
	upsertErr error
	recompErr error
}

func (f *fakeClassroomStore) UpsertMany(_ context.Context, classrooms []models.Classroom) (int, int, error) {
	if f.upsertErr != nil {
		return 0, 0, f.upsertErr
	}
	f.upserts = append(f.upserts, classrooms)
	return len(classrooms), 0, nil
}

func (f *fakeClassroomStore) RecomputeCounts(context.Context, string) error { return f.recompErr }

type fakeAssignmentStore struct {
	upserts   [][]models.Assignment
	upsertErr error
	recompErr error
}

func (f *fakeAssignmentStore) UpsertMany(_ context.Context, assignments []models.Assignment) (int, int, error) {
	if f.upsertErr != nil {
		return 0, 0, f.upsertErr
	}
	f.upserts = append(f.upserts, assignments)
	return len(assignments), 0, nil
}

func (f *fakeAssignmentStore) RecomputeCounts(context.Context, string) error { return f.recompErr }

type fakeSubmissionStore struct {
	latest       map[string]models.Submission
	latestErr    error
	lookedUpIDs  []string
	upserts      [][]models.Submission
	versioned    []models.Submission
	versionErr   error
}

func (f *fakeSubmissionStore) ListLatestByAssignmentIDs(_ context.Context, assignmentIDs []string) (map[string]models.Submission, error) {
	f.lookedUpIDs = assignmentIDs
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	if f.latest == nil {
		return map[string]models.Submission{}, nil
	}
	return f.latest, nil
}

func (f *fakeSubmissionStore) UpsertMany(_ context.Context, submissions []models.Submission) (int, int, error) {
	f.upserts = append(f.upserts, submissions)
	return len(submissions), 0, nil
}

func (f *fakeSubmissionStore) CreateVersion(_ context.Context, incoming models.Submission) (*models.Submission, error) {
	if f.versionErr != nil {
		return nil, f.versionErr
	}
	f.versioned = append(f.versioned, incoming)
	next := incoming
	next.Version = 2
	return &next, nil
}

type fakeEnrollmentStore struct {
	upserts   [][]models.Enrollment
	removed   int64
	recompErr error
}

func (f *fakeEnrollmentStore) UpsertMany(_ context.Context, enrollments []models.Enrollment) (int, int, error) {
	f.upserts = append(f.upserts, enrollments)
	return len(enrollments), 0, nil
}

func (f *fakeEnrollmentStore) MarkRemovedExcept(context.Context, string, []string) (int64, error) {
	return f.removed, nil
}

func (f *fakeEnrollmentStore) RecomputeCounts(context.Context, string) error { return f.recompErr }

type fakeSnapshotArchive struct {
	baseline *canonical.Snapshot
	getErr   error
	putErr   error
	stored   *canonical.Snapshot
}

func (f *fakeSnapshotArchive) Get(context.Context, string) (*canonical.Snapshot, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.baseline, f.baseline != nil, nil
}

func (f *fakeSnapshotArchive) Put(_ context.Context, _ string, snap *canonical.Snapshot) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.stored = snap
	return nil
}

type fakeRunStore struct {
	runs []models.ImportRun
}

func (f *fakeRunStore) Create(_ context.Context, run *models.ImportRun) error {
	if run.ID == "" {
		run.ID = fmt.Sprintf("run-%d", len(f.runs)+1)
	}
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRunStore) ListByOwner(context.Context, string, int) ([]models.ImportRun, error) {
	return f.runs, nil
}

type fakeLocker struct {
	acquired bool
	err      error
	released bool
}

func (f *fakeLocker) AcquireImportLock(context.Context, string, time.Duration) (bool, error) {
	return f.acquired, f.err
}

func (f *fakeLocker) ReleaseImportLock(context.Context, string) { f.released = true }

type fakeResultCache struct {
	values map[string]interface{}
}

func (f *fakeResultCache) Get(context.Context, string, interface{}) error { return nil }

func (f *fakeResultCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if f.values == nil {
		f.values = map[string]interface{}{}
	}
	f.values[key] = value
	return nil
}

const importPayload = `{
	"teacher": {"name": "Jane Roe", "email": "jane@school.edu"},
	"snapshotMetadata": {
		"fetchedAt": "2026-03-01T08:00:00Z",
		"source": "classroom",
		"version": "2.0"
	},
	"entities": {
		"classrooms": [
			{"id": "c1", "name": "Physics"},
			{"id": "c2", "name": "Chemistry"}
		],
		"assignments": [
			{"id": "a1", "courseId": "c1", "title": "Lab 1", "maxPoints": 50},
			{"id": "a2", "courseId": "c1", "title": "Lab 2"},
			{"id": "a3", "courseId": "c2", "title": "Worksheet"}
		],
		"submissions": [
			{"id": "s1", "courseId": "c1", "courseWorkId": "a1", "studentId": "stu1", "status": "turned_in", "content": "answer"},
			{"id": "s2", "courseId": "c1", "courseWorkId": "a2", "studentId": "stu2"}
		],
		"enrollments": [
			{"courseId": "c1", "userId": "stu1", "name": "Sam"},
			{"courseId": "c1", "userId": "stu2", "name": "Alex"},
			{"courseId": "c2", "userId": "stu1", "name": "Sam"}
		]
	}
}`

type importFixture struct {
	svc         *ImportService
	classrooms  *fakeClassroomStore
	assignments *fakeAssignmentStore
	submissions *fakeSubmissionStore
	enrollments *fakeEnrollmentStore
	archive     *fakeSnapshotArchive
	runs        *fakeRunStore
	locker      *fakeLocker
	cache       *fakeResultCache
}

func newImportFixture(cfg ImportServiceConfig) *importFixture {
	f := &importFixture{
		classrooms:  &fakeClassroomStore{},
		assignments: &fakeAssignmentStore{},
		submissions: &fakeSubmissionStore{},
		enrollments: &fakeEnrollmentStore{},
		archive:     &fakeSnapshotArchive{},
		runs:        &fakeRunStore{},
		locker:      &fakeLocker{acquired: true},
		cache:       &fakeResultCache{},
	}
	f.svc = NewImportService(schema.New(), f.classrooms, f.assignments, f.submissions,
		f.enrollments, f.archive, f.runs, f.locker, f.cache, nil, cfg, zap.NewNop())
	return f
}

func owner() models.OwnerContext {
	return models.OwnerContext{OwnerID: "owner-1", Email: "jane@school.edu"}
}

func validated(t *testing.T, payload string) *schema.Result {
	t.Helper()
	res, verr := schema.New().Validate([]byte(payload))
	require.Nil(t, verr)
	return res
}

func TestImportSnapshotFullImport(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{ResultCacheTTL: time.Minute})

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.True(t, result.Success)
	assert.False(t, result.ShortCircuited)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.Stats.ClassroomsCreated)
	assert.Equal(t, 3, result.Stats.AssignmentsCreated)
	assert.Equal(t, 2, result.Stats.SubmissionsCreated)
	assert.Equal(t, 0, result.Stats.SubmissionsVersioned)
	assert.Equal(t, 3, result.Stats.EnrollmentsCreated)

	require.NotNil(t, f.archive.stored, "baseline must advance after a clean import")
	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, models.ImportOutcomeImported, f.runs.runs[0].Outcome)
	assert.Equal(t, f.runs.runs[0].ID, result.RunID)
	assert.Contains(t, f.cache.values, "import:last:owner-1")
}

func TestImportSnapshotShortCircuitsOnIdenticalBaseline(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})

	res, verr := schema.New().Validate([]byte(importPayload))
	require.Nil(t, verr)
	ents := mapper.Map(res, "owner-1")
	baseline, err := canonical.Build(res.Teacher(), res.Metadata(), ents)
	require.NoError(t, err)
	f.archive.baseline = baseline

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.True(t, result.Success)
	assert.True(t, result.ShortCircuited)
	assert.Equal(t, models.ImportStats{}, result.Stats)
	assert.Empty(t, f.classrooms.upserts, "short circuit must not write")
	assert.Empty(t, f.assignments.upserts)
	assert.Empty(t, f.submissions.upserts)
	assert.Empty(t, f.enrollments.upserts)
	assert.Nil(t, f.archive.stored)

	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, models.ImportOutcomeShortCircuited, f.runs.runs[0].Outcome)
}

func TestImportSnapshotVersionsChangedSubmission(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})

	// Seed the store with a stale latest for one lineage; the incoming
	// snapshot's hash differs so the lineage must gain a new version.
	f.submissions.latest = map[string]models.Submission{
		models.SubmissionKey("c1_a1", "stu1"): {
			ID: "c1_a1_s1", AssignmentID: "c1_a1", StudentID: "stu1",
			Version: 1, IsLatest: true, ContentHash: "stale-hash",
		},
	}

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Stats.SubmissionsVersioned)
	assert.Equal(t, 1, result.Stats.SubmissionsCreated, "the untouched lineage is still created")
	require.Len(t, f.submissions.versioned, 1)
	assert.Equal(t, "c1_a1_s1", f.submissions.versioned[0].ID)
}

func TestImportSnapshotMergesMetadataOnlyChangeOntoLatestRow(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})

	// The stored latest is a versioned row whose content hash matches the
	// incoming submission. The hash excludes link and name metadata, so the
	// document must still be merged, targeting the versioned row's id and
	// leaving the lineage unversioned.
	res := validated(t, importPayload)
	ents := mapper.Map(res, "owner-1")
	prev := ents.Submissions[0]
	prev.ID = prev.ID + "_v3"
	prev.Version = 3
	f.submissions.latest = map[string]models.Submission{
		models.SubmissionKey(prev.AssignmentID, prev.StudentID): prev,
	}

	payload := strings.Replace(importPayload, `"content": "answer"`,
		`"content": "answer", "alternateLink": "https://classroom/s1"`, 1)
	result := f.svc.ImportSnapshot(context.Background(), validated(t, payload), owner())

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Stats.SubmissionsVersioned)
	assert.Empty(t, f.submissions.versioned)

	require.Len(t, f.submissions.upserts, 1)
	var merged *models.Submission
	for i := range f.submissions.upserts[0] {
		if f.submissions.upserts[0][i].StudentID == prev.StudentID {
			merged = &f.submissions.upserts[0][i]
		}
	}
	require.NotNil(t, merged, "the metadata-only change must reach the store")
	assert.Equal(t, prev.ID, merged.ID)
	assert.Equal(t, prev.Version, merged.Version)
	assert.Equal(t, "https://classroom/s1", merged.Payload["alternate_link"])
}

func TestImportSnapshotVersionsSubmissionWithoutAssignmentEntry(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})

	// A submission can reference a course work absent from the payload's
	// assignment list. Its lineage must still be looked up and versioned on
	// a content change rather than rewritten in place.
	payload := strings.Replace(importPayload, `"submissions": [`,
		`"submissions": [
			{"id": "s9", "courseId": "c1", "courseWorkId": "a9", "studentId": "stu9", "content": "revised"},`, 1)
	f.submissions.latest = map[string]models.Submission{
		models.SubmissionKey("c1_a9", "stu9"): {
			ID: "c1_a9_s9", AssignmentID: "c1_a9", StudentID: "stu9",
			Version: 1, IsLatest: true, ContentHash: "stale-hash",
		},
	}

	result := f.svc.ImportSnapshot(context.Background(), validated(t, payload), owner())

	assert.True(t, result.Success)
	assert.Contains(t, f.submissions.lookedUpIDs, "c1_a9")
	assert.Equal(t, 1, result.Stats.SubmissionsVersioned)
	require.Len(t, f.submissions.versioned, 1)
	assert.Equal(t, "c1_a9_s9", f.submissions.versioned[0].ID)
	for _, batch := range f.submissions.upserts {
		for _, sub := range batch {
			assert.NotEqual(t, "c1_a9_s9", sub.ID, "a changed lineage must not take the merge path")
		}
	}
}

func TestImportSnapshotLockConflict(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{LockEnabled: true, LockTTL: time.Minute})
	f.locker.acquired = false

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "lock", result.Errors[0].Stage)
	assert.Empty(t, f.classrooms.upserts)
	assert.False(t, f.locker.released, "a lease we never held must not be released")
}

func TestImportSnapshotLockErrorProceeds(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{LockEnabled: true, LockTTL: time.Minute})
	f.locker.err = fmt.Errorf("redis down")

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.True(t, result.Success)
	assert.NotEmpty(t, f.classrooms.upserts)
}

func TestImportSnapshotClassroomFailureAbortsDependents(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})
	f.classrooms.upsertErr = fmt.Errorf("write rejected")

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.False(t, result.Success)
	assert.Empty(t, f.assignments.upserts)
	assert.Empty(t, f.submissions.upserts)
	assert.Empty(t, f.enrollments.upserts)
	assert.Nil(t, f.archive.stored, "baseline must not advance after a failed persist")

	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, models.ImportOutcomeFailed, f.runs.runs[0].Outcome)
}

func TestImportSnapshotAssignmentFailureStillProcessesEnrollments(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})
	f.assignments.upsertErr = fmt.Errorf("write rejected")

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.False(t, result.Success)
	assert.Empty(t, f.submissions.upserts, "submissions depend on assignments")
	assert.NotEmpty(t, f.enrollments.upserts, "enrollments only depend on classrooms")
	assert.Nil(t, f.archive.stored)
}

func TestImportSnapshotAggregationFailureIsNonFatal(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})
	f.classrooms.recompErr = fmt.Errorf("aggregate timeout")

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.True(t, result.Success)
	assert.True(t, result.StaleCounts)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "aggregate", result.Errors[0].Stage)
	assert.NotNil(t, f.archive.stored, "aggregation failures do not block the baseline")

	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, models.ImportOutcomePartial, f.runs.runs[0].Outcome)
}

func TestImportSnapshotArchiveFailureIsNonFatal(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})
	f.archive.putErr = fmt.Errorf("disk full")

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.True(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "archive", result.Errors[0].Stage)
}

func TestImportSnapshotBaselineReadFailureFallsBackToFullImport(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})
	f.archive.getErr = fmt.Errorf("archive unreachable")

	result := f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.True(t, result.Success)
	assert.False(t, result.ShortCircuited)
	assert.NotEmpty(t, f.classrooms.upserts)
}

func TestImportSnapshotReleasesLock(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{LockEnabled: true, LockTTL: time.Minute})

	f.svc.ImportSnapshot(context.Background(), validated(t, importPayload), owner())

	assert.True(t, f.locker.released)
}

func TestDiffAgainstBaseline(t *testing.T) {
	f := newImportFixture(ImportServiceConfig{})

	hasBaseline, diff, err := f.svc.Diff(context.Background(), validated(t, importPayload), "owner-1")
	require.NoError(t, err)
	assert.False(t, hasBaseline)
	assert.Nil(t, diff)

	res, verr := schema.New().Validate([]byte(importPayload))
	require.Nil(t, verr)
	ents := mapper.Map(res, "owner-1")
	baseline, err := canonical.Build(res.Teacher(), res.Metadata(), ents)
	require.NoError(t, err)
	f.archive.baseline = baseline

	hasBaseline, diff, err = f.svc.Diff(context.Background(), validated(t, importPayload), "owner-1")
	require.NoError(t, err)
	assert.True(t, hasBaseline)
	require.NotNil(t, diff)
	assert.True(t, diff.Empty())
}
