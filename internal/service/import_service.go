package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/codepet/classroom-sync-api/internal/canonical"
	"github.com/codepet/classroom-sync-api/internal/mapper"
	"github.com/codepet/classroom-sync-api/internal/models"
	"github.com/codepet/classroom-sync-api/internal/schema"
	appErrors "github.com/codepet/classroom-sync-api/pkg/errors"
)

type classroomStore interface {
	UpsertMany(ctx context.Context, classrooms []models.Classroom) (int, int, error)
	RecomputeCounts(ctx context.Context, ownerID string) error
}

type assignmentStore interface {
	UpsertMany(ctx context.Context, assignments []models.Assignment) (int, int, error)
	RecomputeCounts(ctx context.Context, ownerID string) error
}

type submissionStore interface {
	ListLatestByAssignmentIDs(ctx context.Context, assignmentIDs []string) (map[string]models.Submission, error)
	UpsertMany(ctx context.Context, submissions []models.Submission) (int, int, error)
	CreateVersion(ctx context.Context, incoming models.Submission) (*models.Submission, error)
}

type enrollmentStore interface {
	UpsertMany(ctx context.Context, enrollments []models.Enrollment) (int, int, error)
	MarkRemovedExcept(ctx context.Context, ownerID string, keepIDs []string) (int64, error)
	RecomputeCounts(ctx context.Context, ownerID string) error
}

type snapshotArchive interface {
	Get(ctx context.Context, ownerID string) (*canonical.Snapshot, bool, error)
	Put(ctx context.Context, ownerID string, snap *canonical.Snapshot) error
}

type importRunStore interface {
	Create(ctx context.Context, run *models.ImportRun) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.ImportRun, error)
}

type importLocker interface {
	AcquireImportLock(ctx context.Context, ownerID string, ttl time.Duration) (bool, error)
	ReleaseImportLock(ctx context.Context, ownerID string)
}

type resultCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type importMetrics interface {
	ObserveImport(outcome string, duration time.Duration)
	AddEntitiesWritten(entity string, n int)
	IncShortCircuit()
}

// ImportServiceConfig tunes runtime behavior of the import pipeline.
type ImportServiceConfig struct {
	LockEnabled    bool
	LockTTL        time.Duration
	ResultCacheTTL time.Duration
}

// ImportService runs the snapshot pipeline: validate, map, canonicalize,
// diff against the archived baseline, persist changed entities, recompute
// aggregates and archive the new baseline.
type ImportService struct {
	validator   *schema.Validator
	classrooms  classroomStore
	assignments assignmentStore
	submissions submissionStore
	enrollments enrollmentStore
	archive     snapshotArchive
	runs        importRunStore
	locker      importLocker
	cache       resultCache
	metrics     importMetrics
	cfg         ImportServiceConfig
	logger      *zap.Logger
}

// NewImportService constructs the service. Locker, cache and metrics may be
// nil; the corresponding behavior is skipped.
func NewImportService(
	validator *schema.Validator,
	classrooms classroomStore,
	assignments assignmentStore,
	submissions submissionStore,
	enrollments enrollmentStore,
	archive snapshotArchive,
	runs importRunStore,
	locker importLocker,
	cache resultCache,
	metrics importMetrics,
	cfg ImportServiceConfig,
	logger *zap.Logger,
) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		validator:   validator,
		classrooms:  classrooms,
		assignments: assignments,
		submissions: submissions,
		enrollments: enrollments,
		archive:     archive,
		runs:        runs,
		locker:      locker,
		cache:       cache,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
	}
}

func importLastResultKey(ownerID string) string {
	return "import:last:" + ownerID
}

// Validate checks a raw payload against both schema generations without
// touching storage.
func (s *ImportService) Validate(raw []byte) (*schema.Result, *schema.ValidationError) {
	return s.validator.Validate(raw)
}

// Diff canonicalizes an already validated payload and compares it against
// the owner's archived baseline. The boolean reports whether a baseline
// existed; without one the diff is nil and a subsequent import processes
// everything.
func (s *ImportService) Diff(ctx context.Context, res *schema.Result, ownerID string) (bool, *canonical.DiffResult, error) {
	ents := mapper.Map(res, ownerID)
	curr, err := canonical.Build(res.Teacher(), res.Metadata(), ents)
	if err != nil {
		return false, nil, err
	}

	baseline, found, err := s.archive.Get(ctx, ownerID)
	if err != nil {
		return false, nil, err
	}
	if !found {
		return false, nil, nil
	}
	return true, canonical.Diff(baseline, curr), nil
}

// LastResult returns the most recent import result cached for an owner.
func (s *ImportService) LastResult(ctx context.Context, ownerID string) (*models.ImportResult, error) {
	if s.cache == nil {
		return nil, appErrors.ErrCacheMiss
	}
	result := &models.ImportResult{}
	if err := s.cache.Get(ctx, importLastResultKey(ownerID), result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListRuns returns the owner's recent import audit rows, newest first.
func (s *ImportService) ListRuns(ctx context.Context, ownerID string, limit int) ([]models.ImportRun, error) {
	return s.runs.ListByOwner(ctx, ownerID, limit)
}

// ImportSnapshot runs the full pipeline for one owner over a payload the
// caller has already validated. Lock conflicts abort before any write;
// persistence failures of a parent collection skip its dependents;
// aggregation and archive failures are reported but do not fail the run.
func (s *ImportService) ImportSnapshot(ctx context.Context, res *schema.Result, owner models.OwnerContext) *models.ImportResult {
	started := time.Now()
	result := &models.ImportResult{OwnerID: owner.OwnerID}

	if s.cfg.LockEnabled && s.locker != nil {
		acquired, err := s.locker.AcquireImportLock(ctx, owner.OwnerID, s.cfg.LockTTL)
		if err != nil {
			s.logger.Warn("import lock unavailable, proceeding without lease",
				zap.String("owner_id", owner.OwnerID), zap.Error(err))
		} else if !acquired {
			result.Errors = append(result.Errors, models.ImportError{
				Stage:   "lock",
				Message: appErrors.ErrImportLocked.Message,
			})
			result.ProcessingTimeMs = time.Since(started).Milliseconds()
			s.observe(models.ImportOutcomeFailed, started)
			return result
		} else {
			defer s.locker.ReleaseImportLock(ctx, owner.OwnerID)
		}
	}

	ents := mapper.Map(res, owner.OwnerID)
	curr, err := canonical.Build(res.Teacher(), res.Metadata(), ents)
	if err != nil {
		result.Errors = append(result.Errors, models.ImportError{
			Stage:   "canonicalize",
			Message: err.Error(),
		})
		s.finalize(ctx, result, models.ImportOutcomeFailed, started)
		return result
	}

	baseline, hasBaseline, err := s.archive.Get(ctx, owner.OwnerID)
	if err != nil {
		// A missing or unreadable baseline only costs a full import.
		s.logger.Warn("baseline archive unavailable, importing everything",
			zap.String("owner_id", owner.OwnerID), zap.Error(err))
		hasBaseline = false
	}

	if hasBaseline {
		diff := canonical.Diff(baseline, curr)
		if diff.Empty() {
			result.Success = true
			result.ShortCircuited = true
			if s.metrics != nil {
				s.metrics.IncShortCircuit()
			}
			s.finalize(ctx, result, models.ImportOutcomeShortCircuited, started)
			return result
		}
	}

	persistFailed := s.persist(ctx, ents, owner.OwnerID, result)

	if !persistFailed {
		s.recomputeAggregates(ctx, owner.OwnerID, result)

		// The archive only advances when every write landed; otherwise the
		// next run must not diff itself into skipping the missed entities.
		if err := s.archive.Put(ctx, owner.OwnerID, curr); err != nil {
			result.Errors = append(result.Errors, models.ImportError{
				Stage:   "archive",
				Message: err.Error(),
			})
		}
	}

	outcome := models.ImportOutcomeImported
	switch {
	case persistFailed:
		outcome = models.ImportOutcomeFailed
	case len(result.Errors) > 0:
		result.Success = true
		outcome = models.ImportOutcomePartial
	default:
		result.Success = true
	}
	s.finalize(ctx, result, outcome, started)
	return result
}

// persist writes the entity set parent-first. A classroom failure aborts all
// dependents; an assignment failure skips submissions but still processes
// enrollments, which only depend on classrooms. It reports whether any
// persistence stage failed.
func (s *ImportService) persist(ctx context.Context, ents *mapper.Entities, ownerID string, result *models.ImportResult) bool {
	created, updated, err := s.classrooms.UpsertMany(ctx, ents.Classrooms)
	result.Stats.ClassroomsCreated = created
	result.Stats.ClassroomsUpdated = updated
	s.countWritten("classroom", created+updated)
	if err != nil {
		result.Errors = append(result.Errors, models.ImportError{
			Stage: "persist", Entity: "classrooms", Message: err.Error(),
		})
		return true
	}

	failed := false

	created, updated, err = s.assignments.UpsertMany(ctx, ents.Assignments)
	result.Stats.AssignmentsCreated = created
	result.Stats.AssignmentsUpdated = updated
	s.countWritten("assignment", created+updated)
	if err != nil {
		result.Errors = append(result.Errors, models.ImportError{
			Stage: "persist", Entity: "assignments", Message: err.Error(),
		})
		failed = true
	} else if err := s.persistSubmissions(ctx, ents, result); err != nil {
		result.Errors = append(result.Errors, models.ImportError{
			Stage: "persist", Entity: "submissions", Message: err.Error(),
		})
		failed = true
	}

	created, updated, err = s.enrollments.UpsertMany(ctx, ents.Enrollments)
	result.Stats.EnrollmentsCreated = created
	result.Stats.EnrollmentsUpdated = updated
	s.countWritten("enrollment", created+updated)
	if err != nil {
		result.Errors = append(result.Errors, models.ImportError{
			Stage: "persist", Entity: "enrollments", Message: err.Error(),
		})
		return true
	}

	keep := make([]string, 0, len(ents.Enrollments))
	for _, e := range ents.Enrollments {
		keep = append(keep, e.ID)
	}
	removed, err := s.enrollments.MarkRemovedExcept(ctx, ownerID, keep)
	result.Stats.EnrollmentsRemoved = int(removed)
	if err != nil {
		result.Errors = append(result.Errors, models.ImportError{
			Stage: "persist", Entity: "enrollments", Message: err.Error(),
		})
		failed = true
	}

	return failed
}

// persistSubmissions routes each incoming submission by comparing its content
// hash against the current latest of its lineage: new lineages are created,
// changed content becomes a new version, and hash-equal documents are merged
// onto the current latest row so metadata outside the hash still lands.
func (s *ImportService) persistSubmissions(ctx context.Context, ents *mapper.Entities, result *models.ImportResult) error {
	// The lookup keys off the submissions themselves, not the assignment
	// list, so a lineage whose assignment is absent from this payload still
	// goes through the version check instead of rewriting its base row.
	assignmentIDs := make([]string, 0, len(ents.Submissions))
	seen := make(map[string]struct{}, len(ents.Submissions))
	for _, sub := range ents.Submissions {
		if _, ok := seen[sub.AssignmentID]; ok {
			continue
		}
		seen[sub.AssignmentID] = struct{}{}
		assignmentIDs = append(assignmentIDs, sub.AssignmentID)
	}

	latest, err := s.submissions.ListLatestByAssignmentIDs(ctx, assignmentIDs)
	if err != nil {
		return err
	}

	fresh := make([]models.Submission, 0, len(ents.Submissions))
	for _, sub := range ents.Submissions {
		prev, ok := latest[models.SubmissionKey(sub.AssignmentID, sub.StudentID)]
		if !ok {
			fresh = append(fresh, sub)
			continue
		}
		if prev.ContentHash == sub.ContentHash {
			// Fields outside the content hash (student name, links, upstream
			// timestamps) may still have changed. Redirect the merge to the
			// current latest row; the conflict clause never touches version
			// bookkeeping.
			sub.ID = prev.ID
			sub.Version = prev.Version
			sub.PreviousVersionID = prev.PreviousVersionID
			fresh = append(fresh, sub)
			continue
		}
		if _, err := s.submissions.CreateVersion(ctx, sub); err != nil {
			return err
		}
		result.Stats.SubmissionsVersioned++
		s.countWritten("submission", 1)
	}

	created, updated, err := s.submissions.UpsertMany(ctx, fresh)
	result.Stats.SubmissionsCreated = created
	result.Stats.SubmissionsUpdated = updated
	s.countWritten("submission", created+updated)
	return err
}

// recomputeAggregates refreshes the derived counts. Failures leave the counts
// stale until the next run but never fail the import.
func (s *ImportService) recomputeAggregates(ctx context.Context, ownerID string, result *models.ImportResult) {
	type job struct {
		entity string
		run    func(context.Context, string) error
	}
	jobs := []job{
		{"classrooms", s.classrooms.RecomputeCounts},
		{"assignments", s.assignments.RecomputeCounts},
		{"enrollments", s.enrollments.RecomputeCounts},
	}
	for _, j := range jobs {
		if err := j.run(ctx, ownerID); err != nil {
			result.StaleCounts = true
			result.Errors = append(result.Errors, models.ImportError{
				Stage: "aggregate", Entity: j.entity, Message: err.Error(),
			})
		}
	}
}

// finalize stamps the result, records the audit row, caches the result and
// emits metrics. Bookkeeping failures are logged, never surfaced.
func (s *ImportService) finalize(ctx context.Context, result *models.ImportResult, outcome string, started time.Time) {
	result.ProcessingTimeMs = time.Since(started).Milliseconds()

	run := &models.ImportRun{
		OwnerID:        result.OwnerID,
		Outcome:        outcome,
		ShortCircuited: result.ShortCircuited,
		ErrorCount:     len(result.Errors),
		DurationMs:     result.ProcessingTimeMs,
	}
	if stats, err := json.Marshal(result.Stats); err == nil {
		run.Stats = stats
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Warn("failed to record import run",
			zap.String("owner_id", result.OwnerID), zap.Error(err))
	}
	result.RunID = run.ID

	if s.cache != nil && s.cfg.ResultCacheTTL > 0 {
		if err := s.cache.Set(ctx, importLastResultKey(result.OwnerID), result, s.cfg.ResultCacheTTL); err != nil {
			s.logger.Warn("failed to cache import result",
				zap.String("owner_id", result.OwnerID), zap.Error(err))
		}
	}

	s.observe(outcome, started)
	s.logger.Info("import finished",
		zap.String("owner_id", result.OwnerID),
		zap.String("outcome", outcome),
		zap.Bool("short_circuited", result.ShortCircuited),
		zap.Int("errors", len(result.Errors)),
		zap.Int64("duration_ms", result.ProcessingTimeMs))
}

func (s *ImportService) observe(outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveImport(outcome, time.Since(started))
	}
}

func (s *ImportService) countWritten(entity string, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.AddEntitiesWritten(entity, n)
	}
}
