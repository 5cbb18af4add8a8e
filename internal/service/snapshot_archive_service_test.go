package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codepet/classroom-sync-api/internal/canonical"
	"github.com/codepet/classroom-sync-api/internal/models"
)

type fakeArchiveStore struct {
	record *models.SnapshotArchiveRecord
	getErr error
	putErr error
}

func (f *fakeArchiveStore) Get(context.Context, string) (*models.SnapshotArchiveRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.record, nil
}

func (f *fakeArchiveStore) Put(_ context.Context, record *models.SnapshotArchiveRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.record = record
	return nil
}

func archiveSnapshot() *canonical.Snapshot {
	return &canonical.Snapshot{
		Teacher: models.TeacherInfo{Name: "Jane Roe", Email: "jane@school.edu"},
		Source:  "classroom",
		Version: "2.0",
		Classrooms: []canonical.Record{
			{ID: "c1", Fields: map[string]interface{}{"name": "Physics"}},
		},
	}
}

func TestArchivePutGetRoundTrip(t *testing.T) {
	store := &fakeArchiveStore{}
	svc := NewSnapshotArchiveService(store, zap.NewNop())

	require.NoError(t, svc.Put(context.Background(), "owner-1", archiveSnapshot()))
	require.NotNil(t, store.record)
	assert.Equal(t, "owner-1", store.record.OwnerID)
	assert.Positive(t, store.record.OriginalBytes)
	assert.Positive(t, store.record.CompressedBytes)

	got, found, err := svc.Get(context.Background(), "owner-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, archiveSnapshot(), got)
}

func TestArchiveGetAbsent(t *testing.T) {
	svc := NewSnapshotArchiveService(&fakeArchiveStore{getErr: sql.ErrNoRows}, zap.NewNop())

	got, found, err := svc.Get(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

// A corrupt archive degrades to a full import rather than failing the run.
func TestArchiveGetCorruptTreatedAsAbsent(t *testing.T) {
	store := &fakeArchiveStore{record: &models.SnapshotArchiveRecord{
		OwnerID:    "owner-1",
		Compressed: []byte("not gzip at all"),
	}}
	svc := NewSnapshotArchiveService(store, zap.NewNop())

	got, found, err := svc.Get(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}
