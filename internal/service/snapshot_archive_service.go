package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/codepet/classroom-sync-api/internal/canonical"
	"github.com/codepet/classroom-sync-api/internal/models"
)

type archiveStore interface {
	Get(ctx context.Context, ownerID string) (*models.SnapshotArchiveRecord, error)
	Put(ctx context.Context, record *models.SnapshotArchiveRecord) error
}

// SnapshotArchiveService compresses and stores the canonical snapshot kept
// per owner as the baseline for the next import's diff.
type SnapshotArchiveService struct {
	repo   archiveStore
	logger *zap.Logger
}

// NewSnapshotArchiveService constructs the service.
func NewSnapshotArchiveService(repo archiveStore, logger *zap.Logger) *SnapshotArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotArchiveService{repo: repo, logger: logger}
}

// Get returns the archived canonical snapshot for an owner. Absence is a
// normal case and never an error. A record that fails to decompress or parse
// is treated as absent so the pipeline degrades to a full import.
func (s *SnapshotArchiveService) Get(ctx context.Context, ownerID string) (*canonical.Snapshot, bool, error) {
	record, err := s.repo.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch snapshot archive: %w", err)
	}

	raw, err := decompress(record.Compressed)
	if err != nil {
		s.logger.Warn("archived snapshot unreadable, treating as absent",
			zap.String("owner_id", ownerID), zap.Error(err))
		return nil, false, nil
	}
	snap, err := canonical.Parse(raw)
	if err != nil {
		s.logger.Warn("archived snapshot unparsable, treating as absent",
			zap.String("owner_id", ownerID), zap.Error(err))
		return nil, false, nil
	}
	return snap, true, nil
}

// Put compresses the canonical snapshot and overwrites the owner's record,
// recording sizes and ratio for observability.
func (s *SnapshotArchiveService) Put(ctx context.Context, ownerID string, snap *canonical.Snapshot) error {
	raw, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("serialize canonical snapshot: %w", err)
	}

	compressed, err := compress(raw)
	if err != nil {
		return fmt.Errorf("compress canonical snapshot: %w", err)
	}

	record := &models.SnapshotArchiveRecord{
		OwnerID:         ownerID,
		Compressed:      compressed,
		OriginalBytes:   len(raw),
		CompressedBytes: len(compressed),
		LastImportedAt:  time.Now().UTC(),
	}
	if len(raw) > 0 {
		record.CompressionRatio = float64(len(compressed)) / float64(len(raw))
	}

	if err := s.repo.Put(ctx, record); err != nil {
		return err
	}

	s.logger.Debug("snapshot archived",
		zap.String("owner_id", ownerID),
		zap.Int("original_bytes", record.OriginalBytes),
		zap.Int("compressed_bytes", record.CompressedBytes),
		zap.Float64("ratio", record.CompressionRatio))
	return nil
}

func compress(raw []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := gzip.NewWriter(buf)
	if _, err := writer.Write(raw); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
