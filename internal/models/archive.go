package models

import "time"

// SnapshotArchiveRecord stores the most recent canonical snapshot per owner,
// compressed. It exists solely as the baseline for the next import's diff and
// is never exposed through read APIs.
type SnapshotArchiveRecord struct {
	OwnerID          string    `db:"owner_id" json:"owner_id"`
	Compressed       []byte    `db:"compressed" json:"-"`
	OriginalBytes    int       `db:"original_bytes" json:"original_bytes"`
	CompressedBytes  int       `db:"compressed_bytes" json:"compressed_bytes"`
	CompressionRatio float64   `db:"compression_ratio" json:"compression_ratio"`
	LastImportedAt   time.Time `db:"last_imported_at" json:"last_imported_at"`
}
