package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
)

// ErrDuplicate is returned when a record with the same id already exists.
var ErrDuplicate = errors.New("record already exists")

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("not found")

// RecordStore defines the durable append-only log of accepted asset records.
type RecordStore interface {
	// SaveRecord persists a record and populates its IngestSeq.
	// Returns ErrDuplicate if a record with the same id already exists.
	SaveRecord(ctx context.Context, record *v1.AssetRecord) error

	// RetrieveRecordsAfterCursor fetches records after a cursor (ingest_seq) in strict total order.
	// cursor=0 means "from the beginning"
	RetrieveRecordsAfterCursor(ctx context.Context, cursor int64, limit int) ([]*v1.AssetRecord, error)
}

// ArchivedSnapshot is one published snapshot as stored in the archive.
// Payload is the snapshot's JSON encoding.
type ArchivedSnapshot struct {
	Version     int64
	SnapshotID  string
	GeneratedAt time.Time
	Payload     []byte
}

// SnapshotArchive keeps published snapshots so a restart can resume from the
// last published version.
type SnapshotArchive interface {
	// SaveSnapshot stores a snapshot. Saving a version twice is a no-op.
	SaveSnapshot(ctx context.Context, snap ArchivedSnapshot) error

	// LoadLatestSnapshot returns the highest archived version, or ErrNotFound.
	LoadLatestSnapshot(ctx context.Context) (*ArchivedSnapshot, error)

	// ListSnapshots returns up to limit archived snapshots, newest first, without payloads.
	ListSnapshots(ctx context.Context, limit int) ([]ArchivedSnapshot, error)
}

// Pinger reports backend reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}
