package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	"github.com/itad-lab/itad-metrics/internal/core/storage"
	"github.com/itad-lab/itad-metrics/internal/index"
)

// Status is the per-record outcome of an ingestion attempt.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusDuplicate Status = "duplicate"
	StatusError     Status = "error"
)

// ReasonStorageFailure is reported when the persistence backend fails for a record.
const ReasonStorageFailure = "StorageFailure"

const defaultReplayPageSize = 5000

// Store is the Record Store: an append-only in-process log of accepted records
// in front of a durable backend. The durable write happens first; a record is
// appended to the log and indexed only after the backend accepted it.
//
// Log positions (versions) start at 1. The indexer watermark is the version
// readers may treat as consistent.
type Store struct {
	backend storage.RecordStore
	indexer *index.Indexer
	now     func() time.Time

	mu       sync.Mutex
	log      []*v1.AssetRecord
	ids      map[string]struct{} // accepted
	inflight map[string]struct{} // reserved while the backend write runs
}

// NewStore creates a Record Store over backend, indexing into ix.
func NewStore(backend storage.RecordStore, ix *index.Indexer) *Store {
	if backend == nil {
		panic("ingestion: backend must not be nil")
	}
	if ix == nil {
		panic("ingestion: indexer must not be nil")
	}
	return &Store{
		backend:  backend,
		indexer:  ix,
		now:      time.Now,
		ids:      make(map[string]struct{}),
		inflight: make(map[string]struct{}),
	}
}

// Append persists a validated record, then appends and indexes it.
// A record whose id is already known (or concurrently being written) is a
// duplicate and is not stored again. Backend failures return StatusError with
// the wrapped cause.
func (s *Store) Append(ctx context.Context, rec *v1.AssetRecord) (Status, error) {
	s.mu.Lock()
	_, known := s.ids[rec.ID]
	_, busy := s.inflight[rec.ID]
	if known || busy {
		s.mu.Unlock()
		return StatusDuplicate, nil
	}
	s.inflight[rec.ID] = struct{}{}
	s.mu.Unlock()

	rec.IngestedAt = s.now().UTC()
	err := s.backend.SaveRecord(ctx, rec)

	s.mu.Lock()
	delete(s.inflight, rec.ID)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Persisted earlier but not replayed into this process.
			s.ids[rec.ID] = struct{}{}
			s.mu.Unlock()
			return StatusDuplicate, nil
		}
		s.mu.Unlock()
		return StatusError, fmt.Errorf("persist record %s: %w", rec.ID, err)
	}
	version := s.appendLocked(rec)
	s.mu.Unlock()

	s.indexer.Add(version, rec)
	return StatusAccepted, nil
}

func (s *Store) appendLocked(rec *v1.AssetRecord) int64 {
	s.log = append(s.log, rec)
	s.ids[rec.ID] = struct{}{}
	return int64(len(s.log))
}

// Replay loads every persisted record from the backend, in ingest_seq order,
// into the log and indexer. It is meant to run once at startup before any
// ingestion, and returns the number of records loaded.
func (s *Store) Replay(ctx context.Context, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = defaultReplayPageSize
	}

	var (
		cursor int64
		loaded int
	)
	for {
		select {
		case <-ctx.Done():
			return loaded, ctx.Err()
		default:
		}

		page, err := s.backend.RetrieveRecordsAfterCursor(ctx, cursor, pageSize)
		if err != nil {
			return loaded, fmt.Errorf("replay after cursor %d: %w", cursor, err)
		}

		for _, rec := range page {
			s.mu.Lock()
			if _, dup := s.ids[rec.ID]; dup {
				s.mu.Unlock()
				continue
			}
			version := s.appendLocked(rec)
			s.mu.Unlock()

			s.indexer.Add(version, rec)
			loaded++
		}

		if len(page) < pageSize {
			break
		}
		cursor = page[len(page)-1].IngestSeq
		slog.Debug("[Store] Replay page loaded", "cursor", cursor, "loaded", loaded)
	}

	slog.Info("[Store] Replay complete", "records", loaded, "version", s.Version())
	return loaded, nil
}

// Version returns the latest version whose records are all indexed.
func (s *Store) Version() int64 {
	return s.indexer.Watermark()
}

// Len returns the number of records in the log, including any still being indexed.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

// Indexer returns the indexer the store feeds.
func (s *Store) Indexer() *index.Indexer {
	return s.indexer
}
