// Package memory provides in-process implementations of the storage interfaces
// for development and tests. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	"github.com/itad-lab/itad-metrics/internal/core/storage"
)

// RecordStore implements storage.RecordStore in memory.
type RecordStore struct {
	mu      sync.RWMutex
	records []*v1.AssetRecord
	ids     map[string]struct{}
	seq     int64
}

func NewRecordStore() *RecordStore {
	return &RecordStore{ids: make(map[string]struct{})}
}

func (s *RecordStore) SaveRecord(_ context.Context, rec *v1.AssetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[rec.ID]; exists {
		return storage.ErrDuplicate
	}
	s.seq++
	rec.IngestSeq = s.seq

	stored := *rec
	s.records = append(s.records, &stored)
	s.ids[rec.ID] = struct{}{}
	return nil
}

func (s *RecordStore) RetrieveRecordsAfterCursor(_ context.Context, cursor int64, limit int) ([]*v1.AssetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// records are appended in seq order, starting at 1
	start := sort.Search(len(s.records), func(i int) bool { return s.records[i].IngestSeq > cursor })

	var out []*v1.AssetRecord
	for i := start; i < len(s.records) && len(out) < limit; i++ {
		rec := *s.records[i]
		out = append(out, &rec)
	}
	return out, nil
}

func (s *RecordStore) Ping(context.Context) error { return nil }

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// SnapshotArchive implements storage.SnapshotArchive in memory.
type SnapshotArchive struct {
	mu        sync.RWMutex
	snapshots map[int64]storage.ArchivedSnapshot
}

func NewSnapshotArchive() *SnapshotArchive {
	return &SnapshotArchive{snapshots: make(map[int64]storage.ArchivedSnapshot)}
}

func (a *SnapshotArchive) SaveSnapshot(_ context.Context, snap storage.ArchivedSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.snapshots[snap.Version]; exists {
		return nil
	}
	snap.Payload = append([]byte(nil), snap.Payload...)
	a.snapshots[snap.Version] = snap
	return nil
}

func (a *SnapshotArchive) LoadLatestSnapshot(_ context.Context) (*storage.ArchivedSnapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var latest *storage.ArchivedSnapshot
	for v := range a.snapshots {
		if latest == nil || v > latest.Version {
			snap := a.snapshots[v]
			latest = &snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	latest.Payload = append([]byte(nil), latest.Payload...)
	return latest, nil
}

func (a *SnapshotArchive) ListSnapshots(_ context.Context, limit int) ([]storage.ArchivedSnapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]storage.ArchivedSnapshot, 0, len(a.snapshots))
	for _, snap := range a.snapshots {
		snap.Payload = nil
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
