// Package index maintains the secondary indices that group accepted records
// by dimension value and calendar bucket.
package index

import (
	"sort"
	"sync"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/itad-lab/itad-metrics/internal/core/partition"
)

// Kind names one index.
type Kind string

const (
	ByDeviceType    Kind = "device"
	BySegment       Kind = "segment"
	ByCertification Kind = "certification"
	ByMonth         Kind = "month"
	ByQuarter       Kind = "quarter"
)

// Kinds lists every maintained index.
var Kinds = []Kind{ByDeviceType, BySegment, ByCertification, ByMonth, ByQuarter}

// KindFor maps a grouping dimension to its index. DimensionOverall has none.
func KindFor(d metrics.Dimension) (Kind, bool) {
	switch d {
	case metrics.DimensionDevice:
		return ByDeviceType, true
	case metrics.DimensionSegment:
		return BySegment, true
	case metrics.DimensionCertification:
		return ByCertification, true
	}
	return "", false
}

type indexKey struct {
	kind Kind
	key  string
}

// keysOf returns the key of a record in every index.
func keysOf(rec *v1.AssetRecord) [5]indexKey {
	return [5]indexKey{
		{ByDeviceType, string(rec.DeviceType)},
		{BySegment, string(rec.CustomerSegment)},
		{ByCertification, string(rec.Certification)},
		{ByMonth, string(metrics.MonthOf(rec.DispositionDate))},
		{ByQuarter, string(metrics.QuarterOf(rec.DispositionDate))},
	}
}

type entry struct {
	version int64
	rec     *v1.AssetRecord
}

type stripe struct {
	mu      sync.RWMutex
	entries map[string][]entry // keyed by kind + ":" + key
}

// Indexer is an append-only set of record indices.
//
// Each record is added with the Record Store version it was appended at.
// Appends for different keys proceed in parallel under striped locks.
// Readers pass an asOf version and only ever see records at or below it, so a
// reader that uses Watermark() never observes a partially indexed record.
type Indexer struct {
	stripes [partition.Count]stripe

	keysMu sync.RWMutex
	keys   map[Kind]map[string]struct{}

	wmMu      sync.Mutex
	watermark int64
	pending   map[int64]struct{}
}

// New returns an empty indexer.
func New() *Indexer {
	ix := &Indexer{
		keys:    make(map[Kind]map[string]struct{}, len(Kinds)),
		pending: make(map[int64]struct{}),
	}
	for i := range ix.stripes {
		ix.stripes[i].entries = make(map[string][]entry)
	}
	for _, k := range Kinds {
		ix.keys[k] = make(map[string]struct{})
	}
	return ix
}

func compositeKey(kind Kind, key string) string {
	return string(kind) + ":" + key
}

// Add indexes a record appended at the given version. Versions start at 1 and
// each must be added exactly once. Safe for concurrent use.
func (ix *Indexer) Add(version int64, rec *v1.AssetRecord) {
	for _, k := range keysOf(rec) {
		ck := compositeKey(k.kind, k.key)
		s := &ix.stripes[partition.For(ck)]
		s.mu.Lock()
		s.entries[ck] = append(s.entries[ck], entry{version: version, rec: rec})
		s.mu.Unlock()

		ix.keysMu.RLock()
		_, known := ix.keys[k.kind][k.key]
		ix.keysMu.RUnlock()
		if !known {
			ix.keysMu.Lock()
			ix.keys[k.kind][k.key] = struct{}{}
			ix.keysMu.Unlock()
		}
	}

	ix.wmMu.Lock()
	ix.pending[version] = struct{}{}
	for {
		if _, ok := ix.pending[ix.watermark+1]; !ok {
			break
		}
		delete(ix.pending, ix.watermark+1)
		ix.watermark++
	}
	ix.wmMu.Unlock()
}

// Watermark returns the highest version V such that every record at versions
// 1..V is fully indexed.
func (ix *Indexer) Watermark() int64 {
	ix.wmMu.Lock()
	defer ix.wmMu.Unlock()
	return ix.watermark
}

// RecordsFor returns the records under (kind, key) appended at or before asOf,
// in version order.
func (ix *Indexer) RecordsFor(kind Kind, key string, asOf int64) []*v1.AssetRecord {
	ck := compositeKey(kind, key)
	s := &ix.stripes[partition.For(ck)]

	s.mu.RLock()
	entries := s.entries[ck]
	matched := make([]entry, 0, len(entries))
	for _, e := range entries {
		if e.version <= asOf {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].version < matched[j].version })
	out := make([]*v1.AssetRecord, len(matched))
	for i, e := range matched {
		out[i] = e.rec
	}
	return out
}

// Keys returns every key ever seen by an index, sorted. Keys whose records are
// all newer than a reader's asOf simply yield no records.
func (ix *Indexer) Keys(kind Kind) []string {
	ix.keysMu.RLock()
	out := make([]string, 0, len(ix.keys[kind]))
	for k := range ix.keys[kind] {
		out = append(out, k)
	}
	ix.keysMu.RUnlock()

	sort.Strings(out)
	return out
}
