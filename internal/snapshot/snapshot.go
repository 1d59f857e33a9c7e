// Package snapshot builds, versions and publishes immutable metric snapshots.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/itad-lab/itad-metrics/internal/core/storage"
	"github.com/itad-lab/itad-metrics/internal/kpi"
	"github.com/itad-lab/itad-metrics/internal/rollup"
	"github.com/itad-lab/itad-metrics/internal/trend"
)

// Snapshot is one published, immutable bundle of metrics. Once installed it
// is never modified; readers may share it freely.
type Snapshot struct {
	ID          string    `json:"id"`
	Version     int64     `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`

	// RecordVersion is the Record Store version the rollups are consistent with.
	RecordVersion int64 `json:"recordVersion"`

	KPIs        kpi.KPISet              `json:"kpis"`
	Trends      []trend.TrendPoint      `json:"trends"`
	Operational []kpi.OperationalMetric `json:"operational"`
	Rollups     *rollup.Result          `json:"rollups"`

	// EnvironmentalGrowth is carbon saved year over year.
	EnvironmentalGrowth trend.TrendPoint `json:"environmentalGrowth"`
}

// Label is the period label used for snapshot-to-snapshot trends.
func (s *Snapshot) Label() string {
	return fmt.Sprintf("v%d", s.Version)
}

// Summary describes a snapshot without its data.
type Summary struct {
	ID            string    `json:"id"`
	Version       int64     `json:"version"`
	GeneratedAt   time.Time `json:"generatedAt"`
	RecordVersion int64     `json:"recordVersion,omitempty"`
}

func (s *Snapshot) Summary() Summary {
	return Summary{ID: s.ID, Version: s.Version, GeneratedAt: s.GeneratedAt, RecordVersion: s.RecordVersion}
}

func toArchived(s *Snapshot) (storage.ArchivedSnapshot, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return storage.ArchivedSnapshot{}, fmt.Errorf("encode snapshot v%d: %w", s.Version, err)
	}
	return storage.ArchivedSnapshot{
		Version:     s.Version,
		SnapshotID:  s.ID,
		GeneratedAt: s.GeneratedAt,
		Payload:     payload,
	}, nil
}

func fromArchived(a *storage.ArchivedSnapshot) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(a.Payload, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot v%d: %w", a.Version, err)
	}
	if s.Rollups == nil {
		s.Rollups = &rollup.Result{}
	}
	return &s, nil
}
