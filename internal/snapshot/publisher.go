package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/itad-lab/itad-metrics/internal/core/storage"
	"github.com/itad-lab/itad-metrics/internal/kpi"
	"github.com/itad-lab/itad-metrics/internal/rollup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultHistorySize = 10
)

// Aggregator computes every rollup bucket for a Record Store version.
type Aggregator interface {
	ComputeAll(ctx context.Context, asOf int64) (*rollup.Result, error)
}

// VersionSource reports the current Record Store version.
type VersionSource interface {
	Version() int64
}

// Options controls publish cycles.
type Options struct {
	// Timeout bounds a single publish cycle.
	Timeout time.Duration
	// HistorySize is the number of published snapshots kept in memory.
	HistorySize int
}

func (o Options) normalized() Options {
	n := o
	if n.Timeout <= 0 {
		n.Timeout = defaultTimeout
	}
	if n.HistorySize <= 0 {
		n.HistorySize = defaultHistorySize
	}
	return n
}

// Status is the publisher's health state.
type Status string

const (
	StatusStarting Status = "starting"
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// Health summarizes the outcome of recent publish cycles.
type Health struct {
	Status              Status      `json:"status"`
	Version             int64       `json:"version"`
	LastPublishedAt     *time.Time  `json:"lastPublishedAt,omitempty"`
	LastFailureAt       *time.Time  `json:"lastFailureAt,omitempty"`
	LastFailureKind     FailureKind `json:"lastFailureKind,omitempty"`
	LastError           string      `json:"lastError,omitempty"`
	ConsecutiveFailures int         `json:"consecutiveFailures"`
}

// Publisher owns snapshot construction. Cycles are serialized; readers load
// the current snapshot without locking.
type Publisher struct {
	source   VersionSource
	agg      Aggregator
	composer *kpi.Composer
	archive  storage.SnapshotArchive
	opts     Options
	now      func() time.Time

	current atomic.Pointer[Snapshot]
	group   singleflight.Group

	mu      sync.Mutex // serializes cycles; guards the fields below
	history []*Snapshot
	stale   bool // restored snapshot must be rebuilt once
	health  Health
}

// NewPublisher creates a publisher. archive may be nil.
func NewPublisher(
	source VersionSource,
	agg Aggregator,
	composer *kpi.Composer,
	archive storage.SnapshotArchive,
	opts Options,
) *Publisher {
	return &Publisher{
		source:   source,
		agg:      agg,
		composer: composer,
		archive:  archive,
		opts:     opts.normalized(),
		now:      func() time.Time { return time.Now().UTC() },
		health:   Health{Status: StatusStarting},
	}
}

// Current returns the published snapshot, or false before the first publish.
func (p *Publisher) Current() (*Snapshot, bool) {
	s := p.current.Load()
	return s, s != nil
}

// History returns the retained snapshots, newest first.
func (p *Publisher) History() []*Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Snapshot, len(p.history))
	for i, s := range p.history {
		out[len(p.history)-1-i] = s
	}
	return out
}

// Archived lists archived snapshots, newest first. It returns nil without an archive.
func (p *Publisher) Archived(ctx context.Context, limit int) ([]Summary, error) {
	if p.archive == nil {
		return nil, nil
	}
	rows, err := p.archive.ListSnapshots(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived snapshots: %w", err)
	}
	out := make([]Summary, len(rows))
	for i, r := range rows {
		out[i] = Summary{ID: r.SnapshotID, Version: r.Version, GeneratedAt: r.GeneratedAt}
	}
	return out, nil
}

// Health returns a copy of the publisher's health.
func (p *Publisher) Health() Health {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.health
}

// Restore installs the latest archived snapshot, if any, so queries and trend
// baselines survive a restart and version numbering continues from it.
func (p *Publisher) Restore(ctx context.Context) error {
	if p.archive == nil {
		return nil
	}
	archived, err := p.archive.LoadLatestSnapshot(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("[Publisher] No archived snapshot to restore")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest snapshot: %w", err)
	}

	snap, err := fromArchived(archived)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.install(snap)
	p.stale = true

	slog.Info("[Publisher] Restored archived snapshot",
		"version", snap.Version,
		"snapshot_id", snap.ID,
		"generated_at", snap.GeneratedAt,
	)
	return nil
}

// Publish runs one publish cycle. Concurrent callers share the cycle in flight.
// When nothing changed since the current snapshot, the current snapshot is
// returned without creating a new version.
func (p *Publisher) Publish(ctx context.Context) (*Snapshot, error) {
	v, err, shared := p.group.Do("publish", func() (any, error) {
		return p.cycle(ctx)
	})
	if shared {
		slog.Debug("[Publisher] Joined in-flight publish cycle")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (p *Publisher) cycle(parent context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A cycle outlives the request that triggered it but not its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), p.opts.Timeout)
	defer cancel()

	prior := p.current.Load()
	asOf := p.source.Version()
	if prior != nil && !p.stale && prior.RecordVersion == asOf {
		return prior, nil
	}

	cycleID := uuid.NewString()
	start := time.Now()
	slog.Info("[Publisher] Starting publish cycle", "cycle_id", cycleID, "record_version", asOf)

	snap, err := p.build(ctx, cycleID, asOf, prior)
	if err != nil {
		p.recordFailure(err)
		slog.Error("[Publisher] Publish cycle failed",
			"cycle_id", cycleID,
			"kind", KindOf(err),
			"error", err,
			"current_version", p.health.Version,
		)
		return nil, err
	}

	p.install(snap)
	p.stale = false
	p.health.ConsecutiveFailures = 0
	p.health.Status = StatusHealthy
	p.health.LastError = ""
	p.health.LastFailureKind = ""

	slog.Info("[Publisher] Published snapshot",
		"cycle_id", cycleID,
		"version", snap.Version,
		"record_version", snap.RecordVersion,
		"assets", snap.KPIs.AssetsProcessed,
		"duration", time.Since(start),
	)

	p.archiveSnapshot(ctx, snap)
	return snap, nil
}

func (p *Publisher) build(ctx context.Context, id string, asOf int64, prior *Snapshot) (*Snapshot, error) {
	res, err := p.agg.ComputeAll(ctx, asOf)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &PublishError{Kind: Timeout, Err: err}
		}
		return nil, &PublishError{Kind: AggregationFailure, Err: err}
	}

	set, err := p.composer.Compose(res)
	if err != nil {
		return nil, &PublishError{Kind: ComposerFailure, Err: err}
	}
	ops, err := p.composer.Operational(res)
	if err != nil {
		return nil, &PublishError{Kind: ComposerFailure, Err: err}
	}
	growth, err := p.composer.EnvironmentalGrowth(res)
	if err != nil {
		return nil, &PublishError{Kind: ComposerFailure, Err: err}
	}

	snap := &Snapshot{
		ID:            id,
		Version:       1,
		GeneratedAt:   p.now(),
		RecordVersion: asOf,
		KPIs:          set,
		Operational:   ops,
		Rollups:       res,

		EnvironmentalGrowth: growth,
	}
	if prior != nil {
		snap.Version = prior.Version + 1
		snap.Trends = p.composer.SnapshotTrends(set, snap.Label(), &prior.KPIs, prior.Label())
	} else {
		snap.Trends = p.composer.SnapshotTrends(set, snap.Label(), nil, "")
	}

	// Last check before installation: an expired cycle publishes nothing.
	if err := ctx.Err(); err != nil {
		return nil, &PublishError{Kind: Timeout, Err: err}
	}
	return snap, nil
}

// install must be called with p.mu held.
func (p *Publisher) install(s *Snapshot) {
	p.current.Store(s)

	p.history = append(p.history, s)
	if over := len(p.history) - p.opts.HistorySize; over > 0 {
		p.history = append([]*Snapshot(nil), p.history[over:]...)
	}

	at := s.GeneratedAt
	p.health.Version = s.Version
	p.health.LastPublishedAt = &at
}

// recordFailure must be called with p.mu held.
func (p *Publisher) recordFailure(err error) {
	at := p.now()
	p.health.Status = StatusDegraded
	p.health.ConsecutiveFailures++
	p.health.LastFailureAt = &at
	p.health.LastFailureKind = KindOf(err)
	p.health.LastError = err.Error()
}

// archiveSnapshot is best effort: the snapshot is already live.
func (p *Publisher) archiveSnapshot(ctx context.Context, s *Snapshot) {
	if p.archive == nil {
		return
	}
	a, err := toArchived(s)
	if err == nil {
		err = p.archive.SaveSnapshot(ctx, a)
	}
	if err != nil {
		slog.Warn("[Publisher] Failed to archive snapshot", "version", s.Version, "error", err)
	}
}
