package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/itad-lab/itad-metrics/internal/kpi"
	"github.com/itad-lab/itad-metrics/internal/rollup"
	"github.com/itad-lab/itad-metrics/internal/snapshot"
	"github.com/itad-lab/itad-metrics/internal/trend"
	"github.com/shopspring/decimal"
)

const (
	defaultSnapshotListLimit = 20
	maxSnapshotListLimit     = 500
)

var (
	// ErrNoSnapshot is returned before the first snapshot is published.
	ErrNoSnapshot = errors.New("no snapshot available")

	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid metrics query")

	// ErrSnapshotNotRetained is returned for versions outside the retained history.
	ErrSnapshotNotRetained = errors.New("snapshot version not retained")
)

// SnapshotSource is the read side of the publisher.
type SnapshotSource interface {
	Current() (*snapshot.Snapshot, bool)
	History() []*snapshot.Snapshot
	Archived(ctx context.Context, limit int) ([]snapshot.Summary, error)
}

// Encoder serializes a snapshot in a binary format.
type Encoder interface {
	Encode(s *snapshot.Snapshot) ([]byte, error)
	ContentType() string
}

// Service implements the read-only query layer. Every call is served from the
// snapshot current at call time; the service never triggers publishing.
type Service struct {
	source  SnapshotSource
	encoder Encoder
}

// NewService creates a query service. encoder may be nil, which disables
// binary snapshot export.
func NewService(source SnapshotSource, encoder Encoder) *Service {
	return &Service{source: source, encoder: encoder}
}

// GetCurrentSnapshot returns the published snapshot.
func (s *Service) GetCurrentSnapshot() (*snapshot.Snapshot, error) {
	snap, ok := s.source.Current()
	if !ok {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// GetSnapshot returns a retained snapshot by version.
func (s *Service) GetSnapshot(version int64) (*snapshot.Snapshot, error) {
	if _, err := s.GetCurrentSnapshot(); err != nil {
		return nil, err
	}
	for _, snap := range s.source.History() {
		if snap.Version == version {
			return snap, nil
		}
	}
	return nil, fmt.Errorf("%w: v%d", ErrSnapshotNotRetained, version)
}

func (s *Service) GetKPIs() (*KPIResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	return &KPIResponse{Meta: metaOf(snap), KPIs: kpisOf(snap.KPIs)}, nil
}

// GetRevenueTrend returns overall revenue and volume per period.
func (s *Service) GetRevenueTrend(granularity string) (*RevenueTrendResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	g, err := parseGranularity(granularity, metrics.GranularityMonth)
	if err != nil {
		return nil, err
	}
	return &RevenueTrendResponse{
		Meta:        metaOf(snap),
		Granularity: g,
		Points:      revenuePoints(snap.Rollups, g),
	}, nil
}

func (s *Service) GetDevicePerformance() (*DevicePerformanceResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	return &DevicePerformanceResponse{Meta: metaOf(snap), Devices: devicesOf(snap.Rollups)}, nil
}

// GetSegmentBreakdown returns each customer segment's share of revenue.
func (s *Service) GetSegmentBreakdown() (*SegmentBreakdownResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	return &SegmentBreakdownResponse{Meta: metaOf(snap), Segments: segmentsOf(snap.Rollups)}, nil
}

// GetEnvironmentalTrend returns carbon saved and material recovered per period.
func (s *Service) GetEnvironmentalTrend(granularity string) (*EnvironmentalTrendResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	g, err := parseGranularity(granularity, metrics.GranularityQuarter)
	if err != nil {
		return nil, err
	}

	series := snap.Rollups.Series(metrics.DimensionOverall, metrics.OverallKey, g)
	points := make([]EnvironmentalPoint, len(series))
	for i, b := range series {
		points[i] = EnvironmentalPoint{
			Period:             b.Period,
			CarbonSaved:        metrics.Round2(b.CarbonSavedSum),
			MaterialsRecovered: metrics.Round2(b.MaterialRecoveredSum),
		}
	}
	return &EnvironmentalTrendResponse{
		Meta:        metaOf(snap),
		Granularity: g,
		Points:      points,
		YoYGrowth:   trendOf(snap.EnvironmentalGrowth),
	}, nil
}

// GetCertificationBreakdown returns each certification's share of asset volume.
func (s *Service) GetCertificationBreakdown() (*CertificationBreakdownResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	return &CertificationBreakdownResponse{Meta: metaOf(snap), Certifications: certificationsOf(snap.Rollups)}, nil
}

func (s *Service) GetOperationalMetrics() (*OperationalMetricsResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	return &OperationalMetricsResponse{Meta: metaOf(snap), Metrics: operationalOf(snap.Operational)}, nil
}

// GetTrends returns every KPI compared with the previous snapshot.
func (s *Service) GetTrends() (*TrendsResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	return &TrendsResponse{Meta: metaOf(snap), Trends: trendsOf(snap.Trends)}, nil
}

// GetTimeSeries returns a field over time for every group of a dimension, or
// for one group when key is set.
func (s *Service) GetTimeSeries(dimension, granularity, field, key string) (*TimeSeriesResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	d, err := metrics.ParseDimension(dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	g, err := parseGranularity(granularity, metrics.GranularityMonth)
	if err != nil {
		return nil, err
	}
	if field == "" {
		field = metrics.FieldRevenue
	}
	read, ok := metrics.Fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, field)
	}

	keys := snap.Rollups.Keys[d]
	if d == metrics.DimensionOverall {
		keys = []string{metrics.OverallKey}
	}
	if key != "" {
		if !contains(keys, key) {
			return nil, fmt.Errorf("%w: unknown %s %q", ErrInvalidQuery, d, key)
		}
		keys = []string{key}
	}

	series := make([]Series, len(keys))
	for i, k := range keys {
		buckets := snap.Rollups.Series(d, k, g)
		points := make([]SeriesPoint, len(buckets))
		for j, b := range buckets {
			points[j] = SeriesPoint{Period: b.Period, Value: metrics.Round2(read(b)), Count: b.Count}
		}
		series[i] = Series{Key: k, Points: points}
	}

	return &TimeSeriesResponse{
		Meta:        metaOf(snap),
		Dimension:   d,
		Granularity: g,
		Field:       field,
		Series:      series,
	}, nil
}

// GetBreakdown returns every group's share of a field over the reporting window.
func (s *Service) GetBreakdown(dimension, field string) (*BreakdownResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	d, err := metrics.ParseDimension(dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if field == "" {
		field = metrics.DefaultBreakdownField(d)
	}
	if !metrics.ValidField(field) {
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, field)
	}

	var items []BreakdownItem
	if d == metrics.DimensionOverall {
		b := snap.Rollups.Overall()
		items = []BreakdownItem{{
			Key:        metrics.OverallKey,
			Value:      metrics.Round2(metrics.Fields[field](b)),
			Count:      b.Count,
			Percentage: sharePercent(b.Count > 0),
		}}
	} else {
		for _, br := range snap.Rollups.Breakdown(d, field) {
			items = append(items, BreakdownItem{Key: br.Key, Value: br.Value, Count: br.Bucket.Count, Percentage: br.Share})
		}
	}

	return &BreakdownResponse{Meta: metaOf(snap), Dimension: d, Field: field, Items: items}, nil
}

// GetSnapshotView returns the full dashboard view of the current snapshot.
func (s *Service) GetSnapshotView() (*SnapshotResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	return viewOf(snap), nil
}

// EncodeSnapshot returns the current snapshot in the encoder's format.
func (s *Service) EncodeSnapshot() ([]byte, string, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, "", err
	}
	if s.encoder == nil {
		return nil, "", fmt.Errorf("%w: binary export is disabled", ErrInvalidQuery)
	}
	data, err := s.encoder.Encode(snap)
	if err != nil {
		return nil, "", fmt.Errorf("encode snapshot: %w", err)
	}
	return data, s.encoder.ContentType(), nil
}

// ListSnapshots lists retained snapshots ("memory") or archived ones ("archive").
func (s *Service) ListSnapshots(ctx context.Context, source string, limit int) (*SnapshotsResponse, error) {
	snap, err := s.GetCurrentSnapshot()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSnapshotListLimit
	}
	if limit > maxSnapshotListLimit {
		return nil, fmt.Errorf("%w: limit must be <= %d", ErrInvalidQuery, maxSnapshotListLimit)
	}

	resp := &SnapshotsResponse{Meta: metaOf(snap), Snapshots: []snapshot.Summary{}}
	switch source {
	case "", "memory":
		resp.Source = "memory"
		for _, h := range s.source.History() {
			if len(resp.Snapshots) == limit {
				break
			}
			resp.Snapshots = append(resp.Snapshots, h.Summary())
		}
	case "archive":
		resp.Source = source
		archived, err := s.source.Archived(ctx, limit)
		if err != nil {
			return nil, err
		}
		if archived != nil {
			resp.Snapshots = archived
		}
	default:
		return nil, fmt.Errorf("%w: source must be memory or archive", ErrInvalidQuery)
	}
	return resp, nil
}

func metaOf(s *snapshot.Snapshot) Meta {
	return Meta{Version: s.Version, GeneratedAt: s.GeneratedAt}
}

func parseGranularity(s string, fallback metrics.Granularity) (metrics.Granularity, error) {
	if s == "" {
		return fallback, nil
	}
	g, err := metrics.ParseGranularity(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return g, nil
}

func kpisOf(k kpi.KPISet) KPIs {
	return KPIs{
		TotalRevenue:          metrics.Round2(k.TotalRevenue),
		CarbonSaved:           metrics.Round2(k.CarbonSaved),
		AssetsProcessed:       k.AssetsProcessed,
		SuccessRate:           metrics.Round1(k.SuccessRate),
		AvgProcessingTime:     metrics.Round1(k.AvgProcessingTime),
		CustomerSatisfaction:  metrics.Round1(k.CustomerSatisfaction),
		CircularValue:         metrics.Round2(k.CircularValue),
		MaterialRecovered:     metrics.Round2(k.MaterialRecovered),
		RecoveryRate:          metrics.Round1(k.RecoveryRate),
		CarsOffRoadEquivalent: metrics.Round1(k.CarsOffRoadEquivalent),
	}
}

func revenuePoints(r *rollup.Result, g metrics.Granularity) []RevenuePoint {
	series := r.Series(metrics.DimensionOverall, metrics.OverallKey, g)
	points := make([]RevenuePoint, len(series))
	for i, b := range series {
		points[i] = RevenuePoint{Period: b.Period, Revenue: metrics.Round2(b.RevenueSum), Volume: b.Count}
	}
	return points
}

func devicesOf(r *rollup.Result) []DevicePerformance {
	keys := r.Keys[metrics.DimensionDevice]
	out := make([]DevicePerformance, len(keys))
	for i, k := range keys {
		b := r.WindowBucket(metrics.DimensionDevice, k)
		out[i] = DevicePerformance{
			Device:      k,
			Processed:   b.Count,
			Successful:  b.SuccessCount,
			SuccessRate: metrics.Round1(b.SuccessRate()),
			AvgPrice:    metrics.Round2(b.AvgPrice()),
			CarbonSaved: metrics.Round2(b.CarbonSavedSum),
		}
	}
	return out
}

func segmentsOf(r *rollup.Result) []SegmentShare {
	breakdown := r.Breakdown(metrics.DimensionSegment, metrics.FieldRevenue)
	out := make([]SegmentShare, len(breakdown))
	for i, b := range breakdown {
		out[i] = SegmentShare{Segment: b.Key, Value: b.Value, Percentage: b.Share}
	}
	return out
}

func certificationsOf(r *rollup.Result) []CertificationShare {
	breakdown := r.Breakdown(metrics.DimensionCertification, metrics.FieldCount)
	out := make([]CertificationShare, len(breakdown))
	for i, b := range breakdown {
		out[i] = CertificationShare{Certification: b.Key, Count: b.Bucket.Count, Percentage: b.Share}
	}
	return out
}

func trendOf(tp trend.TrendPoint) Trend {
	t := Trend{
		Metric:        tp.Metric,
		CurrentPeriod: tp.CurrentPeriod,
		CurrentValue:  metrics.Round2(tp.CurrentValue),
		PriorPeriod:   tp.PriorPeriod,
		HasBaseline:   tp.HasBaseline,
		Polarity:      tp.Polarity,
		Improved:      tp.Improved(),
	}
	if tp.PriorValue != nil {
		t.PriorValue = roundedPtr(*tp.PriorValue, metrics.Round2)
	}
	if tp.PercentChange != nil {
		t.PercentChange = roundedPtr(*tp.PercentChange, metrics.Round1)
	}
	return t
}

func trendsOf(points []trend.TrendPoint) []Trend {
	out := make([]Trend, len(points))
	for i, tp := range points {
		out[i] = trendOf(tp)
	}
	return out
}

func operationalOf(ops []kpi.OperationalMetric) []OperationalMetric {
	out := make([]OperationalMetric, len(ops))
	for i, op := range ops {
		out[i] = OperationalMetric{
			Metric: op.Name,
			Value:  metrics.Round2(op.Value),
			Unit:   op.Unit,
			Trend:  trendOf(op.Trend),
		}
	}
	return out
}

func viewOf(s *snapshot.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{
		Meta:           metaOf(s),
		ID:             s.ID,
		RecordVersion:  s.RecordVersion,
		KPIs:           kpisOf(s.KPIs),
		Trends:         trendsOf(s.Trends),
		Environmental:  trendOf(s.EnvironmentalGrowth),
		Operational:    operationalOf(s.Operational),
		Devices:        devicesOf(s.Rollups),
		Segments:       segmentsOf(s.Rollups),
		Certifications: certificationsOf(s.Rollups),
		RevenueTrend:   revenuePoints(s.Rollups, metrics.GranularityMonth),
	}
}

func roundedPtr(d decimal.Decimal, round func(decimal.Decimal) float64) *float64 {
	v := round(d)
	return &v
}

func sharePercent(populated bool) float64 {
	if populated {
		return 100
	}
	return 0
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
