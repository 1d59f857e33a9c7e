package projection

import (
	"time"

	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/itad-lab/itad-metrics/internal/snapshot"
)

// Meta identifies the snapshot a response was served from.
type Meta struct {
	Version     int64     `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// KPIs is the top-level figure set.
type KPIs struct {
	TotalRevenue          float64 `json:"totalRevenue"`
	CarbonSaved           float64 `json:"carbonSaved"`
	AssetsProcessed       int64   `json:"assetsProcessed"`
	SuccessRate           float64 `json:"successRate"`
	AvgProcessingTime     float64 `json:"avgProcessingTime"`
	CustomerSatisfaction  float64 `json:"customerSatisfaction"`
	CircularValue         float64 `json:"circularValue"`
	MaterialRecovered     float64 `json:"materialRecovered"`
	RecoveryRate          float64 `json:"recoveryRate"`
	CarsOffRoadEquivalent float64 `json:"carsOffRoadEquivalent"`
}

type KPIResponse struct {
	Meta
	KPIs
}

type RevenuePoint struct {
	Period  metrics.Period `json:"period"`
	Revenue float64        `json:"revenue"`
	Volume  int64          `json:"volume"`
}

type RevenueTrendResponse struct {
	Meta
	Granularity metrics.Granularity `json:"granularity"`
	Points      []RevenuePoint      `json:"points"`
}

type DevicePerformance struct {
	Device      string  `json:"device"`
	Processed   int64   `json:"processed"`
	Successful  int64   `json:"successful"`
	SuccessRate float64 `json:"successRate"`
	AvgPrice    float64 `json:"avgPrice"`
	CarbonSaved float64 `json:"carbonSaved"`
}

type DevicePerformanceResponse struct {
	Meta
	Devices []DevicePerformance `json:"devices"`
}

type SegmentShare struct {
	Segment    string  `json:"segment"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

type SegmentBreakdownResponse struct {
	Meta
	Segments []SegmentShare `json:"segments"`
}

type EnvironmentalPoint struct {
	Period             metrics.Period `json:"period"`
	CarbonSaved        float64        `json:"carbonSaved"`
	MaterialsRecovered float64        `json:"materialsRecovered"`
}

type EnvironmentalTrendResponse struct {
	Meta
	Granularity metrics.Granularity  `json:"granularity"`
	Points      []EnvironmentalPoint `json:"points"`
	YoYGrowth   Trend                `json:"yoyGrowth"`
}

type CertificationShare struct {
	Certification string  `json:"certification"`
	Count         int64   `json:"count"`
	Percentage    float64 `json:"percentage"`
}

type CertificationBreakdownResponse struct {
	Meta
	Certifications []CertificationShare `json:"certifications"`
}

// Trend is a trend point with plain-number values. PercentChange is null
// when there is no baseline.
type Trend struct {
	Metric        string           `json:"metric"`
	CurrentPeriod string           `json:"currentPeriod"`
	CurrentValue  float64          `json:"currentValue"`
	PriorPeriod   string           `json:"priorPeriod,omitempty"`
	PriorValue    *float64         `json:"priorValue"`
	PercentChange *float64         `json:"percentChange"`
	HasBaseline   bool             `json:"hasBaseline"`
	Polarity      metrics.Polarity `json:"polarity"`
	Improved      bool             `json:"improved"`
}

type TrendsResponse struct {
	Meta
	Trends []Trend `json:"trends"`
}

type OperationalMetric struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Trend  Trend   `json:"trend"`
}

type OperationalMetricsResponse struct {
	Meta
	Metrics []OperationalMetric `json:"metrics"`
}

type SeriesPoint struct {
	Period metrics.Period `json:"period"`
	Value  float64        `json:"value"`
	Count  int64          `json:"count"`
}

type Series struct {
	Key    string        `json:"key"`
	Points []SeriesPoint `json:"points"`
}

type TimeSeriesResponse struct {
	Meta
	Dimension   metrics.Dimension   `json:"dimension"`
	Granularity metrics.Granularity `json:"granularity"`
	Field       string              `json:"field"`
	Series      []Series            `json:"series"`
}

type BreakdownItem struct {
	Key        string  `json:"key"`
	Value      float64 `json:"value"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type BreakdownResponse struct {
	Meta
	Dimension metrics.Dimension `json:"dimension"`
	Field     string            `json:"field"`
	Items     []BreakdownItem   `json:"items"`
}

// SnapshotResponse is the full dashboard view of one snapshot.
type SnapshotResponse struct {
	Meta
	ID             string               `json:"id"`
	RecordVersion  int64                `json:"recordVersion"`
	KPIs           KPIs                 `json:"kpis"`
	Trends         []Trend              `json:"trends"`
	Environmental  Trend                `json:"environmentalGrowth"`
	Operational    []OperationalMetric  `json:"operational"`
	Devices        []DevicePerformance  `json:"devices"`
	Segments       []SegmentShare       `json:"segments"`
	Certifications []CertificationShare `json:"certifications"`
	RevenueTrend   []RevenuePoint       `json:"revenueTrend"`
}

type SnapshotsResponse struct {
	Meta
	Source    string             `json:"source"`
	Snapshots []snapshot.Summary `json:"snapshots"`
}
