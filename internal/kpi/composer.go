// Package kpi derives the top-level dashboard figures from rollup results.
package kpi

import (
	"errors"
	"fmt"
	"math"

	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/itad-lab/itad-metrics/internal/rollup"
	"github.com/itad-lab/itad-metrics/internal/trend"
	"github.com/shopspring/decimal"
)

// MetricCarsOffRoad is the carbon saving expressed as passenger cars removed for a year.
const MetricCarsOffRoad = "carsOffRoadEquivalent"

// ErrNonFinite is returned when a KPI cannot be represented as a finite number.
var ErrNonFinite = errors.New("non-finite KPI value")

// ComposeError names the KPI that failed to compose.
type ComposeError struct {
	Metric string
	Err    error
}

func (e *ComposeError) Error() string {
	return fmt.Sprintf("compose %s: %v", e.Metric, e.Err)
}

func (e *ComposeError) Unwrap() error { return e.Err }

// Valuation holds the configured conversion factors.
type Valuation struct {
	// MaterialValuePerKg prices recovered material for circular value.
	MaterialValuePerKg decimal.Decimal
	// CarbonKgPerCar is the yearly CO2 of one passenger car.
	CarbonKgPerCar decimal.Decimal
}

// DefaultValuation returns the factors used when none are configured.
func DefaultValuation() Valuation {
	return Valuation{
		MaterialValuePerKg: decimal.RequireFromString("0.50"),
		CarbonKgPerCar:     decimal.NewFromInt(4600),
	}
}

// KPISet is the composite top-level figures of one snapshot.
type KPISet struct {
	TotalRevenue          decimal.Decimal `json:"totalRevenue"`
	CarbonSaved           decimal.Decimal `json:"carbonSaved"`
	AssetsProcessed       int64           `json:"assetsProcessed"`
	SuccessRate           decimal.Decimal `json:"successRate"`
	AvgProcessingTime     decimal.Decimal `json:"avgProcessingTime"`
	CustomerSatisfaction  decimal.Decimal `json:"customerSatisfaction"`
	CircularValue         decimal.Decimal `json:"circularValue"`
	MaterialRecovered     decimal.Decimal `json:"materialRecovered"`
	RecoveryRate          decimal.Decimal `json:"recoveryRate"`
	CarsOffRoadEquivalent decimal.Decimal `json:"carsOffRoadEquivalent"`
}

// NamedValue is one KPI value addressed by its metric name.
type NamedValue struct {
	Name  string
	Value decimal.Decimal
}

// Values lists the KPIs in display order.
func (k KPISet) Values() []NamedValue {
	return []NamedValue{
		{metrics.MetricTotalRevenue, k.TotalRevenue},
		{metrics.MetricCarbonSaved, k.CarbonSaved},
		{metrics.MetricAssetsProcessed, decimal.NewFromInt(k.AssetsProcessed)},
		{metrics.MetricSuccessRate, k.SuccessRate},
		{metrics.MetricAvgProcessingTime, k.AvgProcessingTime},
		{metrics.MetricCustomerSatisfaction, k.CustomerSatisfaction},
		{metrics.MetricCircularValue, k.CircularValue},
		{metrics.MetricMaterialRecovered, k.MaterialRecovered},
		{metrics.MetricRecoveryRate, k.RecoveryRate},
		{MetricCarsOffRoad, k.CarsOffRoadEquivalent},
	}
}

// OperationalMetric is one secondary figure with its month-over-month trend.
type OperationalMetric struct {
	Name  string           `json:"name"`
	Unit  string           `json:"unit"`
	Value decimal.Decimal  `json:"value"`
	Trend trend.TrendPoint `json:"trend"`
}

var (
	two = decimal.NewFromInt(2)

	// operational readers compute each secondary metric from one bucket.
	operational = []struct {
		name string
		read metrics.FieldReader
	}{
		{metrics.MetricAvgProcessingTime, func(b metrics.RollupBucket) decimal.Decimal { return b.AvgProcessingDays() }},
		{metrics.MetricLaborCostPerUnit, func(b metrics.RollupBucket) decimal.Decimal {
			return metrics.Ratio(b.LaborCostSum, decimal.NewFromInt(b.Count))
		}},
		{metrics.MetricPartsCostRatio, func(b metrics.RollupBucket) decimal.Decimal {
			return metrics.Percent(b.PartsCostSum, b.RevenueSum)
		}},
		// Satisfaction is on a 1-5 scale; quality is reported out of 10.
		{metrics.MetricQualityScore, func(b metrics.RollupBucket) decimal.Decimal { return b.AvgSatisfaction().Mul(two) }},
	}
)

// Composer turns rollups into KPIs. It is stateless apart from its configuration.
type Composer struct {
	valuation Valuation
	catalog   metrics.Catalog
	analyzer  *trend.Analyzer
}

func NewComposer(valuation Valuation, catalog metrics.Catalog) *Composer {
	if catalog == nil {
		catalog = metrics.NewStaticCatalog()
	}
	return &Composer{
		valuation: valuation,
		catalog:   catalog,
		analyzer:  trend.NewAnalyzer(catalog),
	}
}

// Analyzer returns the trend analyzer sharing this composer's catalog.
func (c *Composer) Analyzer() *trend.Analyzer { return c.analyzer }

// Compose derives the KPI set from the overall bucket of the reporting window.
func (c *Composer) Compose(r *rollup.Result) (KPISet, error) {
	overall := r.Overall()

	materialValue := overall.MaterialRecoveredSum.Mul(c.valuation.MaterialValuePerKg)
	set := KPISet{
		TotalRevenue:          overall.RevenueSum,
		CarbonSaved:           overall.CarbonSavedSum,
		AssetsProcessed:       overall.Count,
		SuccessRate:           overall.SuccessRate(),
		AvgProcessingTime:     overall.AvgProcessingDays(),
		CustomerSatisfaction:  overall.AvgSatisfaction(),
		CircularValue:         overall.RefurbishedRevenueSum.Add(materialValue),
		MaterialRecovered:     overall.MaterialRecoveredSum,
		RecoveryRate:          overall.RecoveryRate(),
		CarsOffRoadEquivalent: metrics.Ratio(overall.CarbonSavedSum, c.valuation.CarbonKgPerCar),
	}

	for _, v := range set.Values() {
		if err := checkFinite(v.Name, v.Value); err != nil {
			return KPISet{}, err
		}
	}
	return set, nil
}

// Operational computes the secondary metrics over the reporting window, each
// with a trend of the latest month against the month before it.
func (c *Composer) Operational(r *rollup.Result) ([]OperationalMetric, error) {
	window := r.Overall()

	var current, prior *metrics.RollupBucket
	if n := len(r.Months); n > 0 {
		b := r.Bucket(metrics.DimensionOverall, metrics.OverallKey, metrics.GranularityMonth, r.Months[n-1])
		current = &b
		if n > 1 {
			p := r.Bucket(metrics.DimensionOverall, metrics.OverallKey, metrics.GranularityMonth, r.Months[n-2])
			prior = &p
		}
	}

	out := make([]OperationalMetric, 0, len(operational))
	for _, op := range operational {
		value := op.read(window)
		if err := checkFinite(op.name, value); err != nil {
			return nil, err
		}

		m := OperationalMetric{Name: op.name, Value: value}
		if def, ok := c.catalog.Get(op.name); ok {
			m.Unit = def.Unit
		}
		if current != nil {
			m.Trend = c.analyzer.CompareBuckets(op.name, op.read, *current, prior)
		} else {
			m.Trend = trend.TrendPoint{Metric: op.name, CurrentValue: decimal.Zero, Polarity: metrics.PolarityOf(c.catalog, op.name)}
		}
		out = append(out, m)
	}
	return out, nil
}

// yearMonths is the span length of the year-over-year comparison.
const yearMonths = 12

// EnvironmentalGrowth compares carbon saved over the 12 months ending at the
// latest populated month with the 12 months before them. The point has no
// baseline until some record falls into the earlier span.
func (c *Composer) EnvironmentalGrowth(r *rollup.Result) (trend.TrendPoint, error) {
	name := metrics.MetricCarbonSavedYoY
	read := func(b metrics.RollupBucket) decimal.Decimal { return b.CarbonSavedSum }

	if len(r.Months) == 0 {
		return c.analyzer.Compare(name, trend.Observation{Value: decimal.Zero}, nil), nil
	}
	months, err := metrics.TrailingMonths(r.Months[len(r.Months)-1], 2*yearMonths)
	if err != nil {
		return trend.TrendPoint{}, &ComposeError{Metric: name, Err: err}
	}

	current := spanBucket(r, months[yearMonths:])
	prior := spanBucket(r, months[:yearMonths])
	var tp trend.TrendPoint
	if prior.Count == 0 {
		tp = c.analyzer.CompareBuckets(name, read, current, nil)
	} else {
		tp = c.analyzer.CompareBuckets(name, read, current, &prior)
	}

	if err := checkFinite(name, tp.CurrentValue); err != nil {
		return trend.TrendPoint{}, err
	}
	if tp.PercentChange != nil {
		if err := checkFinite(name, *tp.PercentChange); err != nil {
			return trend.TrendPoint{}, err
		}
	}
	return tp, nil
}

// spanBucket merges the overall monthly buckets of months into one bucket
// labelled "first..last".
func spanBucket(r *rollup.Result, months []metrics.Period) metrics.RollupBucket {
	b := metrics.NewBucket(metrics.BucketKey{
		Dimension:   metrics.DimensionOverall,
		Key:         metrics.OverallKey,
		Granularity: metrics.GranularityMonth,
		Period:      months[0] + ".." + months[len(months)-1],
	})
	for _, m := range months {
		b.Merge(r.Bucket(metrics.DimensionOverall, metrics.OverallKey, metrics.GranularityMonth, m))
	}
	return b
}

// SnapshotTrends compares every KPI against the same KPI of a prior snapshot.
// A nil prior yields points without baseline.
func (c *Composer) SnapshotTrends(current KPISet, currentLabel string, prior *KPISet, priorLabel string) []trend.TrendPoint {
	cur := current.Values()
	var old []NamedValue
	if prior != nil {
		old = prior.Values()
	}

	out := make([]trend.TrendPoint, len(cur))
	for i, v := range cur {
		obs := trend.Observation{Period: currentLabel, Value: v.Value}
		if old == nil {
			out[i] = c.analyzer.Compare(v.Name, obs, nil)
			continue
		}
		out[i] = c.analyzer.Compare(v.Name, obs, &trend.Observation{Period: priorLabel, Value: old[i].Value})
	}
	return out
}

func checkFinite(name string, v decimal.Decimal) error {
	f := v.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &ComposeError{Metric: name, Err: ErrNonFinite}
	}
	return nil
}
