// Package trend computes period-over-period changes of named metrics.
package trend

import (
	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/shopspring/decimal"
)

// Observation is one value of a metric at a labelled point in time: a calendar
// period, or a snapshot version such as "v12".
type Observation struct {
	Period string          `json:"period"`
	Value  decimal.Decimal `json:"value"`
}

// TrendPoint is the change of one metric between a prior and a current observation.
// PercentChange is nil and HasBaseline false when the prior value is absent or zero.
type TrendPoint struct {
	Metric        string           `json:"metric"`
	CurrentPeriod string           `json:"currentPeriod"`
	CurrentValue  decimal.Decimal  `json:"currentValue"`
	PriorPeriod   string           `json:"priorPeriod,omitempty"`
	PriorValue    *decimal.Decimal `json:"priorValue,omitempty"`
	PercentChange *decimal.Decimal `json:"percentChange,omitempty"`
	HasBaseline   bool             `json:"hasBaseline"`
	Polarity      metrics.Polarity `json:"polarity"`
}

// Improved reports whether the change moved in the metric's good direction.
// Neutral metrics and points without a baseline never count as improved.
func (p TrendPoint) Improved() bool {
	if !p.HasBaseline || p.PercentChange == nil {
		return false
	}
	switch p.Polarity {
	case metrics.HigherIsBetter:
		return p.PercentChange.IsPositive()
	case metrics.LowerIsBetter:
		return p.PercentChange.IsNegative()
	}
	return false
}

// Analyzer computes trend points. It holds no state besides the catalog used
// for polarity annotation, so it is safe for concurrent use.
type Analyzer struct {
	catalog metrics.Catalog
}

func NewAnalyzer(catalog metrics.Catalog) *Analyzer {
	if catalog == nil {
		catalog = metrics.NewStaticCatalog()
	}
	return &Analyzer{catalog: catalog}
}

// Compare returns (current - prior) / prior * 100 for the metric.
func (a *Analyzer) Compare(metric string, current Observation, prior *Observation) TrendPoint {
	tp := TrendPoint{
		Metric:        metric,
		CurrentPeriod: current.Period,
		CurrentValue:  current.Value,
		Polarity:      metrics.PolarityOf(a.catalog, metric),
	}
	if prior == nil {
		return tp
	}

	pv := prior.Value
	tp.PriorPeriod = prior.Period
	tp.PriorValue = &pv
	if pv.IsZero() {
		return tp
	}

	change := metrics.Percent(current.Value.Sub(pv), pv)
	tp.PercentChange = &change
	tp.HasBaseline = true
	return tp
}

// CompareBuckets reads the metric from two rollup buckets and compares them.
// A nil prior bucket yields a point without baseline.
func (a *Analyzer) CompareBuckets(
	metric string,
	read func(metrics.RollupBucket) decimal.Decimal,
	current metrics.RollupBucket,
	prior *metrics.RollupBucket,
) TrendPoint {
	cur := Observation{Period: string(current.Period), Value: read(current)}
	if prior == nil {
		return a.Compare(metric, cur, nil)
	}
	return a.Compare(metric, cur, &Observation{Period: string(prior.Period), Value: read(*prior)})
}
