package metrics

import (
	"fmt"
	"strings"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	"github.com/shopspring/decimal"
)

// Dimension is a categorical attribute used for grouping.
type Dimension string

const (
	DimensionOverall       Dimension = "overall"
	DimensionDevice        Dimension = "device"
	DimensionSegment       Dimension = "segment"
	DimensionCertification Dimension = "certification"
)

// OverallKey is the single group key of DimensionOverall.
const OverallKey = "all"

// Dimensions lists every tracked dimension.
var Dimensions = []Dimension{DimensionOverall, DimensionDevice, DimensionSegment, DimensionCertification}

// ParseDimension accepts dimension names and the record field names they group by.
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overall", "all", "":
		return DimensionOverall, nil
	case "device", "devicetype":
		return DimensionDevice, nil
	case "segment", "customersegment":
		return DimensionSegment, nil
	case "certification":
		return DimensionCertification, nil
	}
	return "", fmt.Errorf("invalid dimension %q (must be overall, device, segment, or certification)", s)
}

// KeyOf returns the group key of a record within a dimension.
func KeyOf(d Dimension, r *v1.AssetRecord) string {
	switch d {
	case DimensionDevice:
		return string(r.DeviceType)
	case DimensionSegment:
		return string(r.CustomerSegment)
	case DimensionCertification:
		return string(r.Certification)
	default:
		return OverallKey
	}
}

// BucketKey uniquely identifies a rollup bucket.
type BucketKey struct {
	Dimension   Dimension   `json:"dimension"`
	Key         string      `json:"key"`
	Granularity Granularity `json:"granularity"`
	Period      Period      `json:"period"`
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%s:%s/%s:%s", k.Dimension, k.Key, k.Granularity, k.Period)
}

// RollupBucket is the aggregate over one (dimension value, time bucket) pair.
// It is derived data: always recomputable from the accepted records.
type RollupBucket struct {
	BucketKey

	Count         int64 `json:"count"`
	SuccessCount  int64 `json:"successCount"` // outcome == Refurbished
	RecycledCount int64 `json:"recycledCount"`
	FailedCount   int64 `json:"failedCount"`

	RevenueSum            decimal.Decimal `json:"revenueSum"`
	RefurbishedRevenueSum decimal.Decimal `json:"refurbishedRevenueSum"`
	CarbonSavedSum        decimal.Decimal `json:"carbonSavedSum"`
	MaterialRecoveredSum  decimal.Decimal `json:"materialRecoveredSum"`
	CostSum               decimal.Decimal `json:"costSum"`
	LaborCostSum          decimal.Decimal `json:"laborCostSum"`
	PartsCostSum          decimal.Decimal `json:"partsCostSum"`

	// Processing time is tracked over Refurbished+Recycled outcomes only.
	ProcessedCount       int64 `json:"processedCount"`
	ProcessingSecondsSum int64 `json:"processingSecondsSum"`

	// Satisfaction is tracked over records that carry a score.
	SatisfactionSum   int64 `json:"satisfactionSum"`
	SatisfactionCount int64 `json:"satisfactionCount"`
}

// NewBucket returns an empty bucket. Empty buckets report zero activity.
func NewBucket(key BucketKey) RollupBucket {
	return RollupBucket{
		BucketKey:             key,
		RevenueSum:            decimal.Zero,
		RefurbishedRevenueSum: decimal.Zero,
		CarbonSavedSum:        decimal.Zero,
		MaterialRecoveredSum:  decimal.Zero,
		CostSum:               decimal.Zero,
		LaborCostSum:          decimal.Zero,
		PartsCostSum:          decimal.Zero,
	}
}

// Add folds one record into the bucket.
func (b *RollupBucket) Add(r *v1.AssetRecord) {
	b.Count++
	switch r.Outcome {
	case v1.OutcomeRefurbished:
		b.SuccessCount++
		b.RefurbishedRevenueSum = b.RefurbishedRevenueSum.Add(r.Revenue)
	case v1.OutcomeRecycled:
		b.RecycledCount++
	case v1.OutcomeFailed:
		b.FailedCount++
	}

	b.RevenueSum = b.RevenueSum.Add(r.Revenue)
	b.CarbonSavedSum = b.CarbonSavedSum.Add(r.CarbonSavedKg)
	b.MaterialRecoveredSum = b.MaterialRecoveredSum.Add(r.MaterialRecoveredKg)
	b.LaborCostSum = b.LaborCostSum.Add(r.LaborCost)
	b.PartsCostSum = b.PartsCostSum.Add(r.PartsCost)
	b.CostSum = b.CostSum.Add(r.Cost())

	if r.Processed() {
		b.ProcessedCount++
		b.ProcessingSecondsSum += int64(r.ProcessingTime().Seconds())
	}
	if r.SatisfactionScore != nil {
		b.SatisfactionSum += int64(*r.SatisfactionScore)
		b.SatisfactionCount++
	}
}

// Merge folds another bucket's sums into b. The key of b is kept.
func (b *RollupBucket) Merge(o RollupBucket) {
	b.Count += o.Count
	b.SuccessCount += o.SuccessCount
	b.RecycledCount += o.RecycledCount
	b.FailedCount += o.FailedCount
	b.RevenueSum = b.RevenueSum.Add(o.RevenueSum)
	b.RefurbishedRevenueSum = b.RefurbishedRevenueSum.Add(o.RefurbishedRevenueSum)
	b.CarbonSavedSum = b.CarbonSavedSum.Add(o.CarbonSavedSum)
	b.MaterialRecoveredSum = b.MaterialRecoveredSum.Add(o.MaterialRecoveredSum)
	b.CostSum = b.CostSum.Add(o.CostSum)
	b.LaborCostSum = b.LaborCostSum.Add(o.LaborCostSum)
	b.PartsCostSum = b.PartsCostSum.Add(o.PartsCostSum)
	b.ProcessedCount += o.ProcessedCount
	b.ProcessingSecondsSum += o.ProcessingSecondsSum
	b.SatisfactionSum += o.SatisfactionSum
	b.SatisfactionCount += o.SatisfactionCount
}

// SuccessRate is successCount / count * 100, or 0 for an empty bucket.
func (b RollupBucket) SuccessRate() decimal.Decimal {
	return Percent(decimal.NewFromInt(b.SuccessCount), decimal.NewFromInt(b.Count))
}

// RecoveryRate is the share of assets refurbished or recycled, or 0 for an empty bucket.
func (b RollupBucket) RecoveryRate() decimal.Decimal {
	return Percent(decimal.NewFromInt(b.SuccessCount+b.RecycledCount), decimal.NewFromInt(b.Count))
}

// AvgPrice is the mean resale revenue per refurbished unit.
func (b RollupBucket) AvgPrice() decimal.Decimal {
	return Ratio(b.RefurbishedRevenueSum, decimal.NewFromInt(b.SuccessCount))
}

// AvgProcessingDays is the mean intake-to-disposition time, in days,
// over refurbished and recycled assets.
func (b RollupBucket) AvgProcessingDays() decimal.Decimal {
	return Ratio(decimal.NewFromInt(b.ProcessingSecondsSum), decimal.NewFromInt(b.ProcessedCount*secondsPerDay))
}

// AvgSatisfaction is the mean of present satisfaction scores, or 0 when none.
func (b RollupBucket) AvgSatisfaction() decimal.Decimal {
	return Ratio(decimal.NewFromInt(b.SatisfactionSum), decimal.NewFromInt(b.SatisfactionCount))
}

const secondsPerDay = 24 * 60 * 60
