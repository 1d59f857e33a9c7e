package metrics

import (
	"testing"
	"time"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func record(outcome v1.Outcome, revenue int64, days int, score *int) *v1.AssetRecord {
	intake := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &v1.AssetRecord{
		ID:                  "r",
		DeviceType:          v1.DeviceLaptop,
		CustomerSegment:     v1.SegmentSMB,
		Certification:       v1.CertificationR2,
		Outcome:             outcome,
		IntakeDate:          intake,
		DispositionDate:     intake.AddDate(0, 0, days),
		Revenue:             decimal.NewFromInt(revenue),
		CarbonSavedKg:       decimal.NewFromInt(10),
		MaterialRecoveredKg: decimal.NewFromInt(2),
		LaborCost:           decimal.NewFromInt(5),
		PartsCost:           decimal.NewFromInt(1),
		SatisfactionScore:   score,
	}
}

func TestRollupBucket_EmptyReportsZero(t *testing.T) {
	b := NewBucket(BucketKey{Dimension: DimensionDevice, Key: "Smartphone", Granularity: GranularityMonth, Period: "2024-01"})

	require.True(t, b.SuccessRate().IsZero())
	require.True(t, b.RecoveryRate().IsZero())
	require.True(t, b.AvgPrice().IsZero())
	require.True(t, b.AvgProcessingDays().IsZero())
	require.True(t, b.AvgSatisfaction().IsZero())
	require.True(t, b.RevenueSum.IsZero())
}

func TestRollupBucket_Add(t *testing.T) {
	four, two := 4, 2
	b := NewBucket(BucketKey{Dimension: DimensionOverall, Key: OverallKey, Granularity: GranularityWindow, Period: WindowPeriod})

	b.Add(record(v1.OutcomeRefurbished, 300, 4, &four))
	b.Add(record(v1.OutcomeRecycled, 20, 6, nil))
	b.Add(record(v1.OutcomeFailed, 0, 30, &two))

	require.Equal(t, int64(3), b.Count)
	require.Equal(t, int64(1), b.SuccessCount)
	require.Equal(t, int64(1), b.RecycledCount)
	require.Equal(t, int64(1), b.FailedCount)
	require.LessOrEqual(t, b.SuccessCount, b.Count)
	require.Equal(t, "320", b.RevenueSum.String())
	require.Equal(t, "300", b.RefurbishedRevenueSum.String())
	require.Equal(t, "18", b.CostSum.String())

	// Failed records are excluded from processing time.
	require.Equal(t, int64(2), b.ProcessedCount)
	require.Equal(t, "5", b.AvgProcessingDays().String())

	// Records without a score are ignored.
	require.Equal(t, "3", b.AvgSatisfaction().String())
	require.Equal(t, "300", b.AvgPrice().String())
	require.Equal(t, "66.67", b.RecoveryRate().Round(2).String())
}

func TestRollupBucket_Merge(t *testing.T) {
	a := NewBucket(BucketKey{Dimension: DimensionOverall, Key: OverallKey})
	a.Add(record(v1.OutcomeRefurbished, 100, 1, nil))

	b := NewBucket(BucketKey{Dimension: DimensionOverall, Key: OverallKey})
	b.Add(record(v1.OutcomeFailed, 0, 1, nil))

	a.Merge(b)
	require.Equal(t, int64(2), a.Count)
	require.Equal(t, "50", a.SuccessRate().String())
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension("deviceType")
	require.NoError(t, err)
	require.Equal(t, DimensionDevice, d)

	d, err = ParseDimension("customerSegment")
	require.NoError(t, err)
	require.Equal(t, DimensionSegment, d)

	_, err = ParseDimension("region")
	require.Error(t, err)
}
