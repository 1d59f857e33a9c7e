package protobuf

import (
	"context"
	"testing"
	"time"

	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/itad-lab/itad-metrics/internal/kpi"
	"github.com/itad-lab/itad-metrics/internal/rollup"
	"github.com/itad-lab/itad-metrics/internal/snapshot"
	"github.com/itad-lab/itad-metrics/internal/trend"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func sampleSnapshot() *snapshot.Snapshot {
	change := decimal.NewFromInt(15)
	prior := decimal.NewFromInt(100000)
	carbonPrior := decimal.NewFromInt(1000)
	carbonChange := decimal.RequireFromString("23.4")

	laptop := metrics.NewBucket(metrics.BucketKey{
		Dimension:   metrics.DimensionDevice,
		Key:         "Laptop",
		Granularity: metrics.GranularityWindow,
		Period:      metrics.WindowPeriod,
	})
	laptop.Count = 4
	laptop.SuccessCount = 3
	laptop.RevenueSum = decimal.NewFromInt(1200)
	overall := laptop
	overall.BucketKey = metrics.BucketKey{
		Dimension:   metrics.DimensionOverall,
		Key:         metrics.OverallKey,
		Granularity: metrics.GranularityWindow,
		Period:      metrics.WindowPeriod,
	}

	return &snapshot.Snapshot{
		ID:            "6b0f2a59-1c1e-4f51-9f0e-0c3c0a1d2e3f",
		Version:       7,
		GeneratedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		RecordVersion: 4,
		KPIs: kpi.KPISet{
			TotalRevenue:    decimal.NewFromInt(115000),
			AssetsProcessed: 4,
			SuccessRate:     decimal.NewFromInt(75),
		},
		Trends: []trend.TrendPoint{
			{Metric: metrics.MetricTotalRevenue, CurrentPeriod: "v7", CurrentValue: decimal.NewFromInt(115000), PriorPeriod: "v6", PriorValue: &prior, PercentChange: &change, HasBaseline: true, Polarity: metrics.HigherIsBetter},
			{Metric: metrics.MetricCarbonSaved, CurrentPeriod: "v7", CurrentValue: decimal.Zero, Polarity: metrics.HigherIsBetter},
		},
		Operational: []kpi.OperationalMetric{
			{Name: metrics.MetricLaborCostPerUnit, Unit: "USD", Value: decimal.NewFromInt(87)},
		},
		EnvironmentalGrowth: trend.TrendPoint{
			Metric:        metrics.MetricCarbonSavedYoY,
			CurrentPeriod: "2023-06..2024-05",
			CurrentValue:  decimal.NewFromInt(1234),
			PriorPeriod:   "2022-06..2023-05",
			PriorValue:    &carbonPrior,
			PercentChange: &carbonChange,
			HasBaseline:   true,
			Polarity:      metrics.HigherIsBetter,
		},
		Rollups: &rollup.Result{
			Buckets: map[metrics.BucketKey]metrics.RollupBucket{
				laptop.BucketKey:  laptop,
				overall.BucketKey: overall,
			},
		},
	}
}

func field(m protoreflect.Message, name string) protoreflect.Value {
	return m.Get(m.Descriptor().Fields().ByName(protoreflect.Name(name)))
}

func TestEncoder_RoundTrip(t *testing.T) {
	enc, err := NewEncoder(context.Background())
	require.NoError(t, err)

	data, err := enc.Encode(sampleSnapshot())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	msg, err := enc.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, int64(7), field(msg, "version").Int())
	assert.Equal(t, "2024-05-01T12:00:00Z", field(msg, "generated_at").String())

	kpis := field(msg, "kpis").Message()
	assert.Equal(t, 115000.0, field(kpis, "total_revenue").Float())
	assert.Equal(t, int64(4), field(kpis, "assets_processed").Int())

	trends := field(msg, "trends").List()
	require.Equal(t, 2, trends.Len())
	revenue := trends.Get(0).Message()
	assert.Equal(t, 15.0, field(revenue, "percent_change").Float())
	assert.True(t, field(revenue, "has_baseline").Bool())

	carbon := trends.Get(1).Message()
	assert.False(t, carbon.Has(carbon.Descriptor().Fields().ByName("percent_change")))

	growth := field(msg, "environmental_growth").Message()
	assert.Equal(t, metrics.MetricCarbonSavedYoY, field(growth, "metric").String())
	assert.Equal(t, "2022-06..2023-05", field(growth, "prior_period").String())
	assert.Equal(t, 23.4, field(growth, "percent_change").Float())

	buckets := field(msg, "buckets").List()
	require.Equal(t, 2, buckets.Len())
	// Ordered by bucket key: device before overall.
	assert.Equal(t, "device", field(buckets.Get(0).Message(), "dimension").String())
	assert.Equal(t, 75.0, field(buckets.Get(0).Message(), "success_rate").Float())
}

func TestEncoder_Deterministic(t *testing.T) {
	enc, err := NewEncoder(context.Background())
	require.NoError(t, err)

	first, err := enc.Encode(sampleSnapshot())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := enc.Encode(sampleSnapshot())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEncoder_ContentType(t *testing.T) {
	enc, err := NewEncoder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "application/x-protobuf", enc.ContentType())
	assert.Equal(t, protoreflect.FullName("itad.metrics.v1.Snapshot"), enc.Descriptor().FullName())
}
