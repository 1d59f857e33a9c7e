package metrics

import "github.com/shopspring/decimal"

// Bucket field names readable through Fields.
const (
	FieldCount             = "count"
	FieldSuccessCount      = "success_count"
	FieldRevenue           = "revenue"
	FieldCarbonSaved       = "carbon_saved"
	FieldMaterialRecovered = "material_recovered"
	FieldCost              = "cost"
)

// FieldReader extracts one additive value from a bucket.
type FieldReader func(b RollupBucket) decimal.Decimal

// Fields is the registry of additive bucket fields that breakdowns and time
// series can be computed over. To expose a new field: add an entry here.
var Fields = map[string]FieldReader{
	FieldCount:             func(b RollupBucket) decimal.Decimal { return decimal.NewFromInt(b.Count) },
	FieldSuccessCount:      func(b RollupBucket) decimal.Decimal { return decimal.NewFromInt(b.SuccessCount) },
	FieldRevenue:           func(b RollupBucket) decimal.Decimal { return b.RevenueSum },
	FieldCarbonSaved:       func(b RollupBucket) decimal.Decimal { return b.CarbonSavedSum },
	FieldMaterialRecovered: func(b RollupBucket) decimal.Decimal { return b.MaterialRecoveredSum },
	FieldCost:              func(b RollupBucket) decimal.Decimal { return b.CostSum },
}

// ValidField reports whether name is a registered bucket field.
func ValidField(name string) bool {
	_, ok := Fields[name]
	return ok
}

// DefaultBreakdownField is the value a dimension breakdown reports when the
// caller does not choose one: revenue share for segments, volume otherwise.
func DefaultBreakdownField(d Dimension) string {
	if d == DimensionSegment {
		return FieldRevenue
	}
	return FieldCount
}
