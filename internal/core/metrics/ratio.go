package metrics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ratioPrecision is the number of decimal places kept by derived ratios.
const ratioPrecision = 12

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// Ratio divides num by den. A zero denominator yields zero, never NaN or Inf.
func Ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, ratioPrecision)
}

// Percent returns part / whole * 100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, ratioPrecision)
}

// Shares converts non-negative group values into percentage shares rounded to
// one decimal place. Rounding uses the largest-remainder method on tenths, so
// whenever the total is positive the shares sum to exactly 100.0.
// A zero total yields all-zero shares.
func Shares(values []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	if total.IsZero() {
		for i := range out {
			out[i] = decimal.Zero
		}
		return out
	}

	type share struct {
		idx       int
		tenths    int64
		remainder decimal.Decimal
	}
	shares := make([]share, len(values))
	var assigned int64
	for i, v := range values {
		raw := v.Mul(thousand).DivRound(total, ratioPrecision)
		floor := raw.Floor()
		shares[i] = share{idx: i, tenths: floor.IntPart(), remainder: raw.Sub(floor)}
		assigned += floor.IntPart()
	}

	// Hand out the missing tenths to the largest remainders; ties go to the
	// earlier group so the result is deterministic.
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shares[order[a]].remainder.GreaterThan(shares[order[b]].remainder)
	})
	for deficit, k := 1000-assigned, 0; deficit > 0 && len(order) > 0; deficit, k = deficit-1, (k+1)%len(order) {
		shares[order[k]].tenths++
	}

	for _, s := range shares {
		out[s.idx] = decimal.New(s.tenths, -1)
	}
	return out
}

// Round1 rounds a value to one decimal place for display.
func Round1(d decimal.Decimal) float64 {
	return d.Round(1).InexactFloat64()
}

// Round2 rounds a value to two decimal places for display.
func Round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
