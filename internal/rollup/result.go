package rollup

import (
	"encoding/json"
	"sort"

	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/shopspring/decimal"
)

// Result is every rollup bucket computed for one Record Store version.
// It is built once and then only read.
type Result struct {
	// Version is the Record Store version the buckets are consistent with.
	Version int64 `json:"version"`

	// Months is every month from the first to the last populated month, gap-filled.
	Months []metrics.Period `json:"months"`

	// Window is the months covered by the reporting window, oldest first.
	Window []metrics.Period `json:"window"`

	// Keys lists each dimension's group keys in display order.
	Keys map[metrics.Dimension][]string `json:"keys"`

	Buckets map[metrics.BucketKey]metrics.RollupBucket `json:"-"`
}

// Bucket returns the bucket for the given coordinates, or an empty bucket when
// no record falls into it.
func (r *Result) Bucket(d metrics.Dimension, key string, g metrics.Granularity, p metrics.Period) metrics.RollupBucket {
	k := metrics.BucketKey{Dimension: d, Key: key, Granularity: g, Period: p}
	if b, ok := r.Buckets[k]; ok {
		return b
	}
	return metrics.NewBucket(k)
}

// WindowBucket returns a group's aggregate over the whole reporting window.
func (r *Result) WindowBucket(d metrics.Dimension, key string) metrics.RollupBucket {
	return r.Bucket(d, key, metrics.GranularityWindow, metrics.WindowPeriod)
}

// Overall returns the all-records aggregate over the reporting window.
func (r *Result) Overall() metrics.RollupBucket {
	return r.WindowBucket(metrics.DimensionOverall, metrics.OverallKey)
}

// Periods returns the ordered periods of a time series at granularity g.
func (r *Result) Periods(g metrics.Granularity) []metrics.Period {
	switch g {
	case metrics.GranularityWindow:
		return []metrics.Period{metrics.WindowPeriod}
	case metrics.GranularityQuarter:
		var out []metrics.Period
		for _, m := range r.Months {
			q, err := metrics.QuarterOfMonth(m)
			if err != nil {
				continue
			}
			if len(out) == 0 || out[len(out)-1] != q {
				out = append(out, q)
			}
		}
		return out
	default:
		out := make([]metrics.Period, len(r.Months))
		copy(out, r.Months)
		return out
	}
}

// Series returns one group's buckets for every period at granularity g, in order.
func (r *Result) Series(d metrics.Dimension, key string, g metrics.Granularity) []metrics.RollupBucket {
	periods := r.Periods(g)
	out := make([]metrics.RollupBucket, len(periods))
	for i, p := range periods {
		out[i] = r.Bucket(d, key, g, p)
	}
	return out
}

// Breakdown is one group's share of a dimension total.
type Breakdown struct {
	Key    string
	Bucket metrics.RollupBucket
	Value  float64 // field value, rounded to 2 places
	Share  float64 // percent, one decimal place
}

// Breakdown returns every group of a dimension over the reporting window with
// its share of the given field. Shares sum to exactly 100 when the total is positive.
func (r *Result) Breakdown(d metrics.Dimension, field string) []Breakdown {
	read, ok := metrics.Fields[field]
	if !ok {
		read = metrics.Fields[metrics.DefaultBreakdownField(d)]
	}

	keys := r.Keys[d]
	buckets := make([]metrics.RollupBucket, len(keys))
	for i, k := range keys {
		buckets[i] = r.WindowBucket(d, k)
	}

	values := make([]decimal.Decimal, len(buckets))
	for i, b := range buckets {
		values[i] = read(b)
	}
	shares := metrics.Shares(values)

	out := make([]Breakdown, len(keys))
	for i, k := range keys {
		out[i] = Breakdown{
			Key:    k,
			Bucket: buckets[i],
			Value:  metrics.Round2(values[i]),
			Share:  metrics.Round1(shares[i]),
		}
	}
	return out
}

type resultJSON struct {
	Version int64                          `json:"version"`
	Months  []metrics.Period               `json:"months"`
	Window  []metrics.Period               `json:"window"`
	Keys    map[metrics.Dimension][]string `json:"keys"`
	Buckets []metrics.RollupBucket         `json:"buckets"`
}

// MarshalJSON encodes the buckets as a list ordered by key so equal results
// encode to equal bytes.
func (r *Result) MarshalJSON() ([]byte, error) {
	buckets := make([]metrics.RollupBucket, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].BucketKey.String() < buckets[j].BucketKey.String()
	})
	return json.Marshal(resultJSON{
		Version: r.Version,
		Months:  r.Months,
		Window:  r.Window,
		Keys:    r.Keys,
		Buckets: buckets,
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Version = raw.Version
	r.Months = raw.Months
	r.Window = raw.Window
	r.Keys = raw.Keys
	r.Buckets = make(map[metrics.BucketKey]metrics.RollupBucket, len(raw.Buckets))
	for _, b := range raw.Buckets {
		r.Buckets[b.BucketKey] = b
	}
	return nil
}
