// Package rollup computes grouped aggregates over the indexed record set.
package rollup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	v1 "github.com/itad-lab/itad-metrics/internal/api/v1"
	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/itad-lab/itad-metrics/internal/index"
	"golang.org/x/sync/errgroup"
)

const defaultWorkerCount = 4

// Options controls the reporting window and parallelism.
type Options struct {
	// WindowMonths is the length of the trailing reporting window ending at the
	// latest month with data. 0 means every month.
	WindowMonths int

	// Workers is the number of goroutines per dimension that fold months into buckets.
	Workers int
}

func (o Options) normalized() Options {
	n := o
	if n.Workers <= 0 {
		n.Workers = defaultWorkerCount
	}
	if n.WindowMonths < 0 {
		n.WindowMonths = 0
	}
	return n
}

// Calculator builds rollup buckets from the indexer.
type Calculator struct {
	ix    *index.Indexer
	enums *v1.Enums
	opts  Options
}

func NewCalculator(ix *index.Indexer, enums *v1.Enums, opts Options) *Calculator {
	if ix == nil {
		panic("rollup: indexer must not be nil")
	}
	if enums == nil {
		enums = v1.DefaultEnums()
	}
	return &Calculator{ix: ix, enums: enums, opts: opts.normalized()}
}

// populatedMonths returns the months that hold at least one record at asOf, sorted.
// Keys that do not parse as a month are skipped.
func (c *Calculator) populatedMonths(asOf int64) []metrics.Period {
	var out []metrics.Period
	for _, m := range c.ix.Keys(index.ByMonth) {
		p := metrics.Period(m)
		if _, err := p.Start(metrics.GranularityMonth); err != nil {
			slog.Warn("[Rollup] Skip unparseable month key", "month", m, "error", err)
			continue
		}
		if len(c.ix.RecordsFor(index.ByMonth, m, asOf)) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// timeline returns the gap-filled month range and the reporting window months.
// When the populated months span more than metrics.MaxPeriodRange months the
// range is not gap-filled and only populated months are returned.
func (c *Calculator) timeline(asOf int64) (months, window []metrics.Period, err error) {
	populated := c.populatedMonths(asOf)
	if len(populated) == 0 {
		return nil, nil, nil
	}

	first, last := populated[0], populated[len(populated)-1]
	months, err = metrics.PeriodRange(first, last, metrics.GranularityMonth)
	switch {
	case errors.Is(err, metrics.ErrPeriodRangeTooLong):
		slog.Warn("[Rollup] Month range too long to gap-fill; using populated months only",
			"first", first,
			"last", last,
			"populated", len(populated))
		months = populated
	case err != nil:
		return nil, nil, fmt.Errorf("month range: %w", err)
	}

	if c.opts.WindowMonths == 0 {
		return months, months, nil
	}
	window, err = metrics.TrailingMonths(last, c.opts.WindowMonths)
	if err != nil {
		return nil, nil, fmt.Errorf("reporting window: %w", err)
	}
	return months, window, nil
}

// keys returns a dimension's group keys in display order: the configured enum
// values first, then any other value present in the index.
func (c *Calculator) keys(d metrics.Dimension) []string {
	var known []string
	switch d {
	case metrics.DimensionOverall:
		return []string{metrics.OverallKey}
	case metrics.DimensionDevice:
		for _, dt := range c.enums.DeviceTypes() {
			known = append(known, string(dt))
		}
	case metrics.DimensionSegment:
		for _, s := range v1.Segments {
			known = append(known, string(s))
		}
	case metrics.DimensionCertification:
		for _, cert := range v1.Certifications {
			known = append(known, string(cert))
		}
	}

	seen := make(map[string]struct{}, len(known))
	for _, k := range known {
		seen[k] = struct{}{}
	}
	kind, _ := index.KindFor(d)
	var extra []string
	for _, k := range c.ix.Keys(kind) {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(known, extra...)
}

// ComputeRollup aggregates the records of one group in one time bucket.
// Use metrics.WindowPeriod with GranularityWindow for the reporting window.
func (c *Calculator) ComputeRollup(d metrics.Dimension, key string, g metrics.Granularity, p metrics.Period, asOf int64) (metrics.RollupBucket, error) {
	bucket := metrics.NewBucket(metrics.BucketKey{Dimension: d, Key: key, Granularity: g, Period: p})

	var inWindow map[metrics.Period]struct{}
	if g == metrics.GranularityWindow {
		if p != metrics.WindowPeriod {
			return bucket, fmt.Errorf("window granularity has a single period %q, got %q", metrics.WindowPeriod, p)
		}
		_, window, err := c.timeline(asOf)
		if err != nil {
			return bucket, err
		}
		inWindow = toSet(window)
	} else if _, err := p.Start(g); err != nil {
		return bucket, err
	}

	var records []*v1.AssetRecord
	if kind, ok := index.KindFor(d); ok {
		records = c.ix.RecordsFor(kind, key, asOf)
	} else {
		if key != metrics.OverallKey {
			return bucket, nil
		}
		for _, m := range c.ix.Keys(index.ByMonth) {
			records = append(records, c.ix.RecordsFor(index.ByMonth, m, asOf)...)
		}
	}

	for _, rec := range records {
		if g == metrics.GranularityWindow {
			if _, ok := inWindow[metrics.MonthOf(rec.DispositionDate)]; !ok {
				continue
			}
		} else if metrics.PeriodFor(rec.DispositionDate, g) != p {
			continue
		}
		bucket.Add(rec)
	}
	return bucket, nil
}

// ComputeAll builds every bucket for every dimension and granularity as of the
// given version. Dimensions run in parallel; cancellation of ctx aborts the run.
func (c *Calculator) ComputeAll(ctx context.Context, asOf int64) (*Result, error) {
	months, window, err := c.timeline(asOf)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Version: asOf,
		Months:  months,
		Window:  window,
		Keys:    make(map[metrics.Dimension][]string, len(metrics.Dimensions)),
		Buckets: make(map[metrics.BucketKey]metrics.RollupBucket),
	}
	for _, d := range metrics.Dimensions {
		res.Keys[d] = c.keys(d)
	}

	perDim := make([]map[metrics.BucketKey]metrics.RollupBucket, len(metrics.Dimensions))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range metrics.Dimensions {
		i, d := i, d
		g.Go(func() error {
			buckets, err := c.computeDimension(gctx, d, months, toSet(window), asOf)
			if err != nil {
				return fmt.Errorf("dimension %s: %w", d, err)
			}
			perDim[i] = buckets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, buckets := range perDim {
		for k, b := range buckets {
			res.Buckets[k] = b
		}
	}
	res.fillGaps()

	slog.Debug("[Rollup] Computed buckets",
		"version", asOf,
		"buckets", len(res.Buckets),
		"months", len(months),
		"window_months", len(window))
	return res, nil
}

// computeDimension folds every month's records into the dimension's buckets
// using a worker pool; each worker keeps a local map that is merged at the end.
func (c *Calculator) computeDimension(
	ctx context.Context,
	d metrics.Dimension,
	months []metrics.Period,
	inWindow map[metrics.Period]struct{},
	asOf int64,
) (map[metrics.BucketKey]metrics.RollupBucket, error) {
	merged := make(map[metrics.BucketKey]metrics.RollupBucket)
	if len(months) == 0 {
		return merged, nil
	}

	workerCount := minInt(c.opts.Workers, len(months))
	jobs := make(chan metrics.Period, len(months))
	results := make(chan map[metrics.BucketKey]metrics.RollupBucket, workerCount)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			local := make(map[metrics.BucketKey]metrics.RollupBucket)
			for m := range jobs {
				if ctx.Err() != nil {
					continue // drain
				}
				_, windowed := inWindow[m]
				c.foldMonth(local, d, m, windowed, asOf)
			}
			results <- local
		}()
	}

	for _, m := range months {
		jobs <- m
	}
	close(jobs)

	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for local := range results {
		for k, b := range local {
			if existing, ok := merged[k]; ok {
				existing.Merge(b)
				merged[k] = existing
				continue
			}
			merged[k] = b
		}
	}
	return merged, nil
}

func (c *Calculator) foldMonth(target map[metrics.BucketKey]metrics.RollupBucket, d metrics.Dimension, month metrics.Period, windowed bool, asOf int64) {
	quarter, err := metrics.QuarterOfMonth(month)
	if err != nil {
		slog.Warn("[Rollup] Skip unparseable month key", "month", month, "error", err)
		return
	}

	for _, rec := range c.ix.RecordsFor(index.ByMonth, string(month), asOf) {
		key := metrics.KeyOf(d, rec)
		addTo(target, metrics.BucketKey{Dimension: d, Key: key, Granularity: metrics.GranularityMonth, Period: month}, rec)
		addTo(target, metrics.BucketKey{Dimension: d, Key: key, Granularity: metrics.GranularityQuarter, Period: quarter}, rec)
		if windowed {
			addTo(target, metrics.BucketKey{Dimension: d, Key: key, Granularity: metrics.GranularityWindow, Period: metrics.WindowPeriod}, rec)
		}
	}
}

func addTo(target map[metrics.BucketKey]metrics.RollupBucket, k metrics.BucketKey, rec *v1.AssetRecord) {
	b, ok := target[k]
	if !ok {
		b = metrics.NewBucket(k)
	}
	b.Add(rec)
	target[k] = b
}

// fillGaps inserts zero-activity buckets so every group has a bucket for every
// period of every granularity.
func (r *Result) fillGaps() {
	grans := []metrics.Granularity{metrics.GranularityMonth, metrics.GranularityQuarter, metrics.GranularityWindow}
	for _, d := range metrics.Dimensions {
		for _, key := range r.Keys[d] {
			for _, g := range grans {
				for _, p := range r.Periods(g) {
					k := metrics.BucketKey{Dimension: d, Key: key, Granularity: g, Period: p}
					if _, ok := r.Buckets[k]; !ok {
						r.Buckets[k] = metrics.NewBucket(k)
					}
				}
			}
		}
	}
}

func toSet(periods []metrics.Period) map[metrics.Period]struct{} {
	out := make(map[metrics.Period]struct{}, len(periods))
	for _, p := range periods {
		out[p] = struct{}{}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
