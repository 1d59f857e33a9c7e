package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity is the size of a time bucket.
type Granularity string

const (
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	// GranularityWindow is the whole reporting window collapsed into one bucket.
	GranularityWindow Granularity = "window"
)

// WindowPeriod is the single period label used by GranularityWindow buckets.
const WindowPeriod Period = "window"

// ParseGranularity parses a granularity name. Empty input defaults to month.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case "", GranularityMonth:
		return GranularityMonth, nil
	case GranularityQuarter:
		return GranularityQuarter, nil
	case GranularityWindow:
		return GranularityWindow, nil
	}
	return "", fmt.Errorf("invalid granularity %q (must be month, quarter, or window)", s)
}

// Period labels a calendar bucket: "2024-03" for months, "2024-Q1" for quarters.
// Labels of the same granularity sort chronologically as strings.
type Period string

// MonthOf returns the calendar month (UTC) containing t.
func MonthOf(t time.Time) Period {
	t = t.UTC()
	return Period(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// QuarterOf returns the calendar quarter (UTC) containing t.
func QuarterOf(t time.Time) Period {
	t = t.UTC()
	q := (int(t.Month())-1)/3 + 1
	return Period(fmt.Sprintf("%04d-Q%d", t.Year(), q))
}

// PeriodFor truncates a timestamp to its bucket at the given granularity.
// This is the atomic unit of time grouping.
func PeriodFor(t time.Time, g Granularity) Period {
	switch g {
	case GranularityQuarter:
		return QuarterOf(t)
	case GranularityWindow:
		return WindowPeriod
	default:
		return MonthOf(t)
	}
}

// QuarterOfMonth maps a month label to the quarter containing it.
func QuarterOfMonth(month Period) (Period, error) {
	start, err := month.Start(GranularityMonth)
	if err != nil {
		return "", err
	}
	return QuarterOf(start), nil
}

// Start returns the first instant of the period.
func (p Period) Start(g Granularity) (time.Time, error) {
	s := string(p)
	switch g {
	case GranularityMonth:
		t, err := time.Parse("2006-01", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid month period %q: %w", s, err)
		}
		return t.UTC(), nil
	case GranularityQuarter:
		year, q, ok := strings.Cut(s, "-Q")
		if !ok {
			return time.Time{}, fmt.Errorf("invalid quarter period %q", s)
		}
		y, err := strconv.Atoi(year)
		if err != nil || len(year) != 4 {
			return time.Time{}, fmt.Errorf("invalid quarter period %q", s)
		}
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 4 {
			return time.Time{}, fmt.Errorf("invalid quarter period %q", s)
		}
		return time.Date(y, time.Month((n-1)*3+1), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("period %q has no start at granularity %q", s, g)
}

// Next returns the period immediately after p.
func (p Period) Next(g Granularity) (Period, error) {
	start, err := p.Start(g)
	if err != nil {
		return "", err
	}
	switch g {
	case GranularityQuarter:
		return QuarterOf(start.AddDate(0, 3, 0)), nil
	default:
		return MonthOf(start.AddDate(0, 1, 0)), nil
	}
}

// Previous returns the period immediately before p.
func (p Period) Previous(g Granularity) (Period, error) {
	start, err := p.Start(g)
	if err != nil {
		return "", err
	}
	switch g {
	case GranularityQuarter:
		return QuarterOf(start.AddDate(0, -3, 0)), nil
	default:
		return MonthOf(start.AddDate(0, -1, 0)), nil
	}
}

// MaxPeriodRange bounds the number of periods PeriodRange will enumerate.
const MaxPeriodRange = 1200

// ErrPeriodRangeTooLong is returned when a range spans more than MaxPeriodRange periods.
var ErrPeriodRangeTooLong = errors.New("period range too long")

// PeriodRange returns every period from first to last inclusive.
// Returns an empty slice when last is before first.
func PeriodRange(first, last Period, g Granularity) ([]Period, error) {
	if g == GranularityWindow {
		return []Period{WindowPeriod}, nil
	}
	from, err := first.Start(g)
	if err != nil {
		return nil, err
	}
	to, err := last.Start(g)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, nil
	}

	step := 1
	if g == GranularityQuarter {
		step = 3
	}
	span := ((to.Year()-from.Year())*12+int(to.Month())-int(from.Month()))/step + 1
	if span > MaxPeriodRange {
		return nil, fmt.Errorf("%w: %s to %s spans %d periods (max %d)", ErrPeriodRangeTooLong, first, last, span, MaxPeriodRange)
	}

	out := make([]Period, 0, span)
	for cur := from; !cur.After(to); cur = cur.AddDate(0, step, 0) {
		out = append(out, PeriodFor(cur, g))
	}
	return out, nil
}

// TrailingMonths returns the n months ending at latest (inclusive), oldest first.
func TrailingMonths(latest Period, n int) ([]Period, error) {
	if n <= 0 {
		return nil, fmt.Errorf("trailing window must be positive, got %d", n)
	}
	out := make([]Period, n)
	cur := latest
	for i := n - 1; i >= 0; i-- {
		out[i] = cur
		if i == 0 {
			break
		}
		prev, err := cur.Previous(GranularityMonth)
		if err != nil {
			return nil, err
		}
		cur = prev
	}
	return out, nil
}
