package pollution

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// oneDay is the maximum allowed distance between consecutive dates before
// the series is considered to have a gap. Dates are UTC midnights, so a
// plain duration comparison is exact.
const oneDay = 24 * time.Hour

// HasDateGaps reports whether any two consecutive dates in the records,
// sorted ascending, are more than one calendar day apart. Empty and
// single-record inputs have no gaps. The input is not mutated.
func HasDateGaps(records []Record) bool {
	if len(records) < 2 {
		return false
	}

	dates := make([]time.Time, len(records))
	for i, r := range records {
		dates[i] = r.Date
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for i := 1; i < len(dates); i++ {
		if dates[i].Sub(dates[i-1]) > oneDay {
			return true
		}
	}
	return false
}

// DailyMeans collapses raw per-hour records into one record per calendar
// date for the given city. Missing pollutant values are imputed with the
// arithmetic mean of their column over the entire batch (not per date), then
// per-date means are computed and rounded to two decimals. A column with no
// values anywhere in the batch stays null. The returned records are ordered
// ascending by date; the boolean reports whether the incoming series has
// date gaps. Empty input yields (nil, false).
func DailyMeans(records []Record, cityID int) ([]Record, bool) {
	if len(records) == 0 {
		return nil, false
	}

	gaps := HasDateGaps(records)

	// Whole-batch column means for imputation.
	var sums, counts [NumPollutants]float64
	for i := range records {
		for col, v := range records[i].pollutants() {
			if v != nil {
				sums[col] += *v
				counts[col]++
			}
		}
	}
	var batchMean [NumPollutants]*float64
	for col := range batchMean {
		if counts[col] > 0 {
			m := sums[col] / counts[col]
			batchMean[col] = &m
		}
	}

	// Group by date, accumulating imputed values per column.
	type group struct {
		sums   [NumPollutants]float64
		counts [NumPollutants]float64
	}
	groups := make(map[time.Time]*group)
	dates := make([]time.Time, 0)
	for i := range records {
		date := records[i].Date
		g, ok := groups[date]
		if !ok {
			g = &group{}
			groups[date] = g
			dates = append(dates, date)
		}
		for col, v := range records[i].pollutants() {
			if v == nil {
				v = batchMean[col]
			}
			if v != nil {
				g.sums[col] += *v
				g.counts[col]++
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]Record, 0, len(dates))
	for _, date := range dates {
		g := groups[date]
		rec := Record{Date: date, CityID: cityID}
		for col := 0; col < NumPollutants; col++ {
			if g.counts[col] > 0 {
				v := round2(g.sums[col] / g.counts[col])
				rec.setPollutant(col, &v)
			}
		}
		out = append(out, rec)
	}
	return out, gaps
}

// PeriodMeans collapses daily records into one record per calendar month
// or year, dated to the period's first day. Per-period means skip null
// values; no imputation or rounding is applied, the inputs are assumed
// already clean from daily aggregation. The returned records are ordered
// ascending by period; the boolean reports whether the incoming series has
// date gaps. Empty input yields (nil, false, nil).
func PeriodMeans(records []Record, cityID int, period Aggregate) ([]Record, bool, error) {
	if len(records) == 0 {
		return nil, false, nil
	}

	var keyOf func(time.Time) time.Time
	switch period {
	case AggregateMonthly:
		keyOf = func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		}
	case AggregateYearly:
		keyOf = func(t time.Time) time.Time {
			return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		}
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownAggregate, period)
	}

	gaps := HasDateGaps(records)

	type group struct {
		sums   [NumPollutants]float64
		counts [NumPollutants]float64
	}
	groups := make(map[time.Time]*group)
	keys := make([]time.Time, 0)
	for i := range records {
		key := keyOf(records[i].Date)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			keys = append(keys, key)
		}
		for col, v := range records[i].pollutants() {
			if v != nil {
				g.sums[col] += *v
				g.counts[col]++
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		rec := Record{Date: key, CityID: cityID}
		for col := 0; col < NumPollutants; col++ {
			if g.counts[col] > 0 {
				v := g.sums[col] / g.counts[col]
				rec.setPollutant(col, &v)
			}
		}
		out = append(out, rec)
	}
	return out, gaps, nil
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
