// Package pollution provides the pollution record domain: normalization of
// raw provider samples, daily and period aggregation, and persistence of
// per-city pollution history.
package pollution

import (
	"errors"
	"fmt"
	"time"
)

// Aggregate selects the granularity of returned pollution data.
type Aggregate string

const (
	AggregateDaily   Aggregate = "daily"
	AggregateMonthly Aggregate = "monthly"
	AggregateYearly  Aggregate = "yearly"
)

// ErrUnknownAggregate is returned for aggregate selectors outside the
// daily/monthly/yearly enumeration. There is deliberately no fallback.
var ErrUnknownAggregate = errors.New("unknown aggregate selector")

// ParseAggregate validates an aggregate selector. An empty value defaults
// to daily; anything else outside the enumeration is rejected.
func ParseAggregate(s string) (Aggregate, error) {
	switch Aggregate(s) {
	case AggregateDaily, "":
		return AggregateDaily, nil
	case AggregateMonthly:
		return AggregateMonthly, nil
	case AggregateYearly:
		return AggregateYearly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAggregate, s)
	}
}

// NumPollutants is the number of pollutant columns in a record.
const NumPollutants = 8

// PollutantNames lists the pollutant columns in record order.
var PollutantNames = [NumPollutants]string{"co", "no", "no2", "o3", "so2", "pm2_5", "pm10", "nh3"}

// Record is one row of pollutant concentrations for one city on one date.
// Before daily aggregation multiple records may share a date (one per raw
// hourly sample); afterwards exactly one record exists per (city, date).
// Pollutant values are nullable: a column with no data anywhere in a batch
// stays null through aggregation.
type Record struct {
	ID     *int
	CO     *float64
	NO     *float64
	NO2    *float64
	O3     *float64
	SO2    *float64
	PM25   *float64
	PM10   *float64
	NH3    *float64
	Date   time.Time
	CityID int
}

// pollutants returns the pollutant columns in PollutantNames order.
func (r *Record) pollutants() [NumPollutants]*float64 {
	return [NumPollutants]*float64{r.CO, r.NO, r.NO2, r.O3, r.SO2, r.PM25, r.PM10, r.NH3}
}

// setPollutant sets the i-th pollutant column.
func (r *Record) setPollutant(i int, v *float64) {
	switch i {
	case 0:
		r.CO = v
	case 1:
		r.NO = v
	case 2:
		r.NO2 = v
	case 3:
		r.O3 = v
	case 4:
		r.SO2 = v
	case 5:
		r.PM25 = v
	case 6:
		r.PM10 = v
	case 7:
		r.NH3 = v
	}
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
