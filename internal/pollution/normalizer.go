package pollution

import (
	"github.com/cityair/cityair/internal/airquality"
)

// Normalize converts raw provider samples into records owned by the given
// city, one record per sample. Each Unix timestamp is truncated to its UTC
// calendar date; no deduplication or aggregation happens here, so multiple
// records may share a date until DailyMeans runs.
func Normalize(samples []airquality.RawSample, cityID int) []Record {
	records := make([]Record, 0, len(samples))
	for _, s := range samples {
		records = append(records, Record{
			CO:     s.CO,
			NO:     s.NO,
			NO2:    s.NO2,
			O3:     s.O3,
			SO2:    s.SO2,
			PM25:   s.PM25,
			PM10:   s.PM10,
			NH3:    s.NH3,
			Date:   DateOf(s.Time()),
			CityID: cityID,
		})
	}
	return records
}
