package models

import (
	"time"

	"github.com/cityair/cityair/internal/pollution"
)

// PollutionItem is one aggregated pollution record on the wire. Pollutant
// values are null when no data exists for the column.
type PollutionItem struct {
	CO   *float64 `json:"co"`
	NO   *float64 `json:"no"`
	NO2  *float64 `json:"no2"`
	O3   *float64 `json:"o3"`
	SO2  *float64 `json:"so2"`
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	NH3  *float64 `json:"nh3"`
	Date Date     `json:"date"`
}

// PollutionItemFromRecord converts a domain record to its wire form.
func PollutionItemFromRecord(r pollution.Record) PollutionItem {
	return PollutionItem{
		CO:   r.CO,
		NO:   r.NO,
		NO2:  r.NO2,
		O3:   r.O3,
		SO2:  r.SO2,
		PM25: r.PM25,
		PM10: r.PM10,
		NH3:  r.NH3,
		Date: Date(r.Date),
	}
}

// PollutionList is the response body for pollution retrieval.
type PollutionList struct {
	Data    []PollutionItem `json:"data"`
	City    *CityItem       `json:"city,omitempty"`
	Start   *Date           `json:"start,omitempty"`
	End     *Date           `json:"end,omitempty"`
	Gaps    bool            `json:"gaps"`
	PlotURL string          `json:"plot_url,omitempty"`
}

// DateRange bounds an import or deletion request.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ImportRequest is the body of a pollution import request.
type ImportRequest struct {
	Lat   float64   `json:"lat"`
	Lon   float64   `json:"lon"`
	Name  string    `json:"name"`
	Dates DateRange `json:"dates"`
}

// ImportResponse is the body returned for a completed import.
type ImportResponse struct {
	City    CityItem `json:"city"`
	Records int      `json:"records"`
	Gaps    bool     `json:"gaps"`
}

// DeleteResponse reports how many pollution records a deletion removed.
type DeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// ValidateCoordinates checks lat/lon bounds.
func ValidateCoordinates(lat, lon float64) []FieldError {
	var errs []FieldError
	if lat < -90 || lat > 90 {
		errs = append(errs, FieldError{Field: "lat", Message: "must be between -90 and 90", Code: "out_of_range"})
	}
	if lon < -180 || lon > 180 {
		errs = append(errs, FieldError{Field: "lon", Message: "must be between -180 and 180", Code: "out_of_range"})
	}
	return errs
}

// ValidateDateRange parses and checks a start/end date pair. Both dates are
// required, must be YYYY-MM-DD, start must not be after end, and end must
// not be in the future relative to now.
func ValidateDateRange(startStr, endStr string, now time.Time) (start, end time.Time, errs []FieldError) {
	if startStr == "" {
		errs = append(errs, FieldError{Field: "start", Message: "start date is required", Code: "required"})
	} else {
		var err error
		start, err = ParseDate(startStr)
		if err != nil {
			errs = append(errs, FieldError{Field: "start", Message: "must be a date in YYYY-MM-DD format", Code: "invalid_date"})
		}
	}

	if endStr == "" {
		errs = append(errs, FieldError{Field: "end", Message: "end date is required", Code: "required"})
	} else {
		var err error
		end, err = ParseDate(endStr)
		if err != nil {
			errs = append(errs, FieldError{Field: "end", Message: "must be a date in YYYY-MM-DD format", Code: "invalid_date"})
		}
	}

	if len(errs) > 0 {
		return start, end, errs
	}

	if end.Before(start) {
		errs = append(errs, FieldError{Field: "end", Message: "end date must not be before start date", Code: "invalid_range"})
	}
	today := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	if end.After(today) {
		errs = append(errs, FieldError{Field: "end", Message: "end date must not be in the future", Code: "invalid_range"})
	}
	return start, end, errs
}
