// Package handler provides HTTP handlers for the CityAir API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/airquality"
	"github.com/cityair/cityair/internal/api/models"
	"github.com/cityair/cityair/internal/api/response"
	"github.com/cityair/cityair/internal/city"
	"github.com/cityair/cityair/internal/geocoding"
	"github.com/cityair/cityair/internal/pollution"
)

// PollutionHandler handles pollution data endpoints.
type PollutionHandler struct {
	service *pollution.Service
	logger  zerolog.Logger
}

// NewPollutionHandler creates a new PollutionHandler.
func NewPollutionHandler(service *pollution.Service, logger zerolog.Logger) *PollutionHandler {
	return &PollutionHandler{service: service, logger: logger}
}

// Get handles GET /api/pollution - retrieve stored pollution data for a city.
//
// Query parameters: city_id (required), start, end (required, YYYY-MM-DD),
// aggregate (daily|monthly|yearly, default daily), limit, offset.
func (h *PollutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cityID, err := strconv.Atoi(q.Get("city_id"))
	if err != nil || cityID <= 0 {
		response.UnprocessableEntity(w, r, "invalid query parameters", []models.FieldError{
			{Field: "city_id", Message: "must be a positive integer", Code: "invalid"},
		})
		return
	}

	start, end, fieldErrs := models.ValidateDateRange(q.Get("start"), q.Get("end"), time.Now())
	if len(fieldErrs) > 0 {
		response.UnprocessableEntity(w, r, "invalid date range", fieldErrs)
		return
	}

	aggregate, err := pollution.ParseAggregate(q.Get("aggregate"))
	if err != nil {
		response.UnprocessableEntity(w, r, "invalid query parameters", []models.FieldError{
			{Field: "aggregate", Message: "must be one of daily, monthly, yearly", Code: "invalid"},
		})
		return
	}

	opts, fieldErrs := parsePagination(q.Get("limit"), q.Get("offset"))
	if len(fieldErrs) > 0 {
		response.UnprocessableEntity(w, r, "invalid query parameters", fieldErrs)
		return
	}

	result, err := h.service.Get(r.Context(), cityID, start, end, aggregate, opts)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, pollutionListFromResult(result))
}

// Import handles POST /api/pollution - fetch and store historical pollution data.
func (h *PollutionHandler) Import(w http.ResponseWriter, r *http.Request) {
	var input models.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	fieldErrs := models.ValidateCoordinates(input.Lat, input.Lon)
	start, end, dateErrs := models.ValidateDateRange(input.Dates.Start, input.Dates.End, time.Now())
	fieldErrs = append(fieldErrs, dateErrs...)
	if len(fieldErrs) > 0 {
		response.UnprocessableEntity(w, r, "invalid import request", fieldErrs)
		return
	}

	result, err := h.service.Import(r.Context(), pollution.ImportParams{
		Lat:   input.Lat,
		Lon:   input.Lon,
		Name:  input.Name,
		Start: start,
		End:   end,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	body := models.ImportResponse{
		City:    models.CityItemFromCity(result.City),
		Records: result.Records,
		Gaps:    result.Gaps,
	}
	response.Created(w, r, "/api/pollution?city_id="+strconv.Itoa(result.City.ID), body)
}

// Delete handles DELETE /api/pollution - remove stored pollution data for a
// city and date range.
func (h *PollutionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cityID, err := strconv.Atoi(q.Get("city_id"))
	if err != nil || cityID <= 0 {
		response.UnprocessableEntity(w, r, "invalid query parameters", []models.FieldError{
			{Field: "city_id", Message: "must be a positive integer", Code: "invalid"},
		})
		return
	}

	start, end, fieldErrs := models.ValidateDateRange(q.Get("start"), q.Get("end"), time.Now())
	if len(fieldErrs) > 0 {
		response.UnprocessableEntity(w, r, "invalid date range", fieldErrs)
		return
	}

	deleted, err := h.service.DeleteRange(r.Context(), cityID, start, end)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.DeleteResponse{Deleted: deleted})
}

// writeServiceError maps domain errors to problem responses.
func (h *PollutionHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, city.ErrCityNotFound):
		response.NotFound(w, r, "city not found")
	case errors.Is(err, city.ErrNoCityMatch):
		response.NotFound(w, r, "no city found for the given location")
	case errors.Is(err, pollution.ErrNoPollutionData):
		response.NotFound(w, r, "no pollution data found for the given range")
	case errors.Is(err, airquality.ErrUnavailable):
		response.BadGateway(w, r, "air quality provider unavailable")
	case errors.Is(err, geocoding.ErrUnavailable):
		response.BadGateway(w, r, "geocoding provider unavailable")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("pollution request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}

// parsePagination parses limit and offset query parameters.
func parsePagination(limitStr, offsetStr string) (pollution.QueryOptions, []models.FieldError) {
	var opts pollution.QueryOptions
	var errs []models.FieldError

	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			errs = append(errs, models.FieldError{Field: "limit", Message: "must be a non-negative integer", Code: "invalid"})
		} else {
			opts.Limit = limit
		}
	}
	if offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			errs = append(errs, models.FieldError{Field: "offset", Message: "must be a non-negative integer", Code: "invalid"})
		} else {
			opts.Offset = offset
		}
	}
	return opts, errs
}

// pollutionListFromResult converts a query result to its wire form.
func pollutionListFromResult(result *pollution.QueryResult) models.PollutionList {
	items := make([]models.PollutionItem, 0, len(result.Records))
	for _, rec := range result.Records {
		items = append(items, models.PollutionItemFromRecord(rec))
	}

	list := models.PollutionList{
		Data:    items,
		Gaps:    result.Gaps,
		PlotURL: result.PlotURL,
	}
	if result.City != nil {
		item := models.CityItemFromCity(result.City)
		list.City = &item
	}
	if result.Start != nil {
		d := models.Date(*result.Start)
		list.Start = &d
	}
	if result.End != nil {
		d := models.Date(*result.End)
		list.End = &d
	}
	return list
}
