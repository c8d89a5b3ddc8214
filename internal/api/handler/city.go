package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cityair/cityair/internal/api/models"
	"github.com/cityair/cityair/internal/api/response"
	"github.com/cityair/cityair/internal/city"
	"github.com/cityair/cityair/internal/geocoding"
)

// CityHandler handles city endpoints.
type CityHandler struct {
	service *city.Service
	logger  zerolog.Logger
}

// NewCityHandler creates a new CityHandler.
func NewCityHandler(service *city.Service, logger zerolog.Logger) *CityHandler {
	return &CityHandler{service: service, logger: logger}
}

// List handles GET /api/city/ - list stored cities.
func (h *CityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var opts city.ListOptions
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			response.UnprocessableEntity(w, r, "invalid query parameters", []models.FieldError{
				{Field: "limit", Message: "must be a non-negative integer", Code: "invalid"},
			})
			return
		}
		opts.Limit = limit
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			response.UnprocessableEntity(w, r, "invalid query parameters", []models.FieldError{
				{Field: "offset", Message: "must be a non-negative integer", Code: "invalid"},
			})
			return
		}
		opts.Offset = offset
	}

	cities, err := h.service.List(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("city listing failed")
		response.InternalError(w, r, "an unexpected error occurred")
		return
	}

	response.JSON(w, r, http.StatusOK, cityListFrom(cities))
}

// SearchByName handles GET /api/city/name/ - search cities via the geocoder.
func (h *CityHandler) SearchByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		response.UnprocessableEntity(w, r, "invalid query parameters", []models.FieldError{
			{Field: "name", Message: "name is required", Code: "required"},
		})
		return
	}

	cities, err := h.service.SearchByName(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, city.ErrCityNotFound):
			response.NotFound(w, r, "no city found for the given name")
		case errors.Is(err, geocoding.ErrUnavailable):
			response.BadGateway(w, r, "geocoding provider unavailable")
		default:
			h.logger.Error().Err(err).Str("name", name).Msg("city search failed")
			response.InternalError(w, r, "an unexpected error occurred")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, cityListFrom(cities))
}

// Delete handles DELETE /api/city/{cityID}/ - remove a city and its pollution data.
func (h *CityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cityID, err := strconv.Atoi(chi.URLParam(r, "cityID"))
	if err != nil || cityID <= 0 {
		response.UnprocessableEntity(w, r, "invalid path parameters", []models.FieldError{
			{Field: "cityID", Message: "must be a positive integer", Code: "invalid"},
		})
		return
	}

	if err := h.service.Delete(r.Context(), cityID); err != nil {
		if errors.Is(err, city.ErrCityNotFound) {
			response.NotFound(w, r, "city not found")
			return
		}
		h.logger.Error().Err(err).Int("city_id", cityID).Msg("city deletion failed")
		response.InternalError(w, r, "an unexpected error occurred")
		return
	}

	response.NoContent(w, r)
}

func cityListFrom(cities []city.City) models.CityList {
	items := make([]models.CityItem, 0, len(cities))
	for i := range cities {
		items = append(items, models.CityItemFromCity(&cities[i]))
	}
	return models.CityList{Data: items}
}
