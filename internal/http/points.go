package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/wifinder/wifinder/internal/mapview"
	"github.com/wifinder/wifinder/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Client-visible messages. The embedding frontend matches on these
// verbatim, including the Russian not-found detail.
const (
	msgRatingRequired = "Rating field is required"
	msgRatingInteger  = "Rating must be an integer"
	msgRatingRange    = "Rating must be between 1 and 5"
	msgPointNotFound  = "Точка не найдена"
	msgInternalError  = "Internal server error"
	msgRateLimited    = "Rate limit exceeded"
)

type errorResponse struct {
	Error string `json:"error"`
}

type notFoundResponse struct {
	Detail string `json:"detail"`
}

type pointItem struct {
	ID      int64   `json:"id"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address"`
	Rating  float64 `json:"rating"`
}

type pointListResponse struct {
	Points []pointItem `json:"points"`
}

type pointDetailResponse struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Rating    float64 `json:"rating"`
}

type rateRequest struct {
	Rating *int64 `json:"rating" validate:"required,gte=1,lte=5"`
}

type rateResponse struct {
	OK      bool  `json:"ok"`
	PointID int64 `json:"point_id"`
}

type ratingSummaryResponse struct {
	PointID int64   `json:"point_id"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type dbStatusResponse struct {
	DBStatus string `json:"db_status"`
	Test     *int   `json:"test,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleMapPage(w http.ResponseWriter, r *http.Request) {
	points, err := s.repo.Points.List(r.Context(), repository.PointListFilters{})
	if err != nil {
		s.logger.Error().Err(err).Msg("list points for map failed")
		s.respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	markers := make([]mapview.Marker, 0, len(points))
	for _, point := range points {
		markers = append(markers, mapview.Marker{
			Lat:     point.Latitude,
			Lon:     point.Longitude,
			Address: point.Address,
			Rating:  point.AverageRating,
		})
	}

	// Rendered into a buffer so a template failure can still become a 500.
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, markers); err != nil {
		s.logger.Error().Err(err).Msg("render map failed")
		s.respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleListPoints(w http.ResponseWriter, r *http.Request) {
	filters, err := buildPointFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := s.repo.Points.List(r.Context(), filters)
	if err != nil {
		s.logger.Error().Err(err).Msg("list points failed")
		s.respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	items := make([]pointItem, 0, len(points))
	for _, point := range points {
		items = append(items, pointItem{
			ID:      point.ID,
			Lat:     point.Latitude,
			Lon:     point.Longitude,
			Address: addressOrEmpty(point.Address),
			Rating:  ratingOrZero(point.AverageRating),
		})
	}
	s.respondJSON(w, http.StatusOK, pointListResponse{Points: items})
}

// buildPointFilters parses the optional viewport and rating filters.
// bbox is "minLon,minLat,maxLon,maxLat".
func buildPointFilters(query url.Values) (repository.PointListFilters, error) {
	var filters repository.PointListFilters

	if val := strings.TrimSpace(query.Get("bbox")); val != "" {
		parts := strings.Split(val, ",")
		if len(parts) != 4 {
			return filters, fmt.Errorf("invalid bbox value")
		}
		coords := make([]float64, 4)
		for i, part := range parts {
			coord, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return filters, fmt.Errorf("invalid bbox value")
			}
			coords[i] = coord
		}
		filters.BoundingBox = &repository.BoundingBox{
			MinLon: coords[0],
			MinLat: coords[1],
			MaxLon: coords[2],
			MaxLat: coords[3],
		}
	}

	if val := strings.TrimSpace(query.Get("min_rating")); val != "" {
		minRating, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return filters, fmt.Errorf("invalid min_rating value")
		}
		filters.MinRating = &minRating
	}

	return filters, nil
}

func (s *Server) handleGetPoint(w http.ResponseWriter, r *http.Request) {
	id, err := decodePointID(r)
	if err != nil {
		s.respondNotFound(w)
		return
	}

	point, err := s.repo.Points.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.logger.Error().Err(err).Int64("point_id", id).Msg("get point failed")
		s.respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	s.respondJSON(w, http.StatusOK, pointDetailResponse{
		ID:        point.ID,
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
		Address:   addressOrEmpty(point.Address),
		Rating:    ratingOrZero(point.AverageRating),
	})
}

func (s *Server) handleRatePoint(w http.ResponseWriter, r *http.Request) {
	id, err := decodePointID(r)
	if err != nil {
		s.respondNotFound(w)
		return
	}

	var req rateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, ratingDecodeMessage(err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, ratingValidationMessage(err))
		return
	}

	summary, err := s.repo.Points.AppendRating(r.Context(), id, int(*req.Rating))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.logger.Error().Err(err).Int64("point_id", id).Msg("append rating failed")
		s.respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	s.logger.Info().
		Int64("point_id", id).
		Int("count", len(summary.Ratings)).
		Float64("average", summary.Average).
		Msg("rating recorded")
	s.respondJSON(w, http.StatusOK, rateResponse{OK: true, PointID: id})
}

func (s *Server) handleRatingSummary(w http.ResponseWriter, r *http.Request) {
	id, err := decodePointID(r)
	if err != nil {
		s.respondNotFound(w)
		return
	}

	point, err := s.repo.Points.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondNotFound(w)
			return
		}
		s.logger.Error().Err(err).Int64("point_id", id).Msg("get rating summary failed")
		s.respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	s.respondJSON(w, http.StatusOK, ratingSummaryResponse{
		PointID: point.ID,
		Average: ratingOrZero(point.AverageRating),
		Count:   len(point.Ratings),
	})
}

func (s *Server) handleTestDB(w http.ResponseWriter, r *http.Request) {
	value, err := s.store.Liveness(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("database liveness check failed")
		s.respondJSON(w, http.StatusOK, dbStatusResponse{DBStatus: "error", Error: err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, dbStatusResponse{DBStatus: "ok", Test: &value})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

// ratingDecodeMessage maps a decode failure to the client-visible
// message. A type mismatch on the rating value itself reads as "not an
// integer"; syntax errors, empty bodies and mismatched body shapes all
// mean the field never arrived.
func ratingDecodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Type != nil && typeErr.Type.Kind() == reflect.Int64 {
		return msgRatingInteger
	}
	return msgRatingRequired
}

func ratingValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "gte", "lte":
			return msgRatingRange
		}
	}
	return msgRatingRequired
}

func decodePointID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid point id %q", raw)
	}
	return id, nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

func (s *Server) respondNotFound(w http.ResponseWriter) {
	s.respondJSON(w, http.StatusNotFound, notFoundResponse{Detail: msgPointNotFound})
}

func addressOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func ratingOrZero(ptr *float64) float64 {
	if ptr == nil {
		return 0
	}
	return *ptr
}
