package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/weather"
)

// weatherSourceHeader marks responses that fell back to mock data.
const weatherSourceHeader = "X-Weather-Source"

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	force, _ := strconv.ParseBool(q.Get("refresh"))

	var (
		data domain.WeatherData
		err  error
	)
	if loc := q.Get("location"); loc != "" {
		data, err = s.api.Weather.GetWeatherByLocation(r.Context(), loc, force)
	} else {
		lat, latErr := optionalFloat(q.Get("lat"), 90)
		lon, lonErr := optionalFloat(q.Get("lon"), 180)
		if latErr != nil || lonErr != nil {
			writeError(w, http.StatusBadRequest, "lat and lon must be decimal degrees")
			return
		}
		data, err = s.api.Weather.GetCurrentWeather(r.Context(), lat, lon, force)
	}

	if err != nil {
		if !errors.Is(err, weather.ErrUnavailable) || !s.api.WeatherMockOnError {
			writeError(w, http.StatusServiceUnavailable, "weather unavailable")
			return
		}
		s.logger.Warn("serving mock weather", "error", err)
		w.Header().Set(weatherSourceHeader, "mock")
		data = s.api.Weather.MockWeatherData()
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleClearWeather(w http.ResponseWriter, _ *http.Request) {
	removed, err := s.api.Weather.ClearWeatherCache()
	if err != nil {
		s.logger.Error("clear weather cache failed", "error", err)
		writeError(w, http.StatusInternalServerError, "cache clear failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func optionalFloat(v string, limit float64) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	if f < -limit || f > limit {
		return nil, errors.New("out of range")
	}
	return &f, nil
}
