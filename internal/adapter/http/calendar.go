package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
)

const maxOccurrenceLimit = 1000

func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	filter, err := s.parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	occ, err := s.api.Calendar.Occurrences(r.Context(), filter)
	if err != nil {
		s.logger.Error("list occurrences failed", "error", err)
		writeError(w, http.StatusBadGateway, "events unavailable")
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (s *Server) handleEventOccurrences(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	occ, err := s.api.Calendar.EventOccurrences(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
		return
	case err != nil:
		s.logger.Error("event occurrences failed", "event_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "events unavailable")
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	m := domain.MonthOf(s.api.Calendar.Today())

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 1 || year > 9999 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		m.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		m.Month = time.Month(month)
	}

	view, err := s.api.Calendar.Month(r.Context(), m)
	if err != nil {
		s.logger.Error("render month failed", "month", m.String(), "error", err)
		writeError(w, http.StatusBadGateway, "events unavailable")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDay answers a click on a calendar day: the first occurrence on that
// day, or 204 when there is none.
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date, err := time.ParseInLocation(time.DateOnly, r.URL.Query().Get("date"), s.api.Calendar.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	occ, ok, err := s.api.Calendar.Day(r.Context(), date)
	if err != nil {
		s.logger.Error("select day failed", "date", date.Format(time.DateOnly), "error", err)
		writeError(w, http.StatusBadGateway, "events unavailable")
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.api.Calendar.Feed(r.Context(), &buf); err != nil {
		s.logger.Error("ics feed failed", "error", err)
		writeError(w, http.StatusBadGateway, "events unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) parseFilter(r *http.Request) (domain.EventFilter, error) {
	q := r.URL.Query()
	loc := s.api.Calendar.Location()
	var f domain.EventFilter

	if v := q.Get("start_date"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			return f, fmt.Errorf("start_date must be YYYY-MM-DD")
		}
		f.StartDate = t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			return f, fmt.Errorf("end_date must be YYYY-MM-DD")
		}
		f.EndDate = t
	}
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
		return f, fmt.Errorf("end_date is before start_date")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxOccurrenceLimit {
			return f, fmt.Errorf("limit must be between 1 and %d", maxOccurrenceLimit)
		}
		f.Limit = n
	}
	f.EventType = q.Get("event_type")
	return f, nil
}
