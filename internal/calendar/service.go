// Package calendar builds calendar views from the club backend. Occurrences
// are derived from freshly fetched event records on every call and never
// stored.
package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/ics"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/observability"
)

const (
	viewList  = "list"
	viewMonth = "month"
	viewDay   = "day"
	viewICS   = "ics"
)

// MonthView is a rendered month plus the occurrences that fall inside it.
type MonthView struct {
	Grid        domain.Grid         `json:"grid"`
	Previous    domain.Month        `json:"previous"`
	Next        domain.Month        `json:"next"`
	Occurrences []domain.Occurrence `json:"occurrences"`
}

// Service glues an EventSource, the Expander and the month renderer.
type Service struct {
	source   domain.EventSource
	expander *domain.Expander
	feed     ics.Feed
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService creates a calendar service.
func NewService(source domain.EventSource, expander *domain.Expander, feed ics.Feed, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		source:   source,
		expander: expander,
		feed:     feed,
		metrics:  metrics,
		logger:   logger,
	}
}

// Location returns the display zone.
func (s *Service) Location() *time.Location {
	if s.expander.Location == nil {
		return time.UTC
	}
	return s.expander.Location
}

// Today returns midnight of the current day in the display zone.
func (s *Service) Today() time.Time {
	now := domain.Now().In(s.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Occurrences lists occurrences for records matching filter. When the filter
// carries a date range, occurrences outside it are dropped.
func (s *Service) Occurrences(ctx context.Context, filter domain.EventFilter) ([]domain.Occurrence, error) {
	occ, err := s.expandFrom(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.metrics.CalendarRenders.WithLabelValues(viewList).Inc()
	return clip(occ, filter.StartDate, filter.EndDate), nil
}

// EventOccurrences expands a single event. The error wraps
// domain.ErrEventNotFound when the backend has no such event.
func (s *Service) EventOccurrences(ctx context.Context, id string) ([]domain.Occurrence, error) {
	rec, err := s.source.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	occ := s.expander.Expand(rec)
	s.metrics.OccurrencesExpanded.Add(float64(len(occ)))
	return occ, nil
}

// Month renders the grid for m with today highlighted.
func (s *Service) Month(ctx context.Context, m domain.Month) (MonthView, error) {
	occ, err := s.expandFrom(ctx, domain.EventFilter{})
	if err != nil {
		return MonthView{}, err
	}

	first := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, s.Location())
	last := first.AddDate(0, 1, -1)

	s.metrics.CalendarRenders.WithLabelValues(viewMonth).Inc()
	return MonthView{
		Grid:        domain.RenderMonth(m, occ, s.Today()),
		Previous:    m.Prev(),
		Next:        m.Next(),
		Occurrences: clip(occ, first, last),
	}, nil
}

// Day returns the first occurrence on date. The boolean is false when the
// day has none.
func (s *Service) Day(ctx context.Context, date time.Time) (domain.Occurrence, bool, error) {
	occ, err := s.expandFrom(ctx, domain.EventFilter{})
	if err != nil {
		return domain.Occurrence{}, false, err
	}
	s.metrics.CalendarRenders.WithLabelValues(viewDay).Inc()

	match, ok := domain.SelectDay(occ, date)
	if !ok {
		s.logger.Debug("no occurrence on selected day", "date", date.Format(time.DateOnly))
	}
	return match, ok, nil
}

// Feed writes every occurrence as an iCalendar document.
func (s *Service) Feed(ctx context.Context, w io.Writer) error {
	occ, err := s.expandFrom(ctx, domain.EventFilter{})
	if err != nil {
		return err
	}
	s.metrics.CalendarRenders.WithLabelValues(viewICS).Inc()
	return s.feed.Encode(w, occ, domain.Now())
}

func (s *Service) expandFrom(ctx context.Context, filter domain.EventFilter) ([]domain.Occurrence, error) {
	records, err := s.source.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	occ := s.expander.ExpandAll(records)
	s.metrics.OccurrencesExpanded.Add(float64(len(occ)))
	s.logger.Debug("expanded events", "records", len(records), "occurrences", len(occ))
	return occ, nil
}

// clip keeps occurrences whose start date lies in [from, to] by calendar
// day. Zero bounds are open.
func clip(occ []domain.Occurrence, from, to time.Time) []domain.Occurrence {
	if from.IsZero() && to.IsZero() {
		return occ
	}
	out := make([]domain.Occurrence, 0, len(occ))
	for _, o := range occ {
		d := o.StartDate.Format(time.DateOnly)
		if !from.IsZero() && d < from.Format(time.DateOnly) {
			continue
		}
		if !to.IsZero() && d > to.Format(time.DateOnly) {
			continue
		}
		out = append(out, o)
	}
	return out
}
