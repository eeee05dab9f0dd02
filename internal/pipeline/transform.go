package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
)

// ErrMissingID is returned for records that carry no ID in either the payload
// or the message key. Occurrence IDs are derived from it.
var ErrMissingID = errors.New("event record has no id")

// OccurrenceTransformer implements Transformer by decoding the record and
// running it through the Expander.
type OccurrenceTransformer struct {
	expander *domain.Expander
	logger   *slog.Logger
}

// NewTransformer creates an OccurrenceTransformer.
func NewTransformer(expander *domain.Expander, logger *slog.Logger) *OccurrenceTransformer {
	return &OccurrenceTransformer{
		expander: expander,
		logger:   logger,
	}
}

func (t *OccurrenceTransformer) Transform(_ context.Context, raw domain.RawEvent) ([]domain.Occurrence, error) {
	rec, err := domain.ParseRawEvent(raw)
	if err != nil {
		return nil, err
	}
	if rec.ID == "" {
		return nil, ErrMissingID
	}

	occurrences := t.expander.Expand(rec)
	t.logger.Debug("record expanded", "event_id", rec.ID, "occurrences", len(occurrences))
	return occurrences, nil
}
