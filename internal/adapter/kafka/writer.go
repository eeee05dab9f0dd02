package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/config"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
)

// Writer publishes occurrences to the sink topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes occurrences in a single WriteMessages call. Messages
// are keyed by occurrence ID so re-expansions of a record land on the same
// partition in order.
func (w *Writer) LoadBatch(ctx context.Context, occurrences []domain.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}
	expandedAt := domain.Now()
	msgs := make([]kafkago.Message, len(occurrences))
	for i := range occurrences {
		msg, err := serializeToMessage(occurrences[i], expandedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d occurrences: %w", len(msgs), err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(occ domain.Occurrence, expandedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(occ)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize occurrence %s: %w", occ.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(occ.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(occ.EventID)},
			{Key: "expanded_at", Value: []byte(expandedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
