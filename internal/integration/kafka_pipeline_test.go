//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/kafka"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/config"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/observability"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/pipeline"
)

const (
	testSourceTopic = "test-club-events"
	testSinkTopic   = "test-calendar-occurrences"
	kafkaImage      = "confluentinc/confluent-local:7.5.0"
)

// occurrenceMessage holds a deserialized message read from the sink topic.
type occurrenceMessage struct {
	Occurrence domain.Occurrence
	Key        string
	Headers    map[string]string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("clubsite-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func publish(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// readOccurrence reads a single message from the sink consumer and deserializes it.
func readOccurrence(ctx context.Context, t *testing.T, consumer *kafkago.Reader) occurrenceMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var occ domain.Occurrence
	require.NoError(t, json.Unmarshal(msg.Value, &occ), "unmarshal sink message")

	return occurrenceMessage{Occurrence: occ, Key: string(msg.Key), Headers: headers}
}

func runPipeline(ctx context.Context, t *testing.T, cfg *config.Config) (stop func()) {
	t.Helper()
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	transformer := pipeline.NewTransformer(domain.NewExpander(time.UTC, discardLogger()), discardLogger())
	p := pipeline.New(reader, transformer, writer, discardLogger(), observability.NewMetricsForTesting(), 50)

	pipelineCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	return func() {
		cancel()
		require.NoError(t, <-errCh)
	}
}

// TestKafkaReaderWriter verifies that kafka.Reader and kafka.Writer round-trip
// a record and its occurrences through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	payload := []byte(`{"id":"5","title":"Wednesday Racing","event_type":"racing",
		"start_date":"2024-04-03","end_date":"2024-04-17","start_time":"18:30"}`)
	publish(ctx, t, broker, kafkago.Message{Key: []byte("5"), Value: payload})

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("5"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	transformer := pipeline.NewTransformer(domain.NewExpander(time.UTC, discardLogger()), discardLogger())
	occurrences, err := transformer.Transform(ctx, raw)
	require.NoError(t, err)
	require.Len(t, occurrences, 3)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, occurrences))

	consumer := sinkConsumer(t, broker)
	for _, want := range []string{"5-2024-04-03", "5-2024-04-10", "5-2024-04-17"} {
		om := readOccurrence(ctx, t, consumer)
		assert.Equal(t, want, om.Key)
		assert.Equal(t, want, om.Occurrence.ID)
		assert.Equal(t, "5", om.Headers["event_id"])
		_, err := time.Parse(time.RFC3339, om.Headers["expanded_at"])
		assert.NoError(t, err, "expanded_at should be valid RFC3339")
		assert.Equal(t, "6:30 PM", om.Occurrence.Time)
	}
}

// TestPipelineEndToEnd runs Reader → Transformer → Writer against real Kafka
// with a small club programme.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	records := []string{
		`{"id":"5","title":"Wednesday Racing","eventType":"racing","startDate":"2024-04-03","endDate":"2024-04-24"}`,
		`{"id":"8","title":"Fitting Out Supper","event_type":"social","start_date":"2024-03-30"}`,
		`{"id":"9","title":"Cruise to Portaferry","event_type":"cruising","start_date":"2024-05-04","end_date":"2024-05-04"}`,
	}
	msgs := make([]kafkago.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, kafkago.Message{Value: []byte(r)})
	}
	publish(ctx, t, broker, msgs...)

	stop := runPipeline(ctx, t, cfg)
	consumer := sinkConsumer(t, broker)

	const want = 6 // four Wednesdays, one supper, one cruise
	perEvent := map[string]int{}
	seen := map[string]bool{}
	for i := 0; i < want; i++ {
		om := readOccurrence(ctx, t, consumer)
		perEvent[om.Headers["event_id"]]++
		assert.False(t, seen[om.Key], "duplicate occurrence %s", om.Key)
		seen[om.Key] = true
	}
	stop()

	assert.Equal(t, map[string]int{"5": 4, "8": 1, "9": 1}, perEvent)
	assert.True(t, seen["5-2024-04-24"], "end date is inclusive")
}

// TestPipelineMalformedMessage verifies that a poison message is skipped and
// the pipeline continues with the valid records behind it.
func TestPipelineMalformedMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-poison")

	publish(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("8"), Value: []byte(`{"title":"Fitting Out Supper","start_date":"2024-03-30"}`)},
	)

	stop := runPipeline(ctx, t, cfg)
	consumer := sinkConsumer(t, broker)

	om := readOccurrence(ctx, t, consumer)
	assert.Equal(t, "8-2024-03-30", om.Key, "ID taken from the message key")
	assert.Equal(t, "Fitting Out Supper", om.Occurrence.Title)

	// No second message should arrive; the poison pill was skipped.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	stop()
}
