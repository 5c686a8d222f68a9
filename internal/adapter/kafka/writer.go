package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/dsd-laf/internal/config"
	"github.com/couchcryptid/dsd-laf/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes fit rows to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer    messageWriter
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
	}
	return &Writer{writer: w, batchSize: cfg.BatchSize, logger: logger}
}

// Name identifies the sink in metrics.
func (w *Writer) Name() string { return "kafka" }

// Publish serializes rows and writes them in batches of the configured size.
// Rows sharing a key land on the same partition.
func (w *Writer) Publish(ctx context.Context, _ domain.Moment, rows []domain.FitRow) error {
	if len(rows) == 0 {
		return nil
	}
	size := max(w.batchSize, 1)
	for lo := 0; lo < len(rows); lo += size {
		hi := min(lo+size, len(rows))
		msgs := make([]kafkago.Message, 0, hi-lo)
		for i := lo; i < hi; i++ {
			msg, err := serializeToMessage(rows[i])
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writeWithRetry(ctx, msgs); err != nil {
			return fmt.Errorf("publish rows %d-%d: %w", lo, hi-1, err)
		}
	}
	return nil
}

func (w *Writer) writeWithRetry(ctx context.Context, msgs []kafkago.Message) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = w.writer.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		w.logger.Warn("kafka write failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a FitRow into a Kafka message.
func serializeToMessage(row domain.FitRow) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fit row: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "run_id", Value: []byte(row.RunID)},
		{Key: "moment", Value: []byte(row.Moment)},
		{Key: "site", Value: []byte(row.Site)},
		{Key: "fitted_at", Value: []byte(row.FittedAt.Format(time.RFC3339))},
	}
	if row.Instrument != "" {
		headers = append(headers, kafkago.Header{Key: "instrument", Value: []byte(row.Instrument)})
	}
	return kafkago.Message{
		Key:     []byte(row.Key()),
		Value:   data,
		Headers: headers,
	}, nil
}
