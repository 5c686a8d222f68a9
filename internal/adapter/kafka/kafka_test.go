package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/dsd-laf/internal/config"
	"github.com/couchcryptid/dsd-laf/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	batches [][]kafkago.Message
	fails   int
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("broker unavailable")
	}
	f.batches = append(f.batches, msgs)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testRow(muR float64) domain.FitRow {
	return domain.FitRow{
		FitRecord: domain.FitRecord{MuR: muR, GammaR: 0.25, Radius: 0.05, MedianR: 0.4},
		Physical:  domain.PhysicalFit{Mu: 1.2, Gamma: 0.5, Median: 0.9},
		Moment:    domain.MomentKappa,
		Site:      "MAN",
		FittedAt:  time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
		RunID:     "run-1",
	}
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSerializeToMessage(t *testing.T) {
	row := testRow(0.13)

	msg, err := serializeToMessage(row)
	require.NoError(t, err)

	assert.Equal(t, []byte("MAN|0.130000|0.250000"), msg.Key)
	assert.Contains(t, string(msg.Value), `"moment":"kappa"`)
	assert.Contains(t, string(msg.Value), `"predicted_r":0.4`)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "moment", msg.Headers[1].Key)
	assert.Equal(t, []byte("kappa"), msg.Headers[1].Value)
	assert.Equal(t, "site", msg.Headers[2].Key)
	assert.Equal(t, "fitted_at", msg.Headers[3].Key)
	assert.Equal(t, []byte("2024-04-26T15:10:00Z"), msg.Headers[3].Value)
}

func TestSerializeToMessage_Instrument(t *testing.T) {
	row := testRow(0.1)
	row.Instrument = "RD80"

	msg, err := serializeToMessage(row)
	require.NoError(t, err)
	require.Len(t, msg.Headers, 5)
	assert.Equal(t, "instrument", msg.Headers[4].Key)
	assert.Equal(t, []byte("RD80"), msg.Headers[4].Value)
}

func TestPublish_Batches(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, batchSize: 2, logger: discardLogger()}

	rows := []domain.FitRow{testRow(0.1), testRow(0.2), testRow(0.3), testRow(0.4), testRow(0.5)}
	require.NoError(t, w.Publish(context.Background(), domain.MomentKappa, rows))

	require.Len(t, fw.batches, 3)
	assert.Len(t, fw.batches[0], 2)
	assert.Len(t, fw.batches[1], 2)
	assert.Len(t, fw.batches[2], 1)
	assert.Equal(t, []byte("MAN|0.500000|0.250000"), fw.batches[2][0].Key)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestPublish_Empty(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, batchSize: 10, logger: discardLogger()}
	require.NoError(t, w.Publish(context.Background(), domain.MomentKappa, nil))
	assert.Empty(t, fw.batches)
}

func TestPublish_RetriesTransientFailure(t *testing.T) {
	fw := &fakeWriter{fails: 1}
	w := &Writer{writer: fw, batchSize: 10, logger: discardLogger()}

	require.NoError(t, w.Publish(context.Background(), domain.MomentKappa, []domain.FitRow{testRow(0.1)}))
	assert.Len(t, fw.batches, 1)
}

func TestPublish_GivesUp(t *testing.T) {
	fw := &fakeWriter{fails: maxAttempts}
	w := &Writer{writer: fw, batchSize: 10, logger: discardLogger()}

	err := w.Publish(context.Background(), domain.MomentKappa, []domain.FitRow{testRow(0.1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Empty(t, fw.batches)
}

func TestPublish_CanceledDuringBackoff(t *testing.T) {
	fw := &fakeWriter{fails: maxAttempts}
	w := &Writer{writer: fw, batchSize: 10, logger: discardLogger()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Publish(ctx, domain.MomentKappa, []domain.FitRow{testRow(0.1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewWriter(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaSinkTopic: "laf-fit-results", BatchSize: 25}
	w := NewWriter(cfg, discardLogger())
	assert.Equal(t, "kafka", w.Name())
	assert.Equal(t, 25, w.batchSize)
	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "laf-fit-results", kw.Topic)
}
