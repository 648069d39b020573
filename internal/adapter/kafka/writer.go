package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/domain"
)

// Writer produces seismic records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes every record of the batch in a single WriteMessages call.
// Records are keyed by id so updates to one event land on one partition.
func (w *Writer) Publish(ctx context.Context, batch domain.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Records))
	for i := range batch.Records {
		msg, err := serializeToMessage(batch.Records[i], batch)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d records: %w", len(msgs), err)
	}
	w.logger.Debug("records written", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a record into a Kafka message tagged with its batch selector.
func serializeToMessage(record domain.SeismicRecord, batch domain.Batch) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize seismic record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(record.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "period", Value: []byte(batch.Period)},
			{Key: "severity", Value: []byte(batch.Severity)},
			{Key: "fetched_at", Value: []byte(strconv.FormatInt(batch.FetchedAt, 10))},
		},
	}, nil
}
