package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/config"
	"github.com/couchcryptid/facility-freshness/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Message header names.
const (
	HeaderSnapshotID = "snapshot_id"
	HeaderGeneration = "generation"
	HeaderFreshness  = "freshness"
	HeaderFetchedAt  = "fetched_at"
)

// messageWriter is the subset of *kafkago.Writer used by SnapshotWriter.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// SnapshotWriter publishes every merged record of a snapshot to a Kafka topic.
// It implements pipeline.SnapshotPublisher.
type SnapshotWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewSnapshotWriter creates a Kafka producer for the configured snapshot topic.
func NewSnapshotWriter(cfg *config.Config, logger *slog.Logger) *SnapshotWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &SnapshotWriter{writer: w, logger: logger}
}

// PublishSnapshot serializes the snapshot's records and writes them in a single
// WriteMessages call. Records are keyed by normalized identifier so a
// facility's history stays on one partition.
func (w *SnapshotWriter) PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if len(snap.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Records))
	for i := range snap.Records {
		msg, err := serializeToMessage(snap, snap.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshot %s: %w", snap.ID, err)
	}
	w.logger.Info("snapshot published", "snapshot_id", snap.ID, "generation", snap.Generation, "messages", len(msgs))
	return nil
}

func (w *SnapshotWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one merged record into a Kafka message.
func serializeToMessage(snap *domain.Snapshot, rec domain.MergedRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %q: %w", rec.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Key()),
		Value: data,
		Time:  snap.FetchedAt,
		Headers: []kafkago.Header{
			{Key: HeaderSnapshotID, Value: []byte(snap.ID)},
			{Key: HeaderGeneration, Value: []byte(strconv.FormatUint(snap.Generation, 10))},
			{Key: HeaderFreshness, Value: []byte(domain.FreshnessLabel(rec))},
			{Key: HeaderFetchedAt, Value: []byte(snap.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
