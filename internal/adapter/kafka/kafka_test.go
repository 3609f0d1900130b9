package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

var fetchedAt = time.Date(2024, time.February, 15, 8, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func testSnapshot() *domain.Snapshot {
	catalog := []domain.CatalogRecord{
		{ID: " ab-01 ", Name: "Hospital A"},
		{ID: "AB-02", Name: "Hospital B"},
		{ID: "AB-03", Name: "Hospital C"},
	}
	links := []domain.LinkRecord{
		{ID: "AB-01", DocumentURL: strPtr("http://x/doc"), DocumentDate: strPtr("01-01-2024")},
		{ID: "AB-03", DocumentURL: strPtr("http://x/c"), DocumentDate: strPtr("pendiente")},
	}
	return domain.BuildSnapshot(5, catalog, links, fetchedAt, domain.NewClassifier(domain.DatePolicyStrict))
}

func headers(msg kafkago.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestSerializeToMessage(t *testing.T) {
	snap := testSnapshot()

	msg, err := serializeToMessage(snap, snap.Records[0])
	require.NoError(t, err)

	assert.Equal(t, []byte("AB-01"), msg.Key)
	assert.Equal(t, fetchedAt, msg.Time)
	assert.Equal(t, map[string]string{
		HeaderSnapshotID: snap.ID,
		HeaderGeneration: "5",
		HeaderFreshness:  "STALE",
		HeaderFetchedAt:  "2024-02-15T08:00:00Z",
	}, headers(msg))

	var rec domain.MergedRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec))
	assert.Equal(t, " ab-01 ", rec.ID)
	assert.Equal(t, "http://x/doc", *rec.DocumentURL)
	require.NotNil(t, rec.Freshness)
	assert.Equal(t, 46, rec.Freshness.AgeDays)
}

func TestSerializeToMessage_FreshnessLabels(t *testing.T) {
	snap := testSnapshot()

	missing, err := serializeToMessage(snap, snap.Records[1])
	require.NoError(t, err)
	assert.Equal(t, "MISSING", headers(missing)[HeaderFreshness])
	assert.Contains(t, string(missing.Value), `"document_url":null`)

	unclassified, err := serializeToMessage(snap, snap.Records[2])
	require.NoError(t, err)
	assert.Equal(t, "UNCLASSIFIED", headers(unclassified)[HeaderFreshness])
}

func TestPublishSnapshot(t *testing.T) {
	rw := &recordingWriter{}
	w := &SnapshotWriter{writer: rw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.PublishSnapshot(context.Background(), testSnapshot()))

	require.Len(t, rw.msgs, 3)
	assert.Equal(t, "AB-01", string(rw.msgs[0].Key))
	assert.Equal(t, "AB-02", string(rw.msgs[1].Key))
	assert.Equal(t, "AB-03", string(rw.msgs[2].Key))

	require.NoError(t, w.Close())
	assert.True(t, rw.closed)
}

func TestPublishSnapshot_Empty(t *testing.T) {
	rw := &recordingWriter{}
	w := &SnapshotWriter{writer: rw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.PublishSnapshot(context.Background(), &domain.Snapshot{ID: "empty"}))
	assert.Empty(t, rw.msgs)
}

func TestPublishSnapshot_WriteError(t *testing.T) {
	brokerErr := errors.New("leader not available")
	w := &SnapshotWriter{writer: &recordingWriter{err: brokerErr}, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.PublishSnapshot(context.Background(), testSnapshot())
	require.ErrorIs(t, err, brokerErr)
}
