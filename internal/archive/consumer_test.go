// Package archive tests the NATS consumer ACK/NAK/Term behavior and batch
// partitioning.
package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/segment-boneyard/integration-google-analytics/internal/delivery"
)

// mockJetStreamMsg implements jetstream.Msg for testing.
type mockJetStreamMsg struct {
	data       []byte
	subject    string
	ackCalled  atomic.Bool
	nakCalled  atomic.Bool
	termCalled atomic.Bool
}

func (m *mockJetStreamMsg) Data() []byte {
	return m.data
}

func (m *mockJetStreamMsg) Subject() string {
	return m.subject
}

func (m *mockJetStreamMsg) Reply() string {
	return ""
}

func (m *mockJetStreamMsg) Headers() nats.Header {
	return nats.Header{}
}

func (m *mockJetStreamMsg) Ack() error {
	m.ackCalled.Store(true)
	return nil
}

func (m *mockJetStreamMsg) Nak() error {
	m.nakCalled.Store(true)
	return nil
}

func (m *mockJetStreamMsg) NakWithDelay(delay time.Duration) error {
	m.nakCalled.Store(true)
	return nil
}

func (m *mockJetStreamMsg) InProgress() error {
	return nil
}

func (m *mockJetStreamMsg) Term() error {
	m.termCalled.Store(true)
	return nil
}

func (m *mockJetStreamMsg) TermWithReason(reason string) error {
	m.termCalled.Store(true)
	return nil
}

func (m *mockJetStreamMsg) DoubleAck(ctx context.Context) error {
	return m.Ack()
}

func (m *mockJetStreamMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{}, nil
}

// mockStore mocks S3 operations for testing.
type mockStore struct {
	uploadErr   error
	uploadCalls atomic.Int32
	uploadedKey string
}

func (m *mockStore) Upload(_ context.Context, key string, _ []byte) error {
	m.uploadCalls.Add(1)
	m.uploadedKey = key
	return m.uploadErr
}

func (m *mockStore) GenerateKey(messageType string, year, month, day, hour int) string {
	return "test-key.parquet"
}

// createTestConsumer creates a Consumer with mocked dependencies for testing.
func createTestConsumer(t *testing.T, store ObjectStore) *Consumer {
	t.Helper()

	cfg := Config{
		Batch: BatchConfig{
			MaxRecords:     100,
			FlushInterval:  time.Minute,
			FetchBatchSize: 10,
			WorkerCount:    1,
		},
		ShutdownTimeout: 5 * time.Second,
		Parquet: ParquetConfig{
			Compression:  "snappy",
			RowGroupSize: 1024,
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &Consumer{
		config:    cfg,
		store:     store,
		parquet:   NewParquetWriter(cfg.Parquet),
		logger:    logger,
		batch:     make([]trackedRecord, 0, cfg.Batch.MaxRecords),
		lastFlush: time.Now(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func testRecord(messageType string, deliveredAt time.Time) *delivery.HitRecord {
	return &delivery.HitRecord{
		MessageID:   "msg-1",
		MessageType: messageType,
		TrackingID:  "UA-12345-1",
		Encoding:    "form",
		Path:        "/collect",
		Body:        "t=pageview&tid=UA-12345-1&v=1",
		StatusCode:  200,
		DeliveredAt: deliveredAt,
	}
}

func TestProcessMessage_DecodeError_TermsMessage(t *testing.T) {
	c := createTestConsumer(t, &mockStore{})

	msg := &mockJetStreamMsg{
		data:    []byte("not a json record"),
		subject: "hits.track",
	}

	c.processMessage(context.Background(), msg)

	if !msg.termCalled.Load() {
		t.Error("msg.Term() should be called for poison messages (decode failure)")
	}
	if msg.ackCalled.Load() {
		t.Error("msg.Ack() should not be called for poison messages")
	}
	if msg.nakCalled.Load() {
		t.Error("msg.Nak() should not be called for poison messages")
	}
}

func TestProcessMessage_ValidRecord_AddsToBatch(t *testing.T) {
	c := createTestConsumer(t, &mockStore{})

	rec := testRecord("track", time.Now().UTC())
	data, err := rec.Encode()
	if err != nil {
		t.Fatalf("failed to encode record: %v", err)
	}

	msg := &mockJetStreamMsg{
		data:    data,
		subject: "hits.track",
	}

	c.processMessage(context.Background(), msg)

	if len(c.batch) != 1 {
		t.Fatalf("batch length = %d, want 1", len(c.batch))
	}
	if c.batch[0].msg == nil {
		t.Error("tracked record should carry its message reference")
	}
	if c.batch[0].record.MessageID != "msg-1" {
		t.Errorf("record id = %q, want %q", c.batch[0].record.MessageID, "msg-1")
	}
}

func TestGroupByPartition(t *testing.T) {
	c := createTestConsumer(t, &mockStore{})

	ts1 := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	ts2 := time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC) // Different hour
	ts3 := time.Date(2026, 1, 16, 10, 30, 0, 0, time.UTC) // Different day

	tracked := []trackedRecord{
		{record: testRecord("track", ts1), msg: &mockJetStreamMsg{}},
		{record: testRecord("track", ts1), msg: &mockJetStreamMsg{}}, // Same partition as first
		{record: testRecord("track", ts2), msg: &mockJetStreamMsg{}}, // Different hour
		{record: testRecord("page", ts1), msg: &mockJetStreamMsg{}},  // Different type
		{record: testRecord("track", ts3), msg: &mockJetStreamMsg{}}, // Different day
	}

	partitions := c.groupByPartition(tracked)

	if len(partitions) != 4 {
		t.Errorf("partition count = %d, want 4", len(partitions))
	}

	for key, records := range partitions {
		if key.MessageType == "track" && key.Hour == 10 && key.Day == 15 {
			if len(records) != 2 {
				t.Errorf("track hour 10 day 15 should have 2 records, got %d", len(records))
			}
		}
	}
}

func TestFlush_UploadSuccess_AcksMessages(t *testing.T) {
	store := &mockStore{}
	c := createTestConsumer(t, store)

	msg := &mockJetStreamMsg{}
	c.batch = append(c.batch, trackedRecord{
		record: testRecord("track", time.Now().UTC()),
		msg:    msg,
	})

	if err := c.flush(context.Background()); err != nil {
		t.Fatalf("flush() error = %v", err)
	}

	if store.uploadCalls.Load() != 1 {
		t.Errorf("upload calls = %d, want 1", store.uploadCalls.Load())
	}
	if !msg.ackCalled.Load() {
		t.Error("message not ACKed after successful upload")
	}
	if msg.nakCalled.Load() {
		t.Error("message NAKed after successful upload")
	}
	if len(c.batch) != 0 {
		t.Errorf("batch not drained, %d records remain", len(c.batch))
	}
}

func TestFlush_UploadFailure_NaksMessages(t *testing.T) {
	store := &mockStore{uploadErr: errors.New("connection refused")}
	c := createTestConsumer(t, store)

	msg := &mockJetStreamMsg{}
	c.batch = append(c.batch, trackedRecord{
		record: testRecord("track", time.Now().UTC()),
		msg:    msg,
	})

	if err := c.flush(context.Background()); err != nil {
		t.Fatalf("flush() error = %v", err)
	}

	if !msg.nakCalled.Load() {
		t.Error("message not NAKed after failed upload")
	}
	if msg.ackCalled.Load() {
		t.Error("message ACKed after failed upload")
	}
}

func TestFlush_EmptyBatch(t *testing.T) {
	store := &mockStore{}
	c := createTestConsumer(t, store)

	if err := c.flush(context.Background()); err != nil {
		t.Fatalf("flush() error = %v", err)
	}
	if store.uploadCalls.Load() != 0 {
		t.Error("upload called for an empty batch")
	}
}
