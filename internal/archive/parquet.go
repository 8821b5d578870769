package archive

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/segment-boneyard/integration-google-analytics/internal/delivery"
)

// HitRow is the flattened hit record structure for Parquet storage.
// This schema is optimized for analytics queries via Hive/Athena.
type HitRow struct {
	// Identity of the inbound message the hit was mapped from
	MessageID   string `parquet:"message_id,snappy"`
	MessageType string `parquet:"message_type,snappy,dict"`
	Event       string `parquet:"event,snappy,dict,optional"`

	// Destination addressing
	TrackingID string `parquet:"tracking_id,snappy,dict"`
	Encoding   string `parquet:"encoding,snappy,dict"`
	Path       string `parquet:"path,snappy,dict"`

	// Body is the url-encoded hit payload as it went on the wire
	Body string `parquet:"body,snappy"`

	// Delivery outcome
	StatusCode    int32 `parquet:"status_code"`
	DeliveredAtMS int64 `parquet:"delivered_at_ms"`

	// Partition columns (for Hive partitioning)
	Year  int `parquet:"year,dict"`
	Month int `parquet:"month,dict"`
	Day   int `parquet:"day,dict"`
	Hour  int `parquet:"hour,dict"`
}

// HitRowFromRecord converts a delivered hit record to a HitRow.
func HitRowFromRecord(rec *delivery.HitRecord, year, month, day, hour int) HitRow {
	return HitRow{
		MessageID:     rec.MessageID,
		MessageType:   rec.MessageType,
		Event:         rec.Event,
		TrackingID:    rec.TrackingID,
		Encoding:      rec.Encoding,
		Path:          rec.Path,
		Body:          rec.Body,
		StatusCode:    int32(rec.StatusCode),
		DeliveredAtMS: rec.DeliveredAt.UnixMilli(),
		Year:          year,
		Month:         month,
		Day:           day,
		Hour:          hour,
	}
}

// ParquetWriter handles writing hit rows to Parquet format.
type ParquetWriter struct {
	config ParquetConfig
}

// NewParquetWriter creates a new Parquet writer.
func NewParquetWriter(cfg ParquetConfig) *ParquetWriter {
	return &ParquetWriter{
		config: cfg,
	}
}

// Write writes a batch of hit rows to Parquet format and returns the bytes.
func (w *ParquetWriter) Write(rows []HitRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoRowsToWrite
	}

	var buf bytes.Buffer

	codec := w.getCompressionCodec()

	writer := parquet.NewGenericWriter[HitRow](&buf,
		parquet.Compression(codec),
		parquet.CreatedBy("ga-archive-sink", "1.0.0", ""),
	)

	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to write rows: %w", err)
	}

	// Close writer to flush
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// getCompressionCodec returns the compression codec based on config.
func (w *ParquetWriter) getCompressionCodec() compress.Codec {
	switch w.config.Compression {
	case "snappy":
		return &parquet.Snappy
	case "gzip":
		return &parquet.Gzip
	case "zstd":
		return &parquet.Zstd
	case "none":
		return &parquet.Uncompressed
	default:
		return &parquet.Snappy
	}
}
