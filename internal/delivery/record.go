package delivery

import (
	"encoding/json"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/ga"
	"github.com/segment-boneyard/integration-google-analytics/internal/nats"
)

// HitRecord is the archival record of one delivered hit. The delivery
// worker publishes one record per hit to hits.<type>; the archive sink
// consumes them and writes Parquet batches to object storage.
type HitRecord struct {
	// MessageID is the id of the inbound message the hit was mapped from.
	MessageID string `json:"messageId"`

	// MessageType is the inbound message type (track, page, screen).
	MessageType string `json:"messageType"`

	// Event is the event name for track messages.
	Event string `json:"event,omitempty"`

	// TrackingID is the web property the hit was attributed to.
	TrackingID string `json:"trackingId"`

	// Encoding is the wire serialization used (form or querystring).
	Encoding string `json:"encoding"`

	// Path is the collection endpoint path the hit was sent to.
	Path string `json:"path"`

	// Body is the url-encoded hit payload as it went on the wire.
	Body string `json:"body"`

	// StatusCode is the HTTP status the collection endpoint returned.
	StatusCode int `json:"statusCode"`

	// DeliveredAt is when the hit was acknowledged by the endpoint.
	DeliveredAt time.Time `json:"deliveredAt"`
}

// Encode serializes the record to JSON for transport.
func (r *HitRecord) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeHitRecord parses a JSON-encoded hit record.
func DecodeHitRecord(data []byte) (*HitRecord, error) {
	var rec HitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecordSubject returns the NATS subject hit records for the given
// message type are published on.
func RecordSubject(messageType string) string {
	if messageType == "" {
		return "hits.unknown"
	}
	return "hits." + nats.SanitizeSubjectName(messageType)
}

// newHitRecord builds the archival record for one hit of a batch.
func newHitRecord(msgID, msgType, event, trackingID string, batch *ga.Batch, hit ga.Payload, statusCode int, deliveredAt time.Time) *HitRecord {
	return &HitRecord{
		MessageID:   msgID,
		MessageType: msgType,
		Event:       event,
		TrackingID:  trackingID,
		Encoding:    string(batch.Encoding),
		Path:        batch.Path,
		Body:        hit.Values().Encode(),
		StatusCode:  statusCode,
		DeliveredAt: deliveredAt,
	}
}
