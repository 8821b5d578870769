package dedup

import (
	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// CheckDuplicate returns true if the given message id has already been
// seen within the dedup window, indicating the message should be dropped.
// This is intended for use at the gateway level when processing individual
// ingest requests.
//
// An empty id always returns false (messages without ids are never
// deduplicated).
func (m *Module) CheckDuplicate(messageID string) bool {
	return m.svc.IsDuplicate(messageID)
}

// FilterMessages takes a slice of messages and returns only those whose
// message ids have not been seen before. Messages with empty ids always
// pass through. This is intended for use at the NATS consumer level when
// processing fetched batches.
//
// The returned slice preserves the original order of non-duplicate
// messages.
func (m *Module) FilterMessages(messages []*event.Message) []*event.Message {
	if len(messages) == 0 {
		return messages
	}

	filtered := make([]*event.Message, 0, len(messages))
	for _, msg := range messages {
		if !m.svc.IsDuplicate(msg.MessageID) {
			filtered = append(filtered, msg)
		}
	}

	return filtered
}
