package dedup

import (
	"testing"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

func TestModule_FilterMessages(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)

	messages := []*event.Message{
		{Type: event.TypeTrack, MessageID: "msg-1", Event: "Signed Up"},
		{Type: event.TypeTrack, MessageID: "msg-2", Event: "Signed Up"},
		{Type: event.TypeTrack, MessageID: "msg-1", Event: "Signed Up"},
		{Type: event.TypePage, MessageID: ""},
	}

	filtered := m.FilterMessages(messages)

	if len(filtered) != 3 {
		t.Fatalf("got %d messages, want 3", len(filtered))
	}
	if filtered[0].MessageID != "msg-1" || filtered[1].MessageID != "msg-2" {
		t.Errorf("order not preserved: %q, %q", filtered[0].MessageID, filtered[1].MessageID)
	}
	// Messages without an id always pass through.
	if filtered[2].MessageID != "" {
		t.Errorf("message without id was dropped")
	}
}

func TestModule_CheckDuplicate(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)

	if m.CheckDuplicate("msg-1") {
		t.Error("first occurrence flagged as duplicate")
	}
	if !m.CheckDuplicate("msg-1") {
		t.Error("second occurrence not flagged as duplicate")
	}
	if m.CheckDuplicate("") {
		t.Error("empty id flagged as duplicate")
	}
}

func TestModule_FilterMessages_Empty(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)

	if got := m.FilterMessages(nil); len(got) != 0 {
		t.Errorf("FilterMessages(nil) = %v", got)
	}
}
