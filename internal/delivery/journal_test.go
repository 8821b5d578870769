package delivery

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	cfg := JournalConfig{Path: filepath.Join(t.TempDir(), "journal.db")}
	journal, err := OpenJournal(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	return journal
}

func TestJournal_RecordDelivered(t *testing.T) {
	journal := openTestJournal(t)
	ctx := context.Background()

	deliveredAt := time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)
	err := journal.RecordDelivered(ctx, &JournalEntry{
		MessageID:   "msg-1",
		MessageType: "track",
		Event:       "Order Completed",
		HitCount:    4,
		StatusCode:  200,
		DeliveredAt: deliveredAt,
	})
	if err != nil {
		t.Fatalf("RecordDelivered() error = %v", err)
	}

	entries, err := journal.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	entry := entries[0]
	if entry.MessageID != "msg-1" {
		t.Errorf("message id = %q", entry.MessageID)
	}
	if entry.Status != DeliveryStatusDelivered {
		t.Errorf("status = %q, want delivered", entry.Status)
	}
	if entry.HitCount != 4 {
		t.Errorf("hit count = %d, want 4", entry.HitCount)
	}
	if entry.StatusCode != 200 {
		t.Errorf("status code = %d, want 200", entry.StatusCode)
	}
	if !entry.DeliveredAt.Equal(deliveredAt) {
		t.Errorf("delivered at = %v, want %v", entry.DeliveredAt, deliveredAt)
	}
}

func TestJournal_RecordFailed(t *testing.T) {
	journal := openTestJournal(t)
	ctx := context.Background()

	err := journal.RecordFailed(ctx, &JournalEntry{
		MessageID:   "msg-2",
		MessageType: "page",
		StatusCode:  503,
		LastError:   "hit delivery failed: status 503",
	})
	if err != nil {
		t.Fatalf("RecordFailed() error = %v", err)
	}

	entries, err := journal.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	entry := entries[0]
	if entry.Status != DeliveryStatusFailed {
		t.Errorf("status = %q, want failed", entry.Status)
	}
	if entry.LastError != "hit delivery failed: status 503" {
		t.Errorf("last error = %q", entry.LastError)
	}
	if !entry.DeliveredAt.IsZero() {
		t.Errorf("delivered at = %v, want zero for a failed delivery", entry.DeliveredAt)
	}
}

func TestJournal_RecentOrder(t *testing.T) {
	journal := openTestJournal(t)
	ctx := context.Background()

	for _, id := range []string{"msg-a", "msg-b", "msg-c"} {
		err := journal.RecordDelivered(ctx, &JournalEntry{
			MessageID:   id,
			MessageType: "track",
			HitCount:    1,
			StatusCode:  200,
		})
		if err != nil {
			t.Fatalf("RecordDelivered(%s) error = %v", id, err)
		}
	}

	entries, err := journal.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].MessageID != "msg-c" || entries[1].MessageID != "msg-b" {
		t.Errorf("entries = [%s %s], want newest first", entries[0].MessageID, entries[1].MessageID)
	}
}

func TestJournal_Prune(t *testing.T) {
	journal := openTestJournal(t)
	ctx := context.Background()

	err := journal.RecordDelivered(ctx, &JournalEntry{
		MessageID:   "msg-old",
		MessageType: "track",
		HitCount:    1,
		StatusCode:  200,
	})
	if err != nil {
		t.Fatalf("RecordDelivered() error = %v", err)
	}

	// A cutoff in the future removes everything written so far.
	pruned, err := journal.Prune(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	entries, err := journal.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after prune, want 0", len(entries))
	}

	// A cutoff in the past removes nothing.
	pruned, err = journal.Prune(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 0 {
		t.Errorf("pruned = %d, want 0", pruned)
	}
}
