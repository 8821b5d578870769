package delivery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrJournalOpen indicates the journal database could not be opened.
var ErrJournalOpen = errors.New("failed to open delivery journal")

// DeliveryStatus is the terminal state of a delivery attempt.
type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// JournalEntry is one journaled delivery outcome.
type JournalEntry struct {
	ID          int64
	MessageID   string
	MessageType string
	Event       string
	Status      DeliveryStatus
	HitCount    int
	StatusCode  int
	LastError   string
	CreatedAt   time.Time
	DeliveredAt time.Time
}

// Journal records delivery outcomes in a local SQLite database. It is the
// worker's audit trail: every message that reached a terminal state has a
// row, whether the hits went out or delivery gave up.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id TEXT NOT NULL,
	message_type TEXT NOT NULL,
	event TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	hit_count INTEGER NOT NULL DEFAULT 0,
	status_code INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	delivered_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_deliveries_message_id ON deliveries(message_id);
CREATE INDEX IF NOT EXISTS idx_deliveries_created_at ON deliveries(created_at);
`

// OpenJournal opens (and migrates) the delivery journal at the configured
// path.
func OpenJournal(ctx context.Context, cfg JournalConfig, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "delivery-journal")

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJournalOpen, err)
	}

	// SQLite allows one writer; a single connection avoids lock contention.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrJournalOpen, err)
	}

	if _, err := db.ExecContext(ctx, journalSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate journal schema: %w", err)
	}

	logger.Info("opened delivery journal", "path", cfg.Path)

	return &Journal{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordDelivered journals a successfully delivered message.
func (j *Journal) RecordDelivered(ctx context.Context, entry *JournalEntry) error {
	query := `
		INSERT INTO deliveries (message_id, message_type, event, status, hit_count, status_code, created_at, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	deliveredAt := entry.DeliveredAt
	if deliveredAt.IsZero() {
		deliveredAt = now
	}

	_, err := j.db.ExecContext(
		ctx, query,
		entry.MessageID,
		entry.MessageType,
		entry.Event,
		DeliveryStatusDelivered,
		entry.HitCount,
		entry.StatusCode,
		now.Unix(),
		deliveredAt.Unix(),
	)
	return err
}

// RecordFailed journals a message that exhausted delivery attempts.
func (j *Journal) RecordFailed(ctx context.Context, entry *JournalEntry) error {
	query := `
		INSERT INTO deliveries (message_id, message_type, event, status, hit_count, status_code, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.ExecContext(
		ctx, query,
		entry.MessageID,
		entry.MessageType,
		entry.Event,
		DeliveryStatusFailed,
		entry.HitCount,
		entry.StatusCode,
		entry.LastError,
		time.Now().UTC().Unix(),
	)
	return err
}

// Recent returns the most recent journal entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*JournalEntry, error) {
	query := `
		SELECT id, message_id, message_type, event, status, hit_count, status_code, last_error, created_at, delivered_at
		FROM deliveries
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*JournalEntry
	for rows.Next() {
		entry := &JournalEntry{}
		var createdAt, deliveredAt int64
		err := rows.Scan(
			&entry.ID,
			&entry.MessageID,
			&entry.MessageType,
			&entry.Event,
			&entry.Status,
			&entry.HitCount,
			&entry.StatusCode,
			&entry.LastError,
			&createdAt,
			&deliveredAt,
		)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()
		if deliveredAt > 0 {
			entry.DeliveredAt = time.Unix(deliveredAt, 0).UTC()
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Prune deletes entries older than the cutoff and returns how many rows
// were removed.
func (j *Journal) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := j.db.ExecContext(
		ctx,
		`DELETE FROM deliveries WHERE created_at < ?`,
		olderThan.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// StartCleanup prunes old entries on the configured interval until the
// context is cancelled.
func (j *Journal) StartCleanup(ctx context.Context, cfg JournalConfig) {
	if cfg.CleanupInterval <= 0 || cfg.RetentionDuration <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-cfg.RetentionDuration)
				pruned, err := j.Prune(ctx, cutoff)
				if err != nil {
					j.logger.Error("failed to prune journal", "error", err)
					continue
				}
				if pruned > 0 {
					j.logger.Info("pruned journal entries", "count", pruned)
				}
			}
		}
	}()
}
