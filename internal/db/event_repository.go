package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tOgg1/mxview/internal/matrix"
)

// Event repository errors.
var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
)

// DefaultPageSize is the number of events returned by a page query when no
// limit is given.
const DefaultPageSize = 50

// StoredEvent is a timeline event with its position in the room.
type StoredEvent struct {
	Seq   int64
	Event *matrix.Event
}

// EventRepository persists room timelines.
type EventRepository struct {
	db *DB
}

type eventExecer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// NewEventID returns a fresh server-assigned event id.
func NewEventID() string {
	return "$" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Append stores ev at the end of its room's timeline. Missing ids and
// timestamps are assigned.
func (r *EventRepository) Append(ctx context.Context, ev *matrix.Event) (int64, error) {
	return r.appendWithExecutor(ctx, r.db, ev)
}

// AppendWithTx stores ev using an existing transaction.
func (r *EventRepository) AppendWithTx(ctx context.Context, tx *sql.Tx, ev *matrix.Event) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	return r.appendWithExecutor(ctx, tx, ev)
}

func (r *EventRepository) appendWithExecutor(ctx context.Context, execer eventExecer, ev *matrix.Event) (int64, error) {
	if ev == nil || ev.Type == "" || ev.RoomID == "" || ev.Sender == "" {
		return 0, ErrInvalidEvent
	}
	if ev.ID == "" {
		ev.ID = NewEventID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	content := "{}"
	if len(ev.Content) > 0 {
		content = string(ev.Content)
	}
	var unsigned *string
	if len(ev.Unsigned) > 0 {
		s := string(ev.Unsigned)
		unsigned = &s
	}

	res, err := execer.ExecContext(ctx, `
		INSERT INTO events (
			id, room_id, type, sender, ts_ms, state_key, content_json, unsigned_json, redacted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID,
		ev.RoomID,
		string(ev.Type),
		ev.Sender,
		ev.Timestamp.UnixMilli(),
		ev.StateKey,
		content,
		unsigned,
		boolToInt(ev.Redacted),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return res.LastInsertId()
}

// Get retrieves an event by id.
func (r *EventRepository) Get(ctx context.Context, id string) (*StoredEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT seq, id, room_id, type, sender, ts_ms, state_key, content_json, unsigned_json, redacted
		FROM events WHERE id = ?
	`, id)
	ev, err := scanStoredEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// Latest returns up to limit of the newest events in a room, oldest first.
func (r *EventRepository) Latest(ctx context.Context, roomID string, limit int) ([]StoredEvent, error) {
	return r.Before(ctx, roomID, 0, limit)
}

// Before returns up to limit events older than seq, oldest first. A seq of
// zero means "from the end".
func (r *EventRepository) Before(ctx context.Context, roomID string, seq int64, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	query := `SELECT seq, id, room_id, type, sender, ts_ms, state_key, content_json, unsigned_json, redacted
		FROM events WHERE room_id = ?`
	args := []any{roomID}
	if seq > 0 {
		query += ` AND seq < ?`
		args = append(args, seq)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	events, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// After returns every event newer than seq, oldest first.
func (r *EventRepository) After(ctx context.Context, roomID string, seq int64) ([]StoredEvent, error) {
	return r.query(ctx, `SELECT seq, id, room_id, type, sender, ts_ms, state_key, content_json, unsigned_json, redacted
		FROM events WHERE room_id = ? AND seq > ? ORDER BY seq`, roomID, seq)
}

// Redact strips an event's content and marks it redacted.
func (r *EventRepository) Redact(ctx context.Context, tx *sql.Tx, id string, because *matrix.Event) error {
	unsigned, err := json.Marshal(map[string]any{"redacted_because": because})
	if err != nil {
		return fmt.Errorf("failed to encode redaction: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE events SET redacted = 1, content_json = '{}', unsigned_json = ? WHERE id = ?`,
		string(unsigned), id)
	if err != nil {
		return fmt.Errorf("failed to redact event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get redacted count: %w", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Count returns the number of events in a room.
func (r *EventRepository) Count(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE room_id = ?`, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *EventRepository) query(ctx context.Context, query string, args ...any) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		ev, err := scanStoredEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStoredEvent(s scanner) (*StoredEvent, error) {
	var (
		stored    StoredEvent
		ev        matrix.Event
		eventType string
		tsMs      int64
		stateKey  sql.NullString
		content   string
		unsigned  sql.NullString
		redacted  int
	)
	if err := s.Scan(&stored.Seq, &ev.ID, &ev.RoomID, &eventType, &ev.Sender, &tsMs, &stateKey, &content, &unsigned, &redacted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	ev.Type = matrix.EventType(eventType)
	ev.Timestamp = time.UnixMilli(tsMs).UTC()
	if stateKey.Valid {
		key := stateKey.String
		ev.StateKey = &key
	}
	ev.Content = json.RawMessage(content)
	if unsigned.Valid {
		ev.Unsigned = json.RawMessage(unsigned.String)
	}
	ev.Redacted = redacted != 0
	stored.Event = &ev
	return &stored, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
