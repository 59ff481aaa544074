package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Room repository errors.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrInvalidRoom  = errors.New("invalid room")
)

// Membership values stored for the viewer.
const (
	MembershipJoin  = "join"
	MembershipLeave = "leave"
)

// RoomRecord is the stored state of one room as seen by the viewer.
type RoomRecord struct {
	ID          string
	Name        string
	Topic       string
	AvatarURL   string
	JoinRule    string
	IsDirect    bool
	IsSpace     bool
	IsEncrypted bool
	// PowerLevels is the raw m.room.power_levels content.
	PowerLevels    json.RawMessage
	NotifTotal     int
	NotifHighlight int
	Muted          bool
	Membership     string
}

// RoomRepository persists room state.
type RoomRepository struct {
	db *DB
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(db *DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Upsert creates or replaces a room.
func (r *RoomRepository) Upsert(ctx context.Context, room *RoomRecord) error {
	return r.upsertWithExecutor(ctx, r.db, room)
}

// UpsertWithTx creates or replaces a room inside a transaction.
func (r *RoomRepository) UpsertWithTx(ctx context.Context, tx *sql.Tx, room *RoomRecord) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return r.upsertWithExecutor(ctx, tx, room)
}

func (r *RoomRepository) upsertWithExecutor(ctx context.Context, execer eventExecer, room *RoomRecord) error {
	if room == nil || room.ID == "" {
		return ErrInvalidRoom
	}
	if room.JoinRule == "" {
		room.JoinRule = "invite"
	}
	if room.Membership == "" {
		room.Membership = MembershipJoin
	}
	power := "{}"
	if len(room.PowerLevels) > 0 {
		power = string(room.PowerLevels)
	}

	_, err := execer.ExecContext(ctx, `
		INSERT INTO rooms (
			id, name, topic, avatar_url, join_rule, is_direct, is_space, is_encrypted,
			power_levels_json, notif_total, notif_highlight, muted, membership
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			topic = excluded.topic,
			avatar_url = excluded.avatar_url,
			join_rule = excluded.join_rule,
			is_direct = excluded.is_direct,
			is_space = excluded.is_space,
			is_encrypted = excluded.is_encrypted,
			power_levels_json = excluded.power_levels_json,
			notif_total = excluded.notif_total,
			notif_highlight = excluded.notif_highlight,
			muted = excluded.muted,
			membership = excluded.membership
	`,
		room.ID, room.Name, room.Topic, room.AvatarURL, room.JoinRule,
		boolToInt(room.IsDirect), boolToInt(room.IsSpace), boolToInt(room.IsEncrypted),
		power, room.NotifTotal, room.NotifHighlight, boolToInt(room.Muted), room.Membership,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}

const roomColumns = `id, name, topic, avatar_url, join_rule, is_direct, is_space, is_encrypted,
	power_levels_json, notif_total, notif_highlight, muted, membership`

// Get retrieves a room by id.
func (r *RoomRepository) Get(ctx context.Context, id string) (*RoomRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return room, err
}

// ListJoined returns every room the viewer is joined to, ordered by id.
func (r *RoomRepository) ListJoined(ctx context.Context) ([]*RoomRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE membership = ? ORDER BY id`, MembershipJoin)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*RoomRecord
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}
	return rooms, nil
}

// Update applies fn to the stored room inside tx and writes it back.
func (r *RoomRepository) Update(ctx context.Context, tx *sql.Tx, id string, fn func(*RoomRecord) error) error {
	row := tx.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	if err := fn(room); err != nil {
		return err
	}
	return r.upsertWithExecutor(ctx, tx, room)
}

// IncrementUnread bumps a room's unread counters.
func (r *RoomRepository) IncrementUnread(ctx context.Context, tx *sql.Tx, id string, highlight bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE rooms SET notif_total = notif_total + 1,
			notif_highlight = notif_highlight + ?
		WHERE id = ?
	`, boolToInt(highlight), id)
	if err != nil {
		return fmt.Errorf("failed to update unread counts: %w", err)
	}
	return nil
}

func scanRoom(s scanner) (*RoomRecord, error) {
	var room RoomRecord
	var isDirect, isSpace, isEnc, isMuted int
	var power string
	if err := s.Scan(
		&room.ID, &room.Name, &room.Topic, &room.AvatarURL, &room.JoinRule,
		&isDirect, &isSpace, &isEnc, &power,
		&room.NotifTotal, &room.NotifHighlight, &isMuted, &room.Membership,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}
	room.IsDirect = isDirect != 0
	room.IsSpace = isSpace != 0
	room.IsEncrypted = isEnc != 0
	room.Muted = isMuted != 0
	room.PowerLevels = json.RawMessage(power)
	return &room, nil
}
