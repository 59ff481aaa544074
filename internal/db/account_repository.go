package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AccountRepository persists the viewer's account data, profile and read
// receipts.
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// AccountData returns the stored content for eventType, or nil when absent.
func (r *AccountRepository) AccountData(ctx context.Context, eventType string) (json.RawMessage, error) {
	var content string
	err := r.db.QueryRowContext(ctx, `SELECT content_json FROM account_data WHERE type = ?`, eventType).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account data: %w", err)
	}
	return json.RawMessage(content), nil
}

// SetAccountData replaces the content for eventType.
func (r *AccountRepository) SetAccountData(ctx context.Context, eventType string, content json.RawMessage) error {
	if eventType == "" {
		return fmt.Errorf("account data type is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_data (type, content_json) VALUES (?, ?)
		ON CONFLICT(type) DO UPDATE SET content_json = excluded.content_json
	`, eventType, string(content))
	if err != nil {
		return fmt.Errorf("failed to write account data: %w", err)
	}
	return nil
}

// Profile is the viewer's global profile.
type Profile struct {
	UserID      string
	DisplayName string
	AvatarURL   string
}

// GetProfile returns the stored profile, or an empty one for userID.
func (r *AccountRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{UserID: userID}
	err := r.db.QueryRowContext(ctx, `SELECT displayname, avatar_url FROM profile WHERE user_id = ?`, userID).
		Scan(&p.DisplayName, &p.AvatarURL)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return p, nil
}

// SaveProfile creates or replaces the profile.
func (r *AccountRepository) SaveProfile(ctx context.Context, p *Profile) error {
	if p == nil || p.UserID == "" {
		return fmt.Errorf("profile user id is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profile (user_id, displayname, avatar_url) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET displayname = excluded.displayname, avatar_url = excluded.avatar_url
	`, p.UserID, p.DisplayName, p.AvatarURL)
	if err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// SetReceipt records userID's read position in a room inside tx.
func (r *AccountRepository) SetReceipt(ctx context.Context, tx *sql.Tx, roomID, userID, eventID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO receipts (room_id, user_id, event_id, ts_ms) VALUES (?, ?, ?, ?)
		ON CONFLICT(room_id, user_id) DO UPDATE SET event_id = excluded.event_id, ts_ms = excluded.ts_ms
	`, roomID, userID, eventID, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	return nil
}

// Receipt returns the event id userID last read in a room, or "".
func (r *AccountRepository) Receipt(ctx context.Context, roomID, userID string) (string, error) {
	var eventID string
	err := r.db.QueryRowContext(ctx, `SELECT event_id FROM receipts WHERE room_id = ? AND user_id = ?`, roomID, userID).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read receipt: %w", err)
	}
	return eventID, nil
}
