package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version    int
	name       string
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "rooms_events",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS rooms (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				topic TEXT NOT NULL DEFAULT '',
				avatar_url TEXT NOT NULL DEFAULT '',
				join_rule TEXT NOT NULL DEFAULT 'invite',
				is_direct INTEGER NOT NULL DEFAULT 0,
				is_space INTEGER NOT NULL DEFAULT 0,
				is_encrypted INTEGER NOT NULL DEFAULT 0,
				power_levels_json TEXT NOT NULL DEFAULT '{}',
				notif_total INTEGER NOT NULL DEFAULT 0,
				notif_highlight INTEGER NOT NULL DEFAULT 0,
				muted INTEGER NOT NULL DEFAULT 0,
				membership TEXT NOT NULL DEFAULT 'join'
			)`,
			`CREATE TABLE IF NOT EXISTS events (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
				type TEXT NOT NULL,
				sender TEXT NOT NULL,
				ts_ms INTEGER NOT NULL,
				state_key TEXT,
				content_json TEXT NOT NULL DEFAULT '{}',
				unsigned_json TEXT,
				redacted INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS events_room_seq_idx ON events(room_id, seq)`,
		},
	},
	{
		version: 2,
		name:    "receipts_account_data",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS receipts (
				room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
				user_id TEXT NOT NULL,
				event_id TEXT NOT NULL,
				ts_ms INTEGER NOT NULL,
				PRIMARY KEY (room_id, user_id)
			)`,
			`CREATE TABLE IF NOT EXISTS account_data (
				type TEXT PRIMARY KEY,
				content_json TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS profile (
				user_id TEXT PRIMARY KEY,
				displayname TEXT NOT NULL DEFAULT '',
				avatar_url TEXT NOT NULL DEFAULT ''
			)`,
		},
	},
}

// MigrateUp applies pending migrations and returns how many ran.
func (db *DB) MigrateUp(ctx context.Context) (int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.Write(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.version, m.name, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return applied, err
		}
		applied++
		db.logger.Debug().Int("version", m.version).Str("name", m.name).Msg("migration applied")
	}
	return applied, nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}
