package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tOgg1/mxview/internal/db"
	"github.com/tOgg1/mxview/internal/matrix"
)

// Fixture is a sandbox snapshot: rooms with their timelines plus the
// viewer's account data and profile. Events use the client-server API
// event shape.
type Fixture struct {
	Rooms       []FixtureRoom              `json:"rooms"`
	AccountData map[string]json.RawMessage `json:"account_data,omitempty"`
	Profile     *FixtureProfile            `json:"profile,omitempty"`
}

// FixtureRoom is one room of a Fixture.
type FixtureRoom struct {
	ID          string          `json:"room_id"`
	Name        string          `json:"name,omitempty"`
	Topic       string          `json:"topic,omitempty"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
	JoinRule    string          `json:"join_rule,omitempty"`
	Direct      bool            `json:"direct,omitempty"`
	Space       bool            `json:"space,omitempty"`
	Encrypted   bool            `json:"encrypted,omitempty"`
	PowerLevels json.RawMessage `json:"power_levels,omitempty"`
	Unread      struct {
		Total     int `json:"total"`
		Highlight int `json:"highlight"`
	} `json:"unread"`
	Muted  bool            `json:"muted,omitempty"`
	Events []*matrix.Event `json:"events"`
}

// FixtureProfile is the viewer's profile in a Fixture.
type FixtureProfile struct {
	DisplayName string `json:"displayname"`
	AvatarURL   string `json:"avatar_url"`
}

// ImportResult summarizes an import.
type ImportResult struct {
	Rooms       int `json:"rooms"`
	Events      int `json:"events"`
	AccountData int `json:"account_data"`
}

// DecodeFixture reads a JSON fixture.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for i, room := range f.Rooms {
		if room.ID == "" {
			return nil, fmt.Errorf("fixture room %d: room_id is required", i)
		}
	}
	return &f, nil
}

// Import loads a fixture into the sandbox. Rooms are replaced; events whose
// id already exists are skipped so an import can be repeated.
func (c *Client) Import(ctx context.Context, f *Fixture) (*ImportResult, error) {
	res := &ImportResult{}
	err := c.db.Write(ctx, func(tx *sql.Tx) error {
		*res = ImportResult{}
		for _, fr := range f.Rooms {
			rec := &db.RoomRecord{
				ID:             fr.ID,
				Name:           fr.Name,
				Topic:          fr.Topic,
				AvatarURL:      fr.AvatarURL,
				JoinRule:       fr.JoinRule,
				IsDirect:       fr.Direct,
				IsSpace:        fr.Space,
				IsEncrypted:    fr.Encrypted,
				PowerLevels:    fr.PowerLevels,
				NotifTotal:     fr.Unread.Total,
				NotifHighlight: fr.Unread.Highlight,
				Muted:          fr.Muted,
				Membership:     db.MembershipJoin,
			}
			if err := c.rooms.UpsertWithTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("room %s: %w", fr.ID, err)
			}
			res.Rooms++

			for _, ev := range fr.Events {
				if ev == nil {
					continue
				}
				if ev.RoomID == "" {
					ev.RoomID = fr.ID
				}
				if ev.ID != "" {
					var exists int
					err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE id = ?`, ev.ID).Scan(&exists)
					if err != nil {
						return fmt.Errorf("check event %s: %w", ev.ID, err)
					}
					if exists > 0 {
						continue
					}
				}
				if _, err := c.events.AppendWithTx(ctx, tx, ev); err != nil {
					return fmt.Errorf("room %s event %s: %w", fr.ID, ev.ID, err)
				}
				res.Events++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for eventType, content := range f.AccountData {
		if err := c.account.SetAccountData(ctx, eventType, content); err != nil {
			return nil, err
		}
		res.AccountData++
	}
	if f.Profile != nil {
		if err := c.account.SaveProfile(ctx, &db.Profile{
			UserID:      c.session.UserID,
			DisplayName: f.Profile.DisplayName,
			AvatarURL:   f.Profile.AvatarURL,
		}); err != nil {
			return nil, err
		}
	}

	c.logger.Info().Int("rooms", res.Rooms).Int("events", res.Events).Msg("fixture imported")
	return res, nil
}
