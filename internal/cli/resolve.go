package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tOgg1/mxview/internal/rooms"
	"github.com/tOgg1/mxview/internal/store"
)

const maxSuggestions = 5

func shortID(id string) string {
	const limit = 12
	if len(id) <= limit {
		return id
	}
	return id[:limit]
}

// findRoom resolves a room id, id prefix, or display name.
func findRoom(ctx context.Context, client *store.Client, idOrName string) (*store.Room, error) {
	query := strings.TrimSpace(idOrName)
	if query == "" {
		return nil, errors.New("room name or ID required")
	}

	all, err := client.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	for _, room := range all {
		if room.ID() == query {
			return room, nil
		}
	}

	matches := matchRooms(all, query)
	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("room '%s' is ambiguous; matches: %s (use a longer prefix or full ID)", query, formatRoomMatches(matches))
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("room '%s' not found (no rooms imported yet)", query)
	}

	example := fmt.Sprintf("Example input: '%s' or '%s'", roomDisplayName(all[0]), shortID(all[0].ID()))
	return nil, fmt.Errorf("room '%s' not found. %s", query, example)
}

func matchRooms(all []*store.Room, query string) []*store.Room {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil
	}

	exact := make([]*store.Room, 0)
	matches := make([]*store.Room, 0)
	for _, room := range all {
		if room == nil {
			continue
		}
		name := strings.ToLower(roomDisplayName(room))
		switch {
		case name == normalized:
			exact = append(exact, room)
		case strings.HasPrefix(room.ID(), query):
			matches = append(matches, room)
		case strings.HasPrefix(name, normalized) || (len(normalized) >= 3 && strings.Contains(name, normalized)):
			matches = append(matches, room)
		}
	}
	if len(exact) > 0 {
		matches = exact
	}

	sort.Slice(matches, func(i, j int) bool {
		left := strings.ToLower(roomDisplayName(matches[i]))
		right := strings.ToLower(roomDisplayName(matches[j]))
		if left == right {
			return matches[i].ID() < matches[j].ID()
		}
		return left < right
	})

	return matches
}

func roomDisplayName(room *store.Room) string {
	return rooms.ParseName(room.Name()).Display()
}

func formatRoomMatches(matches []*store.Room) string {
	return formatMatchList(len(matches), func(i int) string {
		room := matches[i]
		return fmt.Sprintf("%s (%s)", roomDisplayName(room), shortID(room.ID()))
	})
}

func formatMatchList(count int, format func(int) string) string {
	if count == 0 {
		return "none"
	}

	limit := count
	if limit > maxSuggestions {
		limit = maxSuggestions
	}

	parts := make([]string, 0, limit+1)
	for i := 0; i < limit; i++ {
		parts = append(parts, format(i))
	}
	if count > maxSuggestions {
		parts = append(parts, fmt.Sprintf("... and %d more", count-maxSuggestions))
	}

	return strings.Join(parts, ", ")
}
