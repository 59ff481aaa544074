// Package rooms holds the room list and room settings logic: the selector
// entries, the options menu, the profile form and encryption.
package rooms

import (
	"strconv"
	"strings"
)

const nameSeparator = " - "

// Name is a room name split into its ordering parts. Rooms are named
// "<index> - <category> - <name>" to order them in the list; both prefixes
// are optional.
type Name struct {
	Original string
	Index    int
	HasIndex bool
	Category string
	Name     string
}

// Display is the name shown in the room list: everything after the index.
func (n Name) Display() string {
	if n.Category == "" {
		return n.Name
	}
	return n.Category + nameSeparator + n.Name
}

// ParseName splits a raw room name. Direct messages should not be parsed.
func ParseName(raw string) Name {
	n := Name{Original: raw, Name: raw}
	parts := strings.Split(raw, nameSeparator)
	if len(parts) < 2 {
		return n
	}
	index, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return n
	}
	n.Index = index
	n.HasIndex = true
	parts = parts[1:]
	if len(parts) >= 2 {
		n.Category = parts[0]
		parts = parts[1:]
	}
	n.Name = strings.Join(parts, nameSeparator)
	return n
}

// ComposeName builds the stored room name from the profile form fields.
// An index of "0" is used when only a category is given.
func ComposeName(index, category, name string) string {
	out := name
	if category != "" {
		out = category + nameSeparator + out
	}
	if index != "" || category != "" {
		if index == "" {
			index = "0"
		}
		out = index + nameSeparator + out
	}
	return out
}
