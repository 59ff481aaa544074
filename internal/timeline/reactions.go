package timeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tOgg1/mxview/internal/matrix"
)

// ReactionGroup folds all reactions with one key on one message.
type ReactionGroup struct {
	Key string
	// Senders is an ordered set: first reaction first, no duplicates.
	Senders            []string
	ViewerParticipates bool
	// ViewerEventID is the viewer's own reaction event, kept so it can be
	// retracted exactly.
	ViewerEventID string
}

// Count returns the number of distinct senders.
func (g ReactionGroup) Count() int {
	return len(g.Senders)
}

// AggregateReactions folds reaction events targeting one message into groups
// ordered by the first time each key was seen. Reactions without a relation
// payload or key, and redacted reactions, are ignored.
func AggregateReactions(reactions []*matrix.Event, viewerID string) []ReactionGroup {
	if len(reactions) == 0 {
		return nil
	}
	groups := make([]ReactionGroup, 0, 4)
	index := make(map[string]int, 4)
	seen := make(map[string]map[string]struct{}, 4)

	for _, ev := range reactions {
		key, ok := reactionKey(ev)
		if !ok {
			continue
		}
		idx, exists := index[key]
		if !exists {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, ReactionGroup{Key: key})
			seen[key] = make(map[string]struct{}, 4)
		}
		g := &groups[idx]
		if _, dup := seen[key][ev.Sender]; !dup {
			seen[key][ev.Sender] = struct{}{}
			g.Senders = append(g.Senders, ev.Sender)
		}
		if viewerID != "" && ev.Sender == viewerID && !g.ViewerParticipates {
			g.ViewerParticipates = true
			g.ViewerEventID = ev.ID
		}
	}
	return groups
}

func reactionKey(ev *matrix.Event) (string, bool) {
	if ev == nil || ev.Redacted {
		return "", false
	}
	rel := ev.Relation()
	if rel == nil || rel.Type != matrix.RelAnnotation {
		return "", false
	}
	key := strings.TrimSpace(rel.Key)
	if key == "" {
		return "", false
	}
	return rel.Key, true
}

// ToggleKind is what a reaction toggle resolves to.
type ToggleKind int

const (
	ToggleSend ToggleKind = iota
	ToggleRetract
	// ToggleIgnore means the viewer's reaction is still in flight.
	ToggleIgnore
)

func (k ToggleKind) String() string {
	switch k {
	case ToggleRetract:
		return "retract"
	case ToggleIgnore:
		return "ignore"
	default:
		return "send"
	}
}

// ToggleAction is the planned outcome of toggling key on a message.
type ToggleAction struct {
	Kind ToggleKind
	// EventID is the reaction event to retract (ToggleRetract) or the
	// pending one (ToggleIgnore).
	EventID string
	Key     string
}

// PlanToggle decides how toggling key on a message resolves given the
// reactions it already carries.
func PlanToggle(reactions []*matrix.Event, viewerID, key string) ToggleAction {
	for _, ev := range reactions {
		k, ok := reactionKey(ev)
		if !ok || k != key || ev.Sender != viewerID {
			continue
		}
		if matrix.IsProvisional(ev.ID) {
			return ToggleAction{Kind: ToggleIgnore, EventID: ev.ID, Key: key}
		}
		return ToggleAction{Kind: ToggleRetract, EventID: ev.ID, Key: key}
	}
	return ToggleAction{Kind: ToggleSend, Key: key}
}

// ToggleReaction plans and issues the toggle. Exactly one command is sent:
// a redaction of the viewer's own reaction, or a new reaction. Failures are
// returned to the caller and not retried.
func ToggleReaction(ctx context.Context, cmds matrix.ReactionCommands, roomID, targetID, viewerID, key string, reactions []*matrix.Event) (ToggleAction, error) {
	if strings.TrimSpace(key) == "" {
		return ToggleAction{}, fmt.Errorf("reaction key required")
	}
	action := PlanToggle(reactions, viewerID, key)
	switch action.Kind {
	case ToggleIgnore:
		return action, nil
	case ToggleRetract:
		if err := cmds.RedactEvent(ctx, roomID, action.EventID); err != nil {
			return action, fmt.Errorf("retract reaction %s: %w", action.EventID, err)
		}
		return action, nil
	default:
		id, err := cmds.SendReaction(ctx, roomID, targetID, key)
		if err != nil {
			return action, fmt.Errorf("send reaction %q: %w", key, err)
		}
		action.EventID = id
		return action, nil
	}
}
