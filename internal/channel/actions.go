package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/timeline"
)

// ToggleReaction adds the viewer's key reaction to eventID, or retracts it
// when the viewer already reacted with key.
func (v *View) ToggleReaction(ctx context.Context, eventID, key string) (timeline.ToggleAction, error) {
	if v.findEvent(eventID) == nil {
		return timeline.ToggleAction{}, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	viewer := v.cfg.Session.UserID
	reactions := v.cfg.Timeline.ReactionsOf(eventID)

	// A reaction being sent shows at once; toggling it again before the
	// server confirms it is ignored.
	echo, canEcho := v.cfg.Timeline.(matrix.LocalEcho)
	var echoID string
	if canEcho && strings.TrimSpace(key) != "" && timeline.PlanToggle(reactions, viewer, key).Kind == timeline.ToggleSend {
		echoID = echo.Echo(reactionEcho(v.RoomID(), eventID, viewer, key))
	}

	action, err := timeline.ToggleReaction(ctx, v.cfg.Commands, v.RoomID(), eventID, viewer, key, reactions)
	if echoID != "" {
		committed := ""
		if err == nil {
			committed = action.EventID
		}
		echo.Settle(echoID, committed)
	}
	if err != nil {
		v.logger.Warn().Err(err).Str("event_id", eventID).Msg("reaction toggle failed")
		return action, err
	}
	v.logger.Debug().
		Str("event_id", eventID).
		Str("key", key).
		Str("action", action.Kind.String()).
		Msg("reaction toggled")
	v.requestRender()
	return action, nil
}

func reactionEcho(roomID, targetID, sender, key string) *matrix.Event {
	content, _ := json.Marshal(map[string]any{
		"m.relates_to": map[string]string{
			"rel_type": string(matrix.RelAnnotation),
			"event_id": targetID,
			"key":      key,
		},
	})
	return &matrix.Event{
		RoomID:    roomID,
		Type:      matrix.EventReaction,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
		Content:   content,
	}
}

// PickReaction applies a key chosen from the emoji picker. A picker closed
// without a choice yields an empty key and is a no-op.
func (v *View) PickReaction(ctx context.Context, eventID, key string) error {
	if key == "" {
		return nil
	}
	_, err := v.ToggleReaction(ctx, eventID, key)
	return err
}

// RequestReply emits reply-requested for eventID so the composer can quote it.
func (v *View) RequestReply(ctx context.Context, eventID string) (*events.ReplyRequest, error) {
	ev := v.findEvent(eventID)
	if ev == nil || timeline.Classify(ev, nil) != timeline.Message {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	req := &events.ReplyRequest{
		SenderID:   ev.Sender,
		EventID:    ev.ID,
		QuotedBody: quotedBody(ev, v.cfg.Timeline.EditsOf(ev.ID)),
	}
	v.cfg.Bus.Emit(ctx, &events.Signal{Type: events.SignalReplyRequested, RoomID: v.RoomID(), Reply: req})
	return req, nil
}

func quotedBody(ev *matrix.Event, edits []*matrix.Event) string {
	if ev.IsMedia() {
		body, _ := ev.Body()
		return body
	}
	return timeline.ResolveBody(ev, edits).DisplayBody
}

// CanRedact reports whether the viewer may delete ev.
func (v *View) CanRedact(ev *matrix.Event) bool {
	if ev == nil {
		return false
	}
	return ev.Sender == v.cfg.Session.UserID || v.cfg.Room.CanRedact(v.cfg.Session.UserID)
}

// Redact deletes eventID after confirmation. It reports whether the
// redaction was sent.
func (v *View) Redact(ctx context.Context, eventID string) (bool, error) {
	ev := v.findEvent(eventID)
	if ev == nil {
		return false, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	if !v.CanRedact(ev) {
		return false, fmt.Errorf("redact %s: %w", eventID, matrix.ErrNotPermitted)
	}
	if !v.cfg.Confirm(ctx, "Delete message", "Are you sure you want to delete this message?") {
		return false, nil
	}
	if err := v.cfg.Commands.RedactEvent(ctx, v.RoomID(), eventID); err != nil {
		return false, fmt.Errorf("redact %s: %w", eventID, err)
	}
	v.logger.Info().Str("event_id", eventID).Msg("message redacted")
	return true, nil
}
