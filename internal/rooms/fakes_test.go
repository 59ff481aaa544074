package rooms

import (
	"context"

	"github.com/tOgg1/mxview/internal/matrix"
)

type fakeRoom struct {
	id        string
	name      string
	topic     string
	avatar    string
	joinRule  string
	encrypted bool
	direct    bool
	space     bool
	canState  map[matrix.EventType]bool
	canInvite bool
	notif     matrix.Notifications
}

func (r *fakeRoom) ID() string            { return r.id }
func (r *fakeRoom) Name() string          { return r.name }
func (r *fakeRoom) Topic() string         { return r.topic }
func (r *fakeRoom) AvatarURL() string     { return r.avatar }
func (r *fakeRoom) JoinRule() string      { return r.joinRule }
func (r *fakeRoom) IsEncrypted() bool     { return r.encrypted }
func (r *fakeRoom) IsDirect() bool        { return r.direct }
func (r *fakeRoom) IsSpace() bool         { return r.space }
func (r *fakeRoom) CanRedact(string) bool { return false }
func (r *fakeRoom) CanInvite(string) bool { return r.canInvite }
func (r *fakeRoom) Notifications() matrix.Notifications {
	return r.notif
}

func (r *fakeRoom) MaySendState(t matrix.EventType, _ string) bool {
	return r.canState[t]
}

type stateCall struct {
	Type    matrix.EventType
	Content any
}

type fakeAdmin struct {
	names   []string
	topics  []string
	states  []stateCall
	invited []string
	left    []string
	read    []string
	err     error
}

func (a *fakeAdmin) SetRoomName(_ context.Context, _, name string) error {
	if a.err != nil {
		return a.err
	}
	a.names = append(a.names, name)
	return nil
}

func (a *fakeAdmin) SetRoomTopic(_ context.Context, _, topic string) error {
	if a.err != nil {
		return a.err
	}
	a.topics = append(a.topics, topic)
	return nil
}

func (a *fakeAdmin) SendStateEvent(_ context.Context, _ string, eventType matrix.EventType, content any) error {
	if a.err != nil {
		return a.err
	}
	a.states = append(a.states, stateCall{Type: eventType, Content: content})
	return nil
}

func (a *fakeAdmin) InviteUser(_ context.Context, _, userID string) error {
	a.invited = append(a.invited, userID)
	return a.err
}

func (a *fakeAdmin) LeaveRoom(_ context.Context, roomID string) error {
	a.left = append(a.left, roomID)
	return a.err
}

func (a *fakeAdmin) MarkAsRead(_ context.Context, roomID string) error {
	a.read = append(a.read, roomID)
	return a.err
}

// scriptedConfirm answers confirmations in order and records the prompts.
type scriptedConfirm struct {
	answers []bool
	asked   []string
}

func (c *scriptedConfirm) confirm(_ context.Context, title, message string) bool {
	c.asked = append(c.asked, title+": "+message)
	if len(c.answers) == 0 {
		return false
	}
	answer := c.answers[0]
	c.answers = c.answers[1:]
	return answer
}
