package rooms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/matrix"
)

func allState() map[matrix.EventType]bool {
	return map[matrix.EventType]bool{
		matrix.EventRoomName:   true,
		matrix.EventRoomTopic:  true,
		matrix.EventRoomAvatar: true,
	}
}

func TestProfile_FormRoundTrip(t *testing.T) {
	room := &fakeRoom{id: "!a:hs", name: "2 - Ops - alerts", topic: "pager", canState: allState()}
	admin := &fakeAdmin{}
	p := NewProfile(room, matrix.Session{UserID: "@me:hs"}, admin, nil, nil)

	form := p.Form()
	require.Equal(t, ProfileForm{Name: "alerts", Index: "2", Category: "Ops", Topic: "pager"}, form)

	status := p.Save(context.Background(), form, nil)
	require.Equal(t, StatusSuccess, status.Kind)
	require.Empty(t, admin.names, "unchanged name is not saved")
	require.Empty(t, admin.topics)
}

func TestProfile_SaveReportsProgress(t *testing.T) {
	room := &fakeRoom{id: "!a:hs", name: "general", canState: allState()}
	admin := &fakeAdmin{}
	bus := events.NewInMemoryBus()
	var updated []events.SignalType
	require.NoError(t, bus.Subscribe("t", events.Filter{RoomID: "!a:hs"}, func(sig *events.Signal) {
		updated = append(updated, sig.Type)
	}))
	p := NewProfile(room, matrix.Session{UserID: "@me:hs"}, admin, bus, nil)

	var seen []Status
	status := p.Save(context.Background(), ProfileForm{Name: "general", Category: "Team", Topic: "hello"}, func(s Status) {
		seen = append(seen, s)
	})

	require.Equal(t, StatusSuccess, status.Kind)
	require.Equal(t, "Saved successfully", status.Msg)
	require.Equal(t, []string{"0 - Team - general"}, admin.names)
	require.Equal(t, []string{"hello"}, admin.topics)
	require.Equal(t, []Status{
		{Kind: StatusInFlight, Msg: "Saving room name..."},
		{Kind: StatusInFlight, Msg: "Saving room topic..."},
		{Kind: StatusSuccess, Msg: "Saved successfully"},
	}, seen)
	require.Equal(t, []events.SignalType{events.SignalRoomProfileUpdated, events.SignalSelectorChanged}, updated)
}

func TestProfile_SaveRespectsPermissionsAndErrors(t *testing.T) {
	room := &fakeRoom{id: "!a:hs", name: "general", canState: map[matrix.EventType]bool{matrix.EventRoomTopic: true}}
	admin := &fakeAdmin{}
	p := NewProfile(room, matrix.Session{UserID: "@me:hs"}, admin, nil, nil)
	require.Equal(t, "You have permission to change room topic only.", p.PermissionNote())

	status := p.Save(context.Background(), ProfileForm{Name: "renamed", Topic: "t"}, nil)
	require.Equal(t, StatusSuccess, status.Kind)
	require.Empty(t, admin.names)
	require.Equal(t, []string{"t"}, admin.topics)

	admin.err = errors.New("M_FORBIDDEN")
	status = p.Save(context.Background(), ProfileForm{Topic: "again"}, nil)
	require.Equal(t, Status{Kind: StatusError, Msg: "M_FORBIDDEN"}, status)
}

func TestProfile_RemoveAvatarNeedsConfirmation(t *testing.T) {
	room := &fakeRoom{id: "!a:hs", name: "general", canState: allState()}
	admin := &fakeAdmin{}
	confirm := &scriptedConfirm{answers: []bool{false, true}}
	p := NewProfile(room, matrix.Session{UserID: "@me:hs"}, admin, nil, confirm.confirm)

	sent, err := p.SetAvatar(context.Background(), "mxc://hs/new")
	require.NoError(t, err)
	require.True(t, sent)
	require.Empty(t, confirm.asked, "setting an avatar needs no confirmation")

	sent, err = p.SetAvatar(context.Background(), "")
	require.NoError(t, err)
	require.False(t, sent)

	sent, err = p.SetAvatar(context.Background(), "")
	require.NoError(t, err)
	require.True(t, sent)
	require.Len(t, admin.states, 2)
	require.Equal(t, map[string]string{"url": ""}, admin.states[1].Content)
}
