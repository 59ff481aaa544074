package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/prompt"
)

// MegolmAlgorithm is the room encryption algorithm clients enable.
const MegolmAlgorithm = "m.megolm.v1.aes-sha2"

var ErrAlreadyEncrypted = errors.New("room is already encrypted")

const (
	publicRoomWarning   = "It is not recommended to add encryption in public room. Anyone can find and join public rooms, so anyone can read messages in them."
	irreversibleWarning = "Once enabled, encryption for a room cannot be disabled. Messages sent in an encrypted room cannot be seen by the server, only by the participants of the room. Enabling encryption may prevent many bots and bridges from working correctly"
)

// CanEnableEncryption reports whether the encryption toggle is enabled.
func CanEnableEncryption(room matrix.Room, session matrix.Session) bool {
	return !room.IsEncrypted() && room.MaySendState(matrix.EventRoomEncryption, session.UserID)
}

// EnableEncryption turns on end-to-end encryption. Public rooms need an
// extra confirmation before the irreversible one. It reports whether the
// state event was sent.
func EnableEncryption(ctx context.Context, room matrix.Room, session matrix.Session, admin matrix.RoomAdmin, confirm prompt.ConfirmFunc) (bool, error) {
	if room.IsEncrypted() {
		return false, ErrAlreadyEncrypted
	}
	if !room.MaySendState(matrix.EventRoomEncryption, session.UserID) {
		return false, fmt.Errorf("enable encryption: %w", matrix.ErrNotPermitted)
	}
	if confirm == nil {
		confirm = prompt.Deny
	}
	if room.JoinRule() == "public" && !confirm(ctx, "Enable encryption", publicRoomWarning) {
		return false, nil
	}
	if !confirm(ctx, "Enable encryption", irreversibleWarning) {
		return false, nil
	}
	content := map[string]string{"algorithm": MegolmAlgorithm}
	if err := admin.SendStateEvent(ctx, room.ID(), matrix.EventRoomEncryption, content); err != nil {
		return false, fmt.Errorf("enable encryption: %w", err)
	}
	logger := logging.WithRoom(room.ID())
	logger.Info().Msg("room encryption enabled")
	return true, nil
}
