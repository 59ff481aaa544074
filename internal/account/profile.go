package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/prompt"
)

// Profile is the viewer's global display name and avatar.
type Profile struct {
	DisplayName string
	AvatarURL   string
}

// ProfileEditor edits the viewer's global profile.
type ProfileEditor struct {
	admin   matrix.ProfileAdmin
	session matrix.Session
	confirm prompt.ConfirmFunc
	current Profile
}

// NewProfileEditor starts an editor from the current profile.
func NewProfileEditor(admin matrix.ProfileAdmin, session matrix.Session, current Profile, confirm prompt.ConfirmFunc) *ProfileEditor {
	if confirm == nil {
		confirm = prompt.Deny
	}
	return &ProfileEditor{admin: admin, session: session, confirm: confirm, current: current}
}

// Current returns the profile as last saved.
func (e *ProfileEditor) Current() Profile {
	return e.current
}

// Title is the heading shown for the profile, falling back to the user id.
func (e *ProfileEditor) Title() string {
	if e.current.DisplayName != "" {
		return e.current.DisplayName
	}
	return e.session.UserID
}

// AvatarHTTPURL resolves the avatar for display.
func (e *ProfileEditor) AvatarHTTPURL() string {
	if e.current.AvatarURL == "" {
		return ""
	}
	return e.session.MXCToHTTP(e.current.AvatarURL)
}

// CanSaveDisplayName reports whether name differs from the saved one.
func (e *ProfileEditor) CanSaveDisplayName(name string) bool {
	return name != e.current.DisplayName
}

// SaveDisplayName saves name when it changed and reports whether it did.
func (e *ProfileEditor) SaveDisplayName(ctx context.Context, name string) (bool, error) {
	if !e.CanSaveDisplayName(name) {
		return false, nil
	}
	if err := e.admin.SetDisplayName(ctx, name); err != nil {
		return false, fmt.Errorf("set display name: %w", err)
	}
	e.current.DisplayName = name
	logger := logging.WithUser(e.session.UserID)
	logger.Info().Msg("display name changed")
	return true, nil
}

// SetAvatar sets the avatar to an mxc url. An empty url removes the avatar
// after confirmation.
func (e *ProfileEditor) SetAvatar(ctx context.Context, url string) (bool, error) {
	url = strings.TrimSpace(url)
	if url == "" && !e.confirm(ctx, "Remove avatar", "Are you sure that you want to remove avatar?") {
		return false, nil
	}
	if url != "" && !strings.HasPrefix(url, "mxc://") {
		return false, fmt.Errorf("avatar must be an mxc:// url, got %q", url)
	}
	if err := e.admin.SetAvatarURL(ctx, url); err != nil {
		return false, fmt.Errorf("set avatar: %w", err)
	}
	e.current.AvatarURL = url
	return true, nil
}
