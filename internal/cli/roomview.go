package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/mxview/internal/channel"
	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/store"
	"github.com/tOgg1/mxview/internal/tui"
	"github.com/tOgg1/mxview/internal/tui/styles"
)

const (
	defaultRenderWidth  = 80
	defaultRenderHeight = 40
)

// roomSession is a headless room view: the same controller the TUI drives,
// rendered into an off-screen viewport.
type roomSession struct {
	client   *store.Client
	room     *store.Room
	tl       *store.Timeline
	view     *channel.View
	viewport *tui.Viewport
	renderer tui.Renderer
	width    int
	release  func()
}

func openRoomSession(cmd *cobra.Command, roomID string, width, height int) (*roomSession, error) {
	ctx := cmd.Context()
	client, release, err := openClient(ctx)
	if err != nil {
		return nil, err
	}
	cfg := GetConfig()

	room, err := client.Room(ctx, roomID)
	if err != nil {
		release()
		return nil, err
	}
	tl, err := client.Timeline(ctx, roomID, cfg.Timeline.PageSize)
	if err != nil {
		release()
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		release()
		return nil, err
	}

	s := &roomSession{
		client:   client,
		room:     room,
		tl:       tl,
		viewport: tui.NewViewport(height),
		width:    width,
		release:  release,
	}
	names := tui.MemberNames(tl)
	s.renderer = tui.Renderer{
		Styles:         styles.NewMessageStyles(styles.ThemeByName(cfg.TUI.Theme)),
		Session:        client.Session(),
		Names:          names,
		Location:       loc,
		ShowTimestamps: cfg.TUI.ShowTimestamps,
		Compact:        cfg.TUI.CompactMode,
	}
	s.view, err = channel.New(channel.Config{
		Session:      client.Session(),
		Timeline:     tl,
		Room:         room,
		Scroll:       s.viewport,
		Bus:          events.NewInMemoryBus(),
		Commands:     client,
		Confirm:      confirmFunc(cmd),
		GroupWindow:  cfg.Timeline.GroupWindow,
		Placeholders: cfg.Timeline.Placeholders,
		Location:     loc,
		Names:        names,
		OnChange:     s.redraw,
	})
	if err != nil {
		release()
		return nil, err
	}
	s.redraw()
	return s, nil
}

func (s *roomSession) Close() {
	s.view.Stop()
	s.release()
}

func (s *roomSession) redraw() {
	if s.view == nil {
		return
	}
	s.viewport.SetContent(s.renderer.Render(s.view.Render(), s.width, ""))
}

// fill loads history until the viewport overflows, or everything when all
// is set.
func (s *roomSession) fill(ctx context.Context, all bool) {
	s.view.LoadOlder(ctx)
	for all && !s.view.ReachedStart() && ctx.Err() == nil {
		before := len(s.tl.Events())
		s.view.LoadOlder(ctx)
		if len(s.tl.Events()) == before && !s.view.ReachedStart() {
			return
		}
	}
	s.redraw()
	s.viewport.ReachBottom()
}

// find loads history until eventID is in the timeline.
func (s *roomSession) find(ctx context.Context, eventID string) (*matrix.Event, error) {
	for {
		for _, ev := range s.tl.Events() {
			if ev.ID == eventID {
				return ev, nil
			}
		}
		if s.tl.ReachedStart() || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", channel.ErrEventNotFound, eventID)
		}
		if _, err := s.tl.PaginateBack(ctx); err != nil {
			return nil, err
		}
	}
}

func terminalSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return defaultRenderWidth, defaultRenderHeight
	}
	return w, h
}
