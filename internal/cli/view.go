package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/state"
	"github.com/tOgg1/mxview/internal/tui"
)

func init() {
	rootCmd.AddCommand(viewCmd)
}

var viewCmd = &cobra.Command{
	Use:     "view",
	Aliases: []string{"ui"},
	Short:   "Open the interactive room browser",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !hasTTY() {
			return &PreflightError{
				Message:  "the room browser needs an interactive terminal",
				Hint:     "run it from a terminal, or print a room with 'mxview render'",
				NextStep: "mxview render --room <room-id>",
			}
		}
		ctx := cmd.Context()
		cfg := GetConfig()

		client, release, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer release()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}

		poller := state.NewPoller(state.PollerConfig{
			FocusedInterval:    cfg.Sync.FocusedInterval,
			BackgroundInterval: cfg.Sync.BackgroundInterval,
		})

		return tui.Run(ctx, tui.Config{
			Client:         client,
			Bus:            events.NewInMemoryBus(),
			Poller:         poller,
			Theme:          cfg.TUI.Theme,
			ShowTimestamps: cfg.TUI.ShowTimestamps,
			Compact:        cfg.TUI.CompactMode,
			GroupWindow:    cfg.Timeline.GroupWindow,
			Placeholders:   cfg.Timeline.Placeholders,
			PageSize:       cfg.Timeline.PageSize,
			Location:       loc,
			RoomsInterval:  cfg.Sync.BackgroundInterval,
			InitialRoom:    strings.TrimSpace(roomFlag),
		})
	},
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
