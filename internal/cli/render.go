package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/timeline"
)

var (
	renderWidth int
	renderLines int
	renderAll   bool
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "wrap width (default: terminal width)")
	renderCmd.Flags().IntVar(&renderLines, "lines", 0, "number of lines to show (default: terminal height)")
	renderCmd.Flags().BoolVar(&renderAll, "all", false, "render the whole history")
}

// renderedItem is the JSON form of one projected row.
type renderedItem struct {
	Kind       string                   `json:"kind"`
	Key        string                   `json:"key"`
	Time       string                   `json:"time,omitempty"`
	Intro      *timeline.Intro          `json:"intro,omitempty"`
	Membership *timeline.MembershipLine `json:"membership,omitempty"`
	Message    *timeline.MessageBlock   `json:"message,omitempty"`
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the projected timeline of a room",
	Long: `Print the room timeline the way the interactive view shows it: grouped
messages with edits applied, reply quotes, reactions, membership lines and day
dividers. With --json the projected rows are printed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		roomID, err := resolveRoomID()
		if err != nil {
			return err
		}

		width, height := terminalSize()
		if renderWidth > 0 {
			width = renderWidth
		}
		if renderLines > 0 {
			height = renderLines
		}

		s, err := openRoomSession(cmd, roomID, width, height)
		if err != nil {
			return err
		}
		defer s.Close()

		s.fill(ctx, renderAll)
		items := s.view.Render()
		logger := logging.Component("cli")
		logger.Debug().Str("room_id", roomID).Int("rows", len(items)).Msg("rendered room")

		if IsJSONOutput() {
			out := make([]renderedItem, 0, len(items))
			for _, item := range items {
				ri := renderedItem{
					Kind:       itemKindName(item.Kind),
					Key:        item.Key,
					Intro:      item.Intro,
					Membership: item.Membership,
					Message:    item.Message,
				}
				if !item.Time.IsZero() {
					ri.Time = item.Time.Format(time.RFC3339)
				}
				out = append(out, ri)
			}
			return WriteOutput(cmd.OutOrStdout(), out)
		}

		lines := s.viewport.Visible()
		if renderAll {
			lines = s.viewport.Content().Lines
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
		return nil
	},
}

func itemKindName(kind timeline.ItemKind) string {
	switch kind {
	case timeline.ItemPlaceholder:
		return "placeholder"
	case timeline.ItemIntro:
		return "intro"
	case timeline.ItemDayDivider:
		return "day_divider"
	case timeline.ItemMembership:
		return "membership"
	case timeline.ItemMessage:
		return "message"
	default:
		return "unknown"
	}
}
