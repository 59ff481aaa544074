package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/mxview/internal/config"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/rooms"
)

func init() {
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(useCmd)

	useCmd.Flags().Bool("clear", false, "forget the selected room")
}

type roomListItem struct {
	RoomID   string `json:"room_id"`
	Name     string `json:"name"`
	Index    *int   `json:"index,omitempty"`
	Category string `json:"category,omitempty"`
	Direct   bool   `json:"direct"`
	Unread   bool   `json:"unread"`
	Alert    bool   `json:"alert"`
	Muted    bool   `json:"muted"`
	Badge    string `json:"badge,omitempty"`
	Selected bool   `json:"selected"`
}

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"ls"},
	Short:   "List joined rooms",
	Long:    "List joined rooms in selector order with their notification state.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, release, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer release()

		joined, err := client.Rooms(ctx)
		if err != nil {
			return err
		}
		list := make([]matrix.Room, 0, len(joined))
		for _, r := range joined {
			list = append(list, r)
		}
		entries := rooms.BuildList(list, client.Session())

		selected := ""
		if sel, err := config.NewContextStore(GetConfig().ContextPath()).Load(); err == nil {
			selected = sel.RoomID
		}

		items := make([]roomListItem, 0, len(entries))
		for _, e := range entries {
			item := roomListItem{
				RoomID:   e.RoomID,
				Name:     e.Name.Display(),
				Category: e.Name.Category,
				Direct:   e.IsDirect,
				Unread:   e.Unread,
				Alert:    e.Alert,
				Muted:    e.Muted,
				Badge:    e.Badge,
				Selected: e.RoomID == selected,
			}
			if e.Name.HasIndex {
				idx := e.Name.Index
				item.Index = &idx
			}
			items = append(items, item)
		}

		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), items)
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No rooms joined. Seed the sandbox with 'mxview import <fixture.json>'.")
			return nil
		}

		rows := make([][]string, 0, len(items))
		for _, item := range items {
			marker := ""
			if item.Selected {
				marker = "*"
			}
			rows = append(rows, []string{marker, item.Name, item.RoomID, formatYesNo(item.Direct), roomStatus(item)})
		}
		return writeTable(cmd.OutOrStdout(), []string{"", "NAME", "ROOM", "DIRECT", "UNREAD"}, rows)
	},
}

func roomStatus(item roomListItem) string {
	var parts []string
	if item.Badge != "" {
		parts = append(parts, item.Badge)
	}
	if item.Alert {
		parts = append(parts, "mention")
	}
	if item.Muted {
		parts = append(parts, "muted")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

var useCmd = &cobra.Command{
	Use:   "use [room]",
	Short: "Select the room later commands act on",
	Long:  "Persist the room later commands act on. Without an argument the current selection is shown. Pass --clear to forget it.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctxStore := config.NewContextStore(GetConfig().ContextPath())

		clearSel, _ := cmd.Flags().GetBool("clear")
		if clearSel {
			if err := ctxStore.Clear(); err != nil {
				return err
			}
			if !IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), "Room selection cleared")
			}
			return nil
		}

		if len(args) == 0 {
			sel, err := ctxStore.Load()
			if err != nil {
				return err
			}
			if IsJSONOutput() {
				return WriteOutput(cmd.OutOrStdout(), sel)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sel.String())
			return nil
		}

		client, release, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer release()

		room, err := findRoom(ctx, client, args[0])
		if err != nil {
			return err
		}

		sel, err := ctxStore.Load()
		if err != nil {
			return err
		}
		sel.SetRoom(room.ID(), roomDisplayName(room))
		if err := ctxStore.Save(sel); err != nil {
			return err
		}

		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), sel)
		}
		if !IsQuiet() {
			fmt.Fprintf(cmd.OutOrStdout(), "Now using %s\n", sel.String())
		}
		PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "use", RoomID: sel.RoomID})
		return nil
	},
}
