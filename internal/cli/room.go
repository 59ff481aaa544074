package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tOgg1/mxview/internal/events"
	"github.com/tOgg1/mxview/internal/rooms"
	"github.com/tOgg1/mxview/internal/store"
)

var (
	roomEditName     string
	roomEditIndex    string
	roomEditCategory string
	roomEditTopic    string
)

func init() {
	rootCmd.AddCommand(roomCmd)
	roomCmd.AddCommand(roomInfoCmd)
	roomCmd.AddCommand(roomReadCmd)
	roomCmd.AddCommand(roomInviteCmd)
	roomCmd.AddCommand(roomLeaveCmd)
	roomCmd.AddCommand(roomEditCmd)
	roomCmd.AddCommand(roomAvatarCmd)
	roomCmd.AddCommand(roomEncryptCmd)

	roomEditCmd.Flags().StringVar(&roomEditName, "name", "", "room name")
	roomEditCmd.Flags().StringVar(&roomEditIndex, "index", "", "ordering index in the room list")
	roomEditCmd.Flags().StringVar(&roomEditCategory, "category", "", "room category")
	roomEditCmd.Flags().StringVar(&roomEditTopic, "topic", "", "room topic")
}

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Room settings and actions",
	Long:  "Inspect and change the selected room (or --room).",
}

// withRoom opens the client and the target room for a room subcommand.
func withRoom(cmd *cobra.Command, fn func(client *store.Client, room *store.Room) error) error {
	roomID, err := resolveRoomID()
	if err != nil {
		return err
	}
	client, release, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	room, err := client.Room(cmd.Context(), roomID)
	if err != nil {
		return err
	}
	return fn(client, room)
}

var roomInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show room details and your permissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoom(cmd, func(client *store.Client, room *store.Room) error {
			sess := client.Session()
			profile := rooms.NewProfile(room, sess, client, nil, nil)
			name := rooms.ParseName(room.Name())
			notif := room.Notifications()
			info := map[string]any{
				"room_id":        room.ID(),
				"name":           name.Display(),
				"topic":          room.Topic(),
				"join_rule":      room.JoinRule(),
				"direct":         room.IsDirect(),
				"encrypted":      room.IsEncrypted(),
				"unread":         notif.Total,
				"highlights":     notif.Highlight,
				"can_invite":     room.CanInvite(sess.UserID),
				"can_redact":     room.CanRedact(sess.UserID),
				"can_encrypt":    rooms.CanEnableEncryption(room, sess),
				"permission_tip": profile.PermissionNote(),
			}
			if room.AvatarURL() != "" {
				info["avatar"] = sess.MXCToHTTP(room.AvatarURL())
			}
			if IsJSONOutput() {
				return WriteOutput(cmd.OutOrStdout(), info)
			}

			rows := [][]string{
				{"Room", room.ID()},
				{"Name", name.Display()},
				{"Topic", room.Topic()},
				{"Join rule", room.JoinRule()},
				{"Encrypted", formatYesNo(room.IsEncrypted())},
				{"Unread", fmt.Sprintf("%d (%d highlight)", notif.Total, notif.Highlight)},
				{"Can invite", formatYesNo(room.CanInvite(sess.UserID))},
				{"Can delete others", formatYesNo(room.CanRedact(sess.UserID))},
			}
			if note := profile.PermissionNote(); note != "" {
				rows = append(rows, []string{"Permissions", note})
			}
			return writeTable(cmd.OutOrStdout(), nil, rows)
		})
	},
}

var roomReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Mark the room as read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoom(cmd, func(client *store.Client, room *store.Room) error {
			opts := rooms.NewOptions(room, client.Session(), client, events.NewInMemoryBus(), confirmFunc(cmd))
			if err := opts.MarkAsRead(cmd.Context()); err != nil {
				return err
			}
			if !IsQuiet() && !IsJSONOutput() {
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read\n", rooms.ParseName(room.Name()).Display())
			}
			return nil
		})
	},
}

var roomInviteCmd = &cobra.Command{
	Use:   "invite <user-id>",
	Short: "Invite a user to the room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoom(cmd, func(client *store.Client, room *store.Room) error {
			opts := rooms.NewOptions(room, client.Session(), client, events.NewInMemoryBus(), confirmFunc(cmd))
			if err := opts.Invite(cmd.Context(), args[0]); err != nil {
				return err
			}
			if !IsQuiet() && !IsJSONOutput() {
				fmt.Fprintf(cmd.OutOrStdout(), "Invited %s\n", args[0])
			}
			return nil
		})
	},
}

var roomLeaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leave the room",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoom(cmd, func(client *store.Client, room *store.Room) error {
			opts := rooms.NewOptions(room, client.Session(), client, events.NewInMemoryBus(), confirmFunc(cmd))
			left, err := opts.Leave(cmd.Context())
			if err != nil {
				return err
			}
			if !left {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
				return nil
			}
			if !IsQuiet() && !IsJSONOutput() {
				fmt.Fprintf(cmd.OutOrStdout(), "Left %s\n", rooms.ParseName(room.Name()).Display())
			}
			return nil
		})
	},
}

var roomEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Change the room name, index, category or topic",
	Long: `Change the room profile. Unset flags keep their current value. The stored
name is composed as "<index> - <category> - <name>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoom(cmd, func(client *store.Client, room *store.Room) error {
			profile := rooms.NewProfile(room, client.Session(), client, events.NewInMemoryBus(), confirmFunc(cmd))
			form := profile.Form()
			if cmd.Flags().Changed("name") {
				form.Name = roomEditName
			}
			if cmd.Flags().Changed("index") {
				form.Index = roomEditIndex
			}
			if cmd.Flags().Changed("category") {
				form.Category = roomEditCategory
			}
			if cmd.Flags().Changed("topic") {
				form.Topic = roomEditTopic
			}

			status := profile.Save(cmd.Context(), form, func(s rooms.Status) {
				if s.Kind == rooms.StatusInFlight && !IsQuiet() && !IsJSONOutput() {
					fmt.Fprintln(cmd.ErrOrStderr(), s.Msg)
				}
			})
			if status.Kind == rooms.StatusError {
				return errors.New(status.Msg)
			}
			if IsJSONOutput() {
				return WriteOutput(cmd.OutOrStdout(), map[string]string{"status": status.Msg})
			}
			if !IsQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), status.Msg)
			}
			return nil
		})
	},
}

var roomAvatarCmd = &cobra.Command{
	Use:   "avatar [mxc-url]",
	Short: "Set or remove the room avatar",
	Long:  "Set the room avatar to an mxc:// url. Without an argument the avatar is removed after confirmation.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoom(cmd, func(client *store.Client, room *store.Room) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			profile := rooms.NewProfile(room, client.Session(), client, events.NewInMemoryBus(), confirmFunc(cmd))
			changed, err := profile.SetAvatar(cmd.Context(), url)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
				return nil
			}
			if !IsQuiet() && !IsJSONOutput() {
				fmt.Fprintln(cmd.OutOrStdout(), "Room avatar updated")
			}
			return nil
		})
	},
}

var roomEncryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Enable end-to-end encryption (irreversible)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoom(cmd, func(client *store.Client, room *store.Room) error {
			enabled, err := rooms.EnableEncryption(cmd.Context(), room, client.Session(), client, confirmFunc(cmd))
			if err != nil {
				return err
			}
			if !enabled {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
				return nil
			}
			if !IsQuiet() && !IsJSONOutput() {
				fmt.Fprintln(cmd.OutOrStdout(), "Encryption enabled")
			}
			return nil
		})
	},
}
