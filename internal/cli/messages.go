package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/mxview/internal/timeline"
)

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(replyCmd)
	rootCmd.AddCommand(reactCmd)
	rootCmd.AddCommand(redactCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a text message to the selected room",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		roomID, err := resolveRoomID()
		if err != nil {
			return err
		}
		client, release, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer release()

		id, err := client.SendText(ctx, roomID, strings.Join(args, " "), nil)
		if err != nil {
			return err
		}
		if err := printEventResult(cmd, "sent", id); err != nil {
			return err
		}
		PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "send", RoomID: roomID, EventID: id})
		return nil
	},
}

var replyCmd = &cobra.Command{
	Use:   "reply <event-id> <message>",
	Short: "Reply to a message, quoting it",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		roomID, err := resolveRoomID()
		if err != nil {
			return err
		}
		s, err := openRoomSession(cmd, roomID, defaultRenderWidth, 0)
		if err != nil {
			return err
		}
		defer s.Close()

		parent, err := s.find(ctx, args[0])
		if err != nil {
			return err
		}
		req, err := s.view.RequestReply(ctx, parent.ID)
		if err != nil {
			return err
		}
		id, err := s.client.SendText(ctx, roomID, strings.Join(args[1:], " "), parent)
		if err != nil {
			return err
		}
		if !IsJSONOutput() && !IsQuiet() {
			fmt.Fprintf(cmd.OutOrStdout(), "> %s\n", firstLine(req.QuotedBody))
		}
		return printEventResult(cmd, "sent", id)
	},
}

var reactCmd = &cobra.Command{
	Use:   "react <event-id> <key>",
	Short: "Toggle a reaction on a message",
	Long: `Add the reaction key to a message, or retract it when you already reacted
with the same key.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		roomID, err := resolveRoomID()
		if err != nil {
			return err
		}
		s, err := openRoomSession(cmd, roomID, defaultRenderWidth, 0)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.find(ctx, args[0]); err != nil {
			return err
		}
		action, err := s.view.ToggleReaction(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]any{
				"action":   action.Kind.String(),
				"event_id": action.EventID,
			})
		}
		if IsQuiet() {
			return nil
		}
		switch action.Kind {
		case timeline.ToggleSend:
			fmt.Fprintf(cmd.OutOrStdout(), "Reacted %s (%s)\n", args[1], action.EventID)
		case timeline.ToggleRetract:
			fmt.Fprintf(cmd.OutOrStdout(), "Removed reaction %s\n", args[1])
		default:
			fmt.Fprintln(cmd.OutOrStdout(), "Reaction is still being sent; try again shortly")
		}
		return nil
	},
}

var redactCmd = &cobra.Command{
	Use:     "redact <event-id>",
	Aliases: []string{"delete"},
	Short:   "Delete a message",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		roomID, err := resolveRoomID()
		if err != nil {
			return err
		}
		s, err := openRoomSession(cmd, roomID, defaultRenderWidth, 0)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.find(ctx, args[0]); err != nil {
			return err
		}
		sent, err := s.view.Redact(ctx, args[0])
		if err != nil {
			return err
		}
		if !sent {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
			return nil
		}
		return printEventResult(cmd, "redacted", args[0])
	},
}

func printEventResult(cmd *cobra.Command, verb, eventID string) error {
	if IsJSONOutput() {
		return WriteOutput(cmd.OutOrStdout(), map[string]string{"status": verb, "event_id": eventID})
	}
	if !IsQuiet() {
		fmt.Fprintln(cmd.OutOrStdout(), eventID)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
