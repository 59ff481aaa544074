package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tOgg1/mxview/internal/account"
	"github.com/tOgg1/mxview/internal/store"
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileNameCmd)
	profileCmd.AddCommand(profileAvatarCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your global profile",
}

func profileEditor(cmd *cobra.Command, client *store.Client) (*account.ProfileEditor, error) {
	current, err := client.Profile(cmd.Context())
	if err != nil {
		return nil, err
	}
	return account.NewProfileEditor(client, client.Session(), account.Profile{
		DisplayName: current.DisplayName,
		AvatarURL:   current.AvatarURL,
	}, confirmFunc(cmd)), nil
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your display name and avatar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, release, err := openClient(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		editor, err := profileEditor(cmd, client)
		if err != nil {
			return err
		}
		current := editor.Current()
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]string{
				"user_id":      client.Session().UserID,
				"display_name": current.DisplayName,
				"avatar_url":   current.AvatarURL,
				"avatar_http":  editor.AvatarHTTPURL(),
			})
		}
		rows := [][]string{
			{"User", client.Session().UserID},
			{"Name", editor.Title()},
		}
		if url := editor.AvatarHTTPURL(); url != "" {
			rows = append(rows, []string{"Avatar", url})
		}
		return writeTable(cmd.OutOrStdout(), nil, rows)
	},
}

var profileNameCmd = &cobra.Command{
	Use:   "name <display-name>",
	Short: "Change your display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, release, err := openClient(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		editor, err := profileEditor(cmd, client)
		if err != nil {
			return err
		}
		changed, err := editor.SaveDisplayName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !IsQuiet() && !IsJSONOutput() {
			if changed {
				fmt.Fprintf(cmd.OutOrStdout(), "Display name set to %q\n", args[0])
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Display name unchanged")
			}
		}
		return nil
	},
}

var profileAvatarCmd = &cobra.Command{
	Use:   "avatar [mxc-url]",
	Short: "Set or remove your avatar",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, release, err := openClient(cmd.Context())
		if err != nil {
			return err
		}
		defer release()

		editor, err := profileEditor(cmd, client)
		if err != nil {
			return err
		}
		url := ""
		if len(args) == 1 {
			url = args[0]
		}
		changed, err := editor.SetAvatar(cmd.Context(), url)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
			return nil
		}
		if !IsQuiet() && !IsJSONOutput() {
			fmt.Fprintln(cmd.OutOrStdout(), "Avatar updated")
		}
		return nil
	},
}
