package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/mxview/internal/pushrules"
)

func init() {
	rootCmd.AddCommand(keywordsCmd)
	keywordsCmd.AddCommand(keywordsListCmd)
	keywordsCmd.AddCommand(keywordsAddCmd)
	keywordsCmd.AddCommand(keywordsRemoveCmd)
	keywordsCmd.AddCommand(keywordsSetCmd)
}

// ruleAliases maps command line names to managed push rule ids.
var ruleAliases = map[string]string{
	"display-name": pushrules.RuleDisplayName,
	"room":         pushrules.RuleRoomPing,
	"username":     pushrules.RuleUsername,
	"keyword":      pushrules.RuleKeyword,
}

var ruleOrder = []string{"display-name", "room", "username", "keyword"}

var keywordsCmd = &cobra.Command{
	Use:     "keywords",
	Aliases: []string{"notifications"},
	Short:   "Manage keyword notifications",
	Long: `Show and change how mentions and keywords notify you. Modes are off, on
(notify) and noisy (notify with sound and highlight).`,
}

func pushService(cmd *cobra.Command) (*pushrules.Service, func(), error) {
	client, release, err := openClient(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return pushrules.NewService(client, client.Session().UserID), release, nil
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show notification modes and keywords",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, release, err := pushService(cmd)
		if err != nil {
			return err
		}
		defer release()

		rules, err := svc.Load(cmd.Context())
		if err != nil {
			return err
		}
		modes := rules.Modes()
		keywords := make([]string, 0)
		for _, r := range rules.Keywords() {
			keywords = append(keywords, r.Pattern)
		}

		if IsJSONOutput() {
			out := map[string]any{"keywords": keywords}
			modeOut := make(map[string]string, len(modes))
			for alias, id := range ruleAliases {
				if mode, ok := modes[id]; ok {
					modeOut[alias] = string(mode)
				}
			}
			out["modes"] = modeOut
			return WriteOutput(cmd.OutOrStdout(), out)
		}

		rows := make([][]string, 0, len(ruleOrder))
		for _, alias := range ruleOrder {
			mode, ok := modes[ruleAliases[alias]]
			if !ok {
				continue
			}
			rows = append(rows, []string{alias, mode.Label()})
		}
		if err := writeTable(cmd.OutOrStdout(), []string{"RULE", "MODE"}, rows); err != nil {
			return err
		}
		if len(keywords) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "\nKeywords: %s\n", strings.Join(keywords, ", "))
		}
		return nil
	},
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add <keyword>",
	Short: "Notify on messages containing a keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, release, err := pushService(cmd)
		if err != nil {
			return err
		}
		defer release()

		if err := svc.AddKeyword(cmd.Context(), args[0]); err != nil {
			return err
		}
		if !IsQuiet() && !IsJSONOutput() {
			fmt.Fprintf(cmd.OutOrStdout(), "Keyword %q added\n", strings.TrimSpace(args[0]))
		}
		return nil
	},
}

var keywordsRemoveCmd = &cobra.Command{
	Use:     "remove <keyword>",
	Aliases: []string{"rm"},
	Short:   "Stop notifying on a keyword",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, release, err := pushService(cmd)
		if err != nil {
			return err
		}
		defer release()

		if err := svc.RemoveKeyword(cmd.Context(), args[0]); err != nil {
			return err
		}
		if !IsQuiet() && !IsJSONOutput() {
			fmt.Fprintf(cmd.OutOrStdout(), "Keyword %q removed\n", args[0])
		}
		return nil
	},
}

var keywordsSetCmd = &cobra.Command{
	Use:   "set <display-name|room|username|keyword> <off|on|noisy>",
	Short: "Change a notification mode",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ruleID, ok := ruleAliases[args[0]]
		if !ok {
			return fmt.Errorf("unknown rule %q (want display-name, room, username or keyword)", args[0])
		}
		mode, err := pushrules.ParseMode(args[1])
		if err != nil {
			return err
		}

		svc, release, err := pushService(cmd)
		if err != nil {
			return err
		}
		defer release()

		if err := svc.SetMode(cmd.Context(), ruleID, mode); err != nil {
			return err
		}
		if !IsQuiet() && !IsJSONOutput() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s notifications: %s\n", args[0], mode.Label())
		}
		return nil
	},
}
