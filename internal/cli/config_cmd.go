package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tOgg1/mxview/internal/account"
	"github.com/tOgg1/mxview/internal/logging"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(whoamiCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := logging.RedactMap(configLoader.AllSettings())
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), settings)
		}
		if used := configLoader.ConfigFileUsed(); used != "" && !IsQuiet() {
			fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
		}
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the configured session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session()
		if err != nil {
			return err
		}
		cfg := GetConfig()

		tokenState := "resolved"
		if _, err := account.ResolveCredential(cfg.Session.AccessTokenRef); err != nil {
			if !errors.Is(err, account.ErrCredentialNotFound) {
				return err
			}
			tokenState = "missing"
		}

		out := map[string]string{
			"user_id":      sess.UserID,
			"homeserver":   sess.HomeserverURL,
			"access_token": tokenState,
			"token_ref":    logging.Redact(cfg.Session.AccessTokenRef),
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), out)
		}
		return writeTable(cmd.OutOrStdout(), nil, [][]string{
			{"User", out["user_id"]},
			{"Homeserver", out["homeserver"]},
			{"Access token", out["access_token"] + " (" + out["token_ref"] + ")"},
		})
	},
}
