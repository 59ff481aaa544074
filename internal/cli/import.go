package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tOgg1/mxview/internal/store"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <fixture.json>",
	Short: "Seed the sandbox store from a JSON fixture",
	Long: `Import rooms, timelines, account data and the viewer profile from a
fixture file. Events already present are skipped, so importing twice is safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open fixture: %w", err)
		}
		defer f.Close()

		fixture, err := store.DecodeFixture(f)
		if err != nil {
			return err
		}

		client, release, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer release()

		result, err := client.Import(ctx, fixture)
		if err != nil {
			return err
		}

		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), result)
		}
		if !IsQuiet() {
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d room(s), %d event(s), %d account data item(s)\n",
				result.Rooms, result.Events, result.AccountData)
		}
		PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "import"})
		return nil
	},
}
