// Package cli implements the mxview command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/mxview/internal/config"
	"github.com/tOgg1/mxview/internal/db"
	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
	"github.com/tOgg1/mxview/internal/prompt"
	"github.com/tOgg1/mxview/internal/store"
)

var (
	cfgFile    string
	jsonOutput bool
	quiet      bool
	logLevel   string
	roomFlag   string
	assumeYes  bool

	appConfig    *config.Config
	configLoader *config.Loader
)

var rootCmd = &cobra.Command{
	Use:   "mxview",
	Short: "Browse Matrix rooms from the terminal",
	Long: `mxview renders Matrix room timelines: grouped messages, edits, replies,
reactions and membership changes. It runs against a local sandbox store that
can be seeded from JSON fixtures.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/mxview/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&roomFlag, "room", "", "room id to act on (default is the selected room)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "skip confirmation prompts")
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

func initConfig(cmd *cobra.Command) error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	if logLevel != "" {
		loader.Set("logging.level", logLevel)
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	appConfig = cfg
	configLoader = loader

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.EnableCaller = cfg.Logging.EnableCaller
	logCfg.Output = cmd.ErrOrStderr()
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logCfg.Output = f
	}
	logging.Init(logCfg)
	return nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return appConfig
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

// IsQuiet reports whether --quiet was given.
func IsQuiet() bool {
	return quiet
}

// WriteOutput writes v as indented JSON.
func WriteOutput(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// confirmFunc returns the confirmation used for destructive actions.
func confirmFunc(cmd *cobra.Command) prompt.ConfirmFunc {
	if assumeYes {
		return prompt.Accept
	}
	if in, ok := cmd.InOrStdin().(*os.File); ok {
		return prompt.Terminal(in, cmd.ErrOrStderr())
	}
	return func(ctx context.Context, title, message string) bool {
		return prompt.Ask(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), title, message)
	}
}

// session builds the viewer session from configuration.
func session() (matrix.Session, error) {
	cfg := GetConfig()
	if cfg == nil {
		return matrix.Session{}, errors.New("configuration not loaded")
	}
	if strings.TrimSpace(cfg.Session.UserID) == "" {
		return matrix.Session{}, fmt.Errorf("session.user_id is not configured (set %s)", config.EnvVar("session.user_id"))
	}
	return matrix.Session{UserID: cfg.Session.UserID, HomeserverURL: cfg.Session.HomeserverURL}, nil
}

// openDatabase opens and migrates the sandbox database.
func openDatabase(ctx context.Context) (*db.DB, error) {
	cfg := GetConfig()
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	database, err := db.Open(db.Config{Path: cfg.DatabasePath(), BusyTimeoutMs: cfg.Database.BusyTimeoutMs})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := database.MigrateUp(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return database, nil
}

// openClient returns the sandbox client and a func releasing it.
func openClient(ctx context.Context) (*store.Client, func(), error) {
	sess, err := session()
	if err != nil {
		return nil, nil, err
	}
	database, err := openDatabase(ctx)
	if err != nil {
		return nil, nil, err
	}
	return store.New(database, sess), func() { database.Close() }, nil
}

// resolveRoomID picks --room, then the persisted selection.
func resolveRoomID() (string, error) {
	if id := strings.TrimSpace(roomFlag); id != "" {
		return id, nil
	}
	ctxStore := config.NewContextStore(GetConfig().ContextPath())
	sel, err := ctxStore.Load()
	if err != nil {
		return "", err
	}
	if sel.IsEmpty() {
		return "", errors.New("no room selected (pass --room or run 'mxview use <room>')")
	}
	return sel.RoomID, nil
}
