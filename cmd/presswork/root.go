package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	cfgFile   string
	activeCfg Config
)

func NewRootCmd() *cobra.Command {
	defaults := DefaultConfig()

	cmd := &cobra.Command{
		Use:     "presswork",
		Short:   "Generate text that sounds like the text you feed it",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := Load(LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newModelCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger. Log output
// goes to stderr so generated text on stdout stays pipeable.
func setupLogger(levelStr string) {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(levelStr)})
	slog.SetDefault(slog.New(h))
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
