package cmd

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Execute runs the parkgo command line
func Execute() error {
	return rootCmd().Execute()
}

func rootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:          "parkgo",
		Short:        "Applies member parking discounts and publishes their status",
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.AddCommand(serveCmd(&debug), runCmd(&debug), versionCmd())
	return cmd
}

// setupLogging installs the default logger. --debug wins over LOG_LEVEL.
func setupLogging(w io.Writer, level string, debug bool) *slog.Logger {
	if debug {
		level = "debug"
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func withModule(logger *slog.Logger, module string) *slog.Logger {
	return logger.With("module", module)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the parkgo version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("parkgo " + Version)
		},
	}
}
