package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/term-agent/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Show debug information")
}

var rootCmd = &cobra.Command{
	Use:   "term-agent",
	Short: "Drive a remote agent service and run its tool calls locally",
	Long: `term-agent sends a prompt to a remote agent, executes the tool calls the
agent asks for on this machine, feeds the results back and repeats until the
agent answers or the turn limit is reached.

Examples:
  term-agent invoke -a helper "what changed in go.mod?"
  term-agent stream -a helper "summarize the README"
  term-agent tools                      # list built-in tools
  term-agent runs                       # list recorded runs
  term-agent config                     # view configuration`,
	Version:           Version,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(debugMode))
	},
}

var (
	configFile string
	debugMode  bool
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
