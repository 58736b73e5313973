package cmd

import (
	"strings"
	"time"

	"github.com/samsaffron/term-agent/internal/tools"
	"github.com/spf13/cobra"
)

// RunFlags holds the flag values shared by invoke and stream.
// Each command creates its own instance.
type RunFlags struct {
	Agent    string
	BaseURL  string
	MaxTurns int
	Timeout  time.Duration
	Tools    string
	ReadDirs []string
	Thread   string
	State    string
	Detail   string
	DebugLog bool
	NoRecord bool
	JSON     bool
}

// AddRunFlags registers every run flag on cmd.
func AddRunFlags(cmd *cobra.Command, f *RunFlags) {
	AddAgentFlag(cmd, &f.Agent)
	cmd.Flags().StringVar(&f.BaseURL, "base-url", "", "Agent service base URL (overrides config)")
	AddMaxTurnsFlag(cmd, &f.MaxTurns)
	cmd.Flags().DurationVar(&f.Timeout, "timeout", 0, "Per-turn timeout, e.g. 90s (default from config)")
	AddToolFlags(cmd, &f.Tools, &f.ReadDirs)
	cmd.Flags().StringVar(&f.Thread, "thread", "", "Continue an existing conversation thread")
	cmd.Flags().StringVar(&f.State, "state", "", "Initial agent state as a JSON object, or @file.json")
	cmd.Flags().StringVar(&f.Detail, "detail", "", "Response detail level (default from config)")
	cmd.Flags().BoolVar(&f.DebugLog, "debug-log", false, "Write a JSONL transcript of the run")
	cmd.Flags().BoolVar(&f.NoRecord, "no-record", false, "Do not store this run in the local history")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "Print the run result as JSON")
}

// AddAgentFlag adds the --agent/-a flag
func AddAgentFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "agent", "a", "", "Remote agent to run (overrides config)")
}

// AddMaxTurnsFlag adds the --max-turns flag. Zero means the configured limit.
func AddMaxTurnsFlag(cmd *cobra.Command, dest *int) {
	cmd.Flags().IntVar(dest, "max-turns", 0, "Max agent turns for tool execution (default from config)")
}

// AddToolFlags adds --tools and --read-dir
func AddToolFlags(cmd *cobra.Command, toolsFlag *string, readDirs *[]string) {
	cmd.Flags().StringVar(toolsFlag, "tools", "", "Built-in tools to offer (comma-separated glob patterns, 'all' or 'none'): "+strings.Join(tools.AllToolNames(), ","))
	cmd.Flags().StringArrayVar(readDirs, "read-dir", nil, "Directories read_file/glob_files may access (repeatable)")
	if err := cmd.RegisterFlagCompletionFunc("tools", toolsFlagCompletion); err != nil {
		panic("failed to register tools completion: " + err.Error())
	}
}

func toolsFlagCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	completions := append([]string{"all", "none"}, tools.AllToolNames()...)
	return completions, cobra.ShellCompDirectiveNoFileComp
}
