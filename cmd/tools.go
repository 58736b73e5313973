package cmd

import (
	"fmt"
	"strings"

	"github.com/samsaffron/term-agent/internal/agent"
	"github.com/samsaffron/term-agent/internal/tools"
	"github.com/samsaffron/term-agent/internal/ui"
	"github.com/spf13/cobra"
)

var (
	toolsFlag     string
	toolsReadDirs []string
	toolsJSON     bool
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the built-in tools offered to agents",
	Long: `List the built-in local tools, showing which are enabled by config and flags.

Examples:
  term-agent tools
  term-agent tools --tools 'read_*'
  term-agent tools --json               # tool specs as sent to the agent`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	AddToolFlags(toolsCmd, &toolsFlag, &toolsReadDirs)
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Print enabled tool specs as JSON")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	toolCfg := tools.DefaultToolConfig()
	toolCfg.Enabled = cfg.Tools.Enabled
	toolCfg.ReadDirs = cfg.Tools.ReadDirs
	if toolsFlag != "" {
		toolCfg.Enabled = tools.ParseToolsFlag(toolsFlag)
	}
	if len(toolsReadDirs) > 0 {
		toolCfg.ReadDirs = toolsReadDirs
	}

	registry := agent.NewToolRegistry()
	for _, desc := range tools.Builtins(toolCfg) {
		registry.Register(desc)
	}

	out := cmd.OutOrStdout()
	if toolsJSON {
		data, err := json.MarshalIndent(registry.Descriptors(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	styles := ui.NewStyles(out)
	all := tools.Builtins(tools.ToolConfig{Enabled: []string{"*"}, ReadDirs: toolCfg.ReadDirs})
	for _, desc := range all {
		_, enabled := registry.Get(desc.Name)
		fmt.Fprintf(out, "%s  %s\n", styles.Bold.Render(ui.PadRight(desc.Name, 14)), styles.FormatEnabled(enabled))
		fmt.Fprintf(out, "    %s\n", styles.Muted.Render(desc.Description))
	}
	workspace, _ := tools.NewWorkspace(toolCfg.ReadDirs)
	dirs := workspace.Dirs()
	if len(dirs) == 0 {
		fmt.Fprintln(out, "\nread dirs: none")
		return nil
	}
	fmt.Fprintf(out, "\nread dirs: %s\n", strings.Join(dirs, ", "))
	return nil
}
