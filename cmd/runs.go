package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/samsaffron/term-agent/internal/agent"
	"github.com/samsaffron/term-agent/internal/runlog"
	"github.com/samsaffron/term-agent/internal/ui"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded agent runs",
	Long: `List, show and delete runs stored in the local history.

Examples:
  term-agent runs                       # List recent runs
  term-agent runs list --agent helper --status error
  term-agent runs show 3f2a             # ID prefixes work
  term-agent runs delete 3f2a`,
	RunE: runRunsList, // Default to list
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

// Flags
var (
	runsAgent  string
	runsStatus string
	runsLimit  int
	runsJSON   bool
)

var validRunStatuses = []string{
	string(runlog.StatusActive),
	string(runlog.StatusComplete),
	string(runlog.StatusLimit),
	string(runlog.StatusError),
}

func init() {
	for _, c := range []*cobra.Command{runsCmd, runsListCmd} {
		c.Flags().StringVar(&runsAgent, "agent", "", "Filter by agent")
		c.Flags().StringVar(&runsStatus, "status", "", "Filter by status ("+strings.Join(validRunStatuses, ", ")+")")
		c.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")
	}
	runsShowCmd.Flags().BoolVar(&runsJSON, "json", false, "Output as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func getRunStore() (runlog.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Runs.Enabled {
		return nil, fmt.Errorf("run history is disabled in config")
	}
	return runlog.NewStore(true, cfg.Runs.Path)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	if runsStatus != "" && !slices.Contains(validRunStatuses, runsStatus) {
		return fmt.Errorf("invalid status %q: must be one of %v", runsStatus, validRunStatuses)
	}

	store, err := getRunStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(context.Background(), runlog.ListOptions{
		Agent:  runsAgent,
		Status: runlog.RunStatus(runsStatus),
		Limit:  runsLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	styles := ui.NewStyles(out)
	header := fmt.Sprintf("%-9s %-14s %-6s %-8s %5s %5s %-15s %s",
		"ID", "AGENT", "MODE", "STATUS", "TURNS", "TOOLS", "AGE", "PROMPT")
	fmt.Fprintln(out, styles.TableHeader.Render(header))
	fmt.Fprintln(out, strings.Repeat("-", 100))

	for _, r := range runs {
		fmt.Fprintf(out, "%-9s %s %-6s %s %5d %5d %s %s\n",
			runlog.ShortID(r.ID),
			ui.PadRight(ui.Truncate(r.Agent, 14), 14),
			r.Mode,
			statusStyle(styles, r.Status).Render(fmt.Sprintf("%-8s", r.Status)),
			r.Iterations,
			r.ToolCalls,
			ui.PadRight(humanize.Time(r.UpdatedAt), 15),
			ui.Truncate(strings.ReplaceAll(r.Prompt, "\n", " "), 40),
		)
	}
	return nil
}

func statusStyle(s *ui.Styles, status runlog.RunStatus) lipgloss.Style {
	switch status {
	case runlog.StatusComplete:
		return s.Success
	case runlog.StatusError:
		return s.Error
	case runlog.StatusLimit:
		return s.Warning
	}
	return s.Muted
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := getRunStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	messages, err := store.GetMessages(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to get messages: %w", err)
	}

	out := cmd.OutOrStdout()
	if runsJSON {
		data, err := json.MarshalIndent(struct {
			Run      *runlog.Run      `json:"run"`
			Messages []runlog.Message `json:"messages"`
		}{run, messages}, "", "  ")
		if err != nil {
			return err
		}
		s := string(data)
		if f, ok := out.(*os.File); ok && ui.IsTerminal(f) {
			s = ui.HighlightJSON(s)
		}
		fmt.Fprintln(out, s)
		return nil
	}

	styles := ui.NewStyles(out)
	fmt.Fprintf(out, "Run: %s\n", run.ID)
	fmt.Fprintf(out, "Agent: %s\n", run.Agent)
	fmt.Fprintf(out, "Mode: %s\n", run.Mode)
	fmt.Fprintf(out, "Status: %s\n", statusStyle(styles, run.Status).Render(string(run.Status)))
	if run.ThreadID != "" {
		fmt.Fprintf(out, "Thread: %s\n", run.ThreadID)
	}
	fmt.Fprintf(out, "Created: %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Updated: %s\n", run.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Turns: %d\n", run.Iterations)
	fmt.Fprintf(out, "Tool Calls: %d\n", run.ToolCalls)
	if run.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", styles.Error.Render(run.Error))
	}
	fmt.Fprintln(out)

	for _, m := range messages {
		fmt.Fprintf(out, "%s %s\n", styles.Muted.Render(fmt.Sprintf("[%d]", m.Iteration)), describeMessage(styles, m))
	}
	return nil
}

func describeMessage(styles *ui.Styles, m runlog.Message) string {
	var parts []string
	for _, b := range m.Content {
		switch b.Type {
		case agent.BlockText:
			parts = append(parts, ui.Truncate(strings.ReplaceAll(b.Text, "\n", " "), 200))
		case agent.BlockToolCall:
			parts = append(parts, styles.Highlighted.Render(ui.ToolIcon+" "+b.Name))
		case agent.BlockToolResult:
			ok := b.Status != agent.StatusFailed
			detail := b.ToolCallID
			if !ok {
				detail += ": " + ui.Truncate(b.Error, 80)
			}
			parts = append(parts, styles.FormatResult(ok, detail))
		}
	}
	return styles.Bold.Render(string(m.Role)+":") + " " + strings.Join(parts, " ")
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	store, err := getRunStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	run, err := store.Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if err := store.Delete(ctx, run.ID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run: %s\n", run.ID)
	return nil
}
