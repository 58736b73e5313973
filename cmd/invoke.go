package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/samsaffron/term-agent/internal/agent"
	"github.com/samsaffron/term-agent/internal/runlog"
	"github.com/samsaffron/term-agent/internal/signal"
	"github.com/samsaffron/term-agent/internal/ui"
	"github.com/spf13/cobra"
)

var invokeFlags RunFlags

var invokeCmd = &cobra.Command{
	Use:   "invoke [prompt]",
	Short: "Run an agent with buffered turns",
	Long: `Send a prompt to the agent's invoke endpoint. Each turn's full response is
received before its tool calls run locally.

Examples:
  term-agent invoke -a helper "list the go files in this repo"
  echo "what time is it in Tokyo?" | term-agent invoke -a helper
  term-agent invoke -a helper --thread th_123 "and now?"`,
	RunE: runInvoke,
}

func init() {
	AddRunFlags(invokeCmd, &invokeFlags)
	rootCmd.AddCommand(invokeCmd)
}

func runInvoke(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), nil)
	defer stop()

	env, err := newRunEnv(&invokeFlags)
	if err != nil {
		return err
	}
	defer env.Close()

	input := []agent.Message{agent.UserText(prompt)}
	rec, err := env.startRecording(ctx, runlog.ModeInvoke, input)
	if err != nil {
		return err
	}
	env.debug.LogRunStart(string(runlog.ModeInvoke), env.cfg.Agent, os.Args)

	printer := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	opts := env.opts
	opts.Observer = func(ctx context.Context, p agent.PartialResult) error {
		if !invokeFlags.JSON {
			printer.Turn(p)
		}
		return rec.Observe(ctx, p)
	}

	res, runErr := env.engine.Invoke(ctx, input, opts)
	env.finish(rec, res, runErr)
	if runErr != nil {
		return runErr
	}
	return writeResult(cmd, env, printer, res, invokeFlags.JSON, true)
}

// cmdContext returns the command's context, or Background when it has none.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runOutput is the --json form of a finished run.
type runOutput struct {
	RunID        string              `json:"run_id"`
	ThreadID     string              `json:"thread_id,omitempty"`
	Iterations   int                 `json:"iterations"`
	LimitReached bool                `json:"limit_reached"`
	Text         string              `json:"text"`
	State        map[string]any      `json:"state,omitempty"`
	Context      any                 `json:"context,omitempty"`
	Summary      any                 `json:"summary,omitempty"`
	Messages     []agent.WireMessage `json:"messages"`
}

func finalText(res *agent.RunResult) string {
	text := ""
	for _, m := range res.Final {
		if m.Role != agent.RoleAssistant {
			continue
		}
		if t := m.Text(); t != "" {
			if text != "" {
				text += "\n\n"
			}
			text += t
		}
	}
	return text
}

// writeResult prints a finished run. printFinal is false when the text was
// already streamed.
func writeResult(cmd *cobra.Command, env *runEnv, printer *ui.Printer, res *agent.RunResult, asJSON, printFinal bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.MarshalIndent(runOutput{
			RunID:        env.runID,
			ThreadID:     res.ThreadID,
			Iterations:   res.Iterations,
			LimitReached: res.LimitReached,
			Text:         finalText(res),
			State:        res.State,
			Context:      res.Context,
			Summary:      res.Summary,
			Messages:     agent.SerializeMessages(res.AllMessages),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		s := string(data)
		if f, ok := out.(*os.File); ok && ui.IsTerminal(f) {
			s = ui.HighlightJSON(s)
		}
		fmt.Fprintln(out, s)
		return nil
	}

	if printFinal {
		width := 0
		if f, ok := out.(*os.File); ok && ui.IsTerminal(f) {
			width = ui.TerminalWidth(f)
		}
		printer.Final(finalText(res), width)
	}

	styles := ui.NewStyles(cmd.ErrOrStderr())
	if res.LimitReached {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.Warning.Render(fmt.Sprintf("turn limit reached after %d turns; the agent's last tool results were not sent", res.Iterations)))
	}
	if res.ThreadID != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.Muted.Render("thread: "+res.ThreadID+"  run: "+runlog.ShortID(env.runID)))
	}
	return nil
}
