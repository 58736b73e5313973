package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/samsaffron/term-agent/internal/agent"
	"github.com/samsaffron/term-agent/internal/runlog"
	"github.com/samsaffron/term-agent/internal/signal"
	"github.com/samsaffron/term-agent/internal/ui"
	"github.com/spf13/cobra"
)

var streamFlags RunFlags

var streamCmd = &cobra.Command{
	Use:   "stream [prompt]",
	Short: "Run an agent and print its output as it arrives",
	Long: `Send a prompt to the agent's stream endpoint. Frames are printed as they
arrive; once a turn's stream ends, its tool calls run locally and the results
start the next turn.

Examples:
  term-agent stream -a helper "explain main.go"
  term-agent stream -a helper --tools read_file --read-dir ./docs "summarize the docs"`,
	RunE: runStream,
}

func init() {
	AddRunFlags(streamCmd, &streamFlags)
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), nil)
	defer stop()

	env, err := newRunEnv(&streamFlags)
	if err != nil {
		return err
	}
	defer env.Close()

	input := []agent.Message{agent.UserText(prompt)}
	rec, err := env.startRecording(ctx, runlog.ModeStream, input)
	if err != nil {
		return err
	}
	env.debug.LogRunStart(string(runlog.ModeStream), env.cfg.Agent, os.Args)

	opts := env.opts
	opts.Observer = rec.Observe

	stream, err := env.engine.Stream(ctx, input, opts)
	if err != nil {
		env.finish(rec, nil, err)
		return err
	}
	defer stream.Close()

	printer := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			printer.Finish()
			env.finish(rec, nil, err)
			return err
		}
		if !streamFlags.JSON {
			printer.Event(ev)
		}
	}
	printer.Finish()

	res, runErr := stream.Result()
	env.finish(rec, res, runErr)
	if runErr != nil {
		return runErr
	}
	return writeResult(cmd, env, printer, res, streamFlags.JSON, false)
}
