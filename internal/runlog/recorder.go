package runlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samsaffron/term-agent/internal/agent"
)

// Recorder persists a run turn by turn. Its Observe method is an
// agent.Observer; Finish stores whatever the last turn left and the outcome.
// Failures while observing are logged and never abort the run.
type Recorder struct {
	store     Store
	run       *Run
	logger    *slog.Logger
	saved     int
	toolCalls int
}

// NewRecorder creates the run row, stores the run's input messages as
// iteration 0 and returns a recorder for the rest of the run.
func NewRecorder(ctx context.Context, store Store, run *Run, input []agent.Message) (*Recorder, error) {
	if run.Status == "" {
		run.Status = StatusActive
	}
	if run.Prompt == "" {
		run.Prompt = firstUserText(input)
	}
	if err := store.Create(ctx, run); err != nil {
		return nil, err
	}
	r := &Recorder{store: store, run: run, logger: slog.Default()}
	if err := r.save(ctx, 0, input); err != nil {
		return nil, err
	}
	return r, nil
}

func firstUserText(messages []agent.Message) string {
	for _, m := range messages {
		if m.Role == agent.RoleUser {
			if text := m.Text(); text != "" {
				return truncate(text, 200)
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// RunID returns the ID of the run being recorded.
func (r *Recorder) RunID() string {
	return r.run.ID
}

// SetLogger sets the logger for recording failures.
func (r *Recorder) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Observe stores the messages added since the previous turn: the previous
// turn's tool results, then this turn's response. It always returns nil;
// messages that could not be stored are retried at the next turn or by Finish.
func (r *Recorder) Observe(ctx context.Context, p agent.PartialResult) error {
	if err := r.record(ctx, p); err != nil {
		r.logger.WarnContext(ctx, "failed to record turn", "run", r.run.ID, "iteration", p.Iteration, "error", err)
	}
	return nil
}

func (r *Recorder) record(ctx context.Context, p agent.PartialResult) error {
	responseStart := len(p.AllMessages) - len(p.Messages)
	if responseStart > r.saved {
		if err := r.save(ctx, p.Iteration-1, p.AllMessages[:responseStart]); err != nil {
			return err
		}
	}
	if err := r.save(ctx, p.Iteration, p.AllMessages); err != nil {
		return err
	}
	r.toolCalls += len(agent.ExtractToolCalls(p.Messages))
	return r.store.UpdateProgress(ctx, r.run.ID, p.Iteration, r.toolCalls, p.ThreadID)
}

// Finish records the final outcome. runErr is the error the run returned, if any.
func (r *Recorder) Finish(ctx context.Context, res *agent.RunResult, runErr error) error {
	if runErr != nil {
		return r.store.Finish(ctx, r.run.ID, StatusError, false, runErr.Error())
	}
	if res == nil {
		return errors.New("finish run: no result")
	}
	if err := r.save(ctx, res.Iterations, res.AllMessages); err != nil {
		return err
	}
	if err := r.store.UpdateProgress(ctx, r.run.ID, res.Iterations, r.toolCalls, res.ThreadID); err != nil {
		return err
	}
	status := StatusComplete
	if res.LimitReached {
		status = StatusLimit
	}
	return r.store.Finish(ctx, r.run.ID, status, res.LimitReached, "")
}

func (r *Recorder) save(ctx context.Context, iteration int, history []agent.Message) error {
	for i := r.saved; i < len(history); i++ {
		if err := r.store.AddMessage(ctx, r.run.ID, NewMessage(r.run.ID, iteration, history[i])); err != nil {
			return fmt.Errorf("record message %d: %w", i, err)
		}
		r.saved = i + 1
	}
	return nil
}
