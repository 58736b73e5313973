package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/samsaffron/term-agent/internal/agent"
	"github.com/samsaffron/term-agent/internal/agentapi"
	"github.com/samsaffron/term-agent/internal/config"
	"github.com/samsaffron/term-agent/internal/runlog"
	"github.com/samsaffron/term-agent/internal/tools"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// runEnv is everything a single invoke or stream run needs.
type runEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *agent.Engine
	store  runlog.Store
	debug  *agent.DebugLogger
	runID  string
	opts   agent.RunOptions
}

// newRunEnv resolves config and flags into a wired engine. The caller must
// Close the returned env.
func newRunEnv(f *RunFlags) (*runEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(f.Agent, f.BaseURL)
	if f.MaxTurns > 0 {
		cfg.RecursionLimit = f.MaxTurns
	}
	if f.Timeout > 0 {
		cfg.Timeout = f.Timeout
	}
	if f.Detail != "" {
		cfg.Detail = f.Detail
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := agent.RunOptions{
		RecursionLimit: cfg.RecursionLimit,
		Detail:         cfg.Detail,
		ThreadID:       f.Thread,
	}
	if f.State != "" {
		state, err := parseState(f.State)
		if err != nil {
			return nil, err
		}
		opts.InitialState = state
	}

	logger := slog.Default()
	client, err := agentapi.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Agent, agentapi.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}

	toolCfg := tools.DefaultToolConfig()
	toolCfg.Enabled = cfg.Tools.Enabled
	toolCfg.ReadDirs = cfg.Tools.ReadDirs
	if f.Tools != "" {
		toolCfg.Enabled = tools.ParseToolsFlag(f.Tools)
	}
	if len(f.ReadDirs) > 0 {
		toolCfg.ReadDirs = f.ReadDirs
	}
	for _, err := range toolCfg.Validate() {
		logger.Warn("invalid tool config", "error", err)
	}

	dispatcher := agent.NewDispatcher(nil)
	dispatcher.SetLogger(logger)
	toolList := tools.RegisterBuiltins(dispatcher, toolCfg)
	logger.Debug("built-in tools enabled", "tools", toolList, "read_dirs", toolCfg.ReadDirs)

	engine := agent.NewEngine(client, dispatcher)
	engine.SetLogger(logger)

	store, err := runlog.NewStore(cfg.Runs.Enabled && !f.NoRecord, cfg.Runs.Path)
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		store = &runlog.NoopStore{}
	}

	env := &runEnv{
		cfg:    cfg,
		logger: logger,
		engine: engine,
		store:  store,
		runID:  runlog.NewID(),
		opts:   opts,
	}

	if f.DebugLog || cfg.Debug.Enabled {
		debug, err := agent.NewDebugLogger(cfg.Debug.Dir, env.runID)
		if err != nil {
			logger.Warn("debug transcript unavailable", "error", err)
		} else {
			env.debug = debug
			engine.SetDebugLogger(debug)
		}
	}
	return env, nil
}

// startRecording creates the run row and stores the input.
func (e *runEnv) startRecording(ctx context.Context, mode runlog.RunMode, input []agent.Message) (*runlog.Recorder, error) {
	rec, err := runlog.NewRecorder(ctx, e.store, &runlog.Run{
		ID:       e.runID,
		Agent:    e.cfg.Agent,
		ThreadID: e.opts.ThreadID,
		Mode:     mode,
	}, input)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	rec.SetLogger(e.logger)
	return rec, nil
}

// finish stores the outcome. Recording failures are logged, not returned,
// so they never mask the run's own result.
func (e *runEnv) finish(rec *runlog.Recorder, res *agent.RunResult, runErr error) {
	if runErr != nil {
		e.debug.LogError(runErr)
	}
	if err := rec.Finish(context.Background(), res, runErr); err != nil {
		e.logger.Warn("failed to record run outcome", "run", e.runID, "error", err)
	}
}

func (e *runEnv) Close() {
	if e.debug != nil {
		if err := e.debug.Close(); err != nil {
			e.logger.Warn("failed to close debug transcript", "error", err)
		}
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("failed to close run history", "error", err)
	}
}

// parseState decodes --state: inline JSON, or @path to read a file.
func parseState(value string) (map[string]any, error) {
	data := []byte(value)
	if path, ok := strings.CutPrefix(value, "@"); ok {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read state file: %w", err)
		}
	}
	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("invalid --state: must be a JSON object: %w", err)
	}
	return state, nil
}

// readPrompt joins args, or reads stdin when there are none or the only
// argument is "-".
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok && len(args) == 0 {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("no prompt given (pass it as an argument or pipe it on stdin)")
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return prompt, nil
}
