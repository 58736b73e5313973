package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultRecursionLimit caps turns when RunOptions.RecursionLimit is unset.
const DefaultRecursionLimit = 10

// ErrStreamingUnsupported is returned by Stream when the transport cannot stream.
var ErrStreamingUnsupported = errors.New("agent: transport does not support streaming")

// Observer is called once per turn, after the turn's response has been
// recorded and before any tool runs. The run waits for it to return, and a
// non-nil error aborts the run.
type Observer func(ctx context.Context, p PartialResult) error

// PartialResult is a snapshot taken at the end of one turn.
type PartialResult struct {
	Iteration    int
	Messages     []Message // this turn's response messages
	AllMessages  []Message // full history so far
	HasToolCalls bool
	IsFinal      bool
	State        map[string]any
	Context      any
	Summary      any
	ThreadID     string
}

// RunResult is what a completed run returns.
type RunResult struct {
	Final        []Message // the last turn's response messages
	AllMessages  []Message
	Iterations   int
	LimitReached bool
	State        map[string]any
	Context      any
	Summary      any
	ThreadID     string
}

// RunOptions configure a single Invoke or Stream call.
type RunOptions struct {
	InitialState   map[string]any // sent on the first turn only
	Config         map[string]any // sent on the first turn only
	RecursionLimit int            // max turns; <= 0 uses DefaultRecursionLimit
	Detail         string         // response detail level, forwarded every turn
	ThreadID       string
	Observer       Observer
}

// Engine drives the turn loop between an agent service and local tools.
type Engine struct {
	transport  Transport
	dispatcher *Dispatcher

	logger      *slog.Logger
	debugLogger *DebugLogger
	mu          sync.RWMutex
}

// NewEngine creates an engine. A nil dispatcher disables tool execution: runs
// stop after the first turn whether or not the agent asked for tools.
func NewEngine(transport Transport, dispatcher *Dispatcher) *Engine {
	return &Engine{
		transport:  transport,
		dispatcher: dispatcher,
		logger:     discardLogger(),
	}
}

// Dispatcher returns the engine's dispatcher, which may be nil.
func (e *Engine) Dispatcher() *Dispatcher {
	return e.dispatcher
}

// SetLogger sets the structured logger for per-turn diagnostics.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = discardLogger()
	}
	e.mu.Lock()
	e.logger = logger
	e.mu.Unlock()
}

// SetDebugLogger sets the JSONL transcript logger. nil disables it.
func (e *Engine) SetDebugLogger(logger *DebugLogger) {
	e.mu.Lock()
	e.debugLogger = logger
	e.mu.Unlock()
}

func (e *Engine) loggers() (*slog.Logger, *DebugLogger) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.logger, e.debugLogger
}

// run accumulates the state of one Invoke or Stream call.
type run struct {
	opts      RunOptions
	limit     int
	iteration int
	pending   []WireMessage
	history   []Message
	last      []Message
	limitHit  bool

	state    map[string]any
	context  any
	summary  any
	threadID string
}

func newRun(messages []Message, opts RunOptions) *run {
	limit := opts.RecursionLimit
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}
	history := make([]Message, 0, len(messages))
	history = append(history, messages...)
	return &run{
		opts:     opts,
		limit:    limit,
		pending:  SerializeMessages(messages),
		history:  history,
		state:    opts.InitialState,
		threadID: opts.ThreadID,
	}
}

// more reports whether another turn is allowed.
func (r *run) more() bool {
	return r.iteration < r.limit
}

// nextRequest advances the iteration counter and builds that turn's request.
func (r *run) nextRequest() *Request {
	r.iteration++
	req := &Request{
		Messages:       r.pending,
		RecursionLimit: r.limit,
		Detail:         r.opts.Detail,
		ThreadID:       r.threadID,
	}
	if r.iteration == 1 {
		req.InitialState = r.opts.InitialState
		req.Config = r.opts.Config
	}
	return req
}

// recordTurn appends the turn's response messages to the history.
func (r *run) recordTurn(messages []Message) {
	r.last = messages
	r.history = append(r.history, messages...)
}

// recordResults appends tool results and queues them as the next turn's input.
func (r *run) recordResults(results []Message) {
	r.history = append(r.history, results...)
	r.pending = SerializeMessages(results)
}

func (r *run) partial(hasToolCalls bool) PartialResult {
	return PartialResult{
		Iteration:    r.iteration,
		Messages:     cloneMessages(r.last),
		AllMessages:  cloneMessages(r.history),
		HasToolCalls: hasToolCalls,
		IsFinal:      !hasToolCalls,
		State:        r.state,
		Context:      r.context,
		Summary:      r.summary,
		ThreadID:     r.threadID,
	}
}

// emit hands the turn snapshot to the observer, if any, and waits for it.
func (r *run) emit(ctx context.Context, hasToolCalls bool) error {
	if r.opts.Observer == nil {
		return nil
	}
	return r.opts.Observer(ctx, r.partial(hasToolCalls))
}

func (r *run) result() *RunResult {
	return &RunResult{
		Final:        r.last,
		AllMessages:  r.history,
		Iterations:   r.iteration,
		LimitReached: r.limitHit,
		State:        r.state,
		Context:      r.context,
		Summary:      r.summary,
		ThreadID:     r.threadID,
	}
}

func cloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
