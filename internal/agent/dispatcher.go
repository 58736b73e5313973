package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher resolves tool calls found in agent responses against a registry.
type Dispatcher struct {
	registry *ToolRegistry
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over registry. A nil registry gets a fresh,
// empty one.
func NewDispatcher(registry *ToolRegistry) *Dispatcher {
	if registry == nil {
		registry = NewToolRegistry()
	}
	return &Dispatcher{registry: registry, logger: discardLogger()}
}

// SetLogger sets the logger used for per-call debug output.
func (d *Dispatcher) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = discardLogger()
	}
	d.logger = logger
}

// Registry returns the registry the dispatcher reads from.
func (d *Dispatcher) Registry() *ToolRegistry {
	return d.registry
}

// Register adds a tool to the dispatcher's registry.
func (d *Dispatcher) Register(desc ToolDescriptor) {
	d.registry.Register(desc)
}

// ExecuteBatch runs every tool call found in messages and returns one
// tool-role result message per call, in the order the calls appeared.
//
// Failures are reported inside the results: an unknown tool, a handler error
// or a handler panic produces a failed result and never stops the batch.
// Handlers of one batch may run concurrently; all of them have returned when
// ExecuteBatch does.
func (d *Dispatcher) ExecuteBatch(ctx context.Context, messages []Message) []Message {
	calls := ExtractToolCalls(messages)
	if len(calls) == 0 {
		return []Message{}
	}

	results := make([]Message, len(calls))
	if len(calls) == 1 {
		results[0] = ToolResultMessage(d.execute(ctx, calls[0]))
		return results
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c ToolCall) {
			defer wg.Done()
			results[idx] = ToolResultMessage(d.execute(ctx, c))
		}(i, call)
	}
	wg.Wait()
	return results
}

// execute runs a single call. It never returns an error; every failure is
// folded into the result.
func (d *Dispatcher) execute(ctx context.Context, call ToolCall) (result ToolResult) {
	desc, ok := d.registry.Get(call.Name)
	if !ok {
		d.logger.DebugContext(ctx, "tool not found", "tool", call.Name, "call_id", call.ID)
		return failedResult(call.ID, fmt.Sprintf("tool not found: %s", call.Name))
	}
	if desc.Handler == nil {
		return failedResult(call.ID, fmt.Sprintf("tool %s has no handler", call.Name))
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = failedResult(call.ID, fmt.Sprint(r))
		}
		d.logger.DebugContext(ctx, "tool executed",
			"tool", call.Name,
			"call_id", call.ID,
			"status", result.Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	output, err := desc.Handler(ctx, args)
	if err != nil {
		return failedResult(call.ID, err.Error())
	}
	return ToolResult{
		ToolCallID: call.ID,
		Output:     output,
		Status:     StatusCompleted,
	}
}

func failedResult(callID, msg string) ToolResult {
	return ToolResult{
		ToolCallID: callID,
		Error:      msg,
		Status:     StatusFailed,
		IsError:    true,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
