package agent

import (
	"context"
	"fmt"
)

// Invoke runs the buffered turn loop: send the pending messages, record the
// reply, run any requested tools and send their results back, until the agent
// answers without tool calls or RecursionLimit turns have been used.
//
// Hitting the limit is not an error: the result comes back with LimitReached
// set. Tools requested on the final allowed turn are still executed.
func (e *Engine) Invoke(ctx context.Context, messages []Message, opts RunOptions) (*RunResult, error) {
	if e.transport == nil {
		return nil, fmt.Errorf("agent: no transport configured")
	}
	logger, debug := e.loggers()
	r := newRun(messages, opts)

	for r.more() {
		req := r.nextRequest()
		debug.LogRequest(r.iteration, req)

		resp, err := e.transport.Invoke(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("invoke turn %d: %w", r.iteration, err)
		}
		debug.LogResponse(r.iteration, resp)

		r.applyResponse(resp)
		hasCalls := HasToolCalls(resp.Data.Messages)
		logger.DebugContext(ctx, "turn completed",
			"mode", "invoke",
			"iteration", r.iteration,
			"messages", len(resp.Data.Messages),
			"tool_calls", hasCalls,
		)

		if err := r.emit(ctx, hasCalls); err != nil {
			return nil, fmt.Errorf("observer (turn %d): %w", r.iteration, err)
		}
		if !hasCalls || e.dispatcher == nil {
			return r.result(), nil
		}

		results := e.dispatcher.ExecuteBatch(ctx, resp.Data.Messages)
		debug.LogToolResults(r.iteration, results)
		r.recordResults(results)
	}

	r.limitHit = true
	logger.DebugContext(ctx, "recursion limit reached", "mode", "invoke", "limit", r.limit)
	return r.result(), nil
}

// applyResponse records a buffered reply and picks up any state it reports.
func (r *run) applyResponse(resp *InvokeResponse) {
	r.recordTurn(resp.Data.Messages)
	if resp.Data.State != nil {
		r.state = resp.Data.State
	}
	if resp.Data.Context != nil {
		r.context = resp.Data.Context
	}
	if resp.Data.Summary != nil {
		r.summary = resp.Data.Summary
	}
	if resp.Data.Meta.ThreadID != "" {
		r.threadID = resp.Data.Meta.ThreadID
	}
}
