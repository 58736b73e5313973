package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// RunEventType identifies what a RunEvent carries.
type RunEventType string

const (
	// EventFrame carries one frame exactly as the service sent it.
	EventFrame RunEventType = "frame"
	// EventToolResults carries the results of a tool batch, before they are
	// sent back to the service.
	EventToolResults RunEventType = "tool_results"
)

// RunEvent is one item yielded by a RunStream.
type RunEvent struct {
	Type      RunEventType
	Iteration int
	Frame     *Frame
	Results   []Message
}

// RunStream delivers the events of a streamed run. Events are handed over one
// at a time: the run does not read the next frame until the previous event has
// been received.
type RunStream struct {
	events chan RunEvent
	done   chan struct{}
	cancel context.CancelFunc

	result *RunResult
	err    error
}

// Recv returns the next event. It returns io.EOF once the run has finished
// successfully, or the run's error if it failed.
func (s *RunStream) Recv() (RunEvent, error) {
	ev, ok := <-s.events
	if ok {
		return ev, nil
	}
	if s.err != nil {
		return RunEvent{}, s.err
	}
	return RunEvent{}, io.EOF
}

// Result waits for the run to finish and returns its outcome.
func (s *RunStream) Result() (*RunResult, error) {
	<-s.done
	return s.result, s.err
}

// Close stops the run and releases its resources. Events not yet received are
// discarded. It is safe to call Close after the stream is exhausted.
func (s *RunStream) Close() error {
	s.cancel()
	for range s.events {
	}
	<-s.done
	return nil
}

// Stream runs the same turn loop as Invoke over the streaming endpoint. Every
// frame is surfaced as an EventFrame in arrival order; frames carrying a
// message are collected as the turn's response. Tool calls are looked for once
// the turn's frames are exhausted.
//
// A frame whose event is "error" is surfaced like any other frame, after which
// the run fails with a *StreamError.
func (e *Engine) Stream(ctx context.Context, messages []Message, opts RunOptions) (*RunStream, error) {
	st, ok := e.transport.(StreamTransport)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &RunStream{
		events: make(chan RunEvent),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(s.done)
		defer close(s.events)
		s.result, s.err = e.runStream(ctx, st, newRun(messages, opts), s.events)
	}()
	return s, nil
}

func (e *Engine) runStream(ctx context.Context, st StreamTransport, r *run, events chan<- RunEvent) (*RunResult, error) {
	logger, debug := e.loggers()
	send := func(ev RunEvent) error {
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for r.more() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req := r.nextRequest()
		debug.LogRequest(r.iteration, req)

		turn, err := e.streamTurn(ctx, st, r, req, send)
		if err != nil {
			return nil, err
		}
		r.recordTurn(turn)

		hasCalls := HasToolCalls(turn)
		logger.DebugContext(ctx, "turn completed",
			"mode", "stream",
			"iteration", r.iteration,
			"messages", len(turn),
			"tool_calls", hasCalls,
		)

		if err := r.emit(ctx, hasCalls); err != nil {
			return nil, fmt.Errorf("observer (turn %d): %w", r.iteration, err)
		}
		if !hasCalls || e.dispatcher == nil {
			return r.result(), nil
		}

		results := e.dispatcher.ExecuteBatch(ctx, turn)
		debug.LogToolResults(r.iteration, results)
		if err := send(RunEvent{Type: EventToolResults, Iteration: r.iteration, Results: results}); err != nil {
			return nil, err
		}
		r.recordResults(results)
	}

	r.limitHit = true
	logger.DebugContext(ctx, "recursion limit reached", "mode", "stream", "limit", r.limit)
	return r.result(), nil
}

// streamTurn reads one turn's frames to exhaustion and returns the messages
// they carried.
func (e *Engine) streamTurn(ctx context.Context, st StreamTransport, r *run, req *Request, send func(RunEvent) error) ([]Message, error) {
	_, debug := e.loggers()

	fs, err := st.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("stream turn %d: %w", r.iteration, err)
	}
	defer fs.Close()

	var turn []Message
	for {
		frame, err := fs.Recv()
		if errors.Is(err, io.EOF) {
			return turn, nil
		}
		if err != nil {
			return nil, fmt.Errorf("stream turn %d: %w", r.iteration, err)
		}
		debug.LogFrame(r.iteration, frame)

		f := frame
		if err := send(RunEvent{Type: EventFrame, Iteration: r.iteration, Frame: &f}); err != nil {
			return nil, err
		}
		if frame.Event == FrameError {
			return nil, newStreamError(r.iteration, frame)
		}
		if frame.Message != nil {
			turn = append(turn, *frame.Message)
		}
		r.applyFrame(frame)
	}
}

// applyFrame picks up the state, thread and summary a frame reports.
func (r *run) applyFrame(frame Frame) {
	if frame.State != nil {
		r.state = frame.State
	}
	if frame.ThreadID != "" {
		r.threadID = frame.ThreadID
	}
	data, ok := frame.Data.(map[string]any)
	if !ok {
		return
	}
	if v, ok := data["summary"]; ok && v != nil {
		r.summary = v
	}
	if v, ok := data["context"]; ok && v != nil {
		r.context = v
	}
	if v, ok := data["state"].(map[string]any); ok && frame.State == nil {
		r.state = v
	}
}
