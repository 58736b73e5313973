package agent

import (
	"context"
	"fmt"
)

// Request is the body sent to both the invoke and stream endpoints.
type Request struct {
	Messages       []WireMessage  `json:"messages"`
	InitialState   map[string]any `json:"initial_state,omitempty"`
	Config         map[string]any `json:"config,omitempty"`
	RecursionLimit int            `json:"recursion_limit"`
	Detail         string         `json:"detail,omitempty"`
	ThreadID       string         `json:"thread_id,omitempty"`
}

// InvokeResponse is the buffered endpoint's reply.
type InvokeResponse struct {
	Data     ResponseData     `json:"data"`
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseData carries the turn's messages and any state the agent reports.
type ResponseData struct {
	Messages []Message      `json:"messages"`
	State    map[string]any `json:"state,omitempty"`
	Context  any            `json:"context,omitempty"`
	Summary  any            `json:"summary,omitempty"`
	Meta     ThreadMeta     `json:"meta"`
}

// ThreadMeta identifies the conversation thread a turn ran on.
type ThreadMeta struct {
	IsNewThread bool   `json:"is_new_thread"`
	ThreadID    string `json:"thread_id"`
}

// ResponseMetadata is request-level bookkeeping from the service.
type ResponseMetadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Frame event names used by the stream endpoint.
const (
	FrameMessage = "message"
	FrameState   = "state"
	FrameEnd     = "end"
	FrameError   = "error"
)

// Frame is one record of the stream endpoint's NDJSON body.
type Frame struct {
	Event     string         `json:"event"`
	Message   *Message       `json:"message,omitempty"`
	State     map[string]any `json:"state,omitempty"`
	Data      any            `json:"data,omitempty"`
	ThreadID  string         `json:"thread_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp any            `json:"timestamp,omitempty"`
}

// Transport performs one buffered turn.
type Transport interface {
	Invoke(ctx context.Context, req *Request) (*InvokeResponse, error)
}

// StreamTransport performs one streamed turn.
type StreamTransport interface {
	Stream(ctx context.Context, req *Request) (FrameStream, error)
}

// FrameStream yields frames until io.EOF.
type FrameStream interface {
	Recv() (Frame, error)
	Close() error
}

// StreamError is raised when the service reports an error frame mid-stream.
type StreamError struct {
	Iteration int
	Message   string
	Frame     Frame
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("agent stream error (iteration %d): %s", e.Iteration, e.Message)
}

func newStreamError(iteration int, frame Frame) *StreamError {
	msg := "stream reported an error"
	switch data := frame.Data.(type) {
	case string:
		if data != "" {
			msg = data
		}
	case map[string]any:
		if s, ok := data["message"].(string); ok && s != "" {
			msg = s
		} else if s, ok := data["error"].(string); ok && s != "" {
			msg = s
		}
	}
	return &StreamError{Iteration: iteration, Message: msg, Frame: frame}
}
