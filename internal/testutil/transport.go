package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/samsaffron/term-agent/internal/agent"
)

// ScriptedTransport replays canned turns. Turn i answers the i-th request,
// for Invoke as a single response and for Stream as one frame per message
// followed by a metadata frame carrying the thread ID.
type ScriptedTransport struct {
	Turns    [][]agent.Message
	ThreadID string

	mu       sync.Mutex
	requests []*agent.Request
}

// NewScriptedTransport creates a transport answering with turns in order.
func NewScriptedTransport(turns ...[]agent.Message) *ScriptedTransport {
	return &ScriptedTransport{Turns: turns}
}

func (s *ScriptedTransport) next(req *agent.Request) ([]agent.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	if n >= len(s.Turns) {
		return nil, fmt.Errorf("scripted transport: no turn %d", n+1)
	}
	return s.Turns[n], nil
}

// Invoke implements agent.Transport.
func (s *ScriptedTransport) Invoke(ctx context.Context, req *agent.Request) (*agent.InvokeResponse, error) {
	msgs, err := s.next(req)
	if err != nil {
		return nil, err
	}
	return &agent.InvokeResponse{Data: agent.ResponseData{
		Messages: msgs,
		Meta:     agent.ThreadMeta{ThreadID: s.ThreadID},
	}}, nil
}

// Stream implements agent.StreamTransport.
func (s *ScriptedTransport) Stream(ctx context.Context, req *agent.Request) (agent.FrameStream, error) {
	msgs, err := s.next(req)
	if err != nil {
		return nil, err
	}
	frames := make([]agent.Frame, 0, len(msgs)+1)
	for i := range msgs {
		frames = append(frames, agent.Frame{Event: agent.FrameMessage, Message: &msgs[i]})
	}
	frames = append(frames, agent.Frame{Event: agent.FrameEnd, ThreadID: s.ThreadID})
	return &sliceStream{frames: frames}, nil
}

// Requests returns the requests received so far.
func (s *ScriptedTransport) Requests() []*agent.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*agent.Request(nil), s.requests...)
}

type sliceStream struct {
	frames []agent.Frame
	pos    int
}

func (s *sliceStream) Recv() (agent.Frame, error) {
	if s.pos >= len(s.frames) {
		return agent.Frame{}, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *sliceStream) Close() error { return nil }

// ToolCallMessage builds an assistant message requesting the named tools,
// with call IDs call-1, call-2 and so on.
func ToolCallMessage(names ...string) agent.Message {
	m := agent.Message{Role: agent.RoleAssistant}
	for i, name := range names {
		m.Content = append(m.Content, agent.ContentBlock{
			Type: agent.BlockToolCall,
			ID:   fmt.Sprintf("call-%d", i+1),
			Name: name,
			Args: map[string]any{},
		})
	}
	return m
}
