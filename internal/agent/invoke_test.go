package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// scriptTransport replies to each turn with script(call, req).
type scriptTransport struct {
	mu     sync.Mutex
	script func(call int, req *Request) (*InvokeResponse, error)
	calls  []*Request
}

func (s *scriptTransport) Invoke(ctx context.Context, req *Request) (*InvokeResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	call := len(s.calls)
	s.mu.Unlock()
	return s.script(call, req)
}

func reply(messages ...Message) *InvokeResponse {
	return &InvokeResponse{Data: ResponseData{Messages: messages}}
}

func lookupEngine(t *testing.T, transport Transport) *Engine {
	t.Helper()
	d := NewDispatcher(nil)
	d.Register(ToolDescriptor{
		Name: "lookup",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"found": args["key"]}, nil
		},
	})
	return NewEngine(transport, d)
}

func TestInvokeSingleTurn(t *testing.T) {
	tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
		return reply(AssistantText("hi there")), nil
	}}
	e := lookupEngine(t, tr)

	res, err := e.Invoke(context.Background(), []Message{UserText("hello")}, RunOptions{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(tr.calls) != 1 {
		t.Fatalf("expected 1 transport call, got %d", len(tr.calls))
	}
	if res.Iterations != 1 || res.LimitReached {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Final) != 1 || res.Final[0].Text() != "hi there" {
		t.Fatalf("unexpected final %+v", res.Final)
	}
	if len(res.AllMessages) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(res.AllMessages))
	}
}

func TestInvokeToolRoundTrip(t *testing.T) {
	tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
		if call == 1 {
			return reply(toolCallMessage(ToolCall{ID: "call-1", Name: "lookup", Args: map[string]any{"key": "k"}})), nil
		}
		return reply(AssistantText("done")), nil
	}}
	e := lookupEngine(t, tr)

	res, err := e.Invoke(context.Background(), []Message{UserText("look it up")}, RunOptions{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(tr.calls) != 2 || res.Iterations != 2 || res.LimitReached {
		t.Fatalf("calls=%d result=%+v", len(tr.calls), res)
	}

	wantRoles := []Role{RoleUser, RoleAssistant, RoleTool, RoleAssistant}
	if len(res.AllMessages) != len(wantRoles) {
		t.Fatalf("expected %d history entries, got %d", len(wantRoles), len(res.AllMessages))
	}
	for i, role := range wantRoles {
		if res.AllMessages[i].Role != role {
			t.Fatalf("history[%d]: role %q want %q", i, res.AllMessages[i].Role, role)
		}
	}
	if res.AllMessages[1].Content[0].Type != BlockToolCall {
		t.Fatalf("history[1] should be the tool call: %+v", res.AllMessages[1])
	}
	if res.AllMessages[2].Content[0].ToolCallID != "call-1" {
		t.Fatalf("history[2] should answer call-1: %+v", res.AllMessages[2])
	}

	second := tr.calls[1].Messages
	if len(second) != 1 || second[0].Role != RoleTool {
		t.Fatalf("second turn should send only the tool result: %+v", second)
	}
}

func TestInvokeRecursionLimit(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 5} {
		tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
			return reply(toolCallMessage(ToolCall{ID: "c", Name: "lookup"})), nil
		}}
		e := lookupEngine(t, tr)

		res, err := e.Invoke(context.Background(), []Message{UserText("loop")}, RunOptions{RecursionLimit: limit})
		if err != nil {
			t.Fatalf("limit %d: %v", limit, err)
		}
		if len(tr.calls) != limit {
			t.Fatalf("limit %d: expected %d calls, got %d", limit, limit, len(tr.calls))
		}
		if !res.LimitReached || res.Iterations != limit {
			t.Fatalf("limit %d: unexpected result %+v", limit, res)
		}
	}
}

func TestInvokeDefaultLimit(t *testing.T) {
	tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
		if req.RecursionLimit != DefaultRecursionLimit {
			t.Errorf("turn %d: recursion_limit %d", call, req.RecursionLimit)
		}
		return reply(toolCallMessage(ToolCall{ID: "c", Name: "lookup"})), nil
	}}
	res, err := lookupEngine(t, tr).Invoke(context.Background(), []Message{UserText("loop")}, RunOptions{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(tr.calls) != DefaultRecursionLimit || !res.LimitReached {
		t.Fatalf("calls=%d result=%+v", len(tr.calls), res)
	}
}

func TestInvokeObserver(t *testing.T) {
	tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
		if call == 1 {
			return reply(toolCallMessage(ToolCall{ID: "c1", Name: "lookup"})), nil
		}
		return reply(AssistantText("final")), nil
	}}
	e := lookupEngine(t, tr)

	var seen []PartialResult
	_, err := e.Invoke(context.Background(), []Message{UserText("go")}, RunOptions{
		Observer: func(ctx context.Context, p PartialResult) error {
			seen = append(seen, p)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 observer calls, got %d", len(seen))
	}
	if seen[0].Iteration != 1 || seen[1].Iteration != 2 {
		t.Fatalf("unexpected iterations %d, %d", seen[0].Iteration, seen[1].Iteration)
	}
	if seen[0].IsFinal || !seen[1].IsFinal {
		t.Fatalf("unexpected finality %v, %v", seen[0].IsFinal, seen[1].IsFinal)
	}
	if !seen[0].HasToolCalls || seen[1].HasToolCalls {
		t.Fatalf("unexpected tool call flags %v, %v", seen[0].HasToolCalls, seen[1].HasToolCalls)
	}
	// The first snapshot is taken before tools run.
	if len(seen[0].AllMessages) != 2 {
		t.Fatalf("first snapshot history: %d entries", len(seen[0].AllMessages))
	}
}

func TestInvokeObserverErrorAborts(t *testing.T) {
	tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
		return reply(toolCallMessage(ToolCall{ID: "c1", Name: "lookup"})), nil
	}}
	e := lookupEngine(t, tr)
	stop := errors.New("stop here")

	_, err := e.Invoke(context.Background(), []Message{UserText("go")}, RunOptions{
		Observer: func(ctx context.Context, p PartialResult) error { return stop },
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected observer error, got %v", err)
	}
	if len(tr.calls) != 1 {
		t.Fatalf("expected run to stop after 1 call, got %d", len(tr.calls))
	}
}

func TestInvokeTransportErrorAborts(t *testing.T) {
	boom := errors.New("connection reset")
	tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
		if call == 1 {
			return reply(toolCallMessage(ToolCall{ID: "c1", Name: "lookup"})), nil
		}
		return nil, boom
	}}
	_, err := lookupEngine(t, tr).Invoke(context.Background(), []Message{UserText("go")}, RunOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestInvokeRequestFields(t *testing.T) {
	tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
		resp := reply(AssistantText("ok"))
		if call == 1 {
			resp = reply(toolCallMessage(ToolCall{ID: "c1", Name: "lookup"}))
		}
		resp.Data.Meta.ThreadID = "thread-9"
		resp.Data.State = map[string]any{"turn": call}
		resp.Data.Summary = "short"
		return resp, nil
	}}
	e := lookupEngine(t, tr)

	res, err := e.Invoke(context.Background(), []Message{UserText("go")}, RunOptions{
		InitialState:   map[string]any{"mood": "calm"},
		Config:         map[string]any{"temperature": 0.1},
		RecursionLimit: 4,
		Detail:         "full",
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	first, second := tr.calls[0], tr.calls[1]
	if first.InitialState["mood"] != "calm" || first.Config["temperature"] != 0.1 {
		t.Fatalf("first turn missing state/config: %+v", first)
	}
	if second.InitialState != nil || second.Config != nil {
		t.Fatalf("second turn should not resend state/config: %+v", second)
	}
	for i, req := range tr.calls {
		if req.RecursionLimit != 4 || req.Detail != "full" {
			t.Fatalf("turn %d: limit=%d detail=%q", i+1, req.RecursionLimit, req.Detail)
		}
	}
	if first.ThreadID != "" || second.ThreadID != "thread-9" {
		t.Fatalf("thread ids: %q, %q", first.ThreadID, second.ThreadID)
	}
	if res.ThreadID != "thread-9" || res.Summary != "short" || res.State["turn"] != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestInvokeWithoutDispatcherStopsAfterFirstTurn(t *testing.T) {
	tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
		return reply(toolCallMessage(ToolCall{ID: "c1", Name: "lookup"})), nil
	}}
	res, err := NewEngine(tr, nil).Invoke(context.Background(), []Message{UserText("go")}, RunOptions{})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(tr.calls) != 1 || res.LimitReached {
		t.Fatalf("calls=%d result=%+v", len(tr.calls), res)
	}
}

func TestStreamUnsupportedTransport(t *testing.T) {
	tr := &scriptTransport{script: func(int, *Request) (*InvokeResponse, error) { return reply(), nil }}
	if _, err := NewEngine(tr, nil).Stream(context.Background(), nil, RunOptions{}); !errors.Is(err, ErrStreamingUnsupported) {
		t.Fatalf("expected ErrStreamingUnsupported, got %v", err)
	}
}
