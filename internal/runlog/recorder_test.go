package runlog

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/samsaffron/term-agent/internal/agent"
	"github.com/samsaffron/term-agent/internal/testutil"
)

func newNoopEngine(tr agent.Transport) *agent.Engine {
	d := agent.NewDispatcher(nil)
	d.Register(testutil.NewMockTool("noop", "ok").Descriptor())
	return agent.NewEngine(tr, d)
}

func TestRecorderPersistsRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tr := testutil.NewScriptedTransport(
		[]agent.Message{testutil.ToolCallMessage("noop")},
		[]agent.Message{agent.AssistantText("done")},
	)
	tr.ThreadID = "th"
	input := []agent.Message{agent.UserText("please do it")}

	rec, err := NewRecorder(ctx, store, &Run{Agent: "helper", Mode: ModeInvoke}, input)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	res, runErr := newNoopEngine(tr).Invoke(ctx, input, agent.RunOptions{Observer: rec.Observe})
	if err := rec.Finish(ctx, res, runErr); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	run, err := store.Get(ctx, rec.RunID())
	if err != nil || run == nil {
		t.Fatalf("Get: %+v, %v", run, err)
	}
	if run.Status != StatusComplete || run.Iterations != 2 || run.ToolCalls != 1 {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Prompt != "please do it" || run.ThreadID != "th" {
		t.Fatalf("unexpected run %+v", run)
	}

	msgs, err := store.GetMessages(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	wantRoles := []agent.Role{agent.RoleUser, agent.RoleAssistant, agent.RoleTool, agent.RoleAssistant}
	wantIters := []int{0, 1, 1, 2}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(msgs))
	}
	for i := range msgs {
		if msgs[i].Role != wantRoles[i] || msgs[i].Iteration != wantIters[i] {
			t.Fatalf("message %d: role %q iteration %d", i, msgs[i].Role, msgs[i].Iteration)
		}
	}
}

func TestRecorderLimitAndError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tr := testutil.NewScriptedTransport([]agent.Message{testutil.ToolCallMessage("noop")})
	input := []agent.Message{agent.UserText("loop")}
	rec, err := NewRecorder(ctx, store, &Run{Agent: "helper", Mode: ModeInvoke}, input)
	if err != nil {
		t.Fatal(err)
	}
	res, runErr := newNoopEngine(tr).Invoke(ctx, input, agent.RunOptions{RecursionLimit: 1, Observer: rec.Observe})
	if err := rec.Finish(ctx, res, runErr); err != nil {
		t.Fatal(err)
	}
	run, _ := store.Get(ctx, rec.RunID())
	if run.Status != StatusLimit || !run.LimitReached {
		t.Fatalf("unexpected run %+v", run)
	}
	msgs, _ := store.GetMessages(ctx, run.ID)
	if len(msgs) != 3 || msgs[2].Role != agent.RoleTool {
		t.Fatalf("final tool results should be stored, got %d messages", len(msgs))
	}

	rec2, err := NewRecorder(ctx, store, &Run{Agent: "helper", Mode: ModeStream}, input)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec2.Finish(ctx, nil, errors.New("service unavailable")); err != nil {
		t.Fatal(err)
	}
	run, _ = store.Get(ctx, rec2.RunID())
	if run.Status != StatusError || run.Error != "service unavailable" {
		t.Fatalf("unexpected run %+v", run)
	}
}

// flakyStore fails message writes once failing is set.
type flakyStore struct {
	Store
	failing bool
}

func (s *flakyStore) AddMessage(ctx context.Context, runID string, msg *Message) error {
	if s.failing {
		return errors.New("disk full")
	}
	return s.Store.AddMessage(ctx, runID, msg)
}

func TestRecorderStoreFailureDoesNotAbortRun(t *testing.T) {
	store := &flakyStore{Store: newTestStore(t)}
	ctx := context.Background()

	tr := testutil.NewScriptedTransport(
		[]agent.Message{testutil.ToolCallMessage("noop")},
		[]agent.Message{agent.AssistantText("done")},
	)
	input := []agent.Message{agent.UserText("go")}
	rec, err := NewRecorder(ctx, store, &Run{Agent: "helper", Mode: ModeInvoke}, input)
	if err != nil {
		t.Fatal(err)
	}
	rec.SetLogger(slog.New(slog.DiscardHandler))
	store.failing = true

	res, runErr := newNoopEngine(tr).Invoke(ctx, input, agent.RunOptions{Observer: rec.Observe})
	if runErr != nil {
		t.Fatalf("run aborted by recording failure: %v", runErr)
	}
	if res.Iterations != 2 || res.Final[0].Text() != "done" {
		t.Fatalf("unexpected result %+v", res)
	}
	if err := rec.Finish(ctx, res, nil); err == nil {
		t.Fatal("Finish should report the storage failure")
	}

	store.failing = false
	if err := rec.Finish(ctx, res, nil); err != nil {
		t.Fatalf("Finish after recovery: %v", err)
	}
	msgs, _ := store.GetMessages(ctx, rec.RunID())
	if len(msgs) != 4 {
		t.Fatalf("expected all 4 messages stored after recovery, got %d", len(msgs))
	}
}
