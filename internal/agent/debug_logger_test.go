package agent

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDebugLoggerNilSafe(t *testing.T) {
	var l *DebugLogger
	l.LogRunStart("invoke", "demo", nil)
	l.LogRequest(1, &Request{})
	l.LogFrame(1, Frame{Event: FrameEnd})
	l.Flush()
	if err := l.Close(); err != nil {
		t.Fatalf("Close on nil logger: %v", err)
	}
	if l.Path() != "" {
		t.Fatalf("nil logger path %q", l.Path())
	}
}

func TestDebugLoggerWritesTranscript(t *testing.T) {
	dir := t.TempDir()
	l, err := NewDebugLogger(dir, "run-1")
	if err != nil {
		t.Fatalf("NewDebugLogger: %v", err)
	}

	tr := &scriptTransport{script: func(call int, req *Request) (*InvokeResponse, error) {
		if call == 1 {
			return reply(toolCallMessage(ToolCall{ID: "c1", Name: "lookup"})), nil
		}
		return reply(AssistantText("ok")), nil
	}}
	e := lookupEngine(t, tr)
	e.SetDebugLogger(l)
	l.LogRunStart("invoke", "demo", []string{"hello"})
	if _, err := e.Invoke(context.Background(), []Message{UserText("hello")}, RunOptions{}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "run-1.jsonl"))
	if err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	defer f.Close()

	var types []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry debugEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		if entry.RunID != "run-1" {
			t.Fatalf("unexpected run id %q", entry.RunID)
		}
		types = append(types, entry.Type)
	}
	want := []string{"run_start", "request", "response", "tool_result", "request", "response"}
	if len(types) != len(want) {
		t.Fatalf("got entries %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("got entries %v, want %v", types, want)
		}
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.jsonl")
	fresh := filepath.Join(dir, "fresh.jsonl")
	other := filepath.Join(dir, "keep.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("{}\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-10 * 24 * time.Hour)
	for _, p := range []string{old, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	if err := CleanupOldLogs(dir, DebugRetention); err != nil {
		t.Fatalf("CleanupOldLogs: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old transcript should be removed, stat err=%v", err)
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("%s should remain: %v", p, err)
		}
	}
	if err := CleanupOldLogs(filepath.Join(dir, "missing"), DebugRetention); err != nil {
		t.Fatalf("missing dir: %v", err)
	}
}
