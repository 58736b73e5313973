package agent

import (
	"testing"
)

func TestSerializeSingleTextRoundTrip(t *testing.T) {
	texts := []string{"hello", "", "multi\nline with \"quotes\"", "ünïcödé ✓"}
	for _, text := range texts {
		wm := SerializeMessage(UserText(text))
		got, ok := wm.Content.(string)
		if !ok {
			t.Fatalf("expected string content, got %T", wm.Content)
		}
		if got != text {
			t.Fatalf("round trip: got %q want %q", got, text)
		}

		data, err := json.Marshal(wm)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back Message
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if back.Text() != text {
			t.Fatalf("decoded text %q want %q", back.Text(), text)
		}
	}
}

func TestSerializeMessageID(t *testing.T) {
	if id := SerializeMessage(UserText("x")).ID; id != NewMessageID {
		t.Fatalf("expected sentinel id, got %q", id)
	}
	m := UserText("x")
	m.ID = "msg-42"
	if id := SerializeMessage(m).ID; id != "msg-42" {
		t.Fatalf("expected explicit id, got %q", id)
	}
}

func TestSerializeBlocksOmitUnsetFields(t *testing.T) {
	m := ToolResultMessage(ToolResult{ToolCallID: "call-1", Output: []any{}, Status: StatusCompleted})
	wm := SerializeMessage(m)

	blocks, ok := wm.Content.([]map[string]any)
	if !ok || len(blocks) != 1 {
		t.Fatalf("expected one block, got %#v", wm.Content)
	}
	block := blocks[0]
	if block["type"] != "tool_result" || block["tool_call_id"] != "call-1" || block["status"] != "completed" {
		t.Fatalf("unexpected block %#v", block)
	}
	for _, key := range []string{"output", "error", "is_error", "text", "args", "name", "id"} {
		if _, present := block[key]; present {
			t.Fatalf("key %q should be omitted: %#v", key, block)
		}
	}
	if wm.ToolCalls != nil || wm.Metadata != nil {
		t.Fatalf("empty tool_calls/metadata should be omitted: %+v", wm)
	}
}

func TestSerializeMixedContent(t *testing.T) {
	m := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			{Type: BlockText, Text: "checking"},
			{Type: BlockToolCall, ID: "c1", Name: "read_file", Args: map[string]any{"file_path": "a.txt"}},
		},
		Metadata: map[string]any{"source": "test"},
	}
	wm := SerializeMessage(m)
	blocks, ok := wm.Content.([]map[string]any)
	if !ok || len(blocks) != 2 {
		t.Fatalf("expected two blocks, got %#v", wm.Content)
	}
	if blocks[0]["text"] != "checking" || blocks[1]["name"] != "read_file" {
		t.Fatalf("unexpected blocks %#v", blocks)
	}
	if wm.Metadata["source"] != "test" {
		t.Fatalf("metadata not carried: %#v", wm.Metadata)
	}
}

func TestSerializeFailedResult(t *testing.T) {
	wm := SerializeMessage(ToolResultMessage(failedResult("c9", "tool not found: nope")))
	block := wm.Content.([]map[string]any)[0]
	if block["is_error"] != true || block["error"] != "tool not found: nope" || block["status"] != "failed" {
		t.Fatalf("unexpected block %#v", block)
	}
}

func TestMessageUnmarshalContentForms(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"id":"m1","role":"assistant","content":"plain"}`), &m); err != nil {
		t.Fatalf("unmarshal string content: %v", err)
	}
	if len(m.Content) != 1 || m.Content[0].Type != BlockText || m.Content[0].Text != "plain" {
		t.Fatalf("unexpected content %+v", m.Content)
	}

	data := `{"role":"assistant","content":[{"type":"tool_call","id":"c1","name":"glob_files","args":{"pattern":"*.go"}}]}`
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		t.Fatalf("unmarshal block content: %v", err)
	}
	calls := m.ToolCallBlocks()
	if len(calls) != 1 || calls[0].Name != "glob_files" || calls[0].Args["pattern"] != "*.go" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if m.ID != "" {
		t.Fatalf("expected id reset, got %q", m.ID)
	}

	if err := json.Unmarshal([]byte(`{"role":"user","content":null}`), &m); err != nil {
		t.Fatalf("unmarshal null content: %v", err)
	}
	if len(m.Content) != 0 {
		t.Fatalf("expected no content, got %+v", m.Content)
	}
}
