package agent

// NewMessageID asks the service to assign a fresh identifier to a message.
const NewMessageID = "new"

// WireMessage is a message in the form the agent service accepts.
// Content is either a string or a []map[string]any of blocks.
type WireMessage struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   any            `json:"content"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SerializeMessage converts m to its wire form. A message made of exactly one
// text block is sent as a bare string; any other content becomes a list of
// block objects with unset fields left out.
func SerializeMessage(m Message) WireMessage {
	wm := WireMessage{
		ID:   m.ID,
		Role: m.Role,
	}
	if wm.ID == "" {
		wm.ID = NewMessageID
	}

	if len(m.Content) == 1 && m.Content[0].Type == BlockText {
		wm.Content = m.Content[0].Text
	} else {
		blocks := make([]map[string]any, 0, len(m.Content))
		for _, b := range m.Content {
			blocks = append(blocks, blockToWire(b))
		}
		wm.Content = blocks
	}

	if len(m.ToolCalls) > 0 {
		wm.ToolCalls = m.ToolCalls
	}
	if len(m.Metadata) > 0 {
		wm.Metadata = m.Metadata
	}
	return wm
}

// SerializeMessages converts a batch, preserving order.
func SerializeMessages(messages []Message) []WireMessage {
	out := make([]WireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, SerializeMessage(m))
	}
	return out
}

func blockToWire(b ContentBlock) map[string]any {
	out := map[string]any{"type": string(b.Type)}
	putString(out, "text", b.Text)
	putString(out, "id", b.ID)
	putString(out, "name", b.Name)
	if len(b.Args) > 0 {
		out["args"] = b.Args
	}
	putString(out, "tool_call_id", b.ToolCallID)
	if present(b.Output) {
		out["output"] = b.Output
	}
	putString(out, "error", b.Error)
	putString(out, "status", string(b.Status))
	if b.IsError {
		out["is_error"] = true
	}
	return out
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// present reports whether a value should be sent: nil and empty arrays are not.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case []map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
