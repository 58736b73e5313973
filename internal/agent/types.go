package agent

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Role identifies a message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockType identifies a content block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolCall   BlockType = "tool_call"
	BlockToolResult BlockType = "tool_result"
)

// ToolStatus is the outcome of a tool invocation.
type ToolStatus string

const (
	StatusCompleted ToolStatus = "completed"
	StatusFailed    ToolStatus = "failed"
)

// ContentBlock is one element of a message's content. Which fields are
// meaningful depends on Type.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_call
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name,omitempty"`
	Args map[string]any `json:"args,omitempty"`

	// tool_result
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Output     any        `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
	Status     ToolStatus `json:"status,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// Message is a single conversation entry.
type Message struct {
	ID        string         `json:"id,omitempty"`
	Role      Role           `json:"role"`
	Content   []ContentBlock `json:"content"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"` // pending tool-call references
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UnmarshalJSON accepts content either as a bare string or as a block list.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string              `json:"id"`
		Role      Role                `json:"role"`
		Content   jsoniter.RawMessage `json:"content"`
		ToolCalls []ToolCall          `json:"tool_calls"`
		Metadata  map[string]any      `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message{ID: raw.ID, Role: raw.Role, ToolCalls: raw.ToolCalls, Metadata: raw.Metadata}

	content := strings.TrimSpace(string(raw.Content))
	switch {
	case content == "" || content == "null":
		return nil
	case strings.HasPrefix(content, `"`):
		var text string
		if err := json.Unmarshal(raw.Content, &text); err != nil {
			return fmt.Errorf("decode message content: %w", err)
		}
		m.Content = []ContentBlock{{Type: BlockText, Text: text}}
		return nil
	default:
		if err := json.Unmarshal(raw.Content, &m.Content); err != nil {
			return fmt.Errorf("decode message content: %w", err)
		}
		return nil
	}
}

// ToolCall is a request from the agent to run a local tool.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the outcome of executing one ToolCall.
type ToolResult struct {
	ToolCallID string
	Output     any
	Error      string
	Status     ToolStatus
	IsError    bool
}

// Block converts the result to a tool_result content block.
func (r ToolResult) Block() ContentBlock {
	return ContentBlock{
		Type:       BlockToolResult,
		ToolCallID: r.ToolCallID,
		Output:     r.Output,
		Error:      r.Error,
		Status:     r.Status,
		IsError:    r.IsError,
	}
}

// AsToolCall returns the tool call carried by a tool_call block.
func (b ContentBlock) AsToolCall() (ToolCall, bool) {
	if b.Type != BlockToolCall {
		return ToolCall{}, false
	}
	return ToolCall{ID: b.ID, Name: b.Name, Args: b.Args}, true
}

// UserText creates a user message with a single text block.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// SystemText creates a system message with a single text block.
func SystemText(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// AssistantText creates an assistant message with a single text block.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// ToolResultMessage wraps a tool result in a single-block tool message.
func ToolResultMessage(result ToolResult) Message {
	return Message{Role: RoleTool, Content: []ContentBlock{result.Block()}}
}

// Text returns the concatenated text blocks of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolCallBlocks returns the tool calls in block order.
func (m Message) ToolCallBlocks() []ToolCall {
	var calls []ToolCall
	for _, b := range m.Content {
		if call, ok := b.AsToolCall(); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// HasToolCalls reports whether any message carries a tool_call block.
func HasToolCalls(messages []Message) bool {
	for _, m := range messages {
		for _, b := range m.Content {
			if b.Type == BlockToolCall {
				return true
			}
		}
	}
	return false
}

// ExtractToolCalls collects every tool call in message order, then block order.
func ExtractToolCalls(messages []Message) []ToolCall {
	var calls []ToolCall
	for _, m := range messages {
		calls = append(calls, m.ToolCallBlocks()...)
	}
	return calls
}
