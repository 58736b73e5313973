package runlog

import (
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/samsaffron/term-agent/internal/agent"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RunStatus represents the current state of a run.
type RunStatus string

const (
	StatusActive   RunStatus = "active"   // Run is in progress
	StatusComplete RunStatus = "complete" // Agent answered without further tool calls
	StatusLimit    RunStatus = "limit"    // Recursion limit reached
	StatusError    RunStatus = "error"    // Run aborted with an error
)

// RunMode records which endpoint drove the run.
type RunMode string

const (
	ModeInvoke RunMode = "invoke"
	ModeStream RunMode = "stream"
)

// Run is one Invoke or Stream call stored in the database.
type Run struct {
	ID           string    `json:"id"`
	Agent        string    `json:"agent"`
	ThreadID     string    `json:"thread_id,omitempty"`
	Mode         RunMode   `json:"mode"`
	Status       RunStatus `json:"status"`
	Prompt       string    `json:"prompt,omitempty"` // first user message, for listing
	Iterations   int       `json:"iterations"`
	ToolCalls    int       `json:"tool_calls"`
	LimitReached bool      `json:"limit_reached,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is one history entry of a run. Content keeps the full block list
// so tool calls and results survive exactly.
type Message struct {
	ID          int64                `json:"id"`
	RunID       string               `json:"run_id"`
	Sequence    int                  `json:"sequence"`
	Iteration   int                  `json:"iteration"`
	Role        agent.Role           `json:"role"`
	Content     []agent.ContentBlock `json:"content"`
	TextContent string               `json:"text_content"`
	CreatedAt   time.Time            `json:"created_at"`
}

// NewMessage converts an agent message for storage.
func NewMessage(runID string, iteration int, m agent.Message) *Message {
	return &Message{
		RunID:       runID,
		Sequence:    -1,
		Iteration:   iteration,
		Role:        m.Role,
		Content:     m.Content,
		TextContent: m.Text(),
	}
}

// AgentMessage converts back to an agent message.
func (m *Message) AgentMessage() agent.Message {
	return agent.Message{Role: m.Role, Content: m.Content}
}

// ContentJSON serializes the block list for storage.
func (m *Message) ContentJSON() (string, error) {
	content := m.Content
	if content == nil {
		content = []agent.ContentBlock{}
	}
	data, err := json.Marshal(content)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ListOptions filters List results.
type ListOptions struct {
	Agent  string
	Status RunStatus
	Limit  int
	Offset int
}

// NewID returns a new run identifier.
func NewID() string {
	return uuid.NewString()
}

// ShortID returns the first 8 characters of a run ID for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
