package testutil

import (
	"context"
	"sync"

	"github.com/samsaffron/term-agent/internal/agent"
)

// MockTool is a configurable tool for testing.
type MockTool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Node        string
	ExecuteFn   func(ctx context.Context, args map[string]any) (any, error)

	mu          sync.Mutex
	invocations []MockToolInvocation
}

// MockToolInvocation records a single tool invocation.
type MockToolInvocation struct {
	Args   map[string]any
	Output any
	Error  error
}

// Descriptor returns the registration for an agent.Dispatcher.
func (m *MockTool) Descriptor() agent.ToolDescriptor {
	return agent.ToolDescriptor{
		Name:        m.Name,
		Description: m.Description,
		Parameters:  m.Parameters,
		Node:        m.Node,
		Handler:     m.Execute,
	}
}

// Execute runs ExecuteFn and records the call. Safe for concurrent use.
func (m *MockTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	var (
		out any
		err error
	)
	if m.ExecuteFn != nil {
		out, err = m.ExecuteFn(ctx, args)
	}
	m.mu.Lock()
	m.invocations = append(m.invocations, MockToolInvocation{Args: args, Output: out, Error: err})
	m.mu.Unlock()
	return out, err
}

// NewMockTool creates a mock tool with the given name that returns a fixed result.
func NewMockTool(name string, result any) *MockTool {
	return &MockTool{
		Name:        name,
		Description: "Mock tool: " + name,
		ExecuteFn: func(ctx context.Context, args map[string]any) (any, error) {
			return result, nil
		},
	}
}

// InvocationCount returns the number of times the tool was invoked.
func (m *MockTool) InvocationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invocations)
}

// LastArgs returns the arguments from the last invocation, or nil if never invoked.
func (m *MockTool) LastArgs() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.invocations) == 0 {
		return nil
	}
	return m.invocations[len(m.invocations)-1].Args
}
