package agent

import (
	"context"
	"sort"
	"sync"
)

// ToolHandler executes a tool with the arguments the agent supplied.
// The returned value must be JSON-serializable.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// ToolDescriptor bundles a callable tool with the metadata advertised to the agent.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema for Args; nil means an empty object schema
	Node        string         // optional owning node tag
	Handler     ToolHandler
}

// ToolSpec is the wire form of a tool descriptor.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Node        string         `json:"node,omitempty"`
}

// Spec returns the wire form, filling in defaults for missing fields.
func (d ToolDescriptor) Spec() ToolSpec {
	desc := d.Description
	if desc == "" {
		desc = "Execute " + d.Name
	}
	params := d.Parameters
	if params == nil {
		params = emptyObjectSchema()
	}
	return ToolSpec{Name: d.Name, Description: desc, Parameters: params, Node: d.Node}
}

func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// ToolRegistry stores tool descriptors by name and by owning node.
//
// A registry is shared by reference between a Dispatcher and the Engine that
// drives it. Runs do not snapshot it: every lookup sees the registry as it is
// at that moment, so a tool registered while a run is in flight is visible to
// that run's next batch. The mutex keeps the maps consistent but does not make
// a run's view of the tool set stable.
type ToolRegistry struct {
	mu     sync.RWMutex
	tools  map[string]ToolDescriptor
	byNode map[string]map[string]struct{}
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:  make(map[string]ToolDescriptor),
		byNode: make(map[string]map[string]struct{}),
	}
}

// Register stores a descriptor. An existing descriptor with the same name is
// replaced, including its node index entry.
func (r *ToolRegistry) Register(desc ToolDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.tools[desc.Name]; ok && prev.Node != "" && prev.Node != desc.Node {
		delete(r.byNode[prev.Node], desc.Name)
		if len(r.byNode[prev.Node]) == 0 {
			delete(r.byNode, prev.Node)
		}
	}
	r.tools[desc.Name] = desc
	if desc.Node != "" {
		names, ok := r.byNode[desc.Node]
		if !ok {
			names = make(map[string]struct{})
			r.byNode[desc.Node] = names
		}
		names[desc.Name] = struct{}{}
	}
}

// Get returns the descriptor registered under name.
func (r *ToolRegistry) Get(name string) (ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.tools[name]
	return desc, ok
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Descriptors returns wire specs for all registered tools, sorted by name.
func (r *ToolRegistry) Descriptors() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(r.tools))
	for _, desc := range r.tools {
		specs = append(specs, desc.Spec())
	}
	sortSpecs(specs)
	return specs
}

// ForNode returns wire specs for the tools owned by node. An unknown node
// yields an empty, non-nil slice.
func (r *ToolRegistry) ForNode(node string) []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.byNode[node]
	specs := make([]ToolSpec, 0, len(names))
	for name := range names {
		specs = append(specs, r.tools[name].Spec())
	}
	sortSpecs(specs)
	return specs
}

// Nodes returns the node tags that own at least one tool.
func (r *ToolRegistry) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]string, 0, len(r.byNode))
	for node := range r.byNode {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

func sortSpecs(specs []ToolSpec) {
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	})
}
