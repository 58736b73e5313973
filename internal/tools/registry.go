package tools

import (
	"log/slog"

	"github.com/samsaffron/term-agent/internal/agent"
)

// Builtins returns descriptors for the built-in tools whose names match
// cfg.Enabled. Unresolvable read directories are logged and skipped.
func Builtins(cfg ToolConfig) []agent.ToolDescriptor {
	if len(cfg.Enabled) == 0 {
		return nil
	}
	if cfg.Limits == (OutputLimits{}) {
		cfg.Limits = DefaultOutputLimits()
	}

	workspace, err := NewWorkspace(cfg.ReadDirs)
	if err != nil {
		slog.Warn("failed to add read dir", "error", err)
	}

	all := []agent.ToolDescriptor{
		NewReadFileTool(workspace, cfg.Limits).Descriptor(),
		NewGlobTool(workspace).Descriptor(),
		NewCurrentTimeTool().Descriptor(),
	}
	return Filter(all, cfg.Enabled)
}

// Filter keeps the descriptors whose names match one of patterns.
func Filter(descs []agent.ToolDescriptor, patterns []string) []agent.ToolDescriptor {
	var out []agent.ToolDescriptor
	for _, d := range descs {
		if MatchesAny(d.Name, patterns) {
			out = append(out, d)
		}
	}
	return out
}

// RegisterBuiltins registers the enabled built-in tools with d and returns
// their names.
func RegisterBuiltins(d *agent.Dispatcher, cfg ToolConfig) []string {
	var names []string
	for _, desc := range Builtins(cfg) {
		d.Register(desc)
		names = append(names, desc.Name)
	}
	return names
}
