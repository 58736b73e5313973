package tools

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gobwas/glob"
)

// ToolConfig holds configuration for the built-in tool set.
type ToolConfig struct {
	Enabled  []string `mapstructure:"enabled"`   // Tool name patterns, e.g. "read_*" or "*"
	ReadDirs []string `mapstructure:"read_dirs"` // Directories read_file and glob_files may touch
	Limits   OutputLimits
}

// DefaultToolConfig returns the configuration used when nothing is set.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		Enabled:  []string{"*"},
		ReadDirs: []string{"."},
		Limits:   DefaultOutputLimits(),
	}
}

// Validate checks the configuration for errors.
func (c *ToolConfig) Validate() []error {
	var errs []error

	for _, pattern := range c.Enabled {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("invalid tool pattern %q: %w", pattern, err))
		}
	}

	// Warn for nonexistent directories (may be mounted later)
	for _, dir := range c.ReadDirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			slog.Warn("read_dir does not exist", "dir", dir)
		}
	}

	return errs
}

// ParseToolsFlag parses a comma-separated list of tool name patterns.
// "all" is an alias for "*"; "none" disables every tool.
func ParseToolsFlag(value string) []string {
	trimmed := strings.TrimSpace(value)
	switch trimmed {
	case "":
		return nil
	case "all", "*":
		return []string{"*"}
	case "none":
		return []string{}
	}
	parts := strings.Split(value, ",")
	var patterns []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// MatchesAny reports whether name matches one of the glob patterns.
// Invalid patterns never match.
func MatchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			continue
		}
		if g.Match(name) {
			return true
		}
	}
	return false
}
