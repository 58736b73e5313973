package tools

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samsaffron/term-agent/internal/agent"
)

// GlobArgs are the arguments for glob_files.
type GlobArgs struct {
	Pattern string `json:"pattern" jsonschema_description:"Glob pattern supporting ** for recursive matching, e.g. '**/*.go'"`
	Path    string `json:"path,omitempty" jsonschema_description:"Base directory for the search (defaults to the first readable directory)"`
}

var globSchema = GenerateSchema[GlobArgs]()

// FileEntry represents a file in glob results.
type FileEntry struct {
	FilePath  string    `json:"file_path"`
	IsDir     bool      `json:"is_dir"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

const (
	maxGlobResults = 200
	globTimeout    = time.Minute
)

// GlobTool implements the glob_files tool.
type GlobTool struct {
	workspace *Workspace
}

// NewGlobTool creates a new GlobTool.
func NewGlobTool(workspace *Workspace) *GlobTool {
	return &GlobTool{workspace: workspace}
}

// Descriptor returns the registration for the dispatcher.
func (t *GlobTool) Descriptor() agent.ToolDescriptor {
	return agent.ToolDescriptor{
		Name:        GlobToolName,
		Description: "Find files by glob pattern (supports ** for recursive matching). Returns file metadata sorted by modification time.",
		Parameters:  globSchema,
		Node:        LocalNode,
		Handler:     t.Execute,
	}
}

func (t *GlobTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, globTimeout)
	defer cancel()

	a, err := decodeArgs[GlobArgs](args)
	if err != nil {
		return nil, err
	}
	if a.Pattern == "" {
		return nil, NewToolError(ErrInvalidParams, "pattern is required")
	}
	if !doublestar.ValidatePattern(a.Pattern) {
		return nil, NewToolErrorf(ErrInvalidParams, "invalid pattern %q", a.Pattern)
	}

	base := a.Path
	if base == "" {
		base = "."
	}
	root, err := t.workspace.Resolve(base)
	if err != nil {
		return nil, err
	}

	var entries []FileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if matched, _ := doublestar.Match(a.Pattern, filepath.ToSlash(rel)); !matched {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, FileEntry{
			FilePath:  path,
			IsDir:     d.IsDir(),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
		if len(entries) >= maxGlobResults {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, NewToolErrorf(ErrExecutionFailed, "walk error: %v", err)
	}

	if len(entries) == 0 {
		return "No files matched the pattern.", nil
	}

	// Newest first
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return formatGlobResults(entries, len(entries) >= maxGlobResults), nil
}

func formatGlobResults(entries []FileEntry, truncated bool) string {
	var sb strings.Builder
	for _, e := range entries {
		kind := "f"
		if e.IsDir {
			kind = "d"
		}
		fmt.Fprintf(&sb, "[%s] %s  %s  %s\n", kind, formatSize(e.SizeBytes), e.ModTime.Format("2006-01-02 15:04"), e.FilePath)
	}
	if truncated {
		fmt.Fprintf(&sb, "\n[Results truncated at %d files]", maxGlobResults)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// formatSize formats a byte count as human-readable.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%4dB", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%4.0f%c", float64(bytes)/float64(div), "KMGTPE"[exp])
}
