package tools

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/samsaffron/term-agent/internal/agent"
)

// ReadFileArgs are the arguments for read_file.
type ReadFileArgs struct {
	FilePath  string `json:"file_path" jsonschema_description:"Absolute path, or a path relative to the first readable directory"`
	StartLine int    `json:"start_line,omitempty" jsonschema_description:"1-indexed start line (default: 1)"`
	EndLine   int    `json:"end_line,omitempty" jsonschema_description:"1-indexed end line (default: EOF)"`
}

var readFileSchema = GenerateSchema[ReadFileArgs]()

// ReadFileTool implements the read_file tool.
type ReadFileTool struct {
	workspace *Workspace
	limits    OutputLimits
}

// NewReadFileTool creates a new ReadFileTool.
func NewReadFileTool(workspace *Workspace, limits OutputLimits) *ReadFileTool {
	return &ReadFileTool{workspace: workspace, limits: limits}
}

// Descriptor returns the registration for the dispatcher.
func (t *ReadFileTool) Descriptor() agent.ToolDescriptor {
	return agent.ToolDescriptor{
		Name:        ReadFileToolName,
		Description: "Read file contents. Returns line-numbered output. Use start_line/end_line for pagination.",
		Parameters:  readFileSchema,
		Node:        LocalNode,
		Handler:     t.Execute,
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	a, err := decodeArgs[ReadFileArgs](args)
	if err != nil {
		return nil, err
	}
	if a.FilePath == "" {
		return nil, NewToolError(ErrInvalidParams, "file_path is required")
	}

	path, err := t.workspace.Resolve(a.FilePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewToolError(ErrFileNotFound, a.FilePath)
		}
		return nil, NewToolErrorf(ErrExecutionFailed, "stat error: %v", err)
	}
	if info.IsDir() {
		return nil, NewToolErrorf(ErrInvalidParams, "%s is a directory", a.FilePath)
	}
	if t.limits.MaxFileBytes > 0 && info.Size() > t.limits.MaxFileBytes {
		return nil, NewToolErrorf(ErrFileTooLarge, "%s is %s, limit is %s",
			a.FilePath, strings.TrimSpace(formatSize(info.Size())), strings.TrimSpace(formatSize(t.limits.MaxFileBytes)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewToolErrorf(ErrExecutionFailed, "read error: %v", err)
	}
	if isBinaryContent(data) {
		return nil, NewToolErrorf(ErrBinaryFile, "%s appears to be a binary file", a.FilePath)
	}

	lines := strings.Split(string(data), "\n")
	totalLines := len(lines)

	start := 0
	if a.StartLine > 0 {
		start = a.StartLine - 1
	}
	if start >= totalLines {
		return nil, NewToolErrorf(ErrInvalidParams, "start_line %d exceeds file length %d", a.StartLine, totalLines)
	}

	end := totalLines
	if a.EndLine > 0 && a.EndLine < totalLines {
		end = a.EndLine
	}
	if start >= end {
		return "No content in requested range.", nil
	}

	selected := lines[start:end]
	truncated := false
	if t.limits.MaxLines > 0 && len(selected) > t.limits.MaxLines {
		selected = selected[:t.limits.MaxLines]
		truncated = true
	}

	var sb strings.Builder
	for i, line := range selected {
		fmt.Fprintf(&sb, "%d: %s\n", start+i+1, line)
	}
	output := strings.TrimSuffix(sb.String(), "\n")

	if t.limits.MaxBytes > 0 && int64(len(output)) > t.limits.MaxBytes {
		output = output[:t.limits.MaxBytes]
		truncated = true
	}
	if truncated {
		output += fmt.Sprintf("\n\n[Output truncated. Total lines: %d. Use start_line/end_line for pagination.]", totalLines)
	}
	return output, nil
}

// isBinaryContent detects if content is binary using http.DetectContentType.
func isBinaryContent(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}

	contentType := http.DetectContentType(sample)
	if strings.HasPrefix(contentType, "text/") {
		return false
	}
	if strings.Contains(contentType, "json") || strings.Contains(contentType, "xml") {
		return false
	}

	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return false
}
