// Package tools provides the built-in local tools term-agent offers to remote agents.
package tools

import (
	"fmt"
)

// LocalNode is the node tag carried by every built-in tool.
const LocalNode = "local"

// Tool names
const (
	ReadFileToolName    = "read_file"
	GlobToolName        = "glob_files"
	CurrentTimeToolName = "current_time"
)

// AllToolNames returns the names of all built-in tools.
func AllToolNames() []string {
	return []string{
		ReadFileToolName,
		GlobToolName,
		CurrentTimeToolName,
	}
}

// ToolErrorType provides structured errors the agent can act on.
type ToolErrorType string

const (
	ErrFileNotFound       ToolErrorType = "FILE_NOT_FOUND"
	ErrInvalidParams      ToolErrorType = "INVALID_PARAMS"
	ErrPathNotInWorkspace ToolErrorType = "PATH_NOT_IN_WORKSPACE"
	ErrExecutionFailed    ToolErrorType = "EXECUTION_FAILED"
	ErrBinaryFile         ToolErrorType = "BINARY_FILE"
	ErrFileTooLarge       ToolErrorType = "FILE_TOO_LARGE"
	ErrSymlinkEscape      ToolErrorType = "SYMLINK_ESCAPE"
)

// ToolError is returned by tool handlers; the dispatcher turns it into a
// failed result whose error text starts with the type.
type ToolError struct {
	Type    ToolErrorType `json:"type"`
	Message string        `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewToolError creates a new ToolError.
func NewToolError(errType ToolErrorType, message string) *ToolError {
	return &ToolError{Type: errType, Message: message}
}

// NewToolErrorf creates a new ToolError with formatted message.
func NewToolErrorf(errType ToolErrorType, format string, args ...any) *ToolError {
	return &ToolError{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// OutputLimits caps what a tool returns to the agent.
type OutputLimits struct {
	MaxLines     int
	MaxBytes     int64
	MaxFileBytes int64
}

// DefaultOutputLimits returns the limits used by Builtins.
func DefaultOutputLimits() OutputLimits {
	return OutputLimits{
		MaxLines:     2000,
		MaxBytes:     50 * 1024,
		MaxFileBytes: 10 * 1024 * 1024,
	}
}
