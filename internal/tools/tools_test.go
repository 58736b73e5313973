package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samsaffron/term-agent/internal/agent"
)

func newWorkspace(t *testing.T, dirs ...string) *Workspace {
	t.Helper()
	w, err := NewWorkspace(dirs)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func toolErrorType(t *testing.T, err error) ToolErrorType {
	t.Helper()
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected *ToolError, got %T: %v", err, err)
	}
	return te.Type
}

func TestReadFileTool_LineRange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "one\ntwo\nthree\nfour")

	tool := NewReadFileTool(newWorkspace(t, dir), DefaultOutputLimits())
	out, err := tool.Execute(context.Background(), map[string]any{"file_path": "notes.txt", "start_line": 2, "end_line": 3})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if out != "2: two\n3: three" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = tool.Execute(context.Background(), map[string]any{"file_path": filepath.Join(dir, "notes.txt")})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !strings.HasPrefix(out.(string), "1: one\n") || !strings.HasSuffix(out.(string), "4: four") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestReadFileTool_Truncates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "long.txt"), strings.Repeat("line\n", 10))

	tool := NewReadFileTool(newWorkspace(t, dir), OutputLimits{MaxLines: 3, MaxBytes: 1024})
	out, err := tool.Execute(context.Background(), map[string]any{"file_path": "long.txt"})
	if err != nil {
		t.Fatal(err)
	}
	s := out.(string)
	if !strings.Contains(s, "3: line") || strings.Contains(s, "4: line") {
		t.Fatalf("expected three lines, got %q", s)
	}
	if !strings.Contains(s, "[Output truncated. Total lines: 11.") {
		t.Fatalf("missing truncation note in %q", s)
	}
}

func TestReadFileTool_Errors(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(dir, "bin.dat"), "ab\x00cd")
	writeFile(t, filepath.Join(dir, "short.txt"), "x")
	writeFile(t, filepath.Join(outside, "secret.txt"), "secret")
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(newWorkspace(t, dir), DefaultOutputLimits())
	tests := []struct {
		name string
		args map[string]any
		want ToolErrorType
	}{
		{"missing path", map[string]any{}, ErrInvalidParams},
		{"wrong arg type", map[string]any{"file_path": 42}, ErrInvalidParams},
		{"not found", map[string]any{"file_path": "nope.txt"}, ErrFileNotFound},
		{"outside", map[string]any{"file_path": filepath.Join(outside, "secret.txt")}, ErrPathNotInWorkspace},
		{"dotdot", map[string]any{"file_path": "../secret.txt"}, ErrPathNotInWorkspace},
		{"symlink escape", map[string]any{"file_path": "link.txt"}, ErrSymlinkEscape},
		{"binary", map[string]any{"file_path": "bin.dat"}, ErrBinaryFile},
		{"start past end", map[string]any{"file_path": "short.txt", "start_line": 5}, ErrInvalidParams},
		{"directory", map[string]any{"file_path": "."}, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Execute(context.Background(), tt.args)
			if got := toolErrorType(t, err); got != tt.want {
				t.Fatalf("error type %s, want %s (%v)", got, tt.want, err)
			}
		})
	}
}

func TestReadFileTool_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "big.txt"), strings.Repeat("x", 2048))

	tool := NewReadFileTool(newWorkspace(t, dir), OutputLimits{MaxLines: 10, MaxBytes: 10, MaxFileBytes: 1024})
	_, err := tool.Execute(context.Background(), map[string]any{"file_path": "big.txt"})
	if got := toolErrorType(t, err); got != ErrFileTooLarge {
		t.Fatalf("error type %s, want %s", got, ErrFileTooLarge)
	}
}

func TestGlobTool_MatchesRecursively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main")
	writeFile(t, filepath.Join(dir, "pkg", "util.go"), "package pkg")
	writeFile(t, filepath.Join(dir, "pkg", "README.md"), "docs")
	writeFile(t, filepath.Join(dir, ".hidden", "secret.go"), "package hidden")

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "main.go"), old, old); err != nil {
		t.Fatal(err)
	}

	tool := NewGlobTool(newWorkspace(t, dir))
	out, err := tool.Execute(context.Background(), map[string]any{"pattern": "**/*.go"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	s := out.(string)
	lines := strings.Split(s, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 matches, got %q", s)
	}
	if !strings.HasSuffix(lines[0], filepath.Join(dir, "pkg", "util.go")) {
		t.Fatalf("newest file should come first, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[f]") || !strings.HasSuffix(lines[1], filepath.Join(dir, "main.go")) {
		t.Fatalf("unexpected second line %q", lines[1])
	}
	if strings.Contains(s, "secret.go") {
		t.Fatalf("hidden directories should be skipped: %q", s)
	}

	out, err = tool.Execute(context.Background(), map[string]any{"pattern": "*.rs"})
	if err != nil || out != "No files matched the pattern." {
		t.Fatalf("unexpected result %v, %v", out, err)
	}
}

func TestGlobTool_Errors(t *testing.T) {
	dir := t.TempDir()
	tool := NewGlobTool(newWorkspace(t, dir))

	_, err := tool.Execute(context.Background(), map[string]any{})
	if got := toolErrorType(t, err); got != ErrInvalidParams {
		t.Fatalf("got %s", got)
	}
	_, err = tool.Execute(context.Background(), map[string]any{"pattern": "[", "path": "."})
	if got := toolErrorType(t, err); got != ErrInvalidParams {
		t.Fatalf("got %s", got)
	}
	_, err = tool.Execute(context.Background(), map[string]any{"pattern": "*", "path": "/"})
	if got := toolErrorType(t, err); got != ErrPathNotInWorkspace {
		t.Fatalf("got %s", got)
	}
}

func TestCurrentTimeTool(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	tool := &CurrentTimeTool{now: func() time.Time { return fixed }}

	out, err := tool.Execute(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	m := out.(map[string]any)
	if m["time"] != "2026-03-14T15:09:26Z" || m["weekday"] != "Saturday" || m["unix"] != fixed.Unix() {
		t.Fatalf("unexpected output %+v", m)
	}

	out, err = tool.Execute(context.Background(), map[string]any{"timezone": "Asia/Tokyo"})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.(map[string]any)["time"]; got != "2026-03-15T00:09:26+09:00" {
		t.Fatalf("unexpected tokyo time %v", got)
	}

	_, err = tool.Execute(context.Background(), map[string]any{"timezone": "Mars/Olympus"})
	if got := toolErrorType(t, err); got != ErrInvalidParams {
		t.Fatalf("got %s", got)
	}
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema[ReadFileArgs]()
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %+v", schema)
	}
	if schema["additionalProperties"] != false {
		t.Fatalf("additional properties should be disallowed: %+v", schema)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("missing properties: %+v", schema)
	}
	fp, ok := props["file_path"].(map[string]any)
	if !ok || fp["type"] != "string" || fp["description"] == "" {
		t.Fatalf("unexpected file_path schema %+v", props["file_path"])
	}
	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "file_path" {
		t.Fatalf("expected file_path required, got %+v", schema["required"])
	}
}

func TestBuiltinsFilter(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		enabled []string
		want    []string
	}{
		{[]string{"*"}, []string{ReadFileToolName, GlobToolName, CurrentTimeToolName}},
		{[]string{"read_*", "current_time"}, []string{ReadFileToolName, CurrentTimeToolName}},
		{[]string{"{glob,read}_*"}, []string{ReadFileToolName, GlobToolName}},
		{nil, nil},
	}
	for _, tt := range tests {
		descs := Builtins(ToolConfig{Enabled: tt.enabled, ReadDirs: []string{dir}})
		var got []string
		for _, d := range descs {
			if d.Node != LocalNode || d.Handler == nil {
				t.Fatalf("descriptor %q not wired", d.Name)
			}
			got = append(got, d.Name)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("enabled %v: got %v, want %v", tt.enabled, got, tt.want)
		}
	}
}

func TestRegisterBuiltinsDispatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	d := agent.NewDispatcher(nil)
	names := RegisterBuiltins(d, ToolConfig{Enabled: []string{"*"}, ReadDirs: []string{dir}})
	if len(names) != 3 {
		t.Fatalf("expected 3 tools, got %v", names)
	}
	if specs := d.Registry().ForNode(LocalNode); len(specs) != 3 {
		t.Fatalf("expected 3 local specs, got %d", len(specs))
	}

	msg := agent.Message{Role: agent.RoleAssistant, Content: []agent.ContentBlock{
		{Type: agent.BlockToolCall, ID: "c1", Name: ReadFileToolName, Args: map[string]any{"file_path": "a.txt"}},
		{Type: agent.BlockToolCall, ID: "c2", Name: ReadFileToolName, Args: map[string]any{"file_path": "../x"}},
	}}
	results := d.ExecuteBatch(context.Background(), []agent.Message{msg})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	ok := results[0].Content[0]
	if ok.Status != agent.StatusCompleted || ok.Output != "1: hello" {
		t.Fatalf("unexpected result %+v", ok)
	}
	failed := results[1].Content[0]
	if failed.Status != agent.StatusFailed || !strings.Contains(failed.Error, string(ErrPathNotInWorkspace)) {
		t.Fatalf("unexpected result %+v", failed)
	}
}

func TestParseToolsFlag(t *testing.T) {
	tests := map[string][]string{
		"":                   nil,
		"all":                {"*"},
		"none":               {},
		" read_file , glob ": {"read_file", "glob"},
	}
	for in, want := range tests {
		got := ParseToolsFlag(in)
		if strings.Join(got, ",") != strings.Join(want, ",") || (got == nil) != (want == nil) {
			t.Errorf("ParseToolsFlag(%q) = %#v, want %#v", in, got, want)
		}
	}
}
