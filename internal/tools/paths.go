package tools

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Workspace restricts file access to a set of directories.
type Workspace struct {
	dirs []string // absolute, symlinks resolved
}

// NewWorkspace resolves dirs to absolute paths. Directories that cannot be
// resolved are skipped with an error returned alongside the usable workspace.
func NewWorkspace(dirs []string) (*Workspace, error) {
	w := &Workspace{}
	var errs []error
	for _, dir := range dirs {
		abs, err := canonical(expandHome(dir))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		w.dirs = append(w.dirs, abs)
	}
	return w, errors.Join(errs...)
}

// Dirs returns the resolved directories.
func (w *Workspace) Dirs() []string {
	return append([]string(nil), w.dirs...)
}

// Resolve returns the absolute form of path if it lies inside the
// workspace. Relative paths are taken relative to the first directory.
func (w *Workspace) Resolve(path string) (string, error) {
	if len(w.dirs) == 0 {
		return "", NewToolError(ErrPathNotInWorkspace, "no readable directories configured")
	}
	path = expandHome(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.dirs[0], path)
	}
	abs := filepath.Clean(path)
	if !w.contains(abs) {
		return "", NewToolErrorf(ErrPathNotInWorkspace, "%s is outside the readable directories", path)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewToolError(ErrFileNotFound, path)
		}
		return "", NewToolErrorf(ErrExecutionFailed, "resolve %s: %v", path, err)
	}
	if !w.contains(resolved) {
		return "", NewToolErrorf(ErrSymlinkEscape, "%s resolves to %s outside the readable directories", path, resolved)
	}
	return abs, nil
}

func (w *Workspace) contains(abs string) bool {
	for _, dir := range w.dirs {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func canonical(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
