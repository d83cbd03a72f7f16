// Package workspace confines every file and subprocess operation to a single
// root directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideWorkspace is returned when a path resolves outside the root
var ErrOutsideWorkspace = errors.New("outside the permitted working directory")

// PathError records the model-supplied path that was rejected
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("cannot access %q: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Workspace is an immutable, absolute working directory
type Workspace struct {
	root string
}

// New validates root and returns a workspace anchored at its absolute,
// symlink-free form.
func New(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat working directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working directory %q is not a directory", root)
	}
	return &Workspace{root: resolved}, nil
}

// Root returns the absolute workspace root
func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps path to an absolute location inside the root. An empty path
// names the root. The containment check is lexical and happens before the
// filesystem is touched; existing symlinks are then followed and must also
// stay inside the root.
func (w *Workspace) Resolve(path string) (string, error) {
	candidate := strings.TrimSpace(path)
	if candidate == "" {
		candidate = "."
	}
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(w.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !w.contains(candidate) {
		return "", &PathError{Path: path, Err: ErrOutsideWorkspace}
	}

	resolved, err := evalExisting(candidate)
	if err != nil {
		return "", &PathError{Path: path, Err: err}
	}
	if !w.contains(resolved) {
		return "", &PathError{Path: path, Err: fmt.Errorf("symlink %w", ErrOutsideWorkspace)}
	}
	return candidate, nil
}

// Rel returns abs relative to the root, for display
func (w *Workspace) Rel(abs string) string {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return abs
	}
	return rel
}

func (w *Workspace) contains(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// evalExisting resolves symlinks in the deepest existing ancestor of path
// and re-attaches the non-existent tail.
func evalExisting(path string) (string, error) {
	current := path
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path, nil
		}
		tail = append(tail, filepath.Base(current))
		current = parent
	}
}
