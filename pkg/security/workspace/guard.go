// Package workspace confines model-controlled file paths to the workspace.
// Tool arguments come straight from the model, so any filename or relative
// path they carry must be resolved through the guard before touching disk.
package workspace

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Guard validates that paths stay under a single root directory.
type Guard struct {
	root string
}

// NewGuard creates a guard rooted at dir.
func NewGuard(dir string) (*Guard, error) {
	if dir == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace directory: %w", err)
	}
	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the guarded directory.
func (g *Guard) Root() string {
	return g.root
}

// Resolve joins a model-supplied relative path onto the root and verifies
// the result stays inside it. Absolute paths and traversal components are
// rejected.
func (g *Guard) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute path %q not allowed here", rel)
	}

	joined := filepath.Clean(filepath.Join(g.root, rel))
	if !g.contains(joined) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return joined, nil
}

// Contains reports whether an already-absolute path lies under the root.
func (g *Guard) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return g.contains(filepath.Clean(abs))
}

func (g *Guard) contains(abs string) bool {
	if abs == g.root {
		return true
	}
	return strings.HasPrefix(abs, g.root+string(filepath.Separator))
}
