// Package workspace confines file output to a root directory. Artifact
// writers use it so that run IDs taken from task files cannot place files
// outside the configured artifacts directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard enforces that resolved paths stay under root.
type Guard struct {
	root string // absolute, symlink-free
}

// NewGuard creates a guard for root, creating the directory if needed.
func NewGuard(root string) (*Guard, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory cannot be empty")
	}

	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}

	// /var -> /private/var on macOS
	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate root directory symlinks: %w", err)
	}

	return &Guard{root: evalPath}, nil
}

// Root returns the absolute root directory.
func (g *Guard) Root() string {
	return g.root
}

// ValidatePath returns an error when path resolves outside the root.
func (g *Guard) ValidatePath(path string) error {
	resolved, err := g.ResolvePath(path)
	if err != nil {
		return err
	}
	if !g.IsWithin(resolved) {
		return fmt.Errorf("path '%s' is outside %s", path, g.root)
	}
	return nil
}

// ResolvePath makes path absolute relative to the root and resolves
// symlinks of the longest existing prefix. The path itself need not exist.
func (g *Guard) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		cleanPath = filepath.Join(g.root, cleanPath)
	}
	return resolveSymlinks(cleanPath), nil
}

// IsWithin reports whether absPath is the root or below it.
func (g *Guard) IsWithin(absPath string) bool {
	evalPath := resolveSymlinks(absPath)
	sep := string(filepath.Separator)
	return evalPath == g.root || strings.HasPrefix(evalPath+sep, g.root+sep)
}

// Join returns root/name for a single path element such as a run ID.
// Names containing separators or dot segments are rejected.
func (g *Guard) Join(name string) (string, error) {
	switch {
	case name == "":
		return "", fmt.Errorf("name cannot be empty")
	case name == "." || name == "..":
		return "", fmt.Errorf("invalid name %q", name)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("name %q must not contain path separators", name)
	}

	path := filepath.Join(g.root, name)
	if err := g.ValidatePath(path); err != nil {
		return "", err
	}
	return path, nil
}

// MakeRelative converts an absolute path below the root to a relative one.
func (g *Guard) MakeRelative(absPath string) (string, error) {
	if !g.IsWithin(absPath) {
		return "", fmt.Errorf("path '%s' is not within %s", absPath, g.root)
	}

	relPath, err := filepath.Rel(g.root, resolveSymlinks(absPath))
	if err != nil {
		return "", fmt.Errorf("failed to make path relative: %w", err)
	}
	return relPath, nil
}

// resolveSymlinks evaluates symlinks in the longest existing prefix of path
// and re-appends the missing components.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	var components []string
	current := path
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(components) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, components[i])
			}
			return resolved
		}

		dir := filepath.Dir(current)
		if dir == current || dir == "." {
			return path
		}
		components = append(components, filepath.Base(current))
		current = dir
	}
}
