package tool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// pathPolicy confines filesystem-search paths to a set of allowed roots.
type pathPolicy struct {
	roots []string
}

// newPathPolicy resolves the configured roots; when none are configured the
// working directory is the only allowed root.
func newPathPolicy(roots []string) *pathPolicy {
	var resolved []string
	for _, r := range roots {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if abs, err := filepath.Abs(r); err == nil {
			resolved = append(resolved, abs)
		}
	}
	if len(resolved) == 0 {
		if cwd, err := os.Getwd(); err == nil {
			resolved = append(resolved, cwd)
		}
	}
	return &pathPolicy{roots: resolved}
}

// resolve validates an input path: it must not contain a null byte or start
// with a dash, must resolve to an existing directory, and must sit inside
// one of the allowed roots.
func (p *pathPolicy) resolve(input string) (string, error) {
	if strings.ContainsRune(input, 0) {
		return "", fmt.Errorf("search path contains invalid null byte")
	}
	if strings.HasPrefix(strings.TrimSpace(input), "-") {
		return "", fmt.Errorf("search path cannot start with a dash")
	}

	resolved, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("resolve search path %q: %w", input, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("search path %q does not exist", input)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("search path %q must be a directory", input)
	}

	for _, root := range p.roots {
		if resolved == root || strings.HasPrefix(resolved, root+string(filepath.Separator)) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("search path %q is outside allowed roots", input)
}
