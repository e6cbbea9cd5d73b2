// Package security guards filesystem paths built from user input, such as
// map area names that become export directories.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory rejects paths that escape the given base
// directory. Area names and tile file names feed into artifact paths, so
// anything resolving outside the base (via .. segments or absolute paths)
// fails before a single byte is written.
func ValidatePathWithinDirectory(path, baseDir string) error {
	absBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return fmt.Errorf("path %q is not relative to %q: %w", path, baseDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q escapes directory %q", path, baseDir)
	}
	return nil
}

// ValidateName rejects names that cannot safely become a single path
// component.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if name != filepath.Base(name) || name == ".." || name == "." {
		return fmt.Errorf("name %q must be a plain file name", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name %q must not contain path separators", name)
	}
	return nil
}
