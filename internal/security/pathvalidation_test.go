package security

import (
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	t.Parallel()

	valid := []string{
		filepath.Join("maps", "tyrol"),
		filepath.Join("maps", "tyrol", "heights.bin"),
		"maps",
	}
	for _, p := range valid {
		if err := ValidatePathWithinDirectory(p, "maps"); err != nil {
			t.Errorf("ValidatePathWithinDirectory(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{
		filepath.Join("maps", "..", "etc", "passwd"),
		filepath.Join("..", "outside"),
		"/etc/passwd",
		"elsewhere",
	}
	for _, p := range invalid {
		if err := ValidatePathWithinDirectory(p, "maps"); err == nil {
			t.Errorf("ValidatePathWithinDirectory(%q) = nil, want error", p)
		}
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"tyrol", "area-1", "N51E007.hgt"} {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}

	for _, name := range []string{"", "..", ".", "a/b", `a\b`, "../evil"} {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", name)
		}
	}
}
