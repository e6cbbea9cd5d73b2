package maparea

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Limits bounds map area creation. Fields are pointers so a partial JSON
// file only overrides what it names; the Get* accessors supply defaults.
type Limits struct {
	// MaxSegments caps the square edge length in engine segments. This
	// bound exists to keep the whole mosaic and projected grid resident
	// in memory during an export.
	MaxSegments *int `json:"max_segments,omitempty"`

	// FetchWorkers caps concurrent tile/page requests in the network
	// source adapters.
	FetchWorkers *int `json:"fetch_workers,omitempty"`

	// RetryAttempts caps rate-limit retries in the provider-API adapter.
	RetryAttempts *int `json:"retry_attempts,omitempty"`
}

// DefaultLimits returns limits with no overrides set.
func DefaultLimits() *Limits {
	return &Limits{}
}

// LoadLimits reads a Limits JSON file. Omitted fields keep their
// defaults, so partial files are safe.
func LoadLimits(path string) (*Limits, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("limits file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read limits file: %w", err)
	}

	l := DefaultLimits()
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("failed to parse limits JSON: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limits: %w", err)
	}
	return l, nil
}

// Validate checks that explicit overrides are usable.
func (l *Limits) Validate() error {
	if l.MaxSegments != nil {
		if *l.MaxSegments < MinSegments || *l.MaxSegments > MaxSegments {
			return fmt.Errorf("max_segments must be between %d and %d, got %d", MinSegments, MaxSegments, *l.MaxSegments)
		}
	}
	if l.FetchWorkers != nil && *l.FetchWorkers < 1 {
		return fmt.Errorf("fetch_workers must be at least 1, got %d", *l.FetchWorkers)
	}
	if l.RetryAttempts != nil && *l.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be non-negative, got %d", *l.RetryAttempts)
	}
	return nil
}

// GetMaxSegments returns the max_segments value or the default.
func (l *Limits) GetMaxSegments() int {
	if l.MaxSegments == nil {
		return MaxSegments
	}
	return *l.MaxSegments
}

// GetFetchWorkers returns the fetch_workers value or the default.
func (l *Limits) GetFetchWorkers() int {
	if l.FetchWorkers == nil {
		return 8
	}
	return *l.FetchWorkers
}

// GetRetryAttempts returns the retry_attempts value or the default.
func (l *Limits) GetRetryAttempts() int {
	if l.RetryAttempts == nil {
		return 3
	}
	return *l.RetryAttempts
}
