package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	CategoryInProgress = "in_progress"
	CategoryFinal      = "final"
)

// StatusLabel is the citizen-facing presentation of one internal status.
type StatusLabel struct {
	Label    string `yaml:"label"`
	Category string `yaml:"category"`
}

// StatusCatalog maps internal status values to locale-specific labels and a
// semantic category. It is static, read-only configuration injected into the
// engine so the engine stays free of presentation concerns.
type StatusCatalog struct {
	entries map[string]StatusLabel
}

type statusCatalogFile struct {
	Statuses map[string]StatusLabel `yaml:"statuses"`
}

// LoadStatusCatalog parses the YAML catalog at path.
func LoadStatusCatalog(path string) (*StatusCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read status catalog: %w", err)
	}
	return ParseStatusCatalog(raw)
}

// ParseStatusCatalog builds a catalog from raw YAML.
func ParseStatusCatalog(raw []byte) (*StatusCatalog, error) {
	var file statusCatalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse status catalog: %w", err)
	}

	if len(file.Statuses) == 0 {
		return nil, fmt.Errorf("status catalog is empty")
	}

	for status, entry := range file.Statuses {
		if entry.Label == "" {
			return nil, fmt.Errorf("status %q has no label", status)
		}
		if entry.Category != CategoryInProgress && entry.Category != CategoryFinal {
			return nil, fmt.Errorf("status %q has unknown category %q", status, entry.Category)
		}
	}

	return &StatusCatalog{entries: file.Statuses}, nil
}

// Label returns the citizen-facing label for status, falling back to the raw
// status value when the catalog has no entry.
func (c *StatusCatalog) Label(status string) string {
	if entry, ok := c.entries[status]; ok {
		return entry.Label
	}
	return status
}

// Category returns in_progress or final for status.
func (c *StatusCatalog) Category(status string) string {
	if entry, ok := c.entries[status]; ok {
		return entry.Category
	}
	return CategoryInProgress
}
