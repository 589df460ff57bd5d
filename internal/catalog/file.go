package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NewFile reads a YAML or JSON catalog file and returns it as a static source.
func NewFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}

	return NewStatic(*doc), nil
}

// Parse decodes a catalog document. JSON input is accepted as a subset of YAML.
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("catalog is empty")
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}
