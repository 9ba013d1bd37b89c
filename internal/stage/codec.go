package stage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a diagram serialisation format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name; "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported diagram format %q (want json or yaml)", s)
	}
}

// FormatForPath infers the format from a file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode serialises g in the given format.
func Encode(g Graph, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		// edge ids contain "->", which must survive unescaped
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(g); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported diagram format %q", format)
	}
}

// Decode parses a diagram and validates it against the stage invariants.
func Decode(data []byte, format Format) (Graph, error) {
	var g Graph
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &g); err != nil {
			return Graph{}, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &g); err != nil {
			return Graph{}, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return Graph{}, fmt.Errorf("unsupported diagram format %q", format)
	}

	if err := g.Validate(); err != nil {
		return Graph{}, err
	}
	return g, nil
}
