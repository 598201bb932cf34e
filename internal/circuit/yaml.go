package circuit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML circuit document. Unknown fields are rejected so
// typos like "qubit:" fail loudly.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fieldError("document", "empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// EncodeYAML renders doc as YAML with two-space indentation.
func EncodeYAML(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode circuit %s: %w", doc.Name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode circuit %s: %w", doc.Name, err)
	}
	return buf.Bytes(), nil
}

// Load reads a circuit document, choosing the syntax by file extension:
// .cue is CUE, .yaml and .yml are YAML.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read circuit file: %w", err)
	}

	var doc *Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		doc, err = ParseCUE(data, path)
	case ".yaml", ".yml":
		doc, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported circuit file extension %q (want .yaml, .yml or .cue)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
