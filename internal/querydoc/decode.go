package querydoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cubesql/internal/domain"
)

// Format is a document encoding.
type Format string

// Supported encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension; anything other
// than .json is read as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Decode parses one document. Unknown fields are rejected.
func Decode(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, domain.ErrValidation("parse query: %s", err.Error())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, domain.ErrValidation("parse query: empty document")
			}
			return nil, domain.ErrValidation("parse query: %s", err.Error())
		}
	default:
		return nil, domain.ErrValidation("unsupported document format %q", format)
	}
	return &doc, nil
}

// Load reads a document from path, or from stdin when path is "-".
func Load(path string, stdin io.Reader) (*Document, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		format := FormatYAML
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			format = FormatJSON
		}
		return Decode(bytes.NewReader(data), format)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is user-specified
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(bytes.NewReader(data), FormatForPath(path))
}
