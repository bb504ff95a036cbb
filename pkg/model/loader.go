// Package model loads pagination models from disk.
//
// A model file describes the pageable operations of one service:
//
//	{"pagination": {"ListUsers": {"input_token": "Marker", "output_token": "Marker", "result_key": "Users"}}}
//
// JSON and YAML are both accepted. A null entry declares an operation that is
// known but cannot be paginated.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/api-paginator/pkg/pagination"
)

// Suffix is the file name suffix, before the format extension, of model files.
const Suffix = ".paginators"

var (
	// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported model format")

	// ErrUnknownService is returned by a Registry for a service without a model file.
	ErrUnknownService = errors.New("unknown service")
)

// Format is the encoding of a model file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ServiceName derives the service a model file describes, e.g.
// "iam.paginators.json" describes "iam". It reports false for files that are
// not model files.
func ServiceName(path string) (string, bool) {
	base := filepath.Base(path)
	if _, err := FormatFromPath(base); err != nil {
		return "", false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	service, ok := strings.CutSuffix(stem, Suffix)
	if !ok || service == "" {
		return "", false
	}
	return service, true
}

type document struct {
	Pagination map[string]*pagination.Definition `json:"pagination" yaml:"pagination"`
}

// Parse decodes and validates a model document.
func Parse(data []byte, format Format) (*pagination.Model, error) {
	var doc document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json model: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml model: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if doc.Pagination == nil {
		return nil, fmt.Errorf("%w: missing top-level \"pagination\" object", pagination.ErrInvalidConfig)
	}
	return pagination.NewModel(doc.Pagination)
}

// Load reads and validates the model file at path.
func Load(path string) (*pagination.Model, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
