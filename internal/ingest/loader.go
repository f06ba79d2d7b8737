// Package ingest loads the tender collection from export files and prepares it
// for the in-memory filter engine.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/david/tender-scout/internal/models"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown tender file format")

// envelope is the wrapped export shape; bare lists are accepted too.
type envelope struct {
	Tenders []models.Opportunity `json:"tenders" yaml:"tenders"`
}

// FormatFromPath picks the decoder from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// LoadFile reads, decodes and normalizes a tender export.
func LoadFile(path string) ([]models.Opportunity, Report, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, Report{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to read tenders file: %w", err)
	}
	raw, err := Decode(data, format)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	opps, report := Normalize(raw)
	return opps, report, nil
}

// Decode parses either {"tenders": [...]} or a bare list.
func Decode(data []byte, format Format) ([]models.Opportunity, error) {
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var list []models.Opportunity
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		return env.Tenders, nil

	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, err
		}
		if len(node.Content) == 0 {
			return nil, nil
		}
		root := node.Content[0]
		if root.Kind == yaml.SequenceNode {
			var list []models.Opportunity
			if err := root.Decode(&list); err != nil {
				return nil, err
			}
			return list, nil
		}
		var env envelope
		if err := root.Decode(&env); err != nil {
			return nil, err
		}
		return env.Tenders, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}
