// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/connvault/pkg/types"
)

// Format selects the manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat maps a user-supplied name to a Format. Empty selects YAML.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "yaml", "yml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use yaml or json", s)
	}
}

// Encode serializes run in the given format.
func Encode(run types.Run, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "":
		data, err := yaml.Marshal(run)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// WriteManifest writes run to stateDir/manifests/<run id>.<format> and
// returns the path written.
func (s *Store) WriteManifest(run types.Run, format Format) (string, error) {
	if format == "" {
		format = FormatYAML
	}
	data, err := Encode(run, format)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.stateDir, manifestsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating manifests directory: %w", err)
	}
	path := filepath.Join(dir, run.ID+"."+string(format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return path, nil
}

// ReadManifest parses a manifest file written by WriteManifest. The format
// is chosen from the file extension.
func ReadManifest(path string) (types.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Run{}, fmt.Errorf("reading manifest: %w", err)
	}
	var run types.Run
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &run)
	} else {
		err = yaml.Unmarshal(data, &run)
	}
	if err != nil {
		return types.Run{}, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return run, nil
}
