package invocation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// LoadMetadata reads metadata from a YAML, TOML or JSON file chosen by
// extension. The result is not validated.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	return ParseMetadata(filepath.Ext(path), data)
}

// ParseMetadata decodes metadata in the format named by ext (".yaml", ".yml",
// ".toml" or ".json").
func ParseMetadata(ext string, data []byte) (Metadata, error) {
	var (
		m   Metadata
		err error
	)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	case ".toml":
		err = toml.Unmarshal(data, &m)
	case ".json":
		err = sonic.Unmarshal(data, &m)
	default:
		return Metadata{}, fmt.Errorf("unsupported metadata format %q", ext)
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("decode %s metadata: %w", strings.TrimPrefix(ext, "."), err)
	}
	return m, nil
}
