package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# catalog-admin repository configuration
#
# Relative paths are resolved against the directory holding this file.
# Every key can be overridden with a CATALOG_ADMIN_* environment variable,
# e.g. CATALOG_ADMIN_LOGGING_LEVEL=DEBUG.

`

// InitConfig writes a default configuration file into the repository
// directory dir, creating the directory if needed.
//
// Parameters:
//   - dir: Repository directory
//   - force: Overwrite an existing configuration file
//
// Returns:
//   - string: Path of the written file
//   - error: If the file exists and force is false, or on I/O failure
func InitConfig(dir string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create repository directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(GetDefaultConfig()); err != nil {
		return "", fmt.Errorf("failed to encode default configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode default configuration: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write configuration file: %w", err)
	}
	return path, nil
}
