package source

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"tieba-chat/internal/config/schema"
	coreerrors "tieba-chat/internal/core/errors"
)

// YAMLSource loads configuration from YAML files
type YAMLSource struct {
	paths []string // list of YAML file paths to load
}

// NewYAMLSource creates a new YAMLSource with the specified file paths
func NewYAMLSource(paths ...string) *YAMLSource {
	return &YAMLSource{
		paths: paths,
	}
}

// Name returns the source name
func (s *YAMLSource) Name() string {
	return "yaml"
}

// Priority returns the source priority
func (s *YAMLSource) Priority() int {
	return PriorityYAML
}

// LoadInto loads YAML configuration into the config structure
// Files are loaded in order, with later files overriding earlier ones.
// Keys absent from a file keep the value of lower-priority sources.
func (s *YAMLSource) LoadInto(cfg *schema.Root) error {
	for _, path := range s.paths {
		if path == "" {
			continue
		}

		expandedPath, err := expandPath(path)
		if err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeConfigError, "failed to expand path %q", path)
		}

		if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(expandedPath)
		if err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeConfigError, "failed to read config file %q", expandedPath)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeConfigError, "failed to parse YAML file %q", expandedPath)
		}
	}

	return nil
}

// FindConfigFile searches for a configuration file in standard locations
// Returns the first found file path, or empty string if none found
func FindConfigFile(configFile string) string {
	if configFile != "" {
		expanded, err := expandPath(configFile)
		if err == nil {
			if _, err := os.Stat(expanded); err == nil {
				return expanded
			}
		}
		return configFile
	}

	searchPaths := []string{
		"./chatserver.yaml",
		"./config.yaml",
	}
	if execPath, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), "chatserver.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/tieba-chat/chatserver.yaml")

	for _, path := range searchPaths {
		expanded, err := expandPath(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(expanded); err == nil {
			return expanded
		}
	}

	return ""
}

// expandPath expands ~ to user home directory
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[1:])
	}

	return filepath.Clean(path), nil
}
