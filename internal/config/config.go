package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileNames are looked for next to the input log when no explicit
// config path is given.
var ConfigFileNames = []string{"agent-trajectory.yaml", "agent-trajectory.yml"}

// Load loads configuration from a file path or discovers it alongside the
// input log.
func Load(configPath, inputPath string) (map[string]any, error) {
	if configPath != "" {
		return loadFile(configPath)
	}

	// Auto-discover alongside the conversation log
	dir := filepath.Dir(inputPath)
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return loadFile(candidate)
		}
	}

	return make(map[string]any), nil
}

func loadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Setting: "config", Reason: fmt.Sprintf("cannot read %s", path), Err: err}
	}

	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, &ConfigurationError{Setting: "config", Reason: fmt.Sprintf("invalid YAML in %s", path), Err: err}
	}
	if result == nil {
		return make(map[string]any), nil
	}
	return result, nil
}
