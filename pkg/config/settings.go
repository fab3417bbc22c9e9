package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Settings holds the engine's runtime settings.
type Settings struct {
	// Concurrency is the work-queue parallelism. Defaults to the
	// number of CPUs.
	Concurrency int `yaml:"concurrency"`

	// WorkQueueDepth bounds the number of queued tasks per work queue.
	WorkQueueDepth int `yaml:"work_queue_depth"`

	// SnapshotPath is the SQLite snapshot store path. Empty selects
	// the in-memory store.
	SnapshotPath string `yaml:"snapshot_path"`

	// ModAttrPath is the modified-attributes file restored during
	// activation. Empty disables the restore.
	ModAttrPath string `yaml:"mod_attr_path"`
}

// DefaultSettings returns the default engine settings.
func DefaultSettings() Settings {
	return Settings{
		Concurrency:    runtime.NumCPU(),
		WorkQueueDepth: 25000,
	}
}

// LoadSettings reads settings from a YAML file, filling unset values
// with defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if settings.Concurrency <= 0 {
		settings.Concurrency = runtime.NumCPU()
	}
	if settings.WorkQueueDepth <= 0 {
		settings.WorkQueueDepth = 25000
	}

	return settings, nil
}
