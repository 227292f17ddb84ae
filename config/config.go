// Package config loads the distribution settings from a YAML file and
// provides defaults for running without one.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the distributor-facing settings.
type Config struct {
	Distribute struct {
		// MemoryBudgetMB is the per-node working set bound.
		MemoryBudgetMB int64 `yaml:"memoryBudgetMB"`

		// Workers is the number of parallel worker slots.
		Workers int `yaml:"workers"`

		// Queues maps job types to cluster queue names. Unused by the
		// local distributor but forwarded to cluster submissions.
		Queues struct {
			Fast   string `yaml:"fast"`
			Normal string `yaml:"normal"`
			Slow   string `yaml:"slow"`
		} `yaml:"queues"`

		// ReportPath, when set, writes the plan report PDF after planning.
		ReportPath string `yaml:"reportPath"`
	} `yaml:"distribute"`

	IO struct {
		// TmpDir holds intermediate volumes written between fusion windows.
		TmpDir string `yaml:"tmpDir"`
	} `yaml:"io"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Distribute.MemoryBudgetMB = 2048
	cfg.Distribute.Workers = runtime.NumCPU()
	cfg.Distribute.Queues.Fast = "fast"
	cfg.Distribute.Queues.Normal = "normal"
	cfg.Distribute.Queues.Slow = "slow"
	cfg.IO.TmpDir = os.TempDir()
	return cfg
}

// Load reads the config file at path, filling unset values with defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if cfg.Distribute.MemoryBudgetMB <= 0 {
		return nil, fmt.Errorf("config: memoryBudgetMB must be positive, got %d", cfg.Distribute.MemoryBudgetMB)
	}
	if cfg.Distribute.Workers <= 0 {
		return nil, fmt.Errorf("config: workers must be positive, got %d", cfg.Distribute.Workers)
	}
	return cfg, nil
}

// MemoryBudgetBytes converts the configured budget to bytes.
func (c *Config) MemoryBudgetBytes() int64 {
	return c.Distribute.MemoryBudgetMB * 1024 * 1024
}
