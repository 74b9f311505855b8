// Package config loads the on-disk DBConfig that tunes the storage engine:
// data directory, buffer pool capacity, and the maintenance checkpoint
// interval. Grounded on jordy-godjo-GoBuffer_DB/Projet_BDDA/config/
// db_config.go's single-struct-of-tunables shape, re-expressed with
// gopkg.in/yaml.v3 instead of that teacher's ad hoc JSON/key=value parser.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DBConfig holds every knob the engine's ambient stack reads at startup.
type DBConfig struct {
	DataDir            string `yaml:"data_dir"`
	BufferPoolCapacity int    `yaml:"buffer_pool_capacity"`
	CheckpointInterval string `yaml:"checkpoint_interval"` // cron expression, e.g. "@every 30s"
}

// Default returns the configuration used when no file is supplied.
func Default() DBConfig {
	return DBConfig{
		DataDir:            "data",
		BufferPoolCapacity: 60000,
		CheckpointInterval: "@every 1m",
	}
}

// Load reads and unmarshals a YAML config file, filling in defaults for any
// field the file leaves zero.
func Load(path string) (DBConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return DBConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DBConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.BufferPoolCapacity == 0 {
		cfg.BufferPoolCapacity = 60000
	}
	if cfg.CheckpointInterval == "" {
		cfg.CheckpointInterval = "@every 1m"
	}
	return cfg, nil
}
