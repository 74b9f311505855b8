package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	d := Default()
	if d.DataDir != "data" || d.BufferPoolCapacity != 60000 || d.CheckpointInterval != "@every 1m" {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}

func TestLoadOverridesProvidedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.yaml")
	yaml := "data_dir: /var/lib/relcore\nbuffer_pool_capacity: 128\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/var/lib/relcore" {
		t.Fatalf("DataDir: got %q, want /var/lib/relcore", cfg.DataDir)
	}
	if cfg.BufferPoolCapacity != 128 {
		t.Fatalf("BufferPoolCapacity: got %d, want 128", cfg.BufferPoolCapacity)
	}
	// checkpoint_interval was omitted from the file, so it should still
	// fall back to the default.
	if cfg.CheckpointInterval != "@every 1m" {
		t.Fatalf("CheckpointInterval: got %q, want default", cfg.CheckpointInterval)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error loading a nonexistent config file")
	}
}
