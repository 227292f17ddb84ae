package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if cfg.Distribute.MemoryBudgetMB != 2048 {
			t.Errorf("default budget = %d MB, want 2048", cfg.Distribute.MemoryBudgetMB)
		}
		if cfg.Distribute.Workers < 1 {
			t.Errorf("default workers = %d, want at least 1", cfg.Distribute.Workers)
		}
		if cfg.MemoryBudgetBytes() != 2048*1024*1024 {
			t.Errorf("budget bytes = %d", cfg.MemoryBudgetBytes())
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxdist.yaml")
	data := `
distribute:
  memoryBudgetMB: 512
  workers: 3
  queues:
    slow: batch-long
  reportPath: plan.pdf
io:
  tmpDir: /scratch
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Distribute.MemoryBudgetMB != 512 || cfg.Distribute.Workers != 3 {
		t.Errorf("budget/workers = %d/%d, want 512/3", cfg.Distribute.MemoryBudgetMB, cfg.Distribute.Workers)
	}
	if cfg.Distribute.Queues.Slow != "batch-long" {
		t.Errorf("slow queue = %q, want batch-long", cfg.Distribute.Queues.Slow)
	}
	// Unset keys keep their defaults.
	if cfg.Distribute.Queues.Fast != "fast" {
		t.Errorf("fast queue = %q, want the default", cfg.Distribute.Queues.Fast)
	}
	if cfg.Distribute.ReportPath != "plan.pdf" || cfg.IO.TmpDir != "/scratch" {
		t.Errorf("reportPath/tmpDir = %q/%q", cfg.Distribute.ReportPath, cfg.IO.TmpDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, yaml string
	}{
		{"negative budget", "distribute:\n  memoryBudgetMB: -1\n"},
		{"zero workers", "distribute:\n  memoryBudgetMB: 64\n  workers: -2\n"},
		{"malformed yaml", "distribute: [not a map\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load accepted an invalid config")
			}
		})
	}
}
