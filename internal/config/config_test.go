package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DefaultProvider != "ollama" || c.BatchSize != 5 || c.Concurrency != 1 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Temperature != 0.1 || c.BatchTimeoutSec != 120 || c.InsightsLimit != 5 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.OutputDirName != "processed_results" {
		t.Fatalf("output_dir_name = %q", c.OutputDirName)
	}
	if len(c.PreferredModels) != 3 || c.PreferredModels[0] != "phi3:mini" {
		t.Fatalf("preferred_models = %v", c.PreferredModels)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte("batch_size: 10\nconcurrency: 3\ndefault_model: mistral:latest\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TABSIGHT_CONCURRENCY", "2")
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.BatchSize != 10 {
		t.Fatalf("batch_size = %d, want 10 from file", c.BatchSize)
	}
	if c.Concurrency != 2 {
		t.Fatalf("concurrency = %d, want 2 from env", c.Concurrency)
	}
	if c.DefaultModel != "mistral:latest" {
		t.Fatalf("default_model = %q", c.DefaultModel)
	}
}

func TestLoadRejectsInvalidBatchSize(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TABSIGHT_BATCH_SIZE", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for batch_size 0")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Set("default_provider", "Local"); err != nil {
		t.Fatalf("Set provider: %v", err)
	}
	if err := c.Set("preferred_models", "llama3:8b, phi3:mini"); err != nil {
		t.Fatalf("Set preferred: %v", err)
	}
	if err := Save(c, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".tabsight", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	back, err := Load("")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.DefaultProvider != "ollama" {
		t.Fatalf("provider = %q", back.DefaultProvider)
	}
	if len(back.PreferredModels) != 2 || back.PreferredModels[0] != "llama3:8b" {
		t.Fatalf("preferred = %v", back.PreferredModels)
	}
}

func TestSetRejects(t *testing.T) {
	c := &Global{BatchSize: 5, Concurrency: 1, InsightsLimit: 5, OutputDirName: "out"}
	for _, kv := range [][2]string{
		{"batch_size", "0"},
		{"batch_size", "five"},
		{"default_provider", "anthropic"},
		{"temperature", "3"},
		{"nope", "1"},
	} {
		if err := c.Set(kv[0], kv[1]); err == nil {
			t.Errorf("Set(%s, %s) succeeded, want error", kv[0], kv[1])
		}
		c.BatchSize, c.Temperature = 5, 0.1
	}
}
