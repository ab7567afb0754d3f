package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for %s", resolved)
	}
	if cfg.Video.Width != 1080 || cfg.Video.Height != 1920 {
		t.Fatalf("unexpected default frame size: %dx%d", cfg.Video.Width, cfg.Video.Height)
	}
	if len(cfg.Video.Ladder) == 0 {
		t.Fatal("expected default compression ladder")
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"

[video]
backend = "Piped"
width = 720
height = 1280

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Video.Backend != "piped" {
		t.Fatalf("backend not normalized: %q", cfg.Video.Backend)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level not normalized: %q", cfg.Logging.Level)
	}
	if cfg.Video.FPS != 30 {
		t.Fatalf("expected default fps, got %d", cfg.Video.FPS)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Video.Backend = "wasm"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestValidateRejectsOddDimensions(t *testing.T) {
	cfg := config.Default()
	cfg.Video.Width = 1081
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for odd width")
	}
}

func TestValidateRejectsNonDecreasingLadder(t *testing.T) {
	cfg := config.Default()
	cfg.Video.Ladder = []config.LadderLevel{
		{MaxWidth: 900, Quality: 70},
		{MaxWidth: 900, Quality: 60},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-decreasing ladder widths")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}
