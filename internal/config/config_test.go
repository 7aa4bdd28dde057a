package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "" {
		t.Errorf("Expected empty data dir default, got %q", cfg.DataDir)
	}
	if cfg.DebugLog {
		t.Error("Expected debug logging off by default")
	}

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected default config written to %s: %v", path, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	saved := &Config{DataDir: filepath.Join(home, "data"), DebugLog: true}
	if err := Save(saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.DataDir != saved.DataDir {
		t.Errorf("Expected data dir %q, got %q", saved.DataDir, loaded.DataDir)
	}
	if !loaded.DebugLog {
		t.Error("Expected debug logging preserved")
	}
}

func TestResolveDataDirCreatesDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := &Config{DataDir: filepath.Join(home, "nested", "data")}
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		t.Fatalf("ResolveDataDir failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("Expected directory at %s: %v", dir, err)
	}
}

func TestResolveDataDirDefaultsToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := DefaultConfig().ResolveDataDir()
	if err != nil {
		t.Fatalf("ResolveDataDir failed: %v", err)
	}
	if dir != filepath.Join(home, DefaultConfigDir) {
		t.Errorf("Expected default under home, got %s", dir)
	}
}
