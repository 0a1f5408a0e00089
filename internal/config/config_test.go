package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vrbridge/audiobridge/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Channels != 2 {
		t.Errorf("expected default channels 2, got %d", cfg.Channels)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("expected default sample rate 48000, got %d", cfg.SampleRate)
	}
	if cfg.InputDeviceID != -1 || cfg.OutputDeviceID != -1 {
		t.Error("expected device IDs to default to -1")
	}
	if cfg.ServerAddr == "" {
		t.Error("expected a non-empty default server address")
	}
	if cfg.BatchMs <= 0 || cfg.AverageBufferingMs <= 0 {
		t.Error("expected positive default batch/buffering durations")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := config.Config{
		BatchMs:            10,
		AverageBufferingMs: 40,
		Channels:           1,
		SampleRate:         44100,
		InputDeviceID:      2,
		OutputDeviceID:     3,
		ServerAddr:         "192.168.1.10:9000",
	}

	if err := config.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := config.Load()
	if loaded != cfg {
		t.Errorf("loaded = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := config.Load()
	if cfg != config.Default() {
		t.Errorf("expected defaults for a missing config file, got %+v", cfg)
	}
}

func TestLoadCorruptFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "audiobridge", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json {{{"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Load()
	if cfg != config.Default() {
		t.Errorf("expected defaults on corrupt file, got %+v", cfg)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := config.Save(config.Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, "audiobridge", "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}
