// Package config manages persistent user preferences for the audio bridge.
// Settings are stored as JSON at os.UserConfigDir()/audiobridge/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all persistent settings for one bridge endpoint. A CLI
// overlay may override any of these for a single run.
type Config struct {
	BatchMs            int    `json:"batch_ms"`
	AverageBufferingMs int    `json:"average_buffering_ms"`
	Channels           int    `json:"channels"`
	SampleRate         int    `json:"sample_rate"`
	InputDeviceID      int    `json:"input_device_id"`
	OutputDeviceID     int    `json:"output_device_id"`
	ServerAddr         string `json:"server_addr"`
}

// Default returns a Config populated with sensible defaults: a 20ms batch,
// 60ms of target buffering, stereo at 48kHz, and platform-default devices.
func Default() Config {
	return Config{
		BatchMs:            20,
		AverageBufferingMs: 60,
		Channels:           2,
		SampleRate:         48000,
		InputDeviceID:      -1,
		OutputDeviceID:     -1,
		ServerAddr:         "localhost:8080",
	}
}

// Path returns the absolute path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audiobridge", "config.json"), nil
}

// Load reads the config file and returns it. If the file is missing,
// unreadable, or malformed, the default config is returned instead of an
// error — a broken config file should never prevent the bridge from
// starting.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
