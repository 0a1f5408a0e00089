package audiobridge

import "fmt"

// Config holds the immutable, per-stream parameters that size the jitter
// buffer and its transition ramps. Supplied once at PlayStream construction.
type Config struct {
	// Channels is 1 (mono) or 2 (stereo).
	Channels int
	// SampleRate is the device sample rate in Hz.
	SampleRate int
	// BatchMs is the duration of a fade/cross-fade ramp and the minimum
	// render granularity.
	BatchMs int
	// AverageBufferingMs is the target occupancy of the jitter buffer.
	AverageBufferingMs int
}

// Validate checks that Config describes a usable stream.
func (c Config) Validate() error {
	if c.Channels != 1 && c.Channels != 2 {
		return &ConfigUnsupported{Reason: fmt.Sprintf("channels must be 1 or 2, got %d", c.Channels)}
	}
	if c.SampleRate <= 0 {
		return &ConfigUnsupported{Reason: fmt.Sprintf("sample rate must be positive, got %d", c.SampleRate)}
	}
	if c.BatchMs <= 0 {
		return &ConfigUnsupported{Reason: fmt.Sprintf("batch_ms must be positive, got %d", c.BatchMs)}
	}
	if c.AverageBufferingMs <= 0 {
		return &ConfigUnsupported{Reason: fmt.Sprintf("average_buffering_ms must be positive, got %d", c.AverageBufferingMs)}
	}
	if c.BatchFrames() > c.AvgFrames() {
		return &ConfigUnsupported{Reason: "batch_ms must not exceed average_buffering_ms"}
	}
	return nil
}

// BatchFrames is the number of frames in one fade/cross-fade batch:
// sample_rate * batch_ms / 1000.
func (c Config) BatchFrames() int {
	return c.SampleRate * c.BatchMs / 1000
}

// AvgFrames is the target jitter buffer occupancy in frames:
// sample_rate * average_buffering_ms / 1000.
func (c Config) AvgFrames() int {
	return c.SampleRate * c.AverageBufferingMs / 1000
}
