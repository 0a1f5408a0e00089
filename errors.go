// Package audiobridge implements the streaming audio bridge between a local
// capture/render device and an unreliable network transport: PCM capture,
// wire-format conversion, and a jitter buffer with fade/cross-fade transition
// handling on the playback side.
package audiobridge

import (
	"errors"
	"fmt"
)

// Cancelled is returned (or wrapped) when RecordStream/PlayStream stop
// because their context was cancelled. Callers generally treat it as a
// clean shutdown rather than a failure.
var Cancelled = errors.New("audiobridge: cancelled")

// TransportFailed is wrapped around errors originating from a PacketSource
// or PacketSink. It terminates the stream it occurred on.
type TransportFailed struct {
	Err error
}

func (e *TransportFailed) Error() string { return fmt.Sprintf("audiobridge: transport failed: %v", e.Err) }
func (e *TransportFailed) Unwrap() error { return e.Err }

// DeviceFailed is wrapped around errors originating from the capture or
// render device (open, start, or callback).
type DeviceFailed struct {
	Err error
}

func (e *DeviceFailed) Error() string { return fmt.Sprintf("audiobridge: device failed: %v", e.Err) }
func (e *DeviceFailed) Unwrap() error { return e.Err }

// ConfigUnsupported reports a device configuration the core refuses to
// operate on, such as more than two channels.
type ConfigUnsupported struct {
	Reason string
}

func (e *ConfigUnsupported) Error() string {
	return fmt.Sprintf("audiobridge: unsupported configuration: %s", e.Reason)
}

// wrapTransport wraps a non-nil error as TransportFailed; returns nil for a
// nil err so call sites can write `return wrapTransport(err)` unconditionally.
func wrapTransport(err error) error {
	if err == nil {
		return nil
	}
	return &TransportFailed{Err: err}
}

// wrapDevice wraps a non-nil error as DeviceFailed.
func wrapDevice(err error) error {
	if err == nil {
		return nil
	}
	return &DeviceFailed{Err: err}
}
