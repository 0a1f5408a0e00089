// Package device implements the PortAudio-backed DeviceCapture/DeviceRender
// collaborator: a dedicated goroutine owns each native stream (PortAudio
// stream handles are pinned to the thread that opened them on some
// backends), reading or writing synchronously and invoking a caller-supplied
// callback with the resulting bytes or requested frames.
package device

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/vrbridge/audiobridge/internal/format"
	"go.uber.org/zap"
)

// nopLogger returns l, or a no-op logger if l is nil, so every log call
// site in this package can call it unconditionally.
func nopLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Info describes one enumerated audio device.
type Info struct {
	ID   int
	Name string
}

// ListInputDevices returns every device PortAudio reports at least one
// input channel for.
func ListInputDevices() ([]Info, error) {
	return listDevices(func(d *portaudio.DeviceInfo) bool { return d.MaxInputChannels > 0 })
}

// ListOutputDevices returns every device PortAudio reports at least one
// output channel for.
func ListOutputDevices() ([]Info, error) {
	return listDevices(func(d *portaudio.DeviceInfo) bool { return d.MaxOutputChannels > 0 })
}

func listDevices(match func(*portaudio.DeviceInfo) bool) ([]Info, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	var out []Info
	for i, d := range devices {
		if match(d) {
			out = append(out, Info{ID: i, Name: d.Name})
		}
	}
	return out, nil
}

func resolveDevice(devices []*portaudio.DeviceInfo, id int, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if id >= 0 && id < len(devices) {
		return devices[id], nil
	}
	return fallback()
}

const framesPerBuffer = 480

// paStream abstracts a PortAudio stream for testing; *portaudio.Stream
// satisfies it.
type paStream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
	Write() error
}

// Capture is a PortAudio-backed DeviceCapture. DeviceID selects an input
// device by index; -1 uses the PortAudio default.
type Capture struct {
	DeviceID int
	Logger   *zap.Logger

	running atomic.Bool
	mu      sync.Mutex
	stream  paStream
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Start opens and starts an input stream at requestChannels, always
// negotiating f32 samples (the format PortAudio's Go binding delivers
// natively), and runs the blocking read loop on a dedicated goroutine until
// Stop is called or ctx is cancelled.
func (c *Capture) Start(ctx context.Context, requestChannels int, onData func([]byte)) (sampleRate, deviceChannels int, nativeFormat format.SampleFormat, err error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return 0, 0, 0, err
	}
	dev, err := resolveDevice(devices, c.DeviceID, portaudio.DefaultInputDevice)
	if err != nil {
		return 0, 0, 0, err
	}

	rate := dev.DefaultSampleRate
	if rate <= 0 {
		rate = 48000
	}

	buf := make([]float32, framesPerBuffer*requestChannels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: requestChannels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      rate,
		FramesPerBuffer: framesPerBuffer,
	}
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return 0, 0, 0, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return 0, 0, 0, err
	}

	c.mu.Lock()
	c.stream = stream
	c.stopCh = make(chan struct{})
	c.mu.Unlock()
	c.running.Store(true)

	c.wg.Add(1)
	go c.readLoop(buf, onData)

	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-c.stopCh:
		}
	}()

	nopLogger(c.Logger).Info("device: capture started", zap.String("device", dev.Name), zap.Int("channels", requestChannels), zap.Float64("sampleRate", rate))
	return int(rate), requestChannels, format.F32LE, nil
}

func (c *Capture) readLoop(buf []float32, onData func([]byte)) {
	defer c.wg.Done()
	raw := make([]byte, len(buf)*4)
	for c.running.Load() {
		c.mu.Lock()
		stream := c.stream
		c.mu.Unlock()
		if err := stream.Read(); err != nil {
			nopLogger(c.Logger).Warn("device: capture read failed", zap.Error(err))
			return
		}
		floatsToLEBytes(buf, raw)
		onData(raw)
	}
}

// Stop stops and closes the stream, blocking until the read goroutine has
// joined so the native stream object is never touched after it is closed.
// Stopping the stream before waiting unblocks any in-flight Read call;
// clearing running first guarantees the loop won't re-enter Read after that.
func (c *Capture) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.mu.Lock()
	stream := c.stream
	stopCh := c.stopCh
	c.mu.Unlock()

	close(stopCh)
	stream.Stop()
	c.wg.Wait()

	c.mu.Lock()
	c.stream = nil
	c.mu.Unlock()
	nopLogger(c.Logger).Info("device: capture stopped")
	return stream.Close()
}

// Render is a PortAudio-backed DeviceRender. DeviceID selects an output
// device by index; -1 uses the PortAudio default.
type Render struct {
	DeviceID int
	Logger   *zap.Logger

	running atomic.Bool
	mu      sync.Mutex
	stream  paStream
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Start opens and starts an output stream at channels/sampleRate, running
// the blocking write loop on a dedicated goroutine; each tick it asks
// onRender to fill a batch of interleaved f32 samples before writing them.
func (r *Render) Start(ctx context.Context, channels, sampleRate int, onRender func(out []float32)) error {
	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}
	dev, err := resolveDevice(devices, r.DeviceID, portaudio.DefaultOutputDevice)
	if err != nil {
		return err
	}

	buf := make([]float32, framesPerBuffer*channels)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}

	r.mu.Lock()
	r.stream = stream
	r.stopCh = make(chan struct{})
	r.mu.Unlock()
	r.running.Store(true)

	r.wg.Add(1)
	go r.writeLoop(buf, onRender)

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-r.stopCh:
		}
	}()

	nopLogger(r.Logger).Info("device: render started", zap.String("device", dev.Name), zap.Int("channels", channels), zap.Int("sampleRate", sampleRate))
	return nil
}

func (r *Render) writeLoop(buf []float32, onRender func([]float32)) {
	defer r.wg.Done()
	for r.running.Load() {
		r.mu.Lock()
		stream := r.stream
		r.mu.Unlock()
		onRender(buf)
		if err := stream.Write(); err != nil {
			nopLogger(r.Logger).Warn("device: render write failed", zap.Error(err))
			return
		}
	}
}

// Stop stops and closes the stream, blocking until the write goroutine has
// joined.
func (r *Render) Stop() error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}
	r.mu.Lock()
	stream := r.stream
	stopCh := r.stopCh
	r.mu.Unlock()

	close(stopCh)
	stream.Stop()
	r.wg.Wait()

	r.mu.Lock()
	r.stream = nil
	r.mu.Unlock()
	nopLogger(r.Logger).Info("device: render stopped")
	return stream.Close()
}

func floatsToLEBytes(src []float32, dst []byte) {
	for i, f := range src {
		bits := math.Float32bits(f)
		dst[i*4] = byte(bits)
		dst[i*4+1] = byte(bits >> 8)
		dst[i*4+2] = byte(bits >> 16)
		dst[i*4+3] = byte(bits >> 24)
	}
}
