// Package wavio implements a WAV-file-backed DeviceCapture/DeviceRender
// pair. It gives the rest of the module a deterministic, hardware-free
// collaborator: capture replays a recorded WAV file instead of a live
// input, and render writes the jitter buffer's output to a WAV file instead
// of a live output.
package wavio

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/vrbridge/audiobridge/internal/format"
	"github.com/vrbridge/audiobridge/internal/wire"
)

const defaultFramesPerBuffer = 480

// Capture is a DeviceCapture backed by an existing WAV file. The file's own
// sample rate and channel count are authoritative; requestChannels is
// ignored, matching how a real device also dictates its own native format.
type Capture struct {
	Path string
	// FramesPerBuffer sizes each onData tick; defaults to 480 if zero.
	FramesPerBuffer int
	// Realtime paces ticks to the file's sample rate instead of draining as
	// fast as possible. Demos want this; tests generally don't.
	Realtime bool

	running atomic.Bool
	mu      sync.Mutex
	file    *os.File
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Start opens Path, decodes it in full, and replays it in
// FramesPerBuffer-sized chunks on a dedicated goroutine until the file is
// exhausted, Stop is called, or ctx is cancelled.
func (c *Capture) Start(ctx context.Context, requestChannels int, onData func(data []byte)) (sampleRate, deviceChannels int, nativeFormat format.SampleFormat, err error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return 0, 0, 0, err
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return 0, 0, 0, &invalidWAVError{c.Path}
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		f.Close()
		return 0, 0, 0, err
	}

	channels := pcm.Format.NumChannels
	rate := pcm.Format.SampleRate
	samples := make([]int16, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = int16(v)
	}

	frames := c.FramesPerBuffer
	if frames <= 0 {
		frames = defaultFramesPerBuffer
	}

	c.mu.Lock()
	c.file = f
	c.stopCh = make(chan struct{})
	c.mu.Unlock()
	c.running.Store(true)

	c.wg.Add(1)
	go c.readLoop(samples, channels, rate, frames, onData)

	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-c.stopCh:
		}
	}()

	return rate, channels, format.S16LE, nil
}

func (c *Capture) readLoop(samples []int16, channels, sampleRate, frames int, onData func([]byte)) {
	defer c.wg.Done()
	// Reaching the end of the file ends replay the same way Stop() does;
	// finish() and Stop() race on the running flag so only one of them
	// ever performs the close.
	defer c.finish()

	chunkSamples := frames * channels
	var ticker *time.Ticker
	if c.Realtime {
		ticker = time.NewTicker(time.Second * time.Duration(frames) / time.Duration(sampleRate))
		defer ticker.Stop()
	}

	for pos := 0; pos < len(samples); pos += chunkSamples {
		if !c.running.Load() {
			return
		}
		end := pos + chunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[pos:end]

		raw := make([]byte, len(chunk)*2)
		for i, s := range chunk {
			raw[i*2] = byte(uint16(s))
			raw[i*2+1] = byte(uint16(s) >> 8)
		}
		onData(raw)

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-c.stopCh:
				return
			}
		}
	}
}

// finish runs when the replay goroutine exits on its own (end of file). If
// running is still true, this is the first to notice the stream is done, so
// it claims the shutdown and closes the file; if Stop() already claimed it,
// finish() is a no-op and Stop() closes the file once it joins the
// goroutine.
func (c *Capture) finish() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	stopCh := c.stopCh
	c.mu.Unlock()
	close(stopCh)
	c.closeFile()
}

func (c *Capture) closeFile() error {
	c.mu.Lock()
	f := c.file
	c.file = nil
	c.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

// Stop halts replay and closes the underlying file, joining the replay
// goroutine first so the file is never touched after it is closed.
func (c *Capture) Stop() error {
	c.mu.Lock()
	stopCh := c.stopCh
	c.mu.Unlock()
	if stopCh == nil {
		return nil
	}

	if c.running.CompareAndSwap(true, false) {
		close(stopCh)
	}
	c.wg.Wait()
	return c.closeFile()
}

// Render is a DeviceRender backed by a WAV file: each tick it asks the
// caller to fill a batch of interleaved f32 samples and encodes them to
// Path as s16 PCM.
type Render struct {
	Path string
	// FramesPerBuffer sizes each onRender tick; defaults to 480 if zero.
	FramesPerBuffer int
	// Realtime paces ticks to sampleRate instead of writing as fast as
	// possible.
	Realtime bool

	running atomic.Bool
	mu      sync.Mutex
	file    *os.File
	enc     *wav.Encoder
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Start creates Path and begins encoding rendered batches to it as s16 PCM
// on a dedicated goroutine until Stop is called or ctx is cancelled.
func (r *Render) Start(ctx context.Context, channels, sampleRate int, onRender func(out []float32)) error {
	f, err := os.Create(r.Path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)

	frames := r.FramesPerBuffer
	if frames <= 0 {
		frames = defaultFramesPerBuffer
	}

	r.mu.Lock()
	r.file = f
	r.enc = enc
	r.stopCh = make(chan struct{})
	r.mu.Unlock()
	r.running.Store(true)

	r.wg.Add(1)
	go r.writeLoop(channels, sampleRate, frames, onRender)

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-r.stopCh:
		}
	}()

	return nil
}

func (r *Render) writeLoop(channels, sampleRate, frames int, onRender func([]float32)) {
	defer r.wg.Done()

	buf := make([]float32, frames*channels)
	ib := &audio.IntBuffer{
		Data:           make([]int, frames*channels),
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}

	var ticker *time.Ticker
	if r.Realtime {
		ticker = time.NewTicker(time.Second * time.Duration(frames) / time.Duration(sampleRate))
		defer ticker.Stop()
	}

	for r.running.Load() {
		onRender(buf)
		for i, s := range buf {
			ib.Data[i] = int(wire.FloatToS16(s))
		}

		r.mu.Lock()
		enc := r.enc
		r.mu.Unlock()
		if err := enc.Write(ib); err != nil {
			return
		}

		if ticker != nil {
			select {
			case <-ticker.C:
			case <-r.stopCh:
				return
			}
		}
	}
}

// Stop stops encoding, finalizes the WAV header, and closes the file,
// joining the write goroutine first.
func (r *Render) Stop() error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}
	r.mu.Lock()
	enc := r.enc
	f := r.file
	stopCh := r.stopCh
	r.mu.Unlock()

	close(stopCh)
	r.wg.Wait()

	r.mu.Lock()
	r.enc = nil
	r.file = nil
	r.mu.Unlock()

	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type invalidWAVError struct{ path string }

func (e *invalidWAVError) Error() string { return "wavio: not a valid WAV file: " + e.path }
