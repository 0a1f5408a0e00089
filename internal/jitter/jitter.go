// Package jitter implements the sample-level jitter buffer and its
// transition engine: the FIFO of interleaved f32 samples shared between the
// network receive loop and the real-time audio callback, together with the
// fade-in, fade-out, cross-fade, and overrun-trim logic that keeps playback
// continuous across packet loss and buffer drift.
//
// Buffer is safe for exactly one concurrent writer (the receive loop, via
// Receive) and one concurrent reader (the audio callback, via RenderPull);
// the two are serialized by an internal mutex held only for the constant- or
// batch-bounded work described below.
package jitter

import "sync"

// Buffer is the sample-level jitter buffer for one stream direction.
type Buffer struct {
	mu sync.Mutex

	channels    int
	batchFrames int
	avgFrames   int

	samples []float32 // live buffer: interleaved f32, len always a multiple of channels
	scratch []float32 // S: recovery buffer retained across Receive calls while priming
}

// New creates a Buffer for the given channel count and derived frame sizes.
// batchFrames and avgFrames are sample_rate*batch_ms/1000 and
// sample_rate*average_buffering_ms/1000 respectively; both must be positive
// and batchFrames should not exceed avgFrames.
func New(channels, batchFrames, avgFrames int) *Buffer {
	return &Buffer{
		channels:    channels,
		batchFrames: batchFrames,
		avgFrames:   avgFrames,
	}
}

// Frames returns the buffer's current occupancy in frames. Intended for
// metrics/tests; it takes the lock like any other operation.
func (b *Buffer) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples) / b.channels
}

// Receive applies one packet's worth of decoded frames to the buffer,
// running the healthy-append or disrupted-reprime path and then checking
// for overrun. frames holds interleaved f32 samples (len a multiple of
// channels); hadPacketLoss reports whether the gap preceding this packet
// contained one or more lost packets.
func (b *Buffer) Receive(frames []float32, hadPacketLoss bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	healthy := !hadPacketLoss && len(b.samples)/b.channels >= b.batchFrames
	if healthy {
		b.samples = append(b.samples, frames...)
	} else {
		b.reprime(frames, hadPacketLoss)
	}

	b.trimOverrun()
}

// reprime runs the disrupted-path recovery described in the transition
// engine design: retain an anchor for cross-fading, rebuild a scratch
// sequence S, and either keep priming silently or release S into the
// buffer with a fade-in (and cross-fade, if an anchor survived).
func (b *Buffer) reprime(frames []float32, hadPacketLoss bool) {
	var anchor []float32

	if hadPacketLoss {
		if len(b.samples)/b.channels < b.batchFrames {
			// Remnants cannot anchor a cross-fade.
			b.samples = b.samples[:0]
		} else {
			anchorLen := b.batchFrames * b.channels
			anchor = append([]float32(nil), b.samples[:anchorLen]...)
			b.samples = b.samples[:0]
		}
		b.scratch = b.scratch[:0]
	}

	// Drain any sub-batch remainder into the scratch sequence.
	if len(b.samples)/b.channels < b.batchFrames {
		b.scratch = append(b.scratch, b.samples...)
		b.samples = b.samples[:0]
	}

	b.scratch = append(b.scratch, frames...)

	if len(b.scratch)/b.channels <= b.avgFrames+b.batchFrames {
		// Not enough material yet; stay silent and keep priming next time.
		return
	}

	fadeIn(b.scratch, b.channels, b.batchFrames)

	if hadPacketLoss && anchor != nil {
		crossFadeIn(b.scratch, anchor, b.channels, b.batchFrames)
	}

	b.samples = append(b.samples, b.scratch...)
	b.scratch = b.scratch[:0]
}

// trimOverrun checks the buffer against the overrun threshold and, if
// exceeded, trims it back down with a cross-fade between the discarded
// prefix and the fresh content that becomes the new front.
func (b *Buffer) trimOverrun() {
	frames := len(b.samples) / b.channels
	if frames <= 2*b.avgFrames+b.batchFrames {
		return
	}

	anchor := append([]float32(nil), b.samples[:b.batchFrames*b.channels]...)

	// Trim target is intentionally max(avg, batch), not normalized: when
	// avgFrames < batchFrames this exceeds avgFrames, but the cross-fade
	// below needs at least batchFrames frames to remain.
	target := b.avgFrames
	if b.batchFrames > target {
		target = b.batchFrames
	}
	drainSamples := (frames - target) * b.channels
	b.samples = append(b.samples[:0], b.samples[drainSamples:]...)

	for f := 0; f < b.batchFrames; f++ {
		volume := float32(f) / float32(b.batchFrames)
		for c := 0; c < b.channels; c++ {
			idx := f*b.channels + c
			b.samples[idx] = b.samples[idx]*volume + anchor[idx]*(1-volume)
		}
	}
}

// RenderPull fills out, which must have length batchFrames*channels, with
// the next batch of frames for the audio callback: either a drain of the
// front of the buffer, or silence if priming/empty. It never blocks beyond
// the mutex and performs only bounded memory moves.
func (b *Buffer) RenderPull(out []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.batchFrames * b.channels
	if len(b.samples)/b.channels >= b.batchFrames {
		copy(out, b.samples[:n])
		b.samples = append(b.samples[:0], b.samples[n:]...)
		return
	}
	for i := range out {
		out[i] = 0
	}
}

// NextFrameBatch is the pure render pull exposed for embedding and testing,
// mirroring the outward next_frame_batch interface.
func NextFrameBatch(buf *Buffer, out []float32) {
	buf.RenderPull(out)
}

// fadeIn applies a linear ramp 0->1 to the first batchFrames frames of s.
func fadeIn(s []float32, channels, batchFrames int) {
	for f := 0; f < batchFrames; f++ {
		volume := float32(f) / float32(batchFrames)
		for c := 0; c < channels; c++ {
			s[f*channels+c] *= volume
		}
	}
}

// crossFadeIn mixes a linear fade-out of anchor into the first batchFrames
// frames of s, producing a linear cross-fade whose two gains sum to 1.
func crossFadeIn(s, anchor []float32, channels, batchFrames int) {
	for f := 0; f < batchFrames; f++ {
		volume := 1 - float32(f)/float32(batchFrames)
		for c := 0; c < channels; c++ {
			idx := f*channels + c
			s[idx] += anchor[idx] * volume
		}
	}
}
