// Package format implements the capture-side FormatConverter: it turns one
// device callback's worth of native-format bytes into canonical s16 wire
// bytes, handling the f32->s16 conversion and mono<->stereo channel mixing.
package format

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vrbridge/audiobridge/internal/wire"
)

// SampleFormat identifies the native sample encoding a device callback
// delivers.
type SampleFormat int

const (
	// F32LE is 32-bit little-endian float PCM.
	F32LE SampleFormat = iota
	// S16LE is 16-bit little-endian signed integer PCM.
	S16LE
)

// Converter converts one device callback's bytes into canonical s16 wire
// bytes for a fixed (deviceChannels, targetChannels, format) configuration.
type Converter struct {
	format          SampleFormat
	deviceChannels  int
	targetChannels  int
}

// New returns a Converter for the given device sample format and channel
// counts. It returns ConfigUnsupported-shaped error (via the returned error)
// if either channel count exceeds 2.
func New(deviceFormat SampleFormat, deviceChannels, targetChannels int) (*Converter, error) {
	if deviceChannels < 1 || deviceChannels > 2 {
		return nil, fmt.Errorf("format: device channel count %d unsupported (must be 1 or 2)", deviceChannels)
	}
	if targetChannels < 1 || targetChannels > 2 {
		return nil, fmt.Errorf("format: target channel count %d unsupported (must be 1 or 2)", targetChannels)
	}
	return &Converter{
		format:         deviceFormat,
		deviceChannels: deviceChannels,
		targetChannels: targetChannels,
	}, nil
}

// bytesPerSample returns the native sample width in bytes for the
// converter's configured format.
func (c *Converter) bytesPerSample() int {
	if c.format == F32LE {
		return 4
	}
	return 2
}

// OutputLen returns the number of wire bytes Convert will produce for an
// input of inputLen bytes: outputFrames * targetChannels * 2.
func (c *Converter) OutputLen(inputLen int) int {
	frameBytes := c.deviceChannels * c.bytesPerSample()
	frames := inputLen / frameBytes
	return frames * c.targetChannels * 2
}

// Convert converts one callback's worth of native device bytes (length must
// be an exact multiple of deviceChannels*bytesPerSample) into canonical s16
// wire bytes, writing into dst. dst is grown if its capacity is insufficient
// and the resulting slice, sized exactly to the output, is returned.
func (c *Converter) Convert(src []byte, dst []byte) []byte {
	frameBytes := c.deviceChannels * c.bytesPerSample()
	frames := len(src) / frameBytes
	need := frames * c.targetChannels * 2
	if cap(dst) < need {
		dst = make([]byte, need)
	} else {
		dst = dst[:need]
	}

	for f := 0; f < frames; f++ {
		in := src[f*frameBytes : (f+1)*frameBytes]
		out := dst[f*c.targetChannels*2 : (f+1)*c.targetChannels*2]
		c.convertFrame(in, out)
	}
	return dst
}

// convertFrame converts one frame's worth of native samples (deviceChannels
// of them) into one frame's worth of s16 wire samples (targetChannels).
func (c *Converter) convertFrame(in, out []byte) {
	switch {
	case c.deviceChannels == c.targetChannels:
		for ch := 0; ch < c.deviceChannels; ch++ {
			s := c.readSample(in, ch)
			putS16(out, ch, s)
		}
	case c.deviceChannels == 1 && c.targetChannels == 2:
		s := c.readSample(in, 0)
		putS16(out, 0, s)
		putS16(out, 1, s)
	case c.deviceChannels == 2 && c.targetChannels == 1:
		l := c.readSample(in, 0)
		r := c.readSample(in, 1)
		// Mean in 32-bit to avoid overflow, then narrow.
		mixed := int16((int32(l) + int32(r)) / 2)
		putS16(out, 0, mixed)
	}
}

// readSample reads channel ch of one native frame as s16, converting from
// f32 with saturating rounding if necessary.
func (c *Converter) readSample(in []byte, ch int) int16 {
	if c.format == S16LE {
		return int16(binary.LittleEndian.Uint16(in[ch*2 : ch*2+2]))
	}
	bits := binary.LittleEndian.Uint32(in[ch*4 : ch*4+4])
	f := math.Float32frombits(bits)
	return wire.FloatToS16(f)
}

// putS16 writes v as the s16 LE sample for channel ch in a wire frame.
func putS16(out []byte, ch int, v int16) {
	binary.LittleEndian.PutUint16(out[ch*2:ch*2+2], uint16(v))
}
