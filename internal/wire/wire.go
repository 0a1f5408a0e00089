// Package wire implements the canonical wire frame: signed 16-bit
// little-endian PCM, interleaved by channel, and its conversion to/from the
// f32 samples the jitter buffer and device callbacks operate on.
package wire

import (
	"encoding/binary"
	"math"
)

// Packet is one decoded unit of audio received from the transport.
type Packet struct {
	// Frames holds interleaved f32 samples, channels * frame count long.
	Frames []float32
	// HadPacketLoss reports whether the gap preceding this packet contained
	// one or more lost packets.
	HadPacketLoss bool
}

// BytesToFrames decodes s16 LE interleaved bytes into f32 samples,
// normalizing with f = s / 32768.0. The byte length must be a multiple of 2;
// a trailing odd byte is ignored.
func BytesToFrames(b []byte) []float32 {
	n := len(b) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// FramesToBytes encodes f32 samples into s16 LE bytes using saturating
// scaling: s = clamp(round(f * 32768), -32768, 32767). dst is reused when
// its capacity covers len(samples)*2 bytes and a new slice is allocated
// otherwise; the resulting slice is returned.
func FramesToBytes(samples []float32, dst []byte) []byte {
	need := len(samples) * 2
	if cap(dst) < need {
		dst = make([]byte, need)
	} else {
		dst = dst[:need]
	}
	for i, f := range samples {
		binary.LittleEndian.PutUint16(dst[i*2:i*2+2], uint16(FloatToS16(f)))
	}
	return dst
}

// FloatToS16 converts one f32 sample to s16 using saturating rounding:
// clamp(round(f * 32768), -32768, 32767).
func FloatToS16(f float32) int16 {
	v := math.Round(float64(f) * 32768)
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
