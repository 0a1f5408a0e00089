package format

import (
	"encoding/binary"
	"math"
	"testing"
)

func s16Bytes(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:i*2+2], uint16(s))
	}
	return b
}

func readS16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}

func TestSameChannelS16IsIdentity(t *testing.T) {
	c, err := New(S16LE, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	src := s16Bytes(100, -200, 300, -400)
	out := c.Convert(src, nil)
	if string(out) != string(src) {
		t.Errorf("expected byte-copy identity, got %v want %v", out, src)
	}
}

func TestMonoToStereoDuplicates(t *testing.T) {
	c, err := New(S16LE, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	src := s16Bytes(1000, -2000)
	out := readS16(c.Convert(src, nil))
	want := []int16{1000, 1000, -2000, -2000}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestStereoToMonoMeansIn32Bit(t *testing.T) {
	c, err := New(S16LE, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	// Both channels near max — naive i16 addition would overflow.
	src := s16Bytes(32000, 32000)
	out := readS16(c.Convert(src, nil))
	if len(out) != 1 || out[0] != 32000 {
		t.Errorf("got %v, want [32000]", out)
	}
}

func TestMonoStereoMonoRoundTripIsIdentityUpToOneLSB(t *testing.T) {
	toStereo, err := New(S16LE, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	toMono, err := New(S16LE, 2, 1)
	if err != nil {
		t.Fatal(err)
	}

	original := []int16{0, 1, -1, 12345, -12345, 32767, -32768}
	src := s16Bytes(original...)
	stereo := toStereo.Convert(src, nil)
	mono := readS16(toMono.Convert(stereo, nil))

	for i, want := range original {
		diff := int(mono[i]) - int(want)
		if diff < -1 || diff > 1 {
			t.Errorf("sample %d: got %d, want ~%d (±1 LSB)", i, mono[i], want)
		}
	}
}

func TestF32ToS16Saturates(t *testing.T) {
	c, err := New(F32LE, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	f32Bytes := func(v float32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
		return b
	}
	src := append(f32Bytes(1.5), f32Bytes(-1.5)...)
	out := readS16(c.Convert(src, nil))
	if out[0] != 32767 || out[1] != -32768 {
		t.Errorf("got %v, want [32767 -32768]", out)
	}
}

func TestRejectsMoreThanTwoChannels(t *testing.T) {
	if _, err := New(S16LE, 3, 2); err == nil {
		t.Error("expected error for 3 device channels")
	}
	if _, err := New(S16LE, 2, 3); err == nil {
		t.Error("expected error for 3 target channels")
	}
}

func TestConvertReusesCapacity(t *testing.T) {
	c, err := New(S16LE, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, 0, 64)
	src := s16Bytes(1, 2, 3)
	out := c.Convert(src, dst)
	if len(out) != 6 {
		t.Fatalf("len(out) = %d, want 6", len(out))
	}
	if &out[0] != &dst[:cap(dst)][0] {
		t.Error("expected Convert to reuse the supplied backing array when capacity suffices")
	}
}
