package wire

import "testing"

func TestFloatToS16Saturates(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1.0, 32767},
		{-1.0, -32768},
		{2.0, 32767},
		{-2.0, -32768},
		{0.5, 16384},
	}
	for _, c := range cases {
		if got := FloatToS16(c.in); got != c.want {
			t.Errorf("FloatToS16(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestBytesToFramesRoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.5, -1.0}
	b := FramesToBytes(samples, nil)
	if len(b) != len(samples)*2 {
		t.Fatalf("encoded length = %d, want %d", len(b), len(samples)*2)
	}
	got := BytesToFrames(b)
	if len(got) != len(samples) {
		t.Fatalf("decoded length = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		diff := float64(got[i]) - float64(samples[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > 1.0/32768.0 {
			t.Errorf("sample %d: got %v, want ~%v", i, got[i], samples[i])
		}
	}
}

func TestFramesToBytesReusesBuffer(t *testing.T) {
	dst := make([]byte, 0, 16)
	out := FramesToBytes([]float32{0.1, 0.2}, dst)
	if &out[0] != &dst[:cap(dst)][0] {
		t.Fatalf("expected FramesToBytes to reuse the supplied backing array")
	}
}

func TestBytesToFramesOddTrailingByteIgnored(t *testing.T) {
	b := []byte{0x00, 0x10, 0xFF}
	got := BytesToFrames(b)
	if len(got) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(got))
	}
}
