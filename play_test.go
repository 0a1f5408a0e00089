package audiobridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type queuedPacket struct {
	payload       []byte
	hadPacketLoss bool
}

type fakeSource struct {
	packets chan queuedPacket
	failErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{packets: make(chan queuedPacket, 16)}
}

func (s *fakeSource) push(p queuedPacket) { s.packets <- p }

func (s *fakeSource) Receive(ctx context.Context) ([]byte, bool, error) {
	select {
	case p := <-s.packets:
		return p.payload, p.hadPacketLoss, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

type fakeRender struct {
	onRender chan func([]float32)
}

func newFakeRender() *fakeRender {
	return &fakeRender{onRender: make(chan func([]float32), 1)}
}

func (r *fakeRender) Start(ctx context.Context, channels, sampleRate int, onRender func([]float32)) error {
	r.onRender <- onRender
	return nil
}

func (r *fakeRender) Stop() error { return nil }

func TestPlayStreamDecodesAndRenders(t *testing.T) {
	source := newFakeSource()
	render := newFakeRender()
	cfg := Config{BatchMs: 10, AverageBufferingMs: 30}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- PlayStream(ctx, 2, 48000, cfg, source, render, zap.NewNop()) }()

	onRender := <-render.onRender

	frames := 480 * 2 // batch_frames(480) * channels(2)
	payload := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		payload[i*2] = 0
		payload[i*2+1] = 0x10 // nonzero sample
	}
	// Priming releases only once more than avg+batch (1920) frames arrived.
	for i := 0; i < 5; i++ {
		source.push(queuedPacket{payload: payload})
	}

	rendered := false
	deadline := time.Now().Add(time.Second)
	for !rendered && time.Now().Before(deadline) {
		out := make([]float32, 480*2)
		onRender(out)
		nonZero := false
		for _, v := range out {
			if v != 0 {
				nonZero = true
				break
			}
		}
		if nonZero {
			rendered = true
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !rendered {
		t.Fatal("render callback never produced decoded (non-silent) samples")
	}

	cancel()
	if err := <-done; !errors.Is(err, Cancelled) {
		t.Fatalf("err = %v, want Cancelled", err)
	}
}

func TestPlayStreamTransportErrorSurfaces(t *testing.T) {
	source := &erroringSource{err: errors.New("connection reset")}
	render := newFakeRender()
	cfg := Config{BatchMs: 10, AverageBufferingMs: 30}

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- PlayStream(ctx, 2, 48000, cfg, source, render, zap.NewNop()) }()

	<-render.onRender

	err := <-done
	var tf *TransportFailed
	if !errors.As(err, &tf) {
		t.Fatalf("err = %v, want *TransportFailed", err)
	}
}

type erroringSource struct{ err error }

func (s *erroringSource) Receive(ctx context.Context) ([]byte, bool, error) {
	return nil, false, s.err
}

func TestPlayStreamRejectsInvalidConfig(t *testing.T) {
	source := newFakeSource()
	render := newFakeRender()
	cfg := Config{BatchMs: 0, AverageBufferingMs: 30}

	err := PlayStream(context.Background(), 2, 48000, cfg, source, render, zap.NewNop())

	var cu *ConfigUnsupported
	if !errors.As(err, &cu) {
		t.Fatalf("err = %v, want *ConfigUnsupported", err)
	}
}
