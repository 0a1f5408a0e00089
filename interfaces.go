package audiobridge

import (
	"context"

	"github.com/vrbridge/audiobridge/internal/emitter"
	"github.com/vrbridge/audiobridge/internal/format"
)

// PacketSource is the playback-side transport collaborator: it yields one
// wire packet at a time, or an error once the transport can no longer make
// progress.
type PacketSource interface {
	Receive(ctx context.Context) (payload []byte, hadPacketLoss bool, err error)
}

// PacketSink is the capture-side transport collaborator: it accepts one
// packet's payload and returns once the caller may recycle the buffer.
type PacketSink = emitter.Sink

// DeviceCapture opens a capture stream and invokes onData synchronously,
// once per device callback, with that callback's raw native-format bytes.
// requestChannels is a hint; the device may open at a different channel
// count (e.g. stereo-only hardware asked for mono), reported back as
// deviceChannels so the caller can build a matching FormatConverter. Stop
// must block until the device thread has joined and the stream is
// released.
type DeviceCapture interface {
	Start(ctx context.Context, requestChannels int, onData func(data []byte)) (sampleRate, deviceChannels int, nativeFormat format.SampleFormat, err error)
	Stop() error
}

// DeviceRender opens a render stream and invokes onRender synchronously,
// once per device callback, requesting exactly len(out) interleaved f32
// samples. Stop must block until the device thread has joined and the
// stream is released.
type DeviceRender interface {
	Start(ctx context.Context, channels, sampleRate int, onRender func(out []float32)) error
	Stop() error
}
