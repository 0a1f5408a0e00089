package audiobridge

import (
	"context"
	"sync"

	"github.com/vrbridge/audiobridge/internal/emitter"
	"github.com/vrbridge/audiobridge/internal/format"
	"go.uber.org/zap"
)

// captureRingSize bounds the capture recycle ring; it only needs to absorb
// the jitter between a send completing and the next callback tick.
const captureRingSize = 4

// RecordStream wires DeviceCapture -> FormatConverter -> PacketEmitter and
// blocks until ctx is cancelled or an unrecoverable error occurs. mute
// suppresses encoding into the emitter without stopping the capture device.
func RecordStream(ctx context.Context, channels int, mute bool, sink PacketSink, capture DeviceCapture, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ring := emitter.New(captureRingSize)

	var (
		mu      sync.Mutex
		conv    *format.Converter
		sendErr error
		failed  = make(chan struct{})
	)

	onData := func(data []byte) {
		mu.Lock()
		c := conv
		failed := sendErr != nil
		mu.Unlock()
		if c == nil || failed || mute {
			return
		}

		err := emitter.Emit(ctx, ring, sink, func(dst []byte) []byte {
			return c.Convert(data, dst)
		})
		if err != nil {
			mu.Lock()
			if sendErr == nil {
				sendErr = wrapTransport(err)
				close(failed)
			}
			mu.Unlock()
			logger.Error("record: emit failed", zap.Error(err))
		}
	}

	_, deviceChannels, nativeFormat, err := capture.Start(ctx, channels, onData)
	if err != nil {
		logger.Error("record: device start failed", zap.Error(err))
		return wrapDevice(err)
	}
	defer capture.Stop()

	c, err := format.New(nativeFormat, deviceChannels, channels)
	if err != nil {
		logger.Error("record: unsupported device format", zap.Error(err), zap.Int("deviceChannels", deviceChannels), zap.Int("targetChannels", channels))
		return &ConfigUnsupported{Reason: err.Error()}
	}
	mu.Lock()
	conv = c
	mu.Unlock()

	logger.Info("record: started", zap.Int("deviceChannels", deviceChannels), zap.Int("targetChannels", channels), zap.Bool("mute", mute))

	select {
	case <-ctx.Done():
	case <-failed:
	}
	logger.Info("record: stopping")

	mu.Lock()
	err = sendErr
	mu.Unlock()
	if err != nil {
		return err
	}
	return Cancelled
}
