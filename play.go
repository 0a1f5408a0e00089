package audiobridge

import (
	"context"

	"github.com/vrbridge/audiobridge/internal/jitter"
	"github.com/vrbridge/audiobridge/internal/wire"
	"go.uber.org/zap"
)

// PlayStream wires PacketSource -> JitterBuffer -> DeviceRender and blocks
// until ctx is cancelled or an unrecoverable error occurs.
func PlayStream(ctx context.Context, channels, sampleRate int, cfg Config, source PacketSource, render DeviceRender, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Channels = channels
	cfg.SampleRate = sampleRate
	if err := cfg.Validate(); err != nil {
		logger.Error("play: invalid config", zap.Error(err))
		return err
	}

	buf := jitter.New(channels, cfg.BatchFrames(), cfg.AvgFrames())

	// The device's tick size need not equal batchFrames, so render pulls go
	// through a one-batch staging slice that is copied out as the device asks.
	batch := make([]float32, cfg.BatchFrames()*channels)
	var pending []float32
	if err := render.Start(ctx, channels, sampleRate, func(out []float32) {
		for len(out) > 0 {
			if len(pending) == 0 {
				jitter.NextFrameBatch(buf, batch)
				pending = batch
			}
			n := copy(out, pending)
			out = out[n:]
			pending = pending[n:]
		}
	}); err != nil {
		logger.Error("play: device start failed", zap.Error(err))
		return wrapDevice(err)
	}
	defer render.Stop()

	logger.Info("play: started", zap.Int("channels", channels), zap.Int("sampleRate", sampleRate), zap.Int("batchFrames", cfg.BatchFrames()), zap.Int("avgFrames", cfg.AvgFrames()))

	for {
		payload, hadPacketLoss, err := source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("play: stopping")
				return Cancelled
			}
			logger.Error("play: receive failed", zap.Error(err))
			return wrapTransport(err)
		}
		if hadPacketLoss {
			logger.Warn("play: packet loss reported by source")
		}
		buf.Receive(wire.BytesToFrames(payload), hadPacketLoss)

		select {
		case <-ctx.Done():
			logger.Info("play: stopping")
			return Cancelled
		default:
		}
	}
}
