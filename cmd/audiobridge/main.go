// Command audiobridge runs one end of the streaming audio bridge: a
// recorder that captures local audio and sends it over a websocket, or a
// player that receives packets over a websocket and renders them.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"github.com/vrbridge/audiobridge"
	"github.com/vrbridge/audiobridge/internal/config"
	"github.com/vrbridge/audiobridge/internal/device"
	"github.com/vrbridge/audiobridge/internal/logging"
	"github.com/vrbridge/audiobridge/internal/transport"
	"github.com/vrbridge/audiobridge/internal/wavio"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	mode := pflag.String("mode", "play", "stream direction: record or play")
	batchMs := pflag.Int("batch-ms", cfg.BatchMs, "fade/cross-fade batch duration in milliseconds")
	avgBufferingMs := pflag.Int("avg-buffering-ms", cfg.AverageBufferingMs, "target jitter buffer occupancy in milliseconds")
	channels := pflag.Int("channels", cfg.Channels, "channel count (1 or 2)")
	sampleRate := pflag.Int("sample-rate", cfg.SampleRate, "device sample rate in Hz")
	serverAddr := pflag.String("server", cfg.ServerAddr, "server address to dial (ws://host:port); listen address in -listen mode")
	listen := pflag.Bool("listen", false, "accept a single incoming connection instead of dialing -server")
	wavPath := pflag.String("wav", "", "use a WAV file instead of a live device (capture source or render sink)")
	mute := pflag.Bool("mute", false, "capture without sending (record mode only)")
	logFile := pflag.String("log-file", "", "write structured logs to this file instead of the console")
	save := pflag.Bool("save-config", false, "persist the resulting settings as the new defaults")
	pflag.Parse()

	cfg.BatchMs = *batchMs
	cfg.AverageBufferingMs = *avgBufferingMs
	cfg.Channels = *channels
	cfg.SampleRate = *sampleRate
	cfg.ServerAddr = *serverAddr

	var logger *zap.Logger
	if *logFile != "" {
		logger = logging.NewFile(*logFile, 10, 3, 28, true)
	} else {
		logger = logging.NewConsole()
	}
	defer logger.Sync()

	if *save {
		if err := config.Save(cfg); err != nil {
			logger.Warn("main: save config failed", zap.Error(err))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	conn, err := connect(ctx, *serverAddr, *listen, logger)
	if err != nil {
		logger.Error("main: connect failed", zap.Error(err))
		os.Exit(1)
	}
	defer conn.Close()

	switch *mode {
	case "record":
		err = runRecord(ctx, cfg, conn, *wavPath, *mute, logger)
	case "play":
		err = runPlay(ctx, cfg, conn, *wavPath, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown -mode %q, want record or play\n", *mode)
		os.Exit(2)
	}

	if err != nil && err != audiobridge.Cancelled {
		logger.Error("main: stream ended with error", zap.Error(err))
		os.Exit(1)
	}
}

// connect either dials serverAddr or, in listen mode, accepts exactly one
// incoming connection on it before returning.
func connect(ctx context.Context, addr string, listen bool, logger *zap.Logger) (*transport.Conn, error) {
	if !listen {
		return transport.Dial(ctx, addr, logger)
	}

	connCh := make(chan *transport.Conn, 1)
	errCh := make(chan error, 1)
	srv := &http.Server{Addr: addr}
	srv.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := transport.Upgrade(w, r, logger)
		if err != nil {
			errCh <- err
			return
		}
		connCh <- c
	})
	go srv.ListenAndServe()

	select {
	case c := <-connCh:
		go srv.Close()
		return c, nil
	case err := <-errCh:
		srv.Close()
		return nil, err
	case <-ctx.Done():
		srv.Close()
		return nil, ctx.Err()
	}
}

func runRecord(ctx context.Context, cfg config.Config, conn *transport.Conn, wavPath string, mute bool, logger *zap.Logger) error {
	var capture audiobridge.DeviceCapture
	if wavPath != "" {
		capture = &wavio.Capture{Path: wavPath, Realtime: true}
	} else {
		capture = &device.Capture{DeviceID: cfg.InputDeviceID, Logger: logger}
	}
	return audiobridge.RecordStream(ctx, cfg.Channels, mute, conn, capture, logger)
}

func runPlay(ctx context.Context, cfg config.Config, conn *transport.Conn, wavPath string, logger *zap.Logger) error {
	var render audiobridge.DeviceRender
	if wavPath != "" {
		render = &wavio.Render{Path: wavPath, Realtime: true}
	} else {
		render = &device.Render{DeviceID: cfg.OutputDeviceID, Logger: logger}
	}
	streamCfg := audiobridge.Config{BatchMs: cfg.BatchMs, AverageBufferingMs: cfg.AverageBufferingMs}
	return audiobridge.PlayStream(ctx, cfg.Channels, cfg.SampleRate, streamCfg, conn, render, logger)
}
