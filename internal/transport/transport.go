// Package transport implements the PacketSource/PacketSink collaborator:
// an in-order, framed packet channel over a websocket connection. Each
// message is one packet, framed as a single loss-flag byte followed by the
// wire payload, matching what the jitter buffer and packet emitter assume
// of their transport.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout  = 5 * time.Second
	readLimitByte = 1 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type helloMessage struct {
	SessionID string `json:"session_id"`
}

// Conn is a websocket-backed PacketSource/PacketSink. One packet per binary
// websocket message: byte 0 is 1 if the gap preceding this packet contained
// loss, 0 otherwise; the remaining bytes are the wire payload.
type Conn struct {
	SessionID string

	ws     *websocket.Conn
	logger *zap.Logger
}

func nopLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Dial opens a client-side connection to addr and exchanges a session id
// with the server. logger may be nil.
func Dial(ctx context.Context, addr string, logger *zap.Logger) (*Conn, error) {
	logger = nopLogger(logger)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		logger.Error("transport: dial failed", zap.String("addr", addr), zap.Error(err))
		return nil, fmt.Errorf("transport: dial: %w", err)
	}
	ws.SetReadLimit(readLimitByte)

	sessionID := uuid.New().String()
	if err := writeHello(ws, helloMessage{SessionID: sessionID}); err != nil {
		ws.Close()
		return nil, fmt.Errorf("transport: send hello: %w", err)
	}

	var ack helloMessage
	if err := ws.ReadJSON(&ack); err != nil {
		ws.Close()
		return nil, fmt.Errorf("transport: read ack: %w", err)
	}

	logger.Info("transport: connected", zap.String("addr", addr), zap.String("sessionID", ack.SessionID))
	return &Conn{SessionID: ack.SessionID, ws: ws, logger: logger}, nil
}

// Upgrade accepts a server-side websocket connection on an incoming HTTP
// request, reads the client's session id, and acknowledges it. logger may
// be nil.
func Upgrade(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*Conn, error) {
	logger = nopLogger(logger)
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("transport: upgrade failed", zap.Error(err))
		return nil, fmt.Errorf("transport: upgrade: %w", err)
	}
	ws.SetReadLimit(readLimitByte)

	var hello helloMessage
	if err := ws.ReadJSON(&hello); err != nil {
		ws.Close()
		return nil, fmt.Errorf("transport: read hello: %w", err)
	}
	if hello.SessionID == "" {
		hello.SessionID = uuid.New().String()
	}
	if err := writeHello(ws, hello); err != nil {
		ws.Close()
		return nil, fmt.Errorf("transport: send ack: %w", err)
	}

	logger.Info("transport: accepted", zap.String("remote", r.RemoteAddr), zap.String("sessionID", hello.SessionID))
	return &Conn{SessionID: hello.SessionID, ws: ws, logger: logger}, nil
}

func writeHello(ws *websocket.Conn, msg helloMessage) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteJSON(msg)
}

// Receive blocks until the next packet arrives, ctx is cancelled, or the
// connection fails. ctx cancellation closes the underlying connection to
// unblock the read.
func (c *Conn) Receive(ctx context.Context) ([]byte, bool, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.ws.Close()
		case <-done:
		}
	}()

	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		c.logger.Warn("transport: receive failed", zap.String("sessionID", c.SessionID), zap.Error(err))
		return nil, false, err
	}
	if len(data) < 1 {
		return nil, false, fmt.Errorf("transport: empty frame")
	}
	if data[0] != 0 {
		c.logger.Warn("transport: packet loss reported", zap.String("sessionID", c.SessionID))
	}
	return data[1:], data[0] != 0, nil
}

// Send writes one packet as a binary websocket message, prefixed with a
// loss-flag byte. Websocket delivery is itself reliable and in-order, so
// this transport sends 0; the byte exists so a packet source fed by a lossy
// channel upstream of this connection can still flag gaps end to end.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	frame := make([]byte, len(payload)+1)
	frame[0] = 0
	copy(frame[1:], payload)

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

// Close closes the underlying websocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
