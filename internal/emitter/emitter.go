// Package emitter implements the capture-side PacketEmitter: a bounded
// recycle ring of byte buffers that bounds steady-state allocation on the
// capture tick, handing filled buffers to a transport sink and reclaiming
// them once the sink is done with the bytes.
package emitter

import "context"

// Sink is the capture-side transport collaborator: it accepts one packet's
// payload bytes and returns once it is safe to recycle the buffer (the
// bytes have been copied or otherwise consumed).
type Sink interface {
	Send(ctx context.Context, payload []byte) error
}

// Ring is a bounded recycle ring of byte buffers, mirroring the
// recycle-channel pairing between a capture callback and its send loop.
type Ring struct {
	pool chan []byte
}

// New creates a Ring that recycles up to size buffers; buffers returned
// beyond that capacity are simply dropped (left for the garbage collector)
// rather than blocking the caller.
func New(size int) *Ring {
	return &Ring{pool: make(chan []byte, size)}
}

// Acquire pops a previously recycled buffer, or returns nil if the ring is
// empty, in which case the caller (typically a FormatConverter) allocates.
func (r *Ring) Acquire() []byte {
	select {
	case b := <-r.pool:
		return b
	default:
		return nil
	}
}

// Release returns a buffer to the ring for reuse. If the ring is full the
// buffer is dropped.
func (r *Ring) Release(b []byte) {
	select {
	case r.pool <- b:
	default:
	}
}

// Emit acquires a buffer, lets fill populate it (typically
// Converter.Convert), sends the result through sink, and releases the
// buffer back to the ring once the send completes. The buffer passed to
// fill and returned by it must share backing storage whenever cap allows,
// so recycling is effective.
func Emit(ctx context.Context, r *Ring, sink Sink, fill func(dst []byte) []byte) error {
	buf := fill(r.Acquire())
	if err := sink.Send(ctx, buf); err != nil {
		return err
	}
	r.Release(buf)
	return nil
}
