// Package transport implements the per-connection WebSocket pipeline
// (C3): WebSocket frames in, decoded WAMP messages out, and the
// reverse, with the drop-or-disconnect supervision policy applied to
// malformed input and a bounded outbound buffer that fails the
// connection rather than letting a slow peer back up the router.
package transport

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamspace-dev/wampd/internal/logger"
	"github.com/streamspace-dev/wampd/internal/metrics"
	"github.com/streamspace-dev/wampd/internal/wampcodec"
	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

// outboundBufferDepth bounds the per-connection outbound queue. A peer
// that cannot keep up with this many unsent frames is disconnected
// rather than allowed to apply backpressure to the router's event loop.
const outboundBufferDepth = 4

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Pipeline owns one peer's WebSocket connection and translates between
// wire frames and decoded WAMP messages. Policy determines what
// happens to a frame that fails to decode.
type Pipeline struct {
	conn          *websocket.Conn
	uv            wampmsg.URIValidator
	dropOffending bool

	inbound chan wampmsg.Message
	outbound chan []byte
	closed  chan struct{}
	closeErr error
}

// New wraps an established WebSocket connection. uv selects loose or
// strict URI validation; dropOffending selects whether a message that
// fails to decode is skipped (true) or fails the connection (false).
func New(conn *websocket.Conn, uv wampmsg.URIValidator, dropOffending bool) *Pipeline {
	return &Pipeline{
		conn:          conn,
		uv:            uv,
		dropOffending: dropOffending,
		inbound:       make(chan wampmsg.Message, outboundBufferDepth),
		outbound:      make(chan []byte, outboundBufferDepth),
		closed:        make(chan struct{}),
	}
}

// Run starts the read and write pumps and blocks until the connection
// closes, for any reason. Callers should invoke Run in its own
// goroutine and consume Inbound() concurrently.
func (p *Pipeline) Run() {
	done := make(chan struct{})
	go p.writePump(done)
	p.readPump()
	close(done)
	close(p.closed)
	close(p.inbound)
}

// Inbound yields successfully decoded, validated messages in arrival
// order. The channel closes when the pipeline stops.
func (p *Pipeline) Inbound() <-chan wampmsg.Message {
	return p.inbound
}

// Closed is closed once, as Run finishes. Err then reports the error
// that ended the read pump; a peer-initiated close is reported as a
// *websocket.CloseError, so Err is never nil once Closed has fired.
func (p *Pipeline) Closed() <-chan struct{} {
	return p.closed
}

// Err reports the terminal error observed by the read pump, valid only
// after Closed() has fired.
func (p *Pipeline) Err() error {
	return p.closeErr
}

// Send encodes and enqueues msg for delivery. ok is false when the
// outbound buffer is already full; the caller must then fail the
// connection, since silently dropping an outbound protocol message
// would violate per-connection ordering and correctness.
func (p *Pipeline) Send(msg wampmsg.Message) (ok bool) {
	frame, err := wampcodec.Encode(msg)
	if err != nil {
		return false
	}
	select {
	case p.outbound <- frame:
		return true
	default:
		return false
	}
}

// Close tears down the underlying connection, unblocking both pumps.
func (p *Pipeline) Close() {
	_ = p.conn.Close()
}

func (p *Pipeline) readPump() {
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		frameType, data, err := p.conn.ReadMessage()
		if err != nil {
			p.closeErr = err
			return
		}
		if frameType == websocket.BinaryMessage {
			// binary encodings are out of scope; a binary frame fails
			// the connection outright regardless of drop policy.
			logger.Transport().Warn().Msg("rejecting binary frame, only wamp.2.json is supported")
			p.closeErr = errBinaryFrame
			return
		}

		msg, err := wampcodec.Decode(data, p.uv)
		if err != nil {
			metrics.RecordOffending()
			if p.dropOffending {
				logger.Transport().Warn().Err(err).Msg("dropping offending message and resuming")
				continue
			}
			logger.Transport().Warn().Err(err).Msg("offending message, closing connection")
			p.closeErr = err
			return
		}
		p.inbound <- msg
	}
}

func (p *Pipeline) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-p.outbound:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

type pipelineError string

func (e pipelineError) Error() string { return string(e) }

const errBinaryFrame = pipelineError("transport: binary frames are not supported, only wamp.2.json")
