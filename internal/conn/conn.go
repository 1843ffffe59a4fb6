// Package conn implements the connection handler (C4): the actor that
// owns one peer's transport pipeline, forwards its decoded messages
// into the router's mailbox, and forwards router-issued replies back
// out to the peer.
package conn

import (
	"github.com/streamspace-dev/wampd/internal/logger"
	"github.com/streamspace-dev/wampd/internal/router"
	"github.com/streamspace-dev/wampd/internal/transport"
	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

// State mirrors a connection handler's position in the Starting →
// Connected → Disconnected lifecycle.
type State int

const (
	StateStarting State = iota
	StateConnected
	StateDisconnected
)

// Inbound is one decoded message arriving on a connection, tagged with
// the connection it came from so the router's single mailbox can
// multiplex many peers.
type Inbound struct {
	Conn    router.ConnID
	Message wampmsg.Message
}

// Disconnected signals that a connection's transport pipeline has
// ended, for any reason: a clean peer close, a protocol failure, or a
// router-issued Disconnect.
type Disconnected struct {
	Conn router.ConnID
}

// Handler owns one peer's Pipeline and mediates between it and the
// router's mailbox channels. A pipeline failure is, from the router's
// perspective, indistinguishable from a clean Disconnected signal.
type Handler struct {
	id       router.ConnID
	pipeline *transport.Pipeline
	state    State

	toRouter    chan<- Inbound
	disconnects chan<- Disconnected
}

// NewHandler wires pipeline to a connection identity and the shared
// mailbox channels the router's event loop reads from.
func NewHandler(id router.ConnID, pipeline *transport.Pipeline, toRouter chan<- Inbound, disconnects chan<- Disconnected) *Handler {
	return &Handler{
		id:          id,
		pipeline:    pipeline,
		state:       StateStarting,
		toRouter:    toRouter,
		disconnects: disconnects,
	}
}

// Run starts the pipeline's own pumps and blocks, forwarding every
// decoded message to the router mailbox until the pipeline closes. Run
// returns after emitting exactly one Disconnected for this connection.
// Callers should invoke Run in its own goroutine.
func (h *Handler) Run() {
	h.state = StateConnected
	go h.pipeline.Run()

	for msg := range h.pipeline.Inbound() {
		h.toRouter <- Inbound{Conn: h.id, Message: msg}
	}

	h.state = StateDisconnected
	if err := h.pipeline.Err(); err != nil {
		logger.Transport().Debug().Uint64("conn", uint64(h.id)).Err(err).Msg("connection closed")
	}
	h.disconnects <- Disconnected{Conn: h.id}
}

// Send forwards a router-originated message to the peer. A connection
// that is not Connected silently discards the send; the router will
// shortly observe this connection's Disconnected signal, if it has not
// already.
func (h *Handler) Send(msg wampmsg.Message) {
	if h.state != StateConnected {
		return
	}
	if ok := h.pipeline.Send(msg); !ok {
		// outbound buffer overflow: fail the connection rather than let
		// a slow peer apply backpressure to the router.
		h.pipeline.Close()
	}
}

// Disconnect tears down the peer. The resulting pipeline closure
// produces the usual Disconnected signal through Run's loop.
func (h *Handler) Disconnect() {
	logger.Transport().Debug().Uint64("conn", uint64(h.id)).Msg("router-initiated disconnect")
	h.pipeline.Close()
}

// State reports the handler's current lifecycle position.
func (h *Handler) State() State {
	return h.state
}
