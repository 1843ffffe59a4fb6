// Package wampclient is a minimal symmetric WAMP peer used only from
// integration tests: a Dial that completes the HELLO/WELCOME handshake
// plus blocking Subscribe/Publish/Register/Call helpers, built directly
// on gorilla/websocket and the same codec the
// router uses, so tests exercise the real wire format end to end
// instead of calling router internals directly.
package wampclient

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamspace-dev/wampd/internal/wampcodec"
	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

const subprotocol = "wamp.2.json"

// CallHandler answers an invocation for a registered procedure.
// Returning a non-empty errURI sends ERROR(INVOCATION) back to the
// router with errURI as the error URI instead of a YIELD.
type CallHandler func(args, kwargs json.RawMessage) (resultArgs, resultKwargs json.RawMessage, errURI string)

// Client is a single WAMP session opened over one WebSocket
// connection. It is not safe for concurrent Call/Register/Subscribe
// calls from multiple goroutines against the same request ID scope,
// matching how a single-threaded test peer is used.
type Client struct {
	conn    *websocket.Conn
	session wampmsg.ID

	nextRequest uint64

	mu       sync.Mutex
	pending  map[wampmsg.ID]chan wampmsg.Message
	handlers map[wampmsg.ID]CallHandler // by registration ID

	events chan wampmsg.Event
	readErr chan error
	closed  chan struct{}
}

// Dial opens a WebSocket connection to addr, negotiates the
// wamp.2.json subprotocol, and completes the HELLO/WELCOME handshake
// on realm.
func Dial(addr, realm string) (*Client, error) {
	dialer := *websocket.DefaultDialer
	dialer.Subprotocols = []string{subprotocol}

	conn, _, err := dialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("wampclient: dial: %w", err)
	}

	c := &Client{
		conn:     conn,
		pending:  make(map[wampmsg.ID]chan wampmsg.Message),
		handlers: make(map[wampmsg.ID]CallHandler),
		events:   make(chan wampmsg.Event, 16),
		readErr:  make(chan error, 1),
		closed:   make(chan struct{}),
	}
	handshake := c.handshakeReplies()
	go c.readLoop()

	roles := wampmsg.Dict{
		"publisher":  wampmsg.Dict{},
		"subscriber": wampmsg.Dict{},
		"caller":     wampmsg.Dict{},
		"callee":     wampmsg.Dict{},
	}
	if err := c.send(wampmsg.Hello{Realm: realm, Details: wampmsg.Dict{"roles": roles}}); err != nil {
		conn.Close()
		return nil, err
	}

	msg, err := c.awaitHandshake(handshake)
	if err != nil {
		conn.Close()
		return nil, err
	}
	welcome, ok := msg.(wampmsg.Welcome)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("wampclient: expected WELCOME, got %T", msg)
	}
	c.session = welcome.Session
	return c, nil
}

// Session returns the session ID granted by WELCOME.
func (c *Client) Session() wampmsg.ID { return c.session }

// Events returns the channel of EVENT messages delivered for this
// client's active subscriptions.
func (c *Client) Events() <-chan wampmsg.Event { return c.events }

// Close sends GOODBYE and closes the underlying connection.
func (c *Client) Close() error {
	_ = c.send(wampmsg.Goodbye{Details: wampmsg.Dict{}, Reason: "wamp.close.normal"})
	return c.conn.Close()
}

// Subscribe subscribes to topic and returns the subscription ID.
func (c *Client) Subscribe(topic string) (wampmsg.ID, error) {
	req := c.allocRequest()
	if err := c.send(wampmsg.Subscribe{Request: req, Options: wampmsg.Dict{}, Topic: topic}); err != nil {
		return 0, err
	}
	reply, err := c.awaitReply(req, 5*time.Second)
	if err != nil {
		return 0, err
	}
	switch m := reply.(type) {
	case wampmsg.Subscribed:
		return m.Subscription, nil
	case wampmsg.Error:
		return 0, fmt.Errorf("wampclient: subscribe failed: %s", m.ErrorURI)
	default:
		return 0, fmt.Errorf("wampclient: unexpected reply %T", reply)
	}
}

// Publish publishes args/kwargs to topic. When ack is true it blocks
// for PUBLISHED and returns the publication ID.
func (c *Client) Publish(topic string, args, kwargs json.RawMessage, ack bool) (wampmsg.ID, error) {
	req := c.allocRequest()
	opts := wampmsg.Dict{}
	if ack {
		opts["acknowledge"] = true
	}
	if err := c.send(wampmsg.Publish{Request: req, Options: opts, Topic: topic, Args: args, Kwargs: kwargs}); err != nil {
		return 0, err
	}
	if !ack {
		return 0, nil
	}
	reply, err := c.awaitReply(req, 5*time.Second)
	if err != nil {
		return 0, err
	}
	published, ok := reply.(wampmsg.Published)
	if !ok {
		return 0, fmt.Errorf("wampclient: unexpected reply %T", reply)
	}
	return published.Publication, nil
}

// Register registers procedure, dispatching invocations to handler on
// a background goroutine until the client is closed.
func (c *Client) Register(procedure string, handler CallHandler) (wampmsg.ID, error) {
	req := c.allocRequest()
	if err := c.send(wampmsg.Register{Request: req, Options: wampmsg.Dict{}, Procedure: procedure}); err != nil {
		return 0, err
	}
	reply, err := c.awaitReply(req, 5*time.Second)
	if err != nil {
		return 0, err
	}
	switch m := reply.(type) {
	case wampmsg.Registered:
		c.mu.Lock()
		c.handlers[m.Registration] = handler
		c.mu.Unlock()
		return m.Registration, nil
	case wampmsg.Error:
		return 0, fmt.Errorf("wampclient: register failed: %s", m.ErrorURI)
	default:
		return 0, fmt.Errorf("wampclient: unexpected reply %T", reply)
	}
}

// Call invokes procedure and blocks for its result or error.
func (c *Client) Call(procedure string, args, kwargs json.RawMessage) (resultArgs, resultKwargs json.RawMessage, err error) {
	req := c.allocRequest()
	if err := c.send(wampmsg.Call{Request: req, Options: wampmsg.Dict{}, Procedure: procedure, Args: args, Kwargs: kwargs}); err != nil {
		return nil, nil, err
	}
	reply, err := c.awaitReply(req, 5*time.Second)
	if err != nil {
		return nil, nil, err
	}
	switch m := reply.(type) {
	case wampmsg.Result:
		return m.Args, m.Kwargs, nil
	case wampmsg.Error:
		return nil, nil, fmt.Errorf("wampclient: call failed: %s", m.ErrorURI)
	default:
		return nil, nil, fmt.Errorf("wampclient: unexpected reply %T", reply)
	}
}

func (c *Client) allocRequest() wampmsg.ID {
	return wampmsg.ID(atomic.AddUint64(&c.nextRequest, 1))
}

func (c *Client) send(m wampmsg.Message) error {
	data, err := wampcodec.Encode(m)
	if err != nil {
		return fmt.Errorf("wampclient: encode: %w", err)
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) awaitHandshake(ch <-chan wampmsg.Message) (wampmsg.Message, error) {
	select {
	case err := <-c.readErr:
		return nil, err
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("wampclient: timed out waiting for handshake reply")
	case msg := <-ch:
		return msg, nil
	}
}

// handshakeReplies is a one-shot channel fed by readLoop's first
// WELCOME or ABORT message, used only during Dial.
func (c *Client) handshakeReplies() <-chan wampmsg.Message {
	ch := make(chan wampmsg.Message, 1)
	c.mu.Lock()
	c.pending[0] = ch
	c.mu.Unlock()
	return ch
}

func (c *Client) awaitReply(req wampmsg.ID, timeout time.Duration) (wampmsg.Message, error) {
	ch := make(chan wampmsg.Message, 1)
	c.mu.Lock()
	c.pending[req] = ch
	c.mu.Unlock()

	select {
	case msg := <-ch:
		return msg, nil
	case err := <-c.readErr:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("wampclient: timed out waiting for reply to request %d", req)
	}
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case c.readErr <- fmt.Errorf("wampclient: read: %w", err):
			default:
			}
			close(c.closed)
			return
		}
		msg, err := wampcodec.Decode(data, wampmsg.URIValidator{})
		if err != nil {
			select {
			case c.readErr <- fmt.Errorf("wampclient: decode: %w", err):
			default:
			}
			continue
		}
		c.route(msg)
	}
}

func (c *Client) route(msg wampmsg.Message) {
	switch m := msg.(type) {
	case wampmsg.Welcome, wampmsg.Abort:
		c.deliverPending(0, msg)

	case wampmsg.Event:
		select {
		case c.events <- m:
		default:
		}

	case wampmsg.Invocation:
		c.mu.Lock()
		handler, ok := c.handlers[m.Registration]
		c.mu.Unlock()
		if !ok {
			return
		}
		go c.serveInvocation(m, handler)

	case wampmsg.Subscribed:
		c.deliverPending(m.Request, msg)
	case wampmsg.Published:
		c.deliverPending(m.Request, msg)
	case wampmsg.Registered:
		c.deliverPending(m.Request, msg)
	case wampmsg.Unregistered:
		c.deliverPending(m.Request, msg)
	case wampmsg.Unsubscribed:
		c.deliverPending(m.Request, msg)
	case wampmsg.Result:
		c.deliverPending(m.Request, msg)
	case wampmsg.Error:
		c.deliverPending(m.Request, msg)
	}
}

func (c *Client) serveInvocation(inv wampmsg.Invocation, handler CallHandler) {
	resultArgs, resultKwargs, errURI := handler(inv.Args, inv.Kwargs)
	if errURI != "" {
		_ = c.send(wampmsg.Error{
			RequestType: wampmsg.CodeInvocation,
			Request:     inv.Request,
			Details:     wampmsg.Dict{},
			ErrorURI:    errURI,
		})
		return
	}
	_ = c.send(wampmsg.Yield{Request: inv.Request, Options: wampmsg.Dict{}, Args: resultArgs, Kwargs: resultKwargs})
}

func (c *Client) deliverPending(req wampmsg.ID, msg wampmsg.Message) {
	c.mu.Lock()
	ch, ok := c.pending[req]
	if ok {
		delete(c.pending, req)
	}
	c.mu.Unlock()
	if ok {
		ch <- msg
	}
}
