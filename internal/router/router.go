// Package router implements the router orchestrator (C8): the realm
// directory, the connection-to-session table, the HELLO/GOODBYE
// handshake, and dispatch of in-session messages to the broker and
// dealer that own each realm's routing state.
package router

import (
	"github.com/streamspace-dev/wampd/internal/broker"
	"github.com/streamspace-dev/wampd/internal/dealer"
	"github.com/streamspace-dev/wampd/internal/idgen"
	"github.com/streamspace-dev/wampd/internal/logger"
	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

// ConnID identifies one connection handler (C4), independent of any
// WAMP identifier scope. It is assigned by internal/httpd when a peer's
// WebSocket upgrade completes and is the unit of addressing for Outbound
// delivery.
type ConnID uint64

// State is a session's position in the None → Establishing → Open →
// Closing → Closed lifecycle.
type State int

const (
	StateNone State = iota
	StateEstablishing
	StateOpen
	StateClosing
	StateClosed
)

// Session is one connection's WAMP session record.
type Session struct {
	ID    wampmsg.ID
	Realm string
	State State
	Roles map[string]bool
	Conn  ConnID
}

// realm bundles one routing namespace's broker and dealer state. The
// dealer's registration and invocation ID generators are the router-wide
// ones handed to newRealm.
type realm struct {
	uri    string
	broker *broker.Broker
	dealer *dealer.Dealer
}

// Config holds the router orchestrator's policy knobs, set once at
// boot from the loaded configuration.
type Config struct {
	AutoCreateRealms      bool
	AbortUnknownRealms    bool
	ValidateStrictURIs    bool
	DropOffendingMessages bool
	AgentID               string
}

// Outbound is a message the router wants delivered to a specific
// connection; the conn/transport layer resolves ConnID to a live peer.
type Outbound struct {
	Conn    ConnID
	Message wampmsg.Message
}

// AuditSink receives a fire-and-forget notification for each router
// lifecycle event worth recording externally. Implementations must
// never block or return a value the router could act on; audit is a
// one-way collaborator, not a source of routing state. A nil sink is
// valid and simply means audit is disabled.
type AuditSink interface {
	RealmCreated(realm string)
	SessionOpened(session uint64, realm string)
	SessionClosed(session uint64, realm, reason string)
	RegistrationRejected(session uint64, realm, procedure string)
}

// Router owns the realm directory and the connection → session table.
// It is not safe for concurrent use: all calls must be serialized
// through the single event-loop goroutine that is the router's sole
// authority over realm and session state.
type Router struct {
	cfg Config
	uv  wampmsg.URIValidator

	realms map[string]*realm

	byConn    map[ConnID]*Session
	bySession map[wampmsg.ID]ConnID

	sessionIDGen idgen.Generator
	regIDGen     idgen.Generator
	invIDGen     idgen.Generator

	audit AuditSink
}

// SetAuditSink installs the audit collaborator. Passing nil disables
// audit publication; this is also the zero-value behavior.
func (r *Router) SetAuditSink(sink AuditSink) {
	r.audit = sink
}

func (r *Router) notifyAudit(fn func(AuditSink)) {
	if r.audit != nil {
		fn(r.audit)
	}
}

// New constructs a Router with an empty realm directory. knownRealms
// seeds the set of realms that exist even when auto-create is
// disabled.
func New(cfg Config, knownRealms []string) *Router {
	r := &Router{
		cfg:          cfg,
		uv:           wampmsg.URIValidator{Strict: cfg.ValidateStrictURIs},
		realms:       make(map[string]*realm),
		byConn:       make(map[ConnID]*Session),
		bySession:    make(map[wampmsg.ID]ConnID),
		sessionIDGen: idgen.RandomGenerator{},
		regIDGen:     idgen.RandomGenerator{},
		invIDGen:     idgen.RandomGenerator{},
	}
	for _, name := range knownRealms {
		r.realms[name] = newRealm(name, r.regIDGen, r.invIDGen)
	}
	return r
}

func newRealm(uri string, regGen, invGen idgen.Generator) *realm {
	return &realm{
		uri:    uri,
		broker: broker.New(idgen.RandomGenerator{}),
		dealer: dealer.New(regGen, invGen),
	}
}

func (r *Router) usedSessionID(id wampmsg.ID) bool {
	_, ok := r.bySession[id]
	return ok
}

// Receive dispatches one decoded inbound message arriving on conn and
// returns the Outbound messages it produces, in emission order.
func (r *Router) Receive(conn ConnID, msg wampmsg.Message) []Outbound {
	switch m := msg.(type) {
	case wampmsg.Hello:
		return r.handleHello(conn, m)
	case wampmsg.Goodbye:
		return r.handleGoodbye(conn, m)
	case wampmsg.Abort:
		return nil // client-origin ABORT is never acted upon
	}

	sess, ok := r.openSession(conn)
	if !ok {
		return nil // dispatch precondition: drop on non-Open session
	}
	rlm := r.realms[sess.Realm]

	logger.Router().Debug().Uint64("session", uint64(sess.ID)).Str("realm", sess.Realm).Int("code", int(msg.Code())).Msg("dispatching message")

	switch m := msg.(type) {
	case wampmsg.Subscribe:
		reply := rlm.broker.Subscribe(sess.ID, m.Request, m.Topic)
		return []Outbound{{Conn: conn, Message: reply}}

	case wampmsg.Unsubscribe:
		if ok := rlm.broker.Unsubscribe(sess.ID, m.Subscription); !ok {
			return []Outbound{{Conn: conn, Message: wampmsg.Error{
				RequestType: wampmsg.CodeUnsubscribe,
				Request:     m.Request,
				Details:     wampmsg.Dict{},
				ErrorURI:    "wamp.error.no_such_subscription",
			}}}
		}
		return []Outbound{{Conn: conn, Message: wampmsg.Unsubscribed{Request: m.Request}}}

	case wampmsg.Publish:
		excludeMe := m.Options.Bool("exclude_me", true)
		acknowledge := m.Options.Bool("acknowledge", false)
		pubID, events := rlm.broker.Publish(sess.ID, m.Topic, m.Options, m.Args, m.Kwargs, excludeMe)
		out := r.resolveBroker(events)
		if acknowledge {
			out = append(out, Outbound{Conn: conn, Message: wampmsg.Published{Request: m.Request, Publication: pubID}})
		}
		return out

	case wampmsg.Register:
		reply, ok := rlm.dealer.Register(sess.ID, m.Request, m.Procedure)
		if !ok {
			r.notifyAudit(func(a AuditSink) { a.RegistrationRejected(uint64(sess.ID), sess.Realm, m.Procedure) })
			return []Outbound{{Conn: conn, Message: wampmsg.Error{
				RequestType: wampmsg.CodeRegister,
				Request:     m.Request,
				Details:     wampmsg.Dict{},
				ErrorURI:    "wamp.error.procedure_already_exists",
			}}}
		}
		return []Outbound{{Conn: conn, Message: reply}}

	case wampmsg.Unregister:
		ok, canceled := rlm.dealer.Unregister(sess.ID, m.Registration)
		if !ok {
			return []Outbound{{Conn: conn, Message: wampmsg.Error{
				RequestType: wampmsg.CodeUnregister,
				Request:     m.Request,
				Details:     wampmsg.Dict{},
				ErrorURI:    "wamp.error.no_such_registration",
			}}}
		}
		out := r.resolveDealer(canceled)
		out = append(out, Outbound{Conn: conn, Message: wampmsg.Unregistered{Request: m.Request}})
		return out

	case wampmsg.Call:
		out, ok := rlm.dealer.Call(sess.ID, m.Request, m.Procedure, m.Options, m.Args, m.Kwargs)
		if !ok {
			return []Outbound{{Conn: conn, Message: wampmsg.Error{
				RequestType: wampmsg.CodeCall,
				Request:     m.Request,
				Details:     wampmsg.Dict{},
				ErrorURI:    "wamp.error.no_such_procedure",
			}}}
		}
		return r.resolveDealer([]dealer.Outbound{out})

	case wampmsg.Yield:
		out, ok := rlm.dealer.Yield(sess.ID, m.Request, m.Options, m.Args, m.Kwargs)
		if !ok {
			return nil
		}
		return r.resolveDealer([]dealer.Outbound{out})

	case wampmsg.Error:
		if m.RequestType != wampmsg.CodeInvocation {
			return nil
		}
		out, ok := rlm.dealer.ErrorFromCallee(sess.ID, m.Request, m.Details, m.ErrorURI, m.Args, m.Kwargs)
		if !ok {
			return nil
		}
		return r.resolveDealer([]dealer.Outbound{out})

	default:
		return nil // EVENT/INVOCATION/WELCOME/etc. never arrive inbound
	}
}

func (r *Router) handleHello(conn ConnID, m wampmsg.Hello) []Outbound {
	if sess, ok := r.byConn[conn]; ok && sess.State == StateOpen {
		logger.Router().Warn().Uint64("session", uint64(sess.ID)).Msg("HELLO on already-open session, aborting")
		canceled := r.teardown(sess, "akka.wamp.error.session_already_open")
		out := r.resolveDealer(canceled)
		out = append(out, Outbound{Conn: conn, Message: wampmsg.Abort{
			Details: wampmsg.Dict{},
			Reason:  "akka.wamp.error.session_already_open",
		}})
		return out
	}

	if _, exists := r.realms[m.Realm]; !exists {
		if r.cfg.AbortUnknownRealms || !r.cfg.AutoCreateRealms {
			logger.Router().Warn().Str("realm", m.Realm).Msg("aborting HELLO for unknown realm")
			return []Outbound{{Conn: conn, Message: wampmsg.Abort{
				Details: wampmsg.Dict{"message": "The realm " + m.Realm + " does not exist."},
				Reason:  "wamp.error.no_such_realm",
			}}}
		}
		r.realms[m.Realm] = newRealm(m.Realm, r.regIDGen, r.invIDGen)
		logger.Router().Info().Str("realm", m.Realm).Msg("realm auto-created")
		r.notifyAudit(func(a AuditSink) { a.RealmCreated(m.Realm) })
	}

	roles := map[string]bool{}
	if declared, ok := m.Details.Roles(); ok {
		for name := range declared {
			roles[name] = true
		}
	}

	sid := r.sessionIDGen.Next(r.usedSessionID)
	sess := &Session{ID: sid, Realm: m.Realm, State: StateOpen, Roles: roles, Conn: conn}
	r.byConn[conn] = sess
	r.bySession[sid] = conn

	agent := r.cfg.AgentID
	if agent == "" {
		agent = "wampd"
	}
	welcome := wampmsg.Welcome{
		Session: sid,
		Details: wampmsg.Dict{
			"agent": agent,
			"roles": wampmsg.Dict{"broker": wampmsg.Dict{}, "dealer": wampmsg.Dict{}},
		},
	}
	logger.Router().Info().Uint64("session", uint64(sid)).Str("realm", m.Realm).Msg("session opened")
	r.notifyAudit(func(a AuditSink) { a.SessionOpened(uint64(sid), m.Realm) })
	return []Outbound{{Conn: conn, Message: welcome}}
}

func (r *Router) handleGoodbye(conn ConnID, m wampmsg.Goodbye) []Outbound {
	sess, ok := r.openSession(conn)
	if !ok {
		return nil
	}
	if err := m.Validate(r.uv); err != nil {
		return nil // malformed reason URI: drop, session stays open
	}
	canceled := r.teardown(sess, m.Reason)
	out := r.resolveDealer(canceled)
	out = append(out, Outbound{Conn: conn, Message: wampmsg.Goodbye{
		Details: wampmsg.Dict{},
		Reason:  "wamp.error.goodbye_and_out",
	}})
	return out
}

// Disconnect releases every resource owned by conn's session, as if it
// had abruptly dropped without sending GOODBYE. It returns the
// cancellation Outbounds the dealer produces for in-flight calls whose
// callee just vanished.
func (r *Router) Disconnect(conn ConnID) []Outbound {
	sess, ok := r.byConn[conn]
	if !ok || sess.State != StateOpen {
		delete(r.byConn, conn)
		return nil
	}
	return r.resolveDealer(r.teardown(sess, "disconnected"))
}

// teardown releases every realm resource owned by sess (its
// subscriptions, its registrations, and any pending calls it is party
// to) and forgets it, returning the dealer cancellations that must
// still be delivered to affected callers.
func (r *Router) teardown(sess *Session, reason string) []dealer.Outbound {
	rlm := r.realms[sess.Realm]
	canceled := rlm.dealer.ReleaseCallee(sess.ID)
	rlm.dealer.ReleaseCaller(sess.ID)
	rlm.broker.ReleaseSession(sess.ID)
	delete(r.byConn, sess.Conn)
	delete(r.bySession, sess.ID)
	logger.Router().Info().Uint64("session", uint64(sess.ID)).Str("realm", sess.Realm).Str("reason", reason).Msg("session closed")
	r.notifyAudit(func(a AuditSink) { a.SessionClosed(uint64(sess.ID), sess.Realm, reason) })
	return canceled
}

// openSession returns conn's session if it is in the Open state.
func (r *Router) openSession(conn ConnID) (*Session, bool) {
	sess, ok := r.byConn[conn]
	if !ok || sess.State != StateOpen {
		return nil, false
	}
	return sess, true
}

func (r *Router) resolveBroker(events []broker.Outbound) []Outbound {
	out := make([]Outbound, 0, len(events))
	for _, e := range events {
		if connID, ok := r.bySession[e.Session]; ok {
			out = append(out, Outbound{Conn: connID, Message: e.Message})
		}
	}
	return out
}

func (r *Router) resolveDealer(events []dealer.Outbound) []Outbound {
	out := make([]Outbound, 0, len(events))
	for _, e := range events {
		if connID, ok := r.bySession[e.Session]; ok {
			out = append(out, Outbound{Conn: connID, Message: e.Message})
		}
	}
	return out
}

// SessionCount returns the number of Open sessions, for introspection.
func (r *Router) SessionCount() int {
	return len(r.bySession)
}

// RealmCount returns the number of realms in the directory, for
// introspection.
func (r *Router) RealmCount() int {
	return len(r.realms)
}

// RealmNames returns every realm currently in the directory, in no
// particular order, for callers that need to enumerate realms (the
// periodic stats-cache refresh).
func (r *Router) RealmNames() []string {
	names := make([]string, 0, len(r.realms))
	for name := range r.realms {
		names = append(names, name)
	}
	return names
}

// RealmStats reports live session/subscription/registration counts for
// realm, for the HTTP introspection endpoint. ok is false if the realm
// does not exist.
func (r *Router) RealmStats(realm string) (sessions, subscriptions, registrations int, ok bool) {
	rlm, exists := r.realms[realm]
	if !exists {
		return 0, 0, 0, false
	}
	for _, sess := range r.byConn {
		if sess.State == StateOpen && sess.Realm == realm {
			sessions++
		}
	}
	return sessions, rlm.broker.SubscriptionCount(), rlm.dealer.RegistrationCount(), true
}

// Totals sums subscription, registration, and pending-call counts
// across every realm, for the process-wide gauges exported over
// Prometheus.
func (r *Router) Totals() (subscriptions, registrations, pendingCalls int) {
	for _, rlm := range r.realms {
		subscriptions += rlm.broker.SubscriptionCount()
		registrations += rlm.dealer.RegistrationCount()
		pendingCalls += rlm.dealer.PendingCallCount()
	}
	return subscriptions, registrations, pendingCalls
}
