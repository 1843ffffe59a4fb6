// Package dealer implements the WAMP routed-RPC state owned by a single
// realm: the procedure registration index, the CALL → INVOCATION →
// YIELD/ERROR correlation, and registration release on disconnect.
package dealer

import (
	"github.com/streamspace-dev/wampd/internal/idgen"
	"github.com/streamspace-dev/wampd/internal/logger"
	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

// Outbound is a message the dealer wants delivered to a specific
// session; the router resolves it to a live connection.
type Outbound struct {
	Session wampmsg.ID
	Message wampmsg.Message
}

// registration binds a procedure URI to exactly one callee session.
type registration struct {
	id        wampmsg.ID
	procedure string
	callee    wampmsg.ID
}

// pendingCall is an in-flight call from caller to callee, alive from the
// moment an INVOCATION is dispatched until a matching YIELD/ERROR
// returns or either party disconnects.
type pendingCall struct {
	callRequest  wampmsg.ID
	caller       wampmsg.ID
	invRequest   wampmsg.ID
	callee       wampmsg.ID
	registration wampmsg.ID
}

// Dealer owns one realm's registration index and in-flight call table.
//
// Dealer is not safe for concurrent use; all calls must come from the
// single goroutine that owns the realm (the router event loop).
type Dealer struct {
	byID        map[wampmsg.ID]*registration
	byProcedure map[string]wampmsg.ID
	regIDGen    idgen.Generator
	invIDGen    idgen.Generator

	// pending is keyed by (callee, invocation request id) since the
	// callee's session scope is where that request ID lives.
	pending map[pendingKey]*pendingCall
}

type pendingKey struct {
	callee     wampmsg.ID
	invRequest wampmsg.ID
}

// New constructs an empty Dealer. regGen allocates registration IDs
// (router scope); invGen allocates invocation request IDs for every
// callee, and each draw is checked only against the target callee's
// pending calls, so an ID is unique within that callee's session scope.
func New(regGen, invGen idgen.Generator) *Dealer {
	return &Dealer{
		byID:        make(map[wampmsg.ID]*registration),
		byProcedure: make(map[string]wampmsg.ID),
		regIDGen:    regGen,
		invIDGen:    invGen,
		pending:     make(map[pendingKey]*pendingCall),
	}
}

func (d *Dealer) usedReg(id wampmsg.ID) bool {
	_, ok := d.byID[id]
	return ok
}

// Register binds procedure to callee. ok is false when another live
// registration already claims procedure, per the realm's one-callee
// invariant; the caller should then reply wamp.error.procedure_already_exists.
func (d *Dealer) Register(callee wampmsg.ID, req wampmsg.ID, procedure string) (reply wampmsg.Registered, ok bool) {
	if _, exists := d.byProcedure[procedure]; exists {
		return wampmsg.Registered{}, false
	}
	regID := d.regIDGen.Next(d.usedReg)
	d.byID[regID] = &registration{id: regID, procedure: procedure, callee: callee}
	d.byProcedure[procedure] = regID
	logger.Dealer().Info().Uint64("registration", uint64(regID)).Str("procedure", procedure).Msg("procedure registered")
	return wampmsg.Registered{Request: req, Registration: regID}, true
}

// Unregister removes a registration owned by callee. ok is false when
// regID is unknown or not owned by callee. canceled lists the pending
// calls against regID that must now be failed back to their callers
// with wamp.error.canceled.
func (d *Dealer) Unregister(callee wampmsg.ID, regID wampmsg.ID) (ok bool, canceled []Outbound) {
	reg, exists := d.byID[regID]
	if !exists || reg.callee != callee {
		return false, nil
	}
	delete(d.byID, regID)
	delete(d.byProcedure, reg.procedure)
	logger.Dealer().Info().Uint64("registration", uint64(regID)).Str("procedure", reg.procedure).Msg("procedure unregistered")

	for key, call := range d.pending {
		if call.registration != regID {
			continue
		}
		canceled = append(canceled, Outbound{
			Session: call.caller,
			Message: wampmsg.Error{
				RequestType: wampmsg.CodeCall,
				Request:     call.callRequest,
				Details:     wampmsg.Dict{},
				ErrorURI:    "wamp.error.canceled",
			},
		})
		delete(d.pending, key)
	}
	return true, canceled
}

// Call routes a CALL to the registered callee, allocating an invocation
// request ID in the callee's scope and recording a pending call. ok is
// false when no registration exists for procedure, in which case the
// caller should reply wamp.error.no_such_procedure.
func (d *Dealer) Call(caller wampmsg.ID, req wampmsg.ID, procedure string, details wampmsg.Dict, args, kwargs []byte) (out Outbound, ok bool) {
	regID, exists := d.byProcedure[procedure]
	if !exists {
		return Outbound{}, false
	}
	reg := d.byID[regID]

	invReq := d.invIDGen.Next(func(id wampmsg.ID) bool {
		_, taken := d.pending[pendingKey{callee: reg.callee, invRequest: id}]
		return taken
	})

	d.pending[pendingKey{callee: reg.callee, invRequest: invReq}] = &pendingCall{
		callRequest:  req,
		caller:       caller,
		invRequest:   invReq,
		callee:       reg.callee,
		registration: regID,
	}

	logger.Dealer().Debug().Str("procedure", procedure).Uint64("invocation", uint64(invReq)).Msg("call dispatched to callee")
	return Outbound{
		Session: reg.callee,
		Message: wampmsg.Invocation{
			Request:      invReq,
			Registration: regID,
			Details:      wampmsg.Dict{},
			Args:         args,
			Kwargs:       kwargs,
		},
	}, true
}

// Yield resolves a pending call with a successful RESULT for the
// caller. ok is false when no pending call matches (callee, invReq), in
// which case the caller of Yield (the router) should drop the message
// silently.
func (d *Dealer) Yield(callee wampmsg.ID, invReq wampmsg.ID, details wampmsg.Dict, args, kwargs []byte) (out Outbound, ok bool) {
	key := pendingKey{callee: callee, invRequest: invReq}
	call, exists := d.pending[key]
	if !exists {
		return Outbound{}, false
	}
	delete(d.pending, key)
	return Outbound{
		Session: call.caller,
		Message: wampmsg.Result{Request: call.callRequest, Details: wampmsg.Dict{}, Args: args, Kwargs: kwargs},
	}, true
}

// ErrorFromCallee resolves a pending call with a failure, forwarded to
// the caller as ERROR(CALL, ...). ok mirrors Yield's.
func (d *Dealer) ErrorFromCallee(callee wampmsg.ID, invReq wampmsg.ID, details wampmsg.Dict, errURI string, args, kwargs []byte) (out Outbound, ok bool) {
	key := pendingKey{callee: callee, invRequest: invReq}
	call, exists := d.pending[key]
	if !exists {
		return Outbound{}, false
	}
	delete(d.pending, key)
	return Outbound{
		Session: call.caller,
		Message: wampmsg.Error{
			RequestType: wampmsg.CodeCall,
			Request:     call.callRequest,
			Details:     wampmsg.Dict{},
			ErrorURI:    errURI,
			Args:        args,
			Kwargs:      kwargs,
		},
	}, true
}

// ReleaseCallee removes every registration owned by session and fails
// all of its in-flight pending calls back to their callers with
// wamp.error.canceled.
func (d *Dealer) ReleaseCallee(session wampmsg.ID) (canceled []Outbound) {
	for regID, reg := range d.byID {
		if reg.callee != session {
			continue
		}
		delete(d.byID, regID)
		delete(d.byProcedure, reg.procedure)
	}
	for key, call := range d.pending {
		if call.callee != session {
			continue
		}
		canceled = append(canceled, Outbound{
			Session: call.caller,
			Message: wampmsg.Error{
				RequestType: wampmsg.CodeCall,
				Request:     call.callRequest,
				Details:     wampmsg.Dict{},
				ErrorURI:    "wamp.error.canceled",
			},
		})
		delete(d.pending, key)
	}
	return canceled
}

// ReleaseCaller discards pending calls originated by session, without
// notifying the callee — per spec, caller disconnection is silent to
// the callee side.
func (d *Dealer) ReleaseCaller(session wampmsg.ID) {
	for key, call := range d.pending {
		if call.caller == session {
			delete(d.pending, key)
		}
	}
}

// RegistrationCount returns the number of live registrations, for
// introspection.
func (d *Dealer) RegistrationCount() int {
	return len(d.byID)
}

// PendingCallCount returns the number of in-flight calls, for
// introspection.
func (d *Dealer) PendingCallCount() int {
	return len(d.pending)
}
