package dealer

import (
	"testing"

	"github.com/streamspace-dev/wampd/internal/idgen"
	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

func newDealer() *Dealer {
	return New(idgen.NewMonotonicGenerator(), idgen.NewMonotonicGenerator())
}

func TestRegisterAllocatesRegistration(t *testing.T) {
	d := newDealer()
	reply, ok := d.Register(1, 100, "com.example.add")
	if !ok {
		t.Fatal("expected register to succeed")
	}
	if reply.Request != 100 {
		t.Errorf("request = %d, want 100", reply.Request)
	}
	if reply.Registration == 0 {
		t.Errorf("expected non-zero registration id")
	}
	if d.RegistrationCount() != 1 {
		t.Errorf("expected 1 registration, got %d", d.RegistrationCount())
	}
}

func TestRegisterDuplicateProcedureFails(t *testing.T) {
	d := newDealer()
	d.Register(1, 100, "com.example.add")
	if _, ok := d.Register(2, 101, "com.example.add"); ok {
		t.Fatal("expected duplicate procedure registration to fail")
	}
	if d.RegistrationCount() != 1 {
		t.Errorf("expected still only 1 registration, got %d", d.RegistrationCount())
	}
}

func TestUnregisterUnknownFails(t *testing.T) {
	d := newDealer()
	if ok, _ := d.Unregister(1, 999); ok {
		t.Fatal("expected unregister of unknown registration to fail")
	}
}

func TestUnregisterNotOwnerFails(t *testing.T) {
	d := newDealer()
	reply, _ := d.Register(1, 100, "com.example.add")
	if ok, _ := d.Unregister(2, reply.Registration); ok {
		t.Fatal("expected unregister by non-owner to fail")
	}
}

func TestRegisterUnregisterRoundTripClearsIndex(t *testing.T) {
	d := newDealer()
	reply, _ := d.Register(1, 100, "com.example.add")
	ok, canceled := d.Unregister(1, reply.Registration)
	if !ok {
		t.Fatal("expected unregister to succeed")
	}
	if len(canceled) != 0 {
		t.Errorf("expected no pending calls to cancel, got %d", len(canceled))
	}
	if d.RegistrationCount() != 0 {
		t.Errorf("expected empty index after round trip, got %d registrations", d.RegistrationCount())
	}
}

func TestCallToUnregisteredProcedureFails(t *testing.T) {
	d := newDealer()
	if _, ok := d.Call(1, 100, "nobody.home", wampmsg.Dict{}, nil, nil); ok {
		t.Fatal("expected call to unregistered procedure to fail")
	}
}

func TestCallDispatchesInvocationToCallee(t *testing.T) {
	d := newDealer()
	reply, _ := d.Register(2, 1, "com.example.add")

	out, ok := d.Call(1, 100, "com.example.add", wampmsg.Dict{}, nil, nil)
	if !ok {
		t.Fatal("expected call to succeed")
	}
	if out.Session != 2 {
		t.Errorf("expected invocation delivered to callee 2, got %d", out.Session)
	}
	inv, ok := out.Message.(wampmsg.Invocation)
	if !ok {
		t.Fatalf("expected Invocation message, got %T", out.Message)
	}
	if inv.Registration != reply.Registration {
		t.Errorf("invocation registration = %d, want %d", inv.Registration, reply.Registration)
	}
	if d.PendingCallCount() != 1 {
		t.Errorf("expected 1 pending call, got %d", d.PendingCallCount())
	}
}

func TestYieldResolvesPendingCallWithResult(t *testing.T) {
	d := newDealer()
	d.Register(2, 1, "com.example.add")
	invOut, _ := d.Call(1, 100, "com.example.add", wampmsg.Dict{}, nil, nil)
	inv := invOut.Message.(wampmsg.Invocation)

	out, ok := d.Yield(2, inv.Request, wampmsg.Dict{}, nil, nil)
	if !ok {
		t.Fatal("expected yield to resolve pending call")
	}
	if out.Session != 1 {
		t.Errorf("expected result delivered to caller 1, got %d", out.Session)
	}
	res, ok := out.Message.(wampmsg.Result)
	if !ok {
		t.Fatalf("expected Result message, got %T", out.Message)
	}
	if res.Request != 100 {
		t.Errorf("result request = %d, want 100", res.Request)
	}
	if d.PendingCallCount() != 0 {
		t.Errorf("expected pending call cleared, got %d", d.PendingCallCount())
	}
}

func TestYieldWithNoPendingCallFails(t *testing.T) {
	d := newDealer()
	if _, ok := d.Yield(2, 999, wampmsg.Dict{}, nil, nil); ok {
		t.Fatal("expected yield with no matching pending call to fail")
	}
}

func TestErrorFromCalleeResolvesPendingCallWithError(t *testing.T) {
	d := newDealer()
	d.Register(2, 1, "com.example.add")
	invOut, _ := d.Call(1, 100, "com.example.add", wampmsg.Dict{}, nil, nil)
	inv := invOut.Message.(wampmsg.Invocation)

	out, ok := d.ErrorFromCallee(2, inv.Request, wampmsg.Dict{}, "com.example.error", nil, nil)
	if !ok {
		t.Fatal("expected error-from-callee to resolve pending call")
	}
	errMsg, ok := out.Message.(wampmsg.Error)
	if !ok {
		t.Fatalf("expected Error message, got %T", out.Message)
	}
	if errMsg.RequestType != wampmsg.CodeCall {
		t.Errorf("error request type = %v, want CodeCall", errMsg.RequestType)
	}
	if errMsg.ErrorURI != "com.example.error" {
		t.Errorf("error uri = %q, want com.example.error", errMsg.ErrorURI)
	}
	if d.PendingCallCount() != 0 {
		t.Errorf("expected pending call cleared, got %d", d.PendingCallCount())
	}
}

func TestUnregisterCancelsPendingCallsAgainstThatRegistration(t *testing.T) {
	d := newDealer()
	reply, _ := d.Register(2, 1, "com.example.add")
	d.Call(1, 100, "com.example.add", wampmsg.Dict{}, nil, nil)

	ok, canceled := d.Unregister(2, reply.Registration)
	if !ok {
		t.Fatal("expected unregister to succeed")
	}
	if len(canceled) != 1 {
		t.Fatalf("expected 1 canceled call, got %d", len(canceled))
	}
	if canceled[0].Session != 1 {
		t.Errorf("expected cancellation delivered to caller 1, got %d", canceled[0].Session)
	}
	errMsg, ok := canceled[0].Message.(wampmsg.Error)
	if !ok {
		t.Fatalf("expected Error message, got %T", canceled[0].Message)
	}
	if errMsg.ErrorURI != "wamp.error.canceled" {
		t.Errorf("error uri = %q, want wamp.error.canceled", errMsg.ErrorURI)
	}
	if d.PendingCallCount() != 0 {
		t.Errorf("expected pending call cleared by unregister, got %d", d.PendingCallCount())
	}
}

func TestReleaseCalleeRemovesRegistrationsAndCancelsPendingCalls(t *testing.T) {
	d := newDealer()
	d.Register(2, 1, "com.example.add")
	d.Call(1, 100, "com.example.add", wampmsg.Dict{}, nil, nil)

	canceled := d.ReleaseCallee(2)
	if len(canceled) != 1 {
		t.Fatalf("expected 1 canceled call, got %d", len(canceled))
	}
	if canceled[0].Session != 1 {
		t.Errorf("expected cancellation delivered to caller 1, got %d", canceled[0].Session)
	}
	if d.RegistrationCount() != 0 {
		t.Errorf("expected callee's registrations removed, got %d", d.RegistrationCount())
	}
	if d.PendingCallCount() != 0 {
		t.Errorf("expected pending calls cleared, got %d", d.PendingCallCount())
	}
}

func TestReleaseCalleeLeavesOtherCalleesUntouched(t *testing.T) {
	d := newDealer()
	d.Register(2, 1, "com.example.add")
	d.Register(3, 2, "com.example.sub")

	d.ReleaseCallee(2)

	if d.RegistrationCount() != 1 {
		t.Errorf("expected other callee's registration to survive, got %d", d.RegistrationCount())
	}
}

func TestReleaseCallerDiscardsPendingCallsSilently(t *testing.T) {
	d := newDealer()
	d.Register(2, 1, "com.example.add")
	d.Call(1, 100, "com.example.add", wampmsg.Dict{}, nil, nil)

	d.ReleaseCaller(1)

	if d.PendingCallCount() != 0 {
		t.Errorf("expected pending call discarded, got %d", d.PendingCallCount())
	}
	// the registration itself is untouched by caller disconnection
	if d.RegistrationCount() != 1 {
		t.Errorf("expected registration to survive caller disconnect, got %d", d.RegistrationCount())
	}
}
