package wampcodec

import (
	"reflect"
	"testing"

	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

func uv() wampmsg.URIValidator { return wampmsg.URIValidator{} }

func TestDecodeHello(t *testing.T) {
	frame := []byte(`[1,"akka.wamp.realm",{"roles":{"publisher":{}}}]`)
	msg, err := Decode(frame, uv())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hello, ok := msg.(wampmsg.Hello)
	if !ok {
		t.Fatalf("expected Hello, got %T", msg)
	}
	if hello.Realm != "akka.wamp.realm" {
		t.Errorf("realm = %q", hello.Realm)
	}
}

func TestDecodeRejectsBinaryGarbage(t *testing.T) {
	if _, err := Decode([]byte("not json"), uv()); err == nil {
		t.Fatal("expected decode error for non-JSON input")
	}
}

func TestDecodeRejectsUnknownRole(t *testing.T) {
	frame := []byte(`[1,"akka.wamp.realm",{"roles":{"supervisor":{}}}]`)
	if _, err := Decode(frame, uv()); err == nil {
		t.Fatal("expected decode error for unknown role")
	}
}

func TestDecodeRejectsWrongArity(t *testing.T) {
	frame := []byte(`[1,"akka.wamp.realm"]`)
	if _, err := Decode(frame, uv()); err == nil {
		t.Fatal("expected decode error for short HELLO")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []wampmsg.Message{
		wampmsg.Welcome{Session: 42, Details: wampmsg.Dict{"agent": "wampd"}},
		wampmsg.Abort{Details: wampmsg.Dict{}, Reason: "wamp.error.no_such_realm"},
		wampmsg.Goodbye{Details: wampmsg.Dict{}, Reason: "wamp.error.goodbye_and_out"},
		wampmsg.Subscribed{Request: 1, Subscription: 10},
		wampmsg.Published{Request: 2, Publication: 20},
		wampmsg.Unsubscribed{Request: 3},
		wampmsg.Registered{Request: 4, Registration: 40},
		wampmsg.Unregistered{Request: 5},
	}

	for _, original := range cases {
		data, err := Encode(original)
		if err != nil {
			t.Fatalf("encode %T: %v", original, err)
		}
		decoded, err := Decode(data, uv())
		if err != nil {
			t.Fatalf("decode %T round trip: %v", original, err)
		}
		if !reflect.DeepEqual(decoded, original) {
			t.Errorf("round trip mismatch for %T: got %#v, want %#v", original, decoded, original)
		}
	}
}

func TestEncodeDecodeArgsKwargsRoundTrip(t *testing.T) {
	original := wampmsg.Publish{
		Request: 2,
		Options: wampmsg.Dict{"acknowledge": true},
		Topic:   "myapp.TOPIC-",
		Args:    []byte(`[1,2,3]`),
		Kwargs:  []byte(`{"a":1}`),
	}
	data, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(data, uv())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	pub, ok := decoded.(wampmsg.Publish)
	if !ok {
		t.Fatalf("expected Publish, got %T", decoded)
	}
	if string(pub.Args) != "[1,2,3]" || string(pub.Kwargs) != `{"a":1}` {
		t.Errorf("args/kwargs not preserved: args=%s kwargs=%s", pub.Args, pub.Kwargs)
	}
}

func TestDecodeRejectsBadRequestID(t *testing.T) {
	frame := []byte(`[32,0,{},"myapp.topic"]`)
	if _, err := Decode(frame, uv()); err == nil {
		t.Fatal("expected decode error for request id 0")
	}
}

func TestDecodeRejectsInvalidTopicURI(t *testing.T) {
	frame := []byte(`[16,1,{},"bad..topic"]`)
	if _, err := Decode(frame, uv()); err == nil {
		t.Fatal("expected decode error for invalid topic URI")
	}
}
