package wampmsg

import "encoding/json"

// Code identifies a WAMP message's wire type: the leading integer of its
// JSON array encoding.
type Code int

const (
	CodeHello        Code = 1
	CodeWelcome      Code = 2
	CodeAbort        Code = 3
	CodeGoodbye      Code = 6
	CodeError        Code = 8
	CodePublish      Code = 16
	CodePublished    Code = 17
	CodeSubscribe    Code = 32
	CodeSubscribed   Code = 33
	CodeUnsubscribe  Code = 34
	CodeUnsubscribed Code = 35
	CodeEvent        Code = 36
	CodeCall         Code = 48
	CodeResult       Code = 50
	CodeRegister     Code = 64
	CodeRegistered   Code = 65
	CodeUnregister   Code = 66
	CodeUnregistered Code = 67
	CodeInvocation   Code = 68
	CodeYield        Code = 70
)

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

var codeNames = map[Code]string{
	CodeHello:        "HELLO",
	CodeWelcome:      "WELCOME",
	CodeAbort:        "ABORT",
	CodeGoodbye:      "GOODBYE",
	CodeError:        "ERROR",
	CodePublish:      "PUBLISH",
	CodePublished:    "PUBLISHED",
	CodeSubscribe:    "SUBSCRIBE",
	CodeSubscribed:   "SUBSCRIBED",
	CodeUnsubscribe:  "UNSUBSCRIBE",
	CodeUnsubscribed: "UNSUBSCRIBED",
	CodeEvent:        "EVENT",
	CodeCall:         "CALL",
	CodeResult:       "RESULT",
	CodeRegister:     "REGISTER",
	CodeRegistered:   "REGISTERED",
	CodeUnregister:   "UNREGISTER",
	CodeUnregistered: "UNREGISTERED",
	CodeInvocation:   "INVOCATION",
	CodeYield:        "YIELD",
}

// ID is a WAMP identifier: an unsigned integer in [1, 2^53), chosen to
// stay exactly representable in a JSON/JavaScript double.
type ID uint64

// MaxID is the exclusive upper bound of the WAMP identifier space: 2^53.
const MaxID ID = 1 << 53

// InRange reports whether id falls within the legal WAMP identifier
// space [1, 2^53).
func (id ID) InRange() bool {
	return id >= 1 && id < MaxID
}

// Dict is an unordered string-keyed bag of JSON values, used for the
// "details" and "options" fields of most WAMP messages.
type Dict map[string]interface{}

// Roles extracts the client/router role set nested at dict["roles"]. It
// returns false if "roles" is absent or not an object.
func (d Dict) Roles() (map[string]interface{}, bool) {
	raw, ok := d["roles"]
	if !ok {
		return nil, false
	}
	roles, ok := raw.(map[string]interface{})
	return roles, ok
}

// Bool reads a boolean option, returning def when the key is absent or
// not a boolean.
func (d Dict) Bool(key string, def bool) bool {
	raw, ok := d[key]
	if !ok {
		return def
	}
	b, ok := raw.(bool)
	if !ok {
		return def
	}
	return b
}

// ClientRoles is the set of role names a HELLO's details.roles may
// legally declare.
var ClientRoles = map[string]bool{
	"publisher":  true,
	"subscriber": true,
	"caller":     true,
	"callee":     true,
}

// Message is the closed sum of WAMP v2 message variants this router
// understands. Each implementation knows its own wire Code and how to
// validate its own field constraints beyond the generic schema shape
// already enforced by the codec during decode.
type Message interface {
	Code() Code
	Validate(uv URIValidator) error
}

// Hello is sent by a client to open a session on a realm.
type Hello struct {
	Realm   string
	Details Dict
}

func (Hello) Code() Code { return CodeHello }

// Welcome is the router's acceptance of a Hello, carrying the newly
// minted session ID.
type Welcome struct {
	Session ID
	Details Dict
}

func (Welcome) Code() Code { return CodeWelcome }

// Abort terminates a session attempt (or, from the router, a duplicate
// handshake) before it reaches Open.
type Abort struct {
	Details Dict
	Reason  string
}

func (Abort) Code() Code { return CodeAbort }

// Goodbye is the symmetric close handshake for an Open session.
type Goodbye struct {
	Details Dict
	Reason  string
}

func (Goodbye) Code() Code { return CodeGoodbye }

// Error correlates a failure back to the request type and ID that
// caused it.
type Error struct {
	RequestType Code
	Request     ID
	Details     Dict
	ErrorURI    string
	Args        json.RawMessage
	Kwargs      json.RawMessage
}

func (Error) Code() Code { return CodeError }

// Publish asks the broker to fan a publication out to a topic's
// subscribers.
type Publish struct {
	Request ID
	Options Dict
	Topic   string
	Args    json.RawMessage
	Kwargs  json.RawMessage
}

func (Publish) Code() Code { return CodePublish }

// Published acknowledges a Publish when the caller asked for one.
type Published struct {
	Request     ID
	Publication ID
}

func (Published) Code() Code { return CodePublished }

// Subscribe registers interest in a topic.
type Subscribe struct {
	Request ID
	Options Dict
	Topic   string
}

func (Subscribe) Code() Code { return CodeSubscribe }

// Subscribed acknowledges a Subscribe with the (possibly reused)
// subscription ID.
type Subscribed struct {
	Request      ID
	Subscription ID
}

func (Subscribed) Code() Code { return CodeSubscribed }

// Unsubscribe withdraws interest from a subscription.
type Unsubscribe struct {
	Request      ID
	Subscription ID
}

func (Unsubscribe) Code() Code { return CodeUnsubscribe }

// Unsubscribed acknowledges an Unsubscribe.
type Unsubscribed struct {
	Request ID
}

func (Unsubscribed) Code() Code { return CodeUnsubscribed }

// Event is a single publication delivered to one subscriber.
type Event struct {
	Subscription ID
	Publication  ID
	Details      Dict
	Args         json.RawMessage
	Kwargs       json.RawMessage
}

func (Event) Code() Code { return CodeEvent }

// Call asks the dealer to invoke a procedure.
type Call struct {
	Request   ID
	Options   Dict
	Procedure string
	Args      json.RawMessage
	Kwargs    json.RawMessage
}

func (Call) Code() Code { return CodeCall }

// Result returns a call's outcome to its caller.
type Result struct {
	Request ID
	Details Dict
	Args    json.RawMessage
	Kwargs  json.RawMessage
}

func (Result) Code() Code { return CodeResult }

// Register asks the dealer to bind a procedure URI to this session.
type Register struct {
	Request   ID
	Options   Dict
	Procedure string
}

func (Register) Code() Code { return CodeRegister }

// Registered acknowledges a Register with the new registration ID.
type Registered struct {
	Request      ID
	Registration ID
}

func (Registered) Code() Code { return CodeRegistered }

// Unregister withdraws a registration.
type Unregister struct {
	Request      ID
	Registration ID
}

func (Unregister) Code() Code { return CodeUnregister }

// Unregistered acknowledges an Unregister.
type Unregistered struct {
	Request ID
}

func (Unregistered) Code() Code { return CodeUnregistered }

// Invocation is a Call forwarded to the callee that owns the matching
// registration.
type Invocation struct {
	Request      ID
	Registration ID
	Details      Dict
	Args         json.RawMessage
	Kwargs       json.RawMessage
}

func (Invocation) Code() Code { return CodeInvocation }

// Yield is a callee's successful outcome for an Invocation.
type Yield struct {
	Request ID
	Options Dict
	Args    json.RawMessage
	Kwargs  json.RawMessage
}

func (Yield) Code() Code { return CodeYield }
