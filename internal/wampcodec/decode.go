package wampcodec

import (
	"encoding/json"

	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

func decodeBody(code wampmsg.Code, parts []json.RawMessage) (wampmsg.Message, error) {
	switch code {
	case wampmsg.CodeHello:
		if len(parts) != 3 {
			return nil, decodeErrorf("HELLO expects 3 elements, got %d", len(parts))
		}
		var realm string
		var details wampmsg.Dict
		if err := unmarshalAll(parts[1:], &realm, &details); err != nil {
			return nil, err
		}
		return wampmsg.Hello{Realm: realm, Details: details}, nil

	case wampmsg.CodeWelcome:
		if len(parts) != 3 {
			return nil, decodeErrorf("WELCOME expects 3 elements, got %d", len(parts))
		}
		var session wampmsg.ID
		var details wampmsg.Dict
		if err := unmarshalAll(parts[1:], &session, &details); err != nil {
			return nil, err
		}
		return wampmsg.Welcome{Session: session, Details: details}, nil

	case wampmsg.CodeAbort:
		if len(parts) != 3 {
			return nil, decodeErrorf("ABORT expects 3 elements, got %d", len(parts))
		}
		var details wampmsg.Dict
		var reason string
		if err := unmarshalAll(parts[1:], &details, &reason); err != nil {
			return nil, err
		}
		return wampmsg.Abort{Details: details, Reason: reason}, nil

	case wampmsg.CodeGoodbye:
		if len(parts) != 3 {
			return nil, decodeErrorf("GOODBYE expects 3 elements, got %d", len(parts))
		}
		var details wampmsg.Dict
		var reason string
		if err := unmarshalAll(parts[1:], &details, &reason); err != nil {
			return nil, err
		}
		return wampmsg.Goodbye{Details: details, Reason: reason}, nil

	case wampmsg.CodeError:
		if len(parts) < 5 || len(parts) > 7 {
			return nil, decodeErrorf("ERROR expects 5-7 elements, got %d", len(parts))
		}
		var reqType int
		var request wampmsg.ID
		var details wampmsg.Dict
		var errURI string
		if err := unmarshalAll(parts[1:5], &reqType, &request, &details, &errURI); err != nil {
			return nil, err
		}
		args, kwargs, err := decodeArgsKwargs(parts[5:])
		if err != nil {
			return nil, err
		}
		return wampmsg.Error{
			RequestType: wampmsg.Code(reqType),
			Request:     request,
			Details:     details,
			ErrorURI:    errURI,
			Args:        args,
			Kwargs:      kwargs,
		}, nil

	case wampmsg.CodePublish:
		if len(parts) < 4 || len(parts) > 6 {
			return nil, decodeErrorf("PUBLISH expects 4-6 elements, got %d", len(parts))
		}
		var request wampmsg.ID
		var options wampmsg.Dict
		var topic string
		if err := unmarshalAll(parts[1:4], &request, &options, &topic); err != nil {
			return nil, err
		}
		args, kwargs, err := decodeArgsKwargs(parts[4:])
		if err != nil {
			return nil, err
		}
		return wampmsg.Publish{Request: request, Options: options, Topic: topic, Args: args, Kwargs: kwargs}, nil

	case wampmsg.CodePublished:
		if len(parts) != 3 {
			return nil, decodeErrorf("PUBLISHED expects 3 elements, got %d", len(parts))
		}
		var request, pub wampmsg.ID
		if err := unmarshalAll(parts[1:], &request, &pub); err != nil {
			return nil, err
		}
		return wampmsg.Published{Request: request, Publication: pub}, nil

	case wampmsg.CodeSubscribe:
		if len(parts) != 4 {
			return nil, decodeErrorf("SUBSCRIBE expects 4 elements, got %d", len(parts))
		}
		var request wampmsg.ID
		var options wampmsg.Dict
		var topic string
		if err := unmarshalAll(parts[1:], &request, &options, &topic); err != nil {
			return nil, err
		}
		return wampmsg.Subscribe{Request: request, Options: options, Topic: topic}, nil

	case wampmsg.CodeSubscribed:
		if len(parts) != 3 {
			return nil, decodeErrorf("SUBSCRIBED expects 3 elements, got %d", len(parts))
		}
		var request, sub wampmsg.ID
		if err := unmarshalAll(parts[1:], &request, &sub); err != nil {
			return nil, err
		}
		return wampmsg.Subscribed{Request: request, Subscription: sub}, nil

	case wampmsg.CodeUnsubscribe:
		if len(parts) != 3 {
			return nil, decodeErrorf("UNSUBSCRIBE expects 3 elements, got %d", len(parts))
		}
		var request, sub wampmsg.ID
		if err := unmarshalAll(parts[1:], &request, &sub); err != nil {
			return nil, err
		}
		return wampmsg.Unsubscribe{Request: request, Subscription: sub}, nil

	case wampmsg.CodeUnsubscribed:
		if len(parts) != 2 {
			return nil, decodeErrorf("UNSUBSCRIBED expects 2 elements, got %d", len(parts))
		}
		var request wampmsg.ID
		if err := unmarshalAll(parts[1:], &request); err != nil {
			return nil, err
		}
		return wampmsg.Unsubscribed{Request: request}, nil

	case wampmsg.CodeEvent:
		if len(parts) < 4 || len(parts) > 6 {
			return nil, decodeErrorf("EVENT expects 4-6 elements, got %d", len(parts))
		}
		var sub, pub wampmsg.ID
		var details wampmsg.Dict
		if err := unmarshalAll(parts[1:4], &sub, &pub, &details); err != nil {
			return nil, err
		}
		args, kwargs, err := decodeArgsKwargs(parts[4:])
		if err != nil {
			return nil, err
		}
		return wampmsg.Event{Subscription: sub, Publication: pub, Details: details, Args: args, Kwargs: kwargs}, nil

	case wampmsg.CodeCall:
		if len(parts) < 4 || len(parts) > 6 {
			return nil, decodeErrorf("CALL expects 4-6 elements, got %d", len(parts))
		}
		var request wampmsg.ID
		var options wampmsg.Dict
		var procedure string
		if err := unmarshalAll(parts[1:4], &request, &options, &procedure); err != nil {
			return nil, err
		}
		args, kwargs, err := decodeArgsKwargs(parts[4:])
		if err != nil {
			return nil, err
		}
		return wampmsg.Call{Request: request, Options: options, Procedure: procedure, Args: args, Kwargs: kwargs}, nil

	case wampmsg.CodeResult:
		if len(parts) < 3 || len(parts) > 5 {
			return nil, decodeErrorf("RESULT expects 3-5 elements, got %d", len(parts))
		}
		var request wampmsg.ID
		var details wampmsg.Dict
		if err := unmarshalAll(parts[1:3], &request, &details); err != nil {
			return nil, err
		}
		args, kwargs, err := decodeArgsKwargs(parts[3:])
		if err != nil {
			return nil, err
		}
		return wampmsg.Result{Request: request, Details: details, Args: args, Kwargs: kwargs}, nil

	case wampmsg.CodeRegister:
		if len(parts) != 4 {
			return nil, decodeErrorf("REGISTER expects 4 elements, got %d", len(parts))
		}
		var request wampmsg.ID
		var options wampmsg.Dict
		var procedure string
		if err := unmarshalAll(parts[1:], &request, &options, &procedure); err != nil {
			return nil, err
		}
		return wampmsg.Register{Request: request, Options: options, Procedure: procedure}, nil

	case wampmsg.CodeRegistered:
		if len(parts) != 3 {
			return nil, decodeErrorf("REGISTERED expects 3 elements, got %d", len(parts))
		}
		var request, reg wampmsg.ID
		if err := unmarshalAll(parts[1:], &request, &reg); err != nil {
			return nil, err
		}
		return wampmsg.Registered{Request: request, Registration: reg}, nil

	case wampmsg.CodeUnregister:
		if len(parts) != 3 {
			return nil, decodeErrorf("UNREGISTER expects 3 elements, got %d", len(parts))
		}
		var request, reg wampmsg.ID
		if err := unmarshalAll(parts[1:], &request, &reg); err != nil {
			return nil, err
		}
		return wampmsg.Unregister{Request: request, Registration: reg}, nil

	case wampmsg.CodeUnregistered:
		if len(parts) != 2 {
			return nil, decodeErrorf("UNREGISTERED expects 2 elements, got %d", len(parts))
		}
		var request wampmsg.ID
		if err := unmarshalAll(parts[1:], &request); err != nil {
			return nil, err
		}
		return wampmsg.Unregistered{Request: request}, nil

	case wampmsg.CodeInvocation:
		if len(parts) < 4 || len(parts) > 6 {
			return nil, decodeErrorf("INVOCATION expects 4-6 elements, got %d", len(parts))
		}
		var request, reg wampmsg.ID
		var details wampmsg.Dict
		if err := unmarshalAll(parts[1:4], &request, &reg, &details); err != nil {
			return nil, err
		}
		args, kwargs, err := decodeArgsKwargs(parts[4:])
		if err != nil {
			return nil, err
		}
		return wampmsg.Invocation{Request: request, Registration: reg, Details: details, Args: args, Kwargs: kwargs}, nil

	case wampmsg.CodeYield:
		if len(parts) < 3 || len(parts) > 5 {
			return nil, decodeErrorf("YIELD expects 3-5 elements, got %d", len(parts))
		}
		var request wampmsg.ID
		var options wampmsg.Dict
		if err := unmarshalAll(parts[1:3], &request, &options); err != nil {
			return nil, err
		}
		args, kwargs, err := decodeArgsKwargs(parts[3:])
		if err != nil {
			return nil, err
		}
		return wampmsg.Yield{Request: request, Options: options, Args: args, Kwargs: kwargs}, nil

	default:
		return nil, decodeErrorf("unknown message code %d", int(code))
	}
}

// unmarshalAll unmarshals each element of raw into the corresponding
// pointer in targets, positionally. A type mismatch on any field is a
// schema violation, not a panic.
func unmarshalAll(raw []json.RawMessage, targets ...interface{}) error {
	if len(raw) != len(targets) {
		return decodeErrorf("schema element count mismatch: have %d, want %d", len(raw), len(targets))
	}
	for i, t := range targets {
		if err := json.Unmarshal(raw[i], t); err != nil {
			return decodeErrorf("schema field %d: %v", i, err)
		}
	}
	return nil
}

// decodeArgsKwargs handles the optional trailing args/kwargs pair
// present on several message kinds. Both remain opaque JSON; the codec
// never inspects them beyond confirming they are syntactically valid
// JSON values already captured by the top-level array parse.
func decodeArgsKwargs(tail []json.RawMessage) (args, kwargs json.RawMessage, err error) {
	switch len(tail) {
	case 0:
		return nil, nil, nil
	case 1:
		return tail[0], nil, nil
	case 2:
		return tail[0], tail[1], nil
	default:
		return nil, nil, decodeErrorf("too many trailing elements: %d", len(tail))
	}
}
