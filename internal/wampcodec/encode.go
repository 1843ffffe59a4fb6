package wampcodec

import (
	"encoding/json"

	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

// encodeBody lays a Message out as the positional slice that will
// marshal to its wire array, trimming absent optional args/kwargs from
// the tail rather than emitting JSON nulls.
func encodeBody(m wampmsg.Message) []interface{} {
	switch v := m.(type) {
	case wampmsg.Hello:
		return []interface{}{v.Code(), v.Realm, dictOrEmpty(v.Details)}
	case wampmsg.Welcome:
		return []interface{}{v.Code(), v.Session, dictOrEmpty(v.Details)}
	case wampmsg.Abort:
		return []interface{}{v.Code(), dictOrEmpty(v.Details), v.Reason}
	case wampmsg.Goodbye:
		return []interface{}{v.Code(), dictOrEmpty(v.Details), v.Reason}
	case wampmsg.Error:
		return appendArgsKwargs([]interface{}{v.Code(), v.RequestType, v.Request, dictOrEmpty(v.Details), v.ErrorURI}, v.Args, v.Kwargs)
	case wampmsg.Publish:
		return appendArgsKwargs([]interface{}{v.Code(), v.Request, dictOrEmpty(v.Options), v.Topic}, v.Args, v.Kwargs)
	case wampmsg.Published:
		return []interface{}{v.Code(), v.Request, v.Publication}
	case wampmsg.Subscribe:
		return []interface{}{v.Code(), v.Request, dictOrEmpty(v.Options), v.Topic}
	case wampmsg.Subscribed:
		return []interface{}{v.Code(), v.Request, v.Subscription}
	case wampmsg.Unsubscribe:
		return []interface{}{v.Code(), v.Request, v.Subscription}
	case wampmsg.Unsubscribed:
		return []interface{}{v.Code(), v.Request}
	case wampmsg.Event:
		return appendArgsKwargs([]interface{}{v.Code(), v.Subscription, v.Publication, dictOrEmpty(v.Details)}, v.Args, v.Kwargs)
	case wampmsg.Call:
		return appendArgsKwargs([]interface{}{v.Code(), v.Request, dictOrEmpty(v.Options), v.Procedure}, v.Args, v.Kwargs)
	case wampmsg.Result:
		return appendArgsKwargs([]interface{}{v.Code(), v.Request, dictOrEmpty(v.Details)}, v.Args, v.Kwargs)
	case wampmsg.Register:
		return []interface{}{v.Code(), v.Request, dictOrEmpty(v.Options), v.Procedure}
	case wampmsg.Registered:
		return []interface{}{v.Code(), v.Request, v.Registration}
	case wampmsg.Unregister:
		return []interface{}{v.Code(), v.Request, v.Registration}
	case wampmsg.Unregistered:
		return []interface{}{v.Code(), v.Request}
	case wampmsg.Invocation:
		return appendArgsKwargs([]interface{}{v.Code(), v.Request, v.Registration, dictOrEmpty(v.Details)}, v.Args, v.Kwargs)
	case wampmsg.Yield:
		return appendArgsKwargs([]interface{}{v.Code(), v.Request, dictOrEmpty(v.Options)}, v.Args, v.Kwargs)
	default:
		return nil
	}
}

func dictOrEmpty(d wampmsg.Dict) wampmsg.Dict {
	if d == nil {
		return wampmsg.Dict{}
	}
	return d
}

// appendArgsKwargs appends args/kwargs only as far as necessary: a
// present kwargs forces args to also be emitted (as an empty list if
// nil), matching the WAMP wire convention that kwargs never appears
// without a preceding args element.
func appendArgsKwargs(head []interface{}, args, kwargs []byte) []interface{} {
	if len(kwargs) > 0 {
		if len(args) == 0 {
			args = []byte("[]")
		}
		return append(head, json.RawMessage(args), json.RawMessage(kwargs))
	}
	if len(args) > 0 {
		return append(head, json.RawMessage(args))
	}
	return head
}
