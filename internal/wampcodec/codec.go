// Package wampcodec implements the "wamp.2.json" wire codec: a WAMP
// message serialises as a JSON array whose first element is the
// message's numeric Code, decoded or encoded one frame at a time.
package wampcodec

import (
	"encoding/json"
	"fmt"

	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

// Decode parses one JSON text frame into a validated Message. It never
// panics on malformed input: structural, type, or URI mistakes all
// surface as a *wampmsg.DecodeError so the transport's supervision
// policy can decide to drop-and-resume or disconnect.
func Decode(data []byte, uv wampmsg.URIValidator) (wampmsg.Message, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, decodeErrorf("not a JSON array: %v", err)
	}
	if len(parts) == 0 {
		return nil, decodeErrorf("empty message array")
	}

	var codeNum int
	if err := json.Unmarshal(parts[0], &codeNum); err != nil {
		return nil, decodeErrorf("malformed message code: %v", err)
	}
	code := wampmsg.Code(codeNum)

	msg, err := decodeBody(code, parts)
	if err != nil {
		return nil, err
	}
	if err := msg.Validate(uv); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode serialises a Message to its "wamp.2.json" text frame.
func Encode(m wampmsg.Message) ([]byte, error) {
	arr := encodeBody(m)
	return json.Marshal(arr)
}

func decodeErrorf(format string, args ...interface{}) *wampmsg.DecodeError {
	return &wampmsg.DecodeError{Reason: fmt.Sprintf(format, args...)}
}
