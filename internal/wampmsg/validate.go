package wampmsg

import "fmt"

// DecodeError reports an inbound frame that failed framing, JSON, schema
// or URI validation — what spec calls an "offending message". It is
// always a value the transport's supervision policy can act on, never a
// panic or exception.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "wamp: deserialize error: " + e.Reason
}

func newDecodeError(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

func validURI(uv URIValidator, field, uri string) error {
	if !uv.Valid(uri) {
		return newDecodeError("invalid URI for %s: %q", field, uri)
	}
	return nil
}

func validID(field string, id ID) error {
	if !id.InRange() {
		return newDecodeError("id out of range for %s: %d", field, id)
	}
	return nil
}

func (m Hello) Validate(uv URIValidator) error {
	if err := validURI(uv, "realm", m.Realm); err != nil {
		return err
	}
	roles, ok := m.Details.Roles()
	if !ok || len(roles) == 0 {
		return newDecodeError("HELLO details.roles must be a non-empty dict")
	}
	for name := range roles {
		if !ClientRoles[name] {
			return newDecodeError("HELLO declares unknown role %q", name)
		}
	}
	return nil
}

func (m Welcome) Validate(uv URIValidator) error {
	return validID("session", m.Session)
}

func (m Abort) Validate(uv URIValidator) error {
	return validURI(uv, "reason", m.Reason)
}

func (m Goodbye) Validate(uv URIValidator) error {
	return validURI(uv, "reason", m.Reason)
}

func (m Error) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validURI(uv, "error", m.ErrorURI)
}

func (m Publish) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validURI(uv, "topic", m.Topic)
}

func (m Published) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validID("publication", m.Publication)
}

func (m Subscribe) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validURI(uv, "topic", m.Topic)
}

func (m Subscribed) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validID("subscription", m.Subscription)
}

func (m Unsubscribe) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validID("subscription", m.Subscription)
}

func (m Unsubscribed) Validate(uv URIValidator) error {
	return validID("request", m.Request)
}

func (m Event) Validate(uv URIValidator) error {
	if err := validID("subscription", m.Subscription); err != nil {
		return err
	}
	return validID("publication", m.Publication)
}

func (m Call) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validURI(uv, "procedure", m.Procedure)
}

func (m Result) Validate(uv URIValidator) error {
	return validID("request", m.Request)
}

func (m Register) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validURI(uv, "procedure", m.Procedure)
}

func (m Registered) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validID("registration", m.Registration)
}

func (m Unregister) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validID("registration", m.Registration)
}

func (m Unregistered) Validate(uv URIValidator) error {
	return validID("request", m.Request)
}

func (m Invocation) Validate(uv URIValidator) error {
	if err := validID("request", m.Request); err != nil {
		return err
	}
	return validID("registration", m.Registration)
}

func (m Yield) Validate(uv URIValidator) error {
	return validID("request", m.Request)
}
