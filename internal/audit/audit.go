// Package audit publishes a one-way feed of router lifecycle events
// (realm auto-created, session opened/closed, registration rejected)
// to NATS for external observers. It never subscribes back: nothing
// received over NATS may ever mutate router state, which stays a
// single-process in-memory authority.
package audit

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/streamspace-dev/wampd/internal/logger"
)

// Config configures the audit publisher's NATS connection. An empty
// URL disables audit publication entirely.
type Config struct {
	URL      string
	User     string
	Password string
}

const (
	subjectRealmCreated         = "wampd.realm.created"
	subjectSessionOpened        = "wampd.session.opened"
	subjectSessionClosed        = "wampd.session.closed"
	subjectRegistrationRejected = "wampd.registration.rejected"
)

// RealmCreatedEvent records a realm coming into existence via
// auto-create-realms.
type RealmCreatedEvent struct {
	Realm string `json:"realm"`
}

// SessionOpenedEvent records a successful HELLO handshake.
type SessionOpenedEvent struct {
	Session uint64 `json:"session"`
	Realm   string `json:"realm"`
}

// SessionClosedEvent records a session leaving the router, by GOODBYE
// or by disconnect.
type SessionClosedEvent struct {
	Session uint64 `json:"session"`
	Realm   string `json:"realm"`
	Reason  string `json:"reason"`
}

// RegistrationRejectedEvent records a REGISTER rejected because the
// procedure already has a live registration.
type RegistrationRejectedEvent struct {
	Session   uint64 `json:"session"`
	Realm     string `json:"realm"`
	Procedure string `json:"procedure"`
}

// Publisher is a fire-and-forget sink for router lifecycle events. A
// disabled Publisher (nil conn) silently drops every event; callers
// never need to branch on whether audit is configured.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS per cfg. An empty cfg.URL yields a
// disabled Publisher rather than an error, since audit is an optional
// external collaborator, never a boot-blocking dependency.
func NewPublisher(cfg Config) (*Publisher, error) {
	log := logger.Router()
	if cfg.URL == "" {
		log.Info().Msg("audit: NATS_URL not configured, publication disabled")
		return &Publisher{}, nil
	}

	opts := []nats.Option{
		nats.Name("wampd-audit-publisher"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("audit: disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("audit: reconnected to NATS")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Warn().Err(err).Msg("audit: NATS error")
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.URL).Msg("audit: failed to connect, publication disabled")
		return &Publisher{}, nil
	}
	log.Info().Str("url", conn.ConnectedUrl()).Msg("audit: connected to NATS")
	return &Publisher{conn: conn}, nil
}

// Close flushes and closes the NATS connection, if any.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	p.conn.Close()
	return nil
}

// Enabled reports whether this publisher has a live NATS connection.
func (p *Publisher) Enabled() bool {
	return p.conn != nil
}

func (p *Publisher) publish(subject string, event interface{}) {
	if p.conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Router().Warn().Err(err).Str("subject", subject).Msg("audit: failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		logger.Router().Warn().Err(err).Str("subject", subject).Msg("audit: failed to publish event")
	}
}

func (p *Publisher) RealmCreated(realm string) {
	p.publish(subjectRealmCreated, RealmCreatedEvent{Realm: realm})
}

func (p *Publisher) SessionOpened(session uint64, realm string) {
	p.publish(subjectSessionOpened, SessionOpenedEvent{Session: session, Realm: realm})
}

func (p *Publisher) SessionClosed(session uint64, realm, reason string) {
	p.publish(subjectSessionClosed, SessionClosedEvent{Session: session, Realm: realm, Reason: reason})
}

func (p *Publisher) RegistrationRejected(session uint64, realm, procedure string) {
	p.publish(subjectRegistrationRejected, RegistrationRejectedEvent{Session: session, Realm: realm, Procedure: procedure})
}
