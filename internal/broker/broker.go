// Package broker implements the WAMP publish/subscribe routing state
// owned by a single realm: the topic subscription index and the
// PUBLISH → EVENT fan-out rule.
package broker

import (
	"github.com/streamspace-dev/wampd/internal/idgen"
	"github.com/streamspace-dev/wampd/internal/logger"
	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

// Outbound is a message the broker wants delivered to a specific
// session. The caller (the router orchestrator) resolves the session ID
// to a live connection and performs the actual send.
type Outbound struct {
	Session wampmsg.ID
	Message wampmsg.Message
}

// subscription is one topic's live subscriber set.
type subscription struct {
	id      wampmsg.ID
	topic   string
	members map[wampmsg.ID]bool
}

// Broker owns one realm's subscription index: subscription ID → {topic,
// subscribers} and the reverse topic → subscription ID lookup that lets
// SUBSCRIBE reuse an existing subscription for a topic already being
// watched by someone.
//
// Broker is not safe for concurrent use; all calls must come from the
// single goroutine that owns the realm (the router event loop).
type Broker struct {
	byID    map[wampmsg.ID]*subscription
	byTopic map[string]wampmsg.ID
	idgen   idgen.Generator

	// publications tracks every publication ID handed out so Publish
	// can retry on collision like every other ID scope does. Entries are
	// never removed; a publication ID has no natural "released" moment,
	// so this set grows for the life of the realm. At 2^53 possible
	// values this is an acceptable tradeoff against adding a TTL/eviction
	// scheme to something that exists only to satisfy the no-collision
	// invariant.
	publications map[wampmsg.ID]bool
}

// New constructs an empty Broker using gen to allocate subscription and
// publication IDs.
func New(gen idgen.Generator) *Broker {
	return &Broker{
		byID:         make(map[wampmsg.ID]*subscription),
		byTopic:      make(map[string]wampmsg.ID),
		idgen:        gen,
		publications: make(map[wampmsg.ID]bool),
	}
}

func (b *Broker) used(id wampmsg.ID) bool {
	_, ok := b.byID[id]
	return ok
}

func (b *Broker) usedPublication(id wampmsg.ID) bool {
	return b.publications[id]
}

// Subscribe binds session to topic, reusing the topic's existing
// subscription ID if one is already live, and returns the SUBSCRIBED
// reply to send back to session.
func (b *Broker) Subscribe(session wampmsg.ID, req wampmsg.ID, topic string) wampmsg.Subscribed {
	if subID, ok := b.byTopic[topic]; ok {
		b.byID[subID].members[session] = true
		return wampmsg.Subscribed{Request: req, Subscription: subID}
	}

	subID := b.idgen.Next(b.used)
	b.byID[subID] = &subscription{
		id:      subID,
		topic:   topic,
		members: map[wampmsg.ID]bool{session: true},
	}
	b.byTopic[topic] = subID
	logger.Broker().Debug().Uint64("subscription", uint64(subID)).Str("topic", topic).Msg("topic subscription created")
	return wampmsg.Subscribed{Request: req, Subscription: subID}
}

// Unsubscribe removes session from a subscription it owns. ok is false
// when the subscription is unknown or session is not a member, in which
// case the caller should reply with wamp.error.no_such_subscription.
func (b *Broker) Unsubscribe(session wampmsg.ID, subID wampmsg.ID) (ok bool) {
	sub, exists := b.byID[subID]
	if !exists || !sub.members[session] {
		return false
	}
	delete(sub.members, session)
	if len(sub.members) == 0 {
		delete(b.byID, subID)
		delete(b.byTopic, sub.topic)
	}
	return true
}

// Publish allocates a publication ID and fans an EVENT out to every
// current subscriber of topic except the publisher, when excludeMe is
// true. It returns the Outbound events to deliver, in subscriber-set
// iteration order, and the publication ID allocated. The ID is allocated
// even when the topic has no subscription at all, so the PUBLISHED
// acknowledgement always carries a valid, non-zero ID.
func (b *Broker) Publish(publisher wampmsg.ID, topic string, details wampmsg.Dict, args, kwargs []byte, excludeMe bool) (pubID wampmsg.ID, out []Outbound) {
	pubID = b.idgen.Next(b.usedPublication)
	b.publications[pubID] = true

	subID, ok := b.byTopic[topic]
	if !ok {
		logger.Broker().Debug().Uint64("publication", uint64(pubID)).Str("topic", topic).Msg("publish to topic with no subscribers")
		return pubID, nil
	}
	sub := b.byID[subID]
	for member := range sub.members {
		if excludeMe && member == publisher {
			continue
		}
		out = append(out, Outbound{
			Session: member,
			Message: wampmsg.Event{
				Subscription: subID,
				Publication:  pubID,
				Details:      wampmsg.Dict{},
				Args:         args,
				Kwargs:       kwargs,
			},
		})
	}
	logger.Broker().Debug().Uint64("publication", uint64(pubID)).Str("topic", topic).Int("recipients", len(out)).Msg("publish fanned out")
	return pubID, out
}

// ReleaseSession removes session from every subscription it belongs to,
// deleting now-empty subscriptions. Called when a session closes.
func (b *Broker) ReleaseSession(session wampmsg.ID) {
	for subID, sub := range b.byID {
		if !sub.members[session] {
			continue
		}
		delete(sub.members, session)
		if len(sub.members) == 0 {
			delete(b.byID, subID)
			delete(b.byTopic, sub.topic)
		}
	}
}

// SubscriptionCount returns the number of live subscriptions, for
// introspection.
func (b *Broker) SubscriptionCount() int {
	return len(b.byID)
}
