// Package idgen generates WAMP identifiers for the router's three ID
// scopes (global, router, session), per the random-draw-and-retry and
// monotonic policies of the WAMP spec.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"

	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

// maxID is the exclusive upper bound of the legal WAMP identifier space.
var maxID = big.NewInt(int64(wampmsg.MaxID))

// Generator yields identifiers that are currently unused according to a
// caller-supplied membership check. Implementations must be safe to call
// only from the single goroutine that owns the scope's ID space (the
// router event loop); no internal locking is performed.
type Generator interface {
	// Next returns an ID not present in the scope, per used.
	Next(used func(wampmsg.ID) bool) wampmsg.ID
}

// RandomGenerator draws a uniformly random value from [1, 2^53) and
// retries on collision with the live set, per the router/global ID
// scope policy. It is the default, cryptographically-seeded allocator.
type RandomGenerator struct{}

// Next implements Generator.
func (RandomGenerator) Next(used func(wampmsg.ID) bool) wampmsg.ID {
	for {
		id := randomID()
		if id.InRange() && !used(id) {
			return id
		}
	}
}

func randomID() wampmsg.ID {
	n, err := rand.Int(rand.Reader, maxID)
	if err != nil {
		// crypto/rand failure on this platform is unrecoverable; fall
		// back to a fixed-width read so allocation never panics.
		var buf [8]byte
		_, _ = rand.Read(buf[:])
		v := binary.BigEndian.Uint64(buf[:]) % uint64(wampmsg.MaxID)
		if v == 0 {
			v = 1
		}
		return wampmsg.ID(v)
	}
	v := n.Uint64() + 1 // shift [0, 2^53) to [1, 2^53]; Next rejects 2^53 itself
	return wampmsg.ID(v)
}

// MonotonicGenerator hands out sequential values starting at 1. It is
// permitted for session-scoped request IDs, whose originator is free to
// choose any allocation strategy, and is useful in tests that need
// deterministic IDs.
type MonotonicGenerator struct {
	next wampmsg.ID
}

// NewMonotonicGenerator returns a MonotonicGenerator starting at 1.
func NewMonotonicGenerator() *MonotonicGenerator {
	return &MonotonicGenerator{next: 1}
}

// Next implements Generator. The used callback is honored in case of
// externally-seeded collisions, but the common case is a strictly
// increasing sequence.
func (g *MonotonicGenerator) Next(used func(wampmsg.ID) bool) wampmsg.ID {
	for {
		id := g.next
		g.next++
		if !used(id) {
			return id
		}
	}
}
