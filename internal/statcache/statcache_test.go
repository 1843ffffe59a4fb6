package statcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabledCacheHasNoClient(t *testing.T) {
	c, err := New(Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, c.Enabled())
}

func TestDisabledCacheGetIsAlwaysMiss(t *testing.T) {
	c, err := New(Config{Enabled: false})
	require.NoError(t, err)

	_, ok := c.Get(context.Background(), "akka.wamp.realm")
	assert.False(t, ok)
}

func TestDisabledCacheSetIsNoOp(t *testing.T) {
	c, err := New(Config{Enabled: false})
	require.NoError(t, err)

	// must not panic even though there is no underlying client
	c.Set(context.Background(), "akka.wamp.realm", RealmStats{Sessions: 3})
	require.NoError(t, c.Close())
}

func TestRealmKeyFormat(t *testing.T) {
	assert.Equal(t, "wampd:realm:akka.wamp.realm:stats", RealmKey("akka.wamp.realm"))
}
