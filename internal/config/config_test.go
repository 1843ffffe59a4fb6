package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

var allKnownKeys = []string{
	"WAMPD_IFACE", "WAMPD_PORT", "WAMPD_WSPATH", "WAMPD_WEBROOT",
	"WAMPD_VALIDATE_STRICT_URIS", "WAMPD_AUTO_CREATE_REALMS",
	"WAMPD_ABORT_UNKNOWN_REALMS", "WAMPD_DROP_OFFENDING_MESSAGES",
	"WAMPD_AGENT_ID", "WAMPD_LOG_LEVEL", "WAMPD_LOG_PRETTY",
	"WAMPD_KNOWN_REALMS", "NATS_URL", "NATS_USER", "NATS_PASSWORD",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "CACHE_ENABLED",
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t, allKnownKeys...)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Iface)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/ws", cfg.WSPath)
	assert.True(t, cfg.AutoCreateRealms)
	assert.False(t, cfg.AbortUnknownRealms)
	assert.Equal(t, "wampd", cfg.AgentID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.StatCache.Enabled)
	assert.Empty(t, cfg.Audit.URL)
}

func TestLoadReadsOverridesFromEnv(t *testing.T) {
	clearEnv(t, allKnownKeys...)
	os.Setenv("WAMPD_PORT", "9090")
	os.Setenv("WAMPD_AUTO_CREATE_REALMS", "false")
	os.Setenv("WAMPD_LOG_LEVEL", "debug")
	os.Setenv("WAMPD_KNOWN_REALMS", "akka.wamp.realm, com.example.realm")
	os.Setenv("CACHE_ENABLED", "true")
	os.Setenv("REDIS_HOST", "cache.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.AutoCreateRealms)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"akka.wamp.realm", "com.example.realm"}, cfg.KnownRealms)
	assert.True(t, cfg.StatCache.Enabled)
	assert.Equal(t, "cache.internal", cfg.StatCache.Host)
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	clearEnv(t, allKnownKeys...)
	os.Setenv("WAMPD_LOG_LEVEL", "verbose")

	_, err := Load()
	assert.Error(t, err)
}

func TestRouterConfigProjectsFields(t *testing.T) {
	clearEnv(t, allKnownKeys...)
	os.Setenv("WAMPD_AGENT_ID", "wampd-test")

	cfg, err := Load()
	require.NoError(t, err)

	rc := cfg.RouterConfig()
	assert.Equal(t, "wampd-test", rc.AgentID)
	assert.Equal(t, cfg.AutoCreateRealms, rc.AutoCreateRealms)
	assert.Equal(t, cfg.ValidateStrictURIs, rc.ValidateStrictURIs)
}
