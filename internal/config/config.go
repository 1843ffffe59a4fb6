// Package config loads wampd's runtime configuration from environment
// variables, the way streamspace's services do, and validates the
// result once at boot via internal/validator.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/streamspace-dev/wampd/internal/audit"
	"github.com/streamspace-dev/wampd/internal/router"
	"github.com/streamspace-dev/wampd/internal/statcache"
	"github.com/streamspace-dev/wampd/internal/validator"
)

// Config is the fully resolved configuration for a wampd process.
type Config struct {
	Iface   string `validate:"required"`
	Port    string `validate:"required,numeric"`
	WSPath  string `validate:"required"`
	Webroot string

	ValidateStrictURIs     bool
	AutoCreateRealms       bool
	AbortUnknownRealms     bool
	DropOffendingMessages  bool
	AgentID                string `validate:"required"`
	KnownRealms            []string

	LogLevel  string `validate:"required,oneof=debug info warn error"`
	LogPretty bool

	Audit     audit.Config
	StatCache statcache.Config
}

// RouterConfig projects the parts of Config that internal/router cares
// about into a router.Config.
func (c Config) RouterConfig() router.Config {
	return router.Config{
		AutoCreateRealms:      c.AutoCreateRealms,
		AbortUnknownRealms:    c.AbortUnknownRealms,
		ValidateStrictURIs:    c.ValidateStrictURIs,
		DropOffendingMessages: c.DropOffendingMessages,
		AgentID:               c.AgentID,
	}
}

// Load reads Config from the environment and validates it. A
// validation failure is returned rather than calling os.Exit, so
// cmd/wampd can log and exit with its own formatting.
func Load() (Config, error) {
	cfg := Config{
		Iface:   getEnv("WAMPD_IFACE", "0.0.0.0"),
		Port:    getEnv("WAMPD_PORT", "8080"),
		WSPath:  getEnv("WAMPD_WSPATH", "/ws"),
		Webroot: getEnv("WAMPD_WEBROOT", ""),

		ValidateStrictURIs:    getEnvBool("WAMPD_VALIDATE_STRICT_URIS", true),
		AutoCreateRealms:      getEnvBool("WAMPD_AUTO_CREATE_REALMS", true),
		AbortUnknownRealms:    getEnvBool("WAMPD_ABORT_UNKNOWN_REALMS", false),
		DropOffendingMessages: getEnvBool("WAMPD_DROP_OFFENDING_MESSAGES", false),
		AgentID:               getEnv("WAMPD_AGENT_ID", "wampd"),

		LogLevel:  getEnv("WAMPD_LOG_LEVEL", "info"),
		LogPretty: getEnvBool("WAMPD_LOG_PRETTY", false),

		Audit: audit.Config{
			URL:      os.Getenv("NATS_URL"),
			User:     os.Getenv("NATS_USER"),
			Password: os.Getenv("NATS_PASSWORD"),
		},
		StatCache: statcache.Config{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("CACHE_ENABLED", false),
		},
	}

	if realms := os.Getenv("WAMPD_KNOWN_REALMS"); realms != "" {
		for _, r := range strings.Split(realms, ",") {
			if r = strings.TrimSpace(r); r != "" {
				cfg.KnownRealms = append(cfg.KnownRealms, r)
			}
		}
	}

	if err := validator.ValidateStruct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
