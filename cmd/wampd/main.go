// Command wampd is a standalone WAMP v2 router: it terminates
// WebSocket connections speaking the wamp.2.json subprotocol, and
// dispatches HELLO/SUBSCRIBE/PUBLISH/REGISTER/CALL traffic through a
// single in-memory router, broker, and dealer per realm.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamspace-dev/wampd/internal/audit"
	"github.com/streamspace-dev/wampd/internal/config"
	"github.com/streamspace-dev/wampd/internal/httpd"
	"github.com/streamspace-dev/wampd/internal/logger"
	"github.com/streamspace-dev/wampd/internal/router"
	"github.com/streamspace-dev/wampd/internal/statcache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.LogLevel, cfg.LogPretty)
	log := logger.Router()

	log.Info().Msg("starting wampd...")

	log.Info().Str("url", cfg.Audit.URL).Msg("initializing audit publisher...")
	auditPub, err := audit.NewPublisher(cfg.Audit)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audit publisher")
	}
	defer auditPub.Close()

	log.Info().Bool("enabled", cfg.StatCache.Enabled).Msg("initializing stat cache...")
	cache, err := statcache.New(cfg.StatCache)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize stat cache, continuing without caching")
		cache, _ = statcache.New(statcache.Config{Enabled: false})
	}
	defer cache.Close()

	log.Info().Strs("realms", cfg.KnownRealms).Msg("starting router...")
	rtr := router.New(cfg.RouterConfig(), cfg.KnownRealms)
	if auditPub.Enabled() {
		rtr.SetAuditSink(auditPub)
	}

	srv := httpd.New(httpd.Config{
		Iface:                 cfg.Iface,
		Port:                  cfg.Port,
		WSPath:                cfg.WSPath,
		Webroot:               cfg.Webroot,
		ValidateStrictURIs:    cfg.ValidateStrictURIs,
		DropOffendingMessages: cfg.DropOffendingMessages,
	}, rtr, cache)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal, starting graceful shutdown")
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				log.Warn().Err(err).Msg("httpd exited with error during shutdown")
			}
		case <-time.After(15 * time.Second):
			log.Warn().Msg("httpd did not shut down within grace period")
		}
	case err := <-errCh:
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("httpd listener failed")
		}
	}

	log.Info().Msg("wampd stopped")
}
