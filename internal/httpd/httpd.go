// Package httpd is wampd's HTTP surface: the WebSocket upgrade
// endpoint that admits new WAMP peers, a static webroot for serving a
// bundled UI, health and Prometheus endpoints, and a read-only
// per-realm stats endpoint backed by statcache. It also owns the
// single event-loop goroutine that is the router's sole caller,
// matching the one-goroutine-per-mutable-state discipline the router
// package requires of its callers.
package httpd

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamspace-dev/wampd/internal/conn"
	"github.com/streamspace-dev/wampd/internal/logger"
	"github.com/streamspace-dev/wampd/internal/metrics"
	"github.com/streamspace-dev/wampd/internal/router"
	"github.com/streamspace-dev/wampd/internal/rterrors"
	"github.com/streamspace-dev/wampd/internal/statcache"
	"github.com/streamspace-dev/wampd/internal/transport"
	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

const wampSubprotocol = "wamp.2.json"

// Config holds the HTTP listener's own settings, separate from the
// router's routing policy.
type Config struct {
	Iface                 string
	Port                  string
	WSPath                string
	Webroot               string
	ValidateStrictURIs    bool
	DropOffendingMessages bool
}

// Server owns the gin engine, the WebSocket upgrade handshake, and the
// event loop that is the router's only caller.
type Server struct {
	cfg      Config
	rtr      *router.Router
	cache    *statcache.Cache
	engine   *gin.Engine
	upgrader websocket.Upgrader
	uv       wampmsg.URIValidator

	mu       sync.Mutex
	handlers map[router.ConnID]*conn.Handler
	nextConn uint64

	inbound     chan conn.Inbound
	disconnects chan conn.Disconnected
}

// New builds a Server wired to rtr for dispatch and cache (which may
// be a disabled no-op cache) for the stats endpoint's read model.
func New(cfg Config, rtr *router.Router, cache *statcache.Cache) *Server {
	s := &Server{
		cfg:   cfg,
		rtr:   rtr,
		cache: cache,
		uv:    wampmsg.URIValidator{Strict: cfg.ValidateStrictURIs},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			Subprotocols:    []string{wampSubprotocol},
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handlers:    make(map[router.ConnID]*conn.Handler),
		inbound:     make(chan conn.Inbound, 256),
		disconnects: make(chan conn.Disconnected, 256),
	}
	s.engine = s.buildEngine()
	return s
}

func (s *Server) buildEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(requestIDMiddleware())
	e.Use(rterrors.Recovery())
	e.Use(rterrors.ErrorHandler())

	e.GET("/healthz", s.handleHealthz)
	e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	e.GET("/realms/:realm/stats", s.handleRealmStats)
	e.GET(s.cfg.WSPath, s.handleUpgrade)

	if s.cfg.Webroot != "" {
		e.Static("/", s.cfg.Webroot)
	}
	return e
}

// Handler returns the HTTP handler serving the WebSocket upgrade,
// health, metrics, and stats routes, for embedding in an
// httptest.Server without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ServeEventLoop runs the router's sole caller loop until ctx is
// canceled. Exported so integration tests can drive it without a real
// TCP listener via Run.
func (s *Server) ServeEventLoop(ctx context.Context) {
	s.eventLoop(ctx)
}

// Run starts the event loop and the HTTP listener, blocking until ctx
// is canceled, then drains in-flight connections before returning.
func (s *Server) Run(ctx context.Context) error {
	go s.eventLoop(ctx)

	srv := &http.Server{
		Addr:              s.cfg.Iface + ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.HTTP().Info().Str("addr", srv.Addr).Str("wspath", s.cfg.WSPath).Msg("httpd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.HTTP().Warn().Err(err).Msg("httpd forced shutdown")
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.rtr.SessionCount(),
		"realms":   s.rtr.RealmCount(),
	})
}

func (s *Server) handleRealmStats(c *gin.Context) {
	realm := c.Param("realm")

	if stats, ok := s.cache.Get(c.Request.Context(), realm); ok {
		c.JSON(http.StatusOK, stats)
		return
	}

	sessions, subs, regs, ok := s.rtr.RealmStats(realm)
	if !ok {
		rterrors.AbortWithError(c, rterrors.RealmNotFound(realm))
		return
	}

	stats := statcache.RealmStats{Sessions: sessions, Subscriptions: subs, Registrations: regs}
	s.cache.Set(c.Request.Context(), realm, stats)
	c.JSON(http.StatusOK, stats)
}

// handleUpgrade enforces the wamp.2.json subprotocol before upgrading,
// then hands the new connection off to the event loop. A plain
// (non-Upgrade) GET on the same path falls through to the static
// webroot, if configured, rather than failing the handshake.
func (s *Server) handleUpgrade(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		if s.cfg.Webroot != "" {
			http.ServeFile(c.Writer, c.Request, s.cfg.Webroot+"/index.html")
			return
		}
		rterrors.AbortWithError(c, rterrors.BadRequest("Expected WebSocket Upgrade request"))
		return
	}

	requested := websocket.Subprotocols(c.Request)
	if !containsSubprotocol(requested, wampSubprotocol) {
		c.Writer.Header().Set("Sec-WebSocket-Protocol", wampSubprotocol)
		rterrors.AbortWithError(c, rterrors.UnsupportedSubprotocol([]string{wampSubprotocol}))
		return
	}

	wsConn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.HTTP().Warn().Err(err).Str("request_id", requestID(c)).Msg("websocket upgrade failed")
		return
	}

	pipeline := transport.New(wsConn, s.uv, s.cfg.DropOffendingMessages)

	s.mu.Lock()
	s.nextConn++
	id := router.ConnID(s.nextConn)
	h := conn.NewHandler(id, pipeline, s.inbound, s.disconnects)
	s.handlers[id] = h
	s.mu.Unlock()

	logger.HTTP().Info().Uint64("conn", uint64(id)).Str("request_id", requestID(c)).Msg("connection established")
	go h.Run()
}

func containsSubprotocol(protocols []string, want string) bool {
	for _, p := range protocols {
		if p == want {
			return true
		}
	}
	return false
}

// statCacheInterval is how often the event loop snapshots every realm's
// stats into statcache, mirroring the teacher's broadcastMetrics ticker.
const statCacheInterval = 5 * time.Second

// eventLoop is the router's sole caller: every Receive/Disconnect call
// happens here, serialized, matching the single-goroutine discipline
// internal/router requires. It also owns the periodic statcache refresh,
// since computing a realm snapshot reads the same router state that only
// this goroutine may touch.
func (s *Server) eventLoop(ctx context.Context) {
	ticker := time.NewTicker(statCacheInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case in := <-s.inbound:
			start := time.Now()
			out := s.rtr.Receive(in.Conn, in.Message)
			metrics.DispatchDuration.Observe(time.Since(start).Seconds())
			metrics.RecordMessage(in.Message.Code())
			s.dispatch(out)
			s.refreshGauges()

		case d := <-s.disconnects:
			out := s.rtr.Disconnect(d.Conn)
			s.mu.Lock()
			delete(s.handlers, d.Conn)
			s.mu.Unlock()
			s.dispatch(out)
			s.refreshGauges()

		case <-ticker.C:
			s.refreshStatCache(ctx)
		}
	}
}

// refreshStatCache writes a stats snapshot for every known realm into
// statcache. A disabled cache makes this a no-op per realm.
func (s *Server) refreshStatCache(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	for _, realm := range s.rtr.RealmNames() {
		sessions, subs, regs, ok := s.rtr.RealmStats(realm)
		if !ok {
			continue
		}
		s.cache.Set(ctx, realm, statcache.RealmStats{Sessions: sessions, Subscriptions: subs, Registrations: regs})
	}
}

func (s *Server) dispatch(out []router.Outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range out {
		if h, ok := s.handlers[o.Conn]; ok {
			h.Send(o.Message)
		}
		if abort, ok := o.Message.(wampmsg.Abort); ok {
			metrics.RecordAbort(abort.Reason)
		}
	}
}

func (s *Server) refreshGauges() {
	metrics.SetSessionsOpen(s.rtr.SessionCount())
	subs, regs, pending := s.rtr.Totals()
	metrics.SetSubscriptionsTotal(subs)
	metrics.SetRegistrationsTotal(regs)
	metrics.SetPendingCalls(pending)
}
