package httpd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamspace-dev/wampd/internal/router"
	"github.com/streamspace-dev/wampd/internal/statcache"
	"github.com/streamspace-dev/wampd/internal/wampcodec"
	"github.com/streamspace-dev/wampd/internal/wampmsg"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	rtr := router.New(router.Config{AutoCreateRealms: true, AgentID: "wampd-test"}, nil)
	cache, err := statcache.New(statcache.Config{Enabled: false})
	if err != nil {
		t.Fatalf("statcache.New: %v", err)
	}
	s := New(Config{WSPath: "/ws"}, rtr, cache)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.eventLoop(ctx)

	hs := httptest.NewServer(s.engine)
	t.Cleanup(hs.Close)
	return s, hs
}

func TestHealthzReportsCounts(t *testing.T) {
	_, hs := newTestServer(t)

	resp, err := http.Get(hs.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestUpgradeRejectsMissingSubprotocol(t *testing.T) {
	_, hs := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial without subprotocol to fail")
	}
	if resp == nil {
		t.Fatal("expected an HTTP response even on failed handshake")
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Sec-WebSocket-Protocol"); got != wampSubprotocol {
		t.Errorf("expected Sec-WebSocket-Protocol header %q, got %q", wampSubprotocol, got)
	}
}

func TestUpgradeCompletesHandshakeOverWampProtocol(t *testing.T) {
	_, hs := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"

	dialer := *websocket.DefaultDialer
	dialer.Subprotocols = []string{wampSubprotocol}

	c, resp, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	helloBytes, err := wampcodec.Encode(wampmsg.Hello{Realm: "akka.wamp.realm", Details: wampmsg.Dict{"roles": wampmsg.Dict{"publisher": wampmsg.Dict{}}}})
	if err != nil {
		t.Fatalf("encode hello: %v", err)
	}
	if err := c.WriteMessage(websocket.TextMessage, helloBytes); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}

	msg, err := wampcodec.Decode(data, wampmsg.URIValidator{})
	if err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if _, ok := msg.(wampmsg.Welcome); !ok {
		t.Fatalf("expected Welcome, got %T", msg)
	}
}

func TestPlainGetOnWsPathWithoutWebrootReturns400(t *testing.T) {
	_, hs := newTestServer(t)

	resp, err := http.Get(hs.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRealmStatsUnknownRealmReturns404(t *testing.T) {
	_, hs := newTestServer(t)

	resp, err := http.Get(hs.URL + "/realms/does.not.exist/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRealmStatsAfterHandshakeReportsOpenSession(t *testing.T) {
	_, hs := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"

	dialer := *websocket.DefaultDialer
	dialer.Subprotocols = []string{wampSubprotocol}
	c, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	helloBytes, _ := wampcodec.Encode(wampmsg.Hello{Realm: "akka.wamp.realm", Details: wampmsg.Dict{"roles": wampmsg.Dict{"publisher": wampmsg.Dict{}}}})
	c.WriteMessage(websocket.TextMessage, helloBytes)
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := c.ReadMessage(); err != nil {
		t.Fatalf("read welcome: %v", err)
	}

	// Give the event loop a moment to process the handshake.
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get(hs.URL + "/realms/akka.wamp.realm/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stats statcache.RealmStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Sessions != 1 {
		t.Errorf("expected 1 session, got %d", stats.Sessions)
	}
}
