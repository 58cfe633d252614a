package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zoravur/scorecast/internal/api"
	"github.com/zoravur/scorecast/internal/live"
	"github.com/zoravur/scorecast/internal/protocol"
	"github.com/zoravur/scorecast/internal/service"
	"github.com/zoravur/scorecast/internal/store"
)

func newWSServer(t *testing.T) (*httptest.Server, *live.Registry) {
	t.Helper()
	reg := live.NewRegistry()
	h := &api.WSHandler{Registry: reg}
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)
	return srv, reg
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, query), nil)
	if err != nil {
		t.Fatalf("dial %q: %v", query, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// expectPolicyClose reads until the server closes the connection and asserts
// the close code and reason.
func expectPolicyClose(t *testing.T, conn *websocket.Conn, wantReason string) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("want close error, got %v", err)
	}
	if ce.Code != websocket.ClosePolicyViolation {
		t.Errorf("want close code %d, got %d", websocket.ClosePolicyViolation, ce.Code)
	}
	if ce.Text != wantReason {
		t.Errorf("want reason %q, got %q", wantReason, ce.Text)
	}
}

func waitForConns(t *testing.T, reg *live.Registry, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(reg.Connections(sessionID)) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s never reached %d live connections", sessionID, n)
}

// The upgrade must survive the full production route chain: the logging
// middleware wraps the ResponseWriter, and a wrapper that hides
// http.Hijacker makes every upgrade fail with a 500 before the registry is
// ever reached.
func TestUpgradeThroughRouteChain(t *testing.T) {
	reg := live.NewRegistry()
	router := live.NewRouter(reg, zap.NewNop())
	svc := service.New(store.New(nil), router, zap.NewNop())

	srv := httptest.NewServer(api.SetupRoutes(svc, reg))
	t.Cleanup(srv.Close)

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?sessionId=s1&judgeName=alice"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("upgrade through middleware failed (status %d): %v", status, err)
	}
	t.Cleanup(func() { conn.Close() })

	waitForConns(t, reg, "s1", 1)
	router.BroadcastToSession("s1", protocol.NewEntrantAdded("A"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.EntrantAdded
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if msg.Entrant != "A" {
		t.Errorf("unexpected payload: %+v", msg)
	}
}

func TestHandshakeRejectsMissingParams(t *testing.T) {
	srv, _ := newWSServer(t)

	conn := dial(t, srv, "judgeName=alice")
	expectPolicyClose(t, conn, "Missing sessionId")

	conn = dial(t, srv, "sessionId=s1")
	expectPolicyClose(t, conn, "Missing judgeName")
}

func TestHandshakeRejectsDuplicateJudge(t *testing.T) {
	srv, reg := newWSServer(t)

	first := dial(t, srv, "sessionId=s1&judgeName=alice")
	waitForConns(t, reg, "s1", 1)

	second := dial(t, srv, "sessionId=s1&judgeName=alice")
	expectPolicyClose(t, second, "Judge name already connected")

	// the first connection stays registered and keeps receiving broadcasts
	waitForConns(t, reg, "s1", 1)
	router := live.NewRouter(reg, zap.NewNop())
	if delivered, _ := router.BroadcastToSession("s1", protocol.NewEntrantAdded("A")); delivered != 1 {
		t.Fatalf("surviving connection should receive the broadcast")
	}

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.EntrantAdded
	if err := first.ReadJSON(&msg); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if msg.Entrant != "A" {
		t.Errorf("unexpected payload: %+v", msg)
	}
}

func TestReconnectAfterClose(t *testing.T) {
	srv, reg := newWSServer(t)

	first := dial(t, srv, "sessionId=s1&judgeName=alice")
	waitForConns(t, reg, "s1", 1)

	first.Close()
	waitForConns(t, reg, "s1", 0)

	second := dial(t, srv, "sessionId=s1&judgeName=alice")
	waitForConns(t, reg, "s1", 1)

	// a working read proves the new connection was admitted, not policy-closed
	router := live.NewRouter(reg, zap.NewNop())
	router.BroadcastToSession("s1", protocol.NewEntrantAdded("B"))
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err != nil {
		t.Fatalf("second connection should be live: %v", err)
	}
}

func TestInboundFramesAreIgnored(t *testing.T) {
	srv, reg := newWSServer(t)

	conn := dial(t, srv, "sessionId=s1&judgeName=alice")
	waitForConns(t, reg, "s1", 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"whatever"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// still connected and still reachable afterwards
	router := live.NewRouter(reg, zap.NewNop())
	router.BroadcastToSession("s1", protocol.NewEntrantAdded("A"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("connection should survive inbound frames: %v", err)
	}
}
