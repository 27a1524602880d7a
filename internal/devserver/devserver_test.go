package devserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sectionforge/sectionforge/internal/logging"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(0, logging.New("test", logging.Options{Output: io.Discard}))
	ts := httptest.NewServer(http.HandlerFunc(s.handleEvents))
	t.Cleanup(ts.Close)
	return s, ts
}

func dialEvents(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		got := len(h.conns)
		h.mu.Unlock()
		if got == n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", got, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRebuiltReachesConnectedClient(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dialEvents(t, ts)
	waitForClients(t, s.hub, 1)

	s.Rebuilt([]string{"hero", "footer"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got payload
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.ChangeType != changeTypeRebuild {
		t.Errorf("changeType = %q, want %q", got.ChangeType, changeTypeRebuild)
	}
	if !reflect.DeepEqual(got.Sections, []string{"hero", "footer"}) {
		t.Errorf("sections = %v, want [hero footer]", got.Sections)
	}
	if got.Paths != nil {
		t.Errorf("paths = %v, want none on a rebuild payload", got.Paths)
	}
}

func TestRemovedPayloadCarriesPaths(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dialEvents(t, ts)
	waitForClients(t, s.hub, 1)

	s.Removed([]string{"dist/sections/hero.liquid"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got payload
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.ChangeType != changeTypeRemove {
		t.Errorf("changeType = %q, want %q", got.ChangeType, changeTypeRemove)
	}
	if !reflect.DeepEqual(got.Paths, []string{"dist/sections/hero.liquid"}) {
		t.Errorf("paths = %v, want [dist/sections/hero.liquid]", got.Paths)
	}
}

func TestClientDisconnectLeavesHub(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dialEvents(t, ts)
	waitForClients(t, s.hub, 1)

	conn.Close()
	waitForClients(t, s.hub, 0)

	// Broadcasting into an empty hub is a no-op, not a hang.
	s.Rebuilt([]string{"hero"})
}

func TestCloseAllRefusesNewClients(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dialEvents(t, ts)
	waitForClients(t, s.hub, 1)

	s.hub.closeAll()
	waitForClients(t, s.hub, 0)

	// The handler upgrades but the hub turns the connection away; the
	// client sees the socket close rather than a hang.
	late := dialEvents(t, ts)
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("expected read error after shutdown, got a message")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected existing client to be closed")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	// Grab a free port, release it, then hand it to the server.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	srv := New(port, logging.New("test", logging.Options{Output: io.Discard}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never started listening: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	srv.Rebuilt([]string{"hero"})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestNotifyWithoutRunIsNoOp(t *testing.T) {
	srv := New(0, logging.New("test", logging.Options{Output: io.Discard}))
	srv.Rebuilt([]string{"hero"})
	srv.Removed([]string{"dist/sections/hero.liquid"})
}
