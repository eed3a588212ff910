package network

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// silentPeer accepts the upgrade and never writes.
func silentPeer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSConnection_HeartbeatDeadlineClosesChannel(t *testing.T) {
	conn, err := Dial(silentPeer(t), nil, time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetHeartbeat(20 * time.Millisecond)
	ch := NewChannel(conn, 1)
	errs := make(chan error, 1)
	go func() { errs <- ch.Run() }()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("expected a read deadline error from Run")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept waiting on a silent peer")
	}
	select {
	case <-ch.Done():
	default:
		t.Error("channel should be shut down after the deadline")
	}
}

func TestWSConnection_NoHeartbeatNoDeadline(t *testing.T) {
	conn, err := Dial(silentPeer(t), nil, time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	ch := NewChannel(conn, 1)
	errs := make(chan error, 1)
	go func() { errs <- ch.Run() }()

	select {
	case err := <-errs:
		t.Fatalf("Run returned without a heartbeat deadline: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	ch.Close()
	select {
	case err := <-errs:
		if err != nil {
			t.Errorf("expected a clean stop after Close, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after Close")
	}
}
