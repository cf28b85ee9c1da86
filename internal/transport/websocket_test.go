package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestServer(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(wst.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for wst.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return conn
}

func TestWebSocketBroadcastsJSON(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	conn := dialTestServer(t, wst)

	if err := wst.Send(NewStatusMessage("Capturing")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got StatusMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Type != TypeStatus || got.Status != "Capturing" {
		t.Errorf("got %+v", got)
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	conn := dialTestServer(t, wst)

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for wst.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still registered after disconnect")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst := NewWebSocketTransport("")
	if err := wst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := wst.Send("late"); err == nil {
		t.Error("Send after Close returned nil")
	}
}

func TestWebSocketStartBindError(t *testing.T) {
	first := NewWebSocketTransport("127.0.0.1:0")
	if err := first.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Close()

	if err := NewWebSocketTransport("127.0.0.1:-1").Start(); err == nil {
		t.Error("Start on an invalid port succeeded")
	}
}
