// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	intsync "github.com/tomtom215/cloudsync/internal/sync"
)

// dialHub starts an upgrade endpoint bound to hub and connects to it.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.ServeConn(conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	return conn
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid message %s: %v", data, err)
	}
	return msg
}

func TestNewClientIDs(t *testing.T) {
	hub := NewHub()
	a, b := NewClient(hub, nil), NewClient(hub, nil)
	if b.ID() <= a.ID() {
		t.Errorf("IDs not increasing: %d then %d", a.ID(), b.ID())
	}
	if cap(a.send) != 256 {
		t.Errorf("send buffer = %d, want 256", cap(a.send))
	}
}

func TestClientPingPong(t *testing.T) {
	hub := setupHub(t)
	conn := dialHub(t, hub)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypePong {
		t.Errorf("reply = %q, want pong", msg.Type)
	}
}

func TestClientReceivesSyncEvents(t *testing.T) {
	hub := setupHub(t)
	sc := newSyncContext(t)
	detach := hub.Attach(sc)
	t.Cleanup(detach)

	conn := dialHub(t, hub)

	sc.Bus.Publish(intsync.Event{Type: intsync.EventAbort, RequestID: "req-1", URL: "/servers"})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeAbort {
		t.Fatalf("type = %q, want %q", msg.Type, MessageTypeAbort)
	}
	var data EventData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.RequestID != "req-1" || data.URL != "/servers" {
		t.Errorf("data = %+v", data)
	}

	sc.Reset("operator")
	if msg := readMessage(t, conn); msg.Type != MessageTypeReset {
		t.Errorf("type = %q, want %q", msg.Type, MessageTypeReset)
	}
	msg = readMessage(t, conn)
	if msg.Type != MessageTypeState || !strings.Contains(string(msg.Data), `"state":"NORMAL"`) {
		t.Errorf("state message = %s %s", msg.Type, msg.Data)
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub := setupHub(t)
	conn := dialHub(t, hub)

	_ = conn.Close()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
}
