package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/botarena/game/service"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.matches == nil {
		t.Error("Hub matches map is nil")
	}

	if cap(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected broadcast buffer %d, got %d", broadcastBuffer, cap(hub.broadcast))
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:     hub,
		matchID: "test-match",
		send:    make(chan []byte, 256),
	}

	hub.registerClient(client)

	if !hub.matches["test-match"][client] {
		t.Error("Client was not registered in match")
	}

	if len(hub.matches["test-match"]) != 1 {
		t.Errorf("Expected 1 client in match, got %d", len(hub.matches["test-match"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:     hub,
		matchID: "test-match",
		send:    make(chan []byte, 256),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.matches["test-match"]; exists {
		t.Error("Empty match was not cleaned up")
	}

	if _, ok := <-client.send; ok {
		t.Error("Client send channel was not closed")
	}

	// A second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubBroadcastToMatch(t *testing.T) {
	hub := NewHub()

	watcher := &Client{hub: hub, matchID: "m1", send: make(chan []byte, 4)}
	other := &Client{hub: hub, matchID: "m2", send: make(chan []byte, 4)}
	hub.registerClient(watcher)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{MatchID: "m1", Event: "turn_update", Data: map[string]int{"turn": 3}})

	select {
	case data := <-watcher.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to decode message: %v", err)
		}
		if msg.MatchID != "m1" || msg.Event != "turn_update" {
			t.Errorf("Unexpected message: %+v", msg)
		}
	default:
		t.Fatal("Watcher did not receive the broadcast")
	}

	if len(other.send) != 0 {
		t.Error("Client of another match received the broadcast")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()

	slow := &Client{hub: hub, matchID: "m1", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{MatchID: "m1", Event: "turn_update"})

	if _, exists := hub.matches["m1"]; exists {
		t.Error("Slow client was not dropped")
	}
}

func TestBroadcastEventDoesNotBlock(t *testing.T) {
	hub := NewHub()

	// Nothing drains the hub; the extra events are dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.BroadcastEvent("m1", "turn_update", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastEvent blocked on a full hub")
	}

	if len(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected %d queued events, got %d", broadcastBuffer, len(hub.broadcast))
	}
}

func TestWebSocketSpectator(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	snapshot := &service.MatchInfo{ID: "m1", Turn: 2}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("match"), snapshot)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?match=m1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	if msg.Event != EventSnapshot || msg.MatchID != "m1" {
		t.Errorf("Expected snapshot for m1, got %+v", msg)
	}

	// Wait for the hub to register the spectator
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount("m1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Spectator was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.BroadcastEvent("m1", "game_over", map[string]string{"cutoff": "turn limit"})

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if msg.Event != "game_over" {
		t.Errorf("Expected game_over event, got %q", msg.Event)
	}
}

func TestHubStopped(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "m1", nil)
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount("m1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Spectator was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// The spectator is closed by the hub and its reader exits
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	counted := make(chan int, 1)
	go func() { counted <- hub.ClientCount("m1") }()
	select {
	case n := <-counted:
		if n != 0 {
			t.Errorf("Expected 0 spectators after stop, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ClientCount blocked after the hub stopped")
	}

	// A late spectator is refused instead of hanging the handler
	late, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("Expected the late connection to be closed")
	} else if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
		t.Error("Late connection was left open")
	}
}
