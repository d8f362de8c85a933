package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func waitForClientCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.GetClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, h.GetClientCount())
}

func TestHubRegisterUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := &Client{hub: h, send: make(chan []byte, 1), userID: 5}
	h.register <- c
	waitForClientCount(t, h, 1)

	h.unregister <- c
	waitForClientCount(t, h, 0)

	if _, ok := <-c.send; ok {
		t.Fatal("expected send channel closed on unregister")
	}
}

func TestBroadcastToUserTargetsOnlyThatUser(t *testing.T) {
	h := NewHub()
	student := &Client{hub: h, send: make(chan []byte, 1), userID: 1}
	other := &Client{hub: h, send: make(chan []byte, 1), userID: 2}
	h.mutex.Lock()
	h.clients[student] = true
	h.clients[other] = true
	h.mutex.Unlock()

	h.BroadcastToUser(1, Message{Type: "payment_settled"})

	select {
	case data := <-student.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if msg.Type != "payment_settled" {
			t.Fatalf("expected payment_settled, got %q", msg.Type)
		}
	default:
		t.Fatal("expected a message for user 1")
	}

	select {
	case <-other.send:
		t.Fatal("user 2 should not receive user 1's message")
	default:
	}
}

func TestBroadcastToUserEvictsStalledClient(t *testing.T) {
	h := NewHub()
	// Unbuffered channel with no reader: the non-blocking send fails and the
	// client must be dropped instead of wedging the hub.
	stalled := &Client{hub: h, send: make(chan []byte), userID: 3}
	h.mutex.Lock()
	h.clients[stalled] = true
	h.mutex.Unlock()

	h.BroadcastToUser(3, Message{Type: "fee_reminder"})

	if got := h.GetClientCount(); got != 0 {
		t.Fatalf("expected stalled client evicted, got %d clients", got)
	}
	if _, ok := <-stalled.send; ok {
		t.Fatal("expected stalled client's send channel closed")
	}
}
