package events

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(log.New(io.Discard, "", 0))
	t.Cleanup(h.Close)
	return h
}

func httpHandler(h *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWS)
	return mux
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, have %d", want, h.ClientCount())
}

func TestBroadcastReachesClient(t *testing.T) {
	h := testHub(t)
	ts := httptest.NewServer(httpHandler(h))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+ts.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitForClients(t, h, 1)

	h.PublishChange(MessageTypeTaskUpdate, 42, RecordChange{ClientID: 7, Action: "created"})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if msg.Type != MessageTypeTaskUpdate || msg.UserID != 42 {
		t.Errorf("unexpected message: %+v", msg)
	}

	var change RecordChange
	if err := json.Unmarshal(msg.Data, &change); err != nil {
		t.Fatalf("failed to decode change: %v", err)
	}
	if change.ClientID != 7 || change.Action != "created" {
		t.Errorf("unexpected change: %+v", change)
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	h := testHub(t)
	ts := httptest.NewServer(httpHandler(h))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+ts.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	waitForClients(t, h, 1)

	conn.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, h, 0)
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	h := testHub(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more than the channel buffer; must never block even with no
		// consumer keeping up.
		for i := 0; i < 500; i++ {
			h.Publish(Message{Type: MessageTypeStatsUpdate, UserID: 1})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full channel")
	}
}
