package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/domain"
	wsHub "github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/adapters/ws"
)

// startHub starts a test HTTP server with the hub as its handler and
// returns the ws:// URL, the hub, and a cancel for the run loop.
func startHub(t *testing.T) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.NewHub()
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	wsURL, hub, _ := startHub(t)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
	}
	waitFor(t, func() bool { return hub.Count() == 3 }, "clients never registered")

	alert := &domain.Alert{
		ID:       "a-7",
		HorseID:  "breeze",
		Type:     domain.AlertImpact,
		Severity: domain.SeverityCritical,
		Leg:      "FL",
	}
	sink := wsHub.NewSink(hub)
	if err := sink.Publish(context.Background(), alert); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i, conn := range conns {
		m := readEnvelope(t, conn)
		if m["event"] != wsHub.EventAlert {
			t.Errorf("client %d: event = %v", i, m["event"])
		}
		data, ok := m["data"].(map[string]any)
		if !ok {
			t.Fatalf("client %d: data missing", i)
		}
		if data["horse_id"] != "breeze" || data["affected_leg"] != "FL" {
			t.Errorf("client %d: data = %v", i, data)
		}
	}
}

func TestHubSinkRoutesResultEvents(t *testing.T) {
	wsURL, hub, _ := startHub(t)
	conn := dial(t, wsURL)
	waitFor(t, func() bool { return hub.Count() == 1 }, "client never registered")

	sink := wsHub.NewSink(hub)
	res := &domain.SymmetryResult{
		HorseID: "thunder",
		Gait:    domain.GaitWalk,
		Scores:  domain.SymmetryScores{Front: 95, Hind: 94, Diagonal: 93, Total: 94.05},
	}
	if err := sink.WriteSymmetry(context.Background(), res); err != nil {
		t.Fatalf("WriteSymmetry: %v", err)
	}

	m := readEnvelope(t, conn)
	if m["event"] != wsHub.EventSymmetry {
		t.Fatalf("event = %v", m["event"])
	}
	data := m["data"].(map[string]any)
	if data["horse_id"] != "thunder" {
		t.Errorf("horse_id = %v", data["horse_id"])
	}
	if data["gait_type"] != string(domain.GaitWalk) {
		t.Errorf("gait_type = %v", data["gait_type"])
	}
}

func TestHubSinkSkipsNilAndEmpty(t *testing.T) {
	hub := wsHub.NewHub()
	sink := wsHub.NewSink(hub)
	ctx := context.Background()
	if err := sink.WriteSymmetry(ctx, nil); err != nil {
		t.Fatalf("nil symmetry: %v", err)
	}
	if err := sink.WriteLegHealth(ctx, nil); err != nil {
		t.Fatalf("empty health: %v", err)
	}
	if err := sink.Publish(ctx, nil); err != nil {
		t.Fatalf("nil alert: %v", err)
	}
}

func TestHubCountDecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t)

	conn := dial(t, wsURL)
	waitFor(t, func() bool { return hub.Count() == 1 }, "client never registered")

	conn.Close()
	waitFor(t, func() bool { return hub.Count() == 0 }, "disconnect never detected")
}

func TestHubCancelClosesClients(t *testing.T) {
	wsURL, hub, cancel := startHub(t)

	dial(t, wsURL)
	waitFor(t, func() bool { return hub.Count() == 1 }, "client never registered")

	cancel()
	waitFor(t, func() bool { return hub.Count() == 0 }, "cancel did not close clients")
}

func TestHubBroadcastDuringChurnDoesNotPanic(t *testing.T) {
	wsURL, hub, _ := startHub(t)

	// Broadcast continuously while clients connect and drop. A send that
	// raced a channel close would panic the broadcaster goroutine.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			hub.Broadcast(wsHub.EventAlert, map[string]int{"seq": i})
		}
	}()

	for i := 0; i < 20; i++ {
		conn := dial(t, wsURL)
		waitFor(t, func() bool { return hub.Count() >= 1 }, "client never registered")
		conn.Close()
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcaster never finished")
	}
}

func TestHubRejectsPlainHTTP(t *testing.T) {
	hub := wsHub.NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
