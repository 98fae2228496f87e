package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dialWS(t *testing.T, rawURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(rawURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) bugstream.StreamMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg bugstream.StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading websocket message: %v", err)
	}
	return msg
}

// readMessageOfType skips interleaved heartbeats until the wanted type
// arrives.
func readMessageOfType(t *testing.T, conn *websocket.Conn, want bugstream.MessageType) bugstream.StreamMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		if msg.Type == want {
			return msg
		}
		if msg.Type == bugstream.MessageHeartbeat {
			continue
		}
		t.Fatalf("Expected %s message, got %s: %v", want, msg.Type, msg.Data)
	}
	t.Fatalf("Timed out waiting for %s message", want)
	return bugstream.StreamMessage{}
}

func TestWebSocketHandshake(t *testing.T) {
	ts, _ := newTestServer(t)

	conn := dialWS(t, wsURL(ts))

	msg := readMessage(t, conn)
	if msg.Type != bugstream.MessageConnectionEstablished {
		t.Fatalf("Expected connection_established, got %s", msg.Type)
	}
	data := msg.Data.(map[string]any)
	if data["connectionId"] == "" || data["connectionId"] == nil {
		t.Error("Expected a connection id in the handshake")
	}
	if data["authenticated"] != false {
		t.Error("Expected tokenless connection to be unauthenticated")
	}
}

func TestWebSocketTokenQueryParam(t *testing.T) {
	ts, _ := newTestServer(t)
	token := login(t, ts, "ws-user")

	conn := dialWS(t, wsURL(ts)+"?token="+token)

	msg := readMessage(t, conn)
	data := msg.Data.(map[string]any)
	if data["authenticated"] != true {
		t.Error("Expected token query parameter to authenticate the connection")
	}
	if data["userId"] != "ws-user" {
		t.Errorf("Expected userId ws-user, got %v", data["userId"])
	}
}

func TestWebSocketSubscribeAndDeliver(t *testing.T) {
	ts, _ := newTestServer(t)
	token := login(t, ts, "producer")

	conn := dialWS(t, wsURL(ts))
	readMessage(t, conn) // handshake

	if err := conn.WriteJSON(map[string]any{
		"action": "subscribe",
		"type":   "bug_updates",
		"format": "compact",
	}); err != nil {
		t.Fatalf("subscribe write failed: %v", err)
	}
	ack := readMessageOfType(t, conn, bugstream.MessageSubscriptionSuccess)
	if ack.SubscriptionID == "" {
		t.Fatal("Expected subscription id on the ack")
	}

	resp := postJSON(t, ts, "/api/v1/events/bugs", token, PublishBugRequest{
		EventType: "created",
		Bug:       testBug("bug-ws-1"),
	})
	resp.Body.Close()

	event := readMessageOfType(t, conn, bugstream.MessageEvent)
	if event.SubscriptionID != ack.SubscriptionID {
		t.Errorf("Expected event routed to subscription %s, got %s", ack.SubscriptionID, event.SubscriptionID)
	}
	data := event.Data.(map[string]any)
	if data["bugId"] != "bug-ws-1" {
		t.Errorf("Expected bug-ws-1, got %v", data["bugId"])
	}
	if data["eventType"] != "created" {
		t.Errorf("Expected created event, got %v", data["eventType"])
	}
}

func TestWebSocketSensitiveStreamRejectedWithoutAuth(t *testing.T) {
	ts, _ := newTestServer(t)

	conn := dialWS(t, wsURL(ts))
	readMessage(t, conn) // handshake

	if err := conn.WriteJSON(map[string]any{
		"action": "subscribe",
		"type":   "analytics",
	}); err != nil {
		t.Fatalf("subscribe write failed: %v", err)
	}
	failure := readMessageOfType(t, conn, bugstream.MessageSubscriptionError)
	data := failure.Data.(map[string]any)
	if data["error"] != "authentication required" {
		t.Errorf("Expected authentication rejection, got %v", data)
	}
}

func TestWebSocketInBandAuthenticate(t *testing.T) {
	ts, _ := newTestServer(t)
	token := login(t, ts, "late-auth")

	conn := dialWS(t, wsURL(ts))
	readMessage(t, conn) // handshake

	if err := conn.WriteJSON(map[string]any{
		"action":    "authenticate",
		"authToken": token,
	}); err != nil {
		t.Fatalf("authenticate write failed: %v", err)
	}
	result := readMessageOfType(t, conn, bugstream.MessageConnectionEstablished)
	data := result.Data.(map[string]any)
	if data["authenticated"] != true || data["userId"] != "late-auth" {
		t.Errorf("Unexpected auth result: %v", data)
	}

	if err := conn.WriteJSON(map[string]any{
		"action": "subscribe",
		"type":   "analytics",
	}); err != nil {
		t.Fatalf("subscribe write failed: %v", err)
	}
	readMessageOfType(t, conn, bugstream.MessageSubscriptionSuccess)
}

func TestWebSocketDisconnectFreesConnection(t *testing.T) {
	ts, svc := newTestServer(t)

	conn := dialWS(t, wsURL(ts))
	readMessage(t, conn) // handshake

	if svc.Stats().TotalConnections != 1 {
		t.Fatalf("Expected 1 connection, got %d", svc.Stats().TotalConnections)
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Stats().TotalConnections == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Expected connection to be removed after close, still %d registered",
		svc.Stats().TotalConnections)
}
