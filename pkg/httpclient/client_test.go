package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/v1/auth/login":
			json.NewEncoder(w).Encode(AuthResponse{
				Token:     "test-token-123",
				UserID:    "test-user",
				ExpiresAt: time.Now().Add(time.Hour),
			})

		case "/api/v1/events/bugs", "/api/v1/events/analytics":
			if r.Header.Get("Authorization") != "Bearer test-token-123" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(ErrorResponse{Error: "Authentication required"})
				return
			}
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(PublishResponse{
				EventID:   "event-123",
				Timestamp: time.Now(),
			})

		case "/api/v1/stats":
			json.NewEncoder(w).Encode(StatsResponse{
				TotalConnections:   5,
				TotalSubscriptions: 9,
				EventsDelivered:    120,
			})

		case "/api/v1/health":
			json.NewEncoder(w).Encode(HealthResponse{
				Status:      "healthy",
				Connections: 5,
				Timestamp:   time.Now(),
			})

		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "not found"})
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{ServerURL: serverURL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("Expected error for missing ServerURL")
	}
	if _, err := NewClient(Config{ServerURL: "http://localhost:8080"}); err != nil {
		t.Errorf("Expected valid config to succeed, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	ts := newFakeServer(t)
	client := newTestClient(t, ts.URL)

	if client.IsAuthenticated() {
		t.Error("Expected fresh client to be unauthenticated")
	}

	resp, err := client.Authenticate(context.Background(), "test-user", false)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if resp.Token != "test-token-123" {
		t.Errorf("Expected test-token-123, got %s", resp.Token)
	}
	if !client.IsAuthenticated() {
		t.Error("Expected client to be authenticated after login")
	}
	if client.Token() != "test-token-123" {
		t.Errorf("Expected stored token, got %s", client.Token())
	}
}

func TestPublishBugEvent(t *testing.T) {
	ts := newFakeServer(t)
	client := newTestClient(t, ts.URL)

	req := PublishBugRequest{
		EventType: "created",
		Bug:       bugstream.Bug{ID: "bug-1", Title: "Crash", Status: "open", Severity: "high"},
	}

	if _, err := client.PublishBugEvent(context.Background(), req); err == nil {
		t.Error("Expected error publishing without authentication")
	}

	client.SetToken("test-token-123")
	resp, err := client.PublishBugEvent(context.Background(), req)
	if err != nil {
		t.Fatalf("PublishBugEvent failed: %v", err)
	}
	if resp.EventID != "event-123" {
		t.Errorf("Expected event-123, got %s", resp.EventID)
	}
}

func TestPublishAnalyticsEvent(t *testing.T) {
	ts := newFakeServer(t)
	client := newTestClient(t, ts.URL)
	client.SetToken("test-token-123")

	resp, err := client.PublishAnalyticsEvent(context.Background(), PublishAnalyticsRequest{
		AnalyticsType: "summary",
		Metrics:       map[string]any{"openBugs": 4},
	})
	if err != nil {
		t.Fatalf("PublishAnalyticsEvent failed: %v", err)
	}
	if resp.EventID != "event-123" {
		t.Errorf("Expected event-123, got %s", resp.EventID)
	}
}

func TestGetStats(t *testing.T) {
	ts := newFakeServer(t)
	client := newTestClient(t, ts.URL)

	stats, err := client.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalConnections != 5 {
		t.Errorf("Expected 5 connections, got %d", stats.TotalConnections)
	}
	if stats.EventsDelivered != 120 {
		t.Errorf("Expected 120 delivered, got %d", stats.EventsDelivered)
	}
}

func TestGetHealth(t *testing.T) {
	ts := newFakeServer(t)
	client := newTestClient(t, ts.URL)

	health, err := client.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth failed: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", health.Status)
	}
}

func TestErrorResponseSurfaced(t *testing.T) {
	ts := newFakeServer(t)
	client := newTestClient(t, ts.URL)
	client.SetToken("wrong-token")

	_, err := client.PublishBugEvent(context.Background(), PublishBugRequest{EventType: "created"})
	if err == nil {
		t.Fatal("Expected API error for wrong token")
	}
}
