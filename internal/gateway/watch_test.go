package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"

	"github.com/Multiverse88/Dentalpro/internal/platform/websocket"
)

// feedServer upgrades /api/ws, records the request and writes events.
func feedServer(t *testing.T, events []websocket.Event, gotAuth, gotTopics *string) *httptest.Server {
	t.Helper()
	upgrader := gorillawebsocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		*gotAuth = r.Header.Get("Authorization")
		*gotTopics = r.URL.Query().Get("topics")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(gorillawebsocket.CloseMessage,
			gorillawebsocket.FormatCloseMessage(gorillawebsocket.CloseNormalClosure, ""))
		time.Sleep(50 * time.Millisecond)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWatch_DeliversEvents(t *testing.T) {
	var auth, topics string
	srv := feedServer(t, []websocket.Event{
		{Type: websocket.EventCreated, Topic: TopicQueue, ID: "1"},
		{Type: websocket.EventUpdated, Topic: TopicQueue, ID: "1"},
	}, &auth, &topics)
	c := New(srv.URL+"/api", WithTokenSource(func() string { return "tok" }))

	var got []string
	err := c.Watch(context.Background(), []string{TopicQueue, TopicAppointments}, func(ev websocket.Event) error {
		got = append(got, ev.Type+":"+ev.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "created:1" || got[1] != "updated:1" {
		t.Errorf("unexpected events %v", got)
	}
	if auth != "Bearer tok" {
		t.Errorf("expected bearer token, got %q", auth)
	}
	if topics != "queue,appointments" {
		t.Errorf("expected topics query, got %q", topics)
	}
}

func TestWatch_CallbackErrorStops(t *testing.T) {
	var auth, topics string
	srv := feedServer(t, []websocket.Event{{Type: websocket.EventCreated, Topic: TopicQueue}}, &auth, &topics)
	c := New(srv.URL+"/api", WithTokenSource(func() string { return "tok" }))

	stop := errors.New("stop")
	if err := c.Watch(context.Background(), []string{TopicQueue}, func(websocket.Event) error { return stop }); !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestWatch_RequiresToken(t *testing.T) {
	c := New("http://127.0.0.1:1/api")
	err := c.Watch(context.Background(), []string{TopicQueue}, func(websocket.Event) error { return nil })
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestWatch_RefusedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid or expired token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := New(srv.URL+"/api", WithTokenSource(func() string { return "stale" }))

	err := c.Watch(context.Background(), []string{TopicQueue}, func(websocket.Event) error { return nil })
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected a 401 gateway error, got %v", err)
	}
}

func TestWatch_CancelReturnsNil(t *testing.T) {
	upgrader := gorillawebsocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()
	c := New(srv.URL+"/api", WithTokenSource(func() string { return "tok" }))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	if err := c.Watch(ctx, []string{TopicQueue}, func(websocket.Event) error { return nil }); err != nil {
		t.Fatalf("expected nil after cancel, got %v", err)
	}
}
