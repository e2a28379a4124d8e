package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medirespond/medirespond/internal/platform/events"
)

func newClient(id string, topics ...string) *Client {
	return &Client{ID: id, Topics: topics, Send: make(chan []byte, sendBuffer)}
}

func TestHub_RegisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Register(newClient("client-1", events.TopicEmergency))

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount(events.TopicEmergency) != 1 {
		t.Fatalf("expected 1 client on %s, got %d", events.TopicEmergency, hub.TopicCount(events.TopicEmergency))
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("client-2", events.TopicEmergency)

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount(events.TopicEmergency) != 0 {
		t.Fatalf("expected empty topic, got %d", hub.TopicCount(events.TopicEmergency))
	}
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send channel to be closed")
	}

	// A second unregister is a no-op.
	hub.Unregister(client)
}

func TestHub_PublishToTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	subscriber := newClient("sub", events.TopicEmergency)
	other := newClient("other", "reports")
	hub.Register(subscriber)
	hub.Register(other)

	event := events.New(events.TypeCallCreated, events.TopicEmergency, "call-1", nil)
	if err := hub.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-subscriber.Send:
		var got events.Event
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Type != events.TypeCallCreated || got.ResourceID != "call-1" {
			t.Errorf("unexpected event: %+v", got)
		}
	default:
		t.Fatal("expected subscriber to receive the event")
	}

	select {
	case <-other.Send:
		t.Fatal("non-subscriber should not receive the event")
	default:
	}
}

func TestHub_BroadcastSkipsFullBuffer(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Topics: []string{events.TopicEmergency}, Send: make(chan []byte, 1)}
	hub.Register(client)

	e := events.New(events.TypeCallCreated, events.TopicEmergency, "x", nil)
	hub.Broadcast(e)
	hub.Broadcast(e)

	if len(client.Send) != 1 {
		t.Fatalf("expected 1 buffered message, got %d", len(client.Send))
	}
}

func TestHub_SubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("dyn", "a", "b", "c")
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{"a", "c"}})
	if hub.TopicCount("a") != 0 || hub.TopicCount("c") != 0 {
		t.Fatal("expected a and c to be empty")
	}
	if hub.TopicCount("b") != 1 {
		t.Fatalf("expected 1 on b, got %d", hub.TopicCount("b"))
	}
	if len(client.Topics) != 1 || client.Topics[0] != "b" {
		t.Fatalf("expected [b], got %v", client.Topics)
	}

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"d"}})
	if hub.TopicCount("d") != 1 {
		t.Fatalf("expected 1 on d, got %d", hub.TopicCount("d"))
	}

	hub.ProcessMessage(client, ClientMessage{Action: "noop", Topics: []string{"e"}})
	if hub.TopicCount("e") != 0 {
		t.Fatal("unknown action should be ignored")
	}
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newClient("c", events.TopicEmergency)
			hub.Register(c)
			hub.Broadcast(events.New(events.TypeCallCreated, events.TopicEmergency, "", nil))
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestParseTopics(t *testing.T) {
	if got := parseTopics(""); len(got) != 1 || got[0] != events.TopicEmergency {
		t.Errorf("expected default topic, got %v", got)
	}
	got := parseTopics(" emergency , reports,,")
	if len(got) != 2 || got[0] != "emergency" || got[1] != "reports" {
		t.Errorf("unexpected topics: %v", got)
	}
}

func TestOriginChecker(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example")

	if !originChecker(nil)(req) {
		t.Error("expected empty allow-list to accept any origin")
	}
	if !originChecker([]string{"*"})(req) {
		t.Error("expected wildcard to accept any origin")
	}
	if originChecker([]string{"https://dispatch.example"})(req) {
		t.Error("expected unlisted origin to be rejected")
	}
}

func TestHandler_HandleConnectRequiresWebSocket(t *testing.T) {
	handler := NewHandler(NewHub(zerolog.Nop()), nil, zerolog.Nop())

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ws", nil), rec)

	err := handler.HandleConnect(c)
	if err == nil && rec.Code == http.StatusSwitchingProtocols {
		t.Fatal("expected upgrade to fail for non-websocket request")
	}
}

func TestHandler_FullUpgradeWithDialer(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	handler := NewHandler(hub, nil, zerolog.Nop())

	e := echo.New()
	handler.RegisterRoutes(e.Group(""))

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount(events.TopicEmergency) < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.TopicCount(events.TopicEmergency) != 1 {
		t.Fatal("expected client subscribed to the emergency feed")
	}

	hub.Broadcast(events.New(events.TypeCallAssigned, events.TopicEmergency, "call-9", nil))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received events.Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if received.Type != events.TypeCallAssigned || received.ResourceID != "call-9" {
		t.Fatalf("unexpected event: %+v", received)
	}
}
