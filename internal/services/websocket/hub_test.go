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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*HubService, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHubService(nil)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *HubService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.GetClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishReachesClients(t *testing.T) {
	hub, server := startHub(t)
	first := dial(t, server)
	second := dial(t, server)
	waitForClients(t, hub, 2)

	hub.Publish("state", map[string]string{"state": "watching"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var event Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, "state", event.Type)
		assert.Equal(t, map[string]interface{}{"state": "watching"}, event.Data)
	}
}

func TestHub_PublishWithoutRunnerDoesNotBlock(t *testing.T) {
	hub := NewHubService(nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.Publish("state", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestHub_RegisterAndUnregisterAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHubService(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	upgrader := websocket.Upgrader{}
	handlerDone := make(chan struct{}, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
		defer func() {
			hub.Unregister(conn)
			handlerDone <- struct{}{}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	dial(t, server)
	waitForClients(t, hub, 1)

	cancel()
	<-stopped

	select {
	case <-handlerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("handler still blocked after hub shutdown")
	}

	late := dial(t, server)
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := late.ReadMessage()
	assert.Error(t, err, "client connecting after shutdown is closed")
}
