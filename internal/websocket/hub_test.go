package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub()
	go hub.Run(ctx)
	return hub
}

func TestHub_BroadcastReachesRegisteredClients(t *testing.T) {
	hub := startHub(t)

	a := NewClient(hub, nil, 1)
	b := NewClient(hub, nil, 2)
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast([]byte(`{"type":"cart_captured"}`))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			assert.JSONEq(t, `{"type":"cart_captured"}`, string(msg))
		case <-time.After(time.Second):
			t.Fatal("broadcast not delivered")
		}
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)

	c := NewClient(hub, nil, 1)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-c.send
	assert.False(t, ok)

	// A second unregister is harmless
	hub.Unregister(c)
}

func TestHub_CallsAfterShutdownDoNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	connected := NewClient(hub, nil, 1)
	hub.Register(connected)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	_, ok := <-connected.send
	assert.False(t, ok)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		// Every read pump unregisters on the way out
		for i := 0; i < 40; i++ {
			hub.Unregister(NewClient(hub, nil, uint(i)))
		}
		hub.Unregister(connected)

		late := NewClient(hub, nil, 99)
		hub.Register(late)
		_, ok := <-late.send
		assert.False(t, ok)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after shutdown")
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := startHub(t)

	slow := NewClient(hub, nil, 1)
	hub.Register(slow)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.Broadcast([]byte("{}"))
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClient_PumpsOverRealConnection(t *testing.T) {
	hub := startHub(t)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, &Conn{ws}, 9)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Broadcast([]byte(`{"type":"carts_cleaned","deleted":2}`))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"carts_cleaned","deleted":2}`, string(msg))

	ws.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
