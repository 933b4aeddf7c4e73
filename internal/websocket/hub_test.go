package websocket

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/logger"
)

func TestHub_BroadcastsOutcomes(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleWebSocket(hub, w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	outcome := interfaces.Outcome{SubscriptionID: "sub1", URL: "h:80/n", Verb: "POST", Delivered: true, StatusCode: 200}

	// Registration is asynchronous; keep publishing until the client sees a message.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	received := make(chan []byte, 1)
	go func() {
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- data
		}
		close(received)
	}()

	var data []byte
	deadline := time.After(2 * time.Second)
loop:
	for {
		hub.Observe(outcome)
		select {
		case data = <-received:
			break loop
		case <-deadline:
			break loop
		case <-time.After(20 * time.Millisecond):
		}
	}
	require.NotNil(t, data)

	var msg struct {
		Type string             `json:"type"`
		Data interfaces.Outcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "notification_outcome", msg.Type)
	assert.Equal(t, "sub1", msg.Data.SubscriptionID)
	assert.Equal(t, 200, msg.Data.StatusCode)
}

func TestHub_ObserveWithoutClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	for i := 0; i < 500; i++ {
		hub.Observe(interfaces.Outcome{SubscriptionID: "s"})
	}
}

func TestHub_ObserveAfterStopIsSilent(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("hub-test", "debug", &buf)
	t.Cleanup(func() { logger.Logger = zerolog.Nop() })

	hub := NewHub()
	go hub.Run()
	hub.Stop()

	outcome := interfaces.Outcome{SubscriptionID: "sub1", URL: "h:80/n", Verb: "POST"}
	for i := 0; i < 1000; i++ {
		hub.Observe(outcome)
	}

	assert.Empty(t, hub.broadcast)
	assert.NotContains(t, buf.String(), "saturated")
}
