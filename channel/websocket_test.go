package channel_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// wsHost runs the parent end of the link behind a websocket upgrader. The
// handler is installed in the same call that starts the read loop, so no
// early frame can slip past it.
func wsHost(t *testing.T, onMessage func(parentEnd *channel.WebsocketTransport, m channel.Message)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		transport := channel.NewWebsocketTransport(conn, channel.WebsocketOptions{
			Origin: parentOrigin,
			Logger: zerolog.Nop(),
		})
		transport.SetReceiver(func(m channel.Message) {
			onMessage(transport, m)
		})
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebsocketRoundTrip(t *testing.T) {
	url := wsHost(t, func(parentEnd *channel.WebsocketTransport, m channel.Message) {
		if m.Type == channel.TypeRequestToken {
			parentEnd.Send(channel.Message{
				Type:    channel.TypeTokenResponse,
				ID:      "resp-1",
				Origin:  parentOrigin,
				Payload: &channel.TokenResponse{Token: "access-1"},
			})
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	transport, err := channel.DialWebsocket(ctx, url, channel.WebsocketOptions{
		Origin:  childOrigin,
		IsChild: true,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	defer transport.Close()

	childCh := channel.New(transport, channel.Options{
		AllowedOrigins: []string{parentOrigin},
		Logger:         zerolog.Nop(),
	})

	got := make(chan *channel.TokenResponse, 1)
	childCh.Subscribe(channel.TypeTokenResponse, func(m channel.Message) {
		if resp, ok := m.Payload.(*channel.TokenResponse); ok {
			got <- resp
		}
	})

	require.NoError(t, childCh.SendToParent(&channel.RequestToken{Origin: childOrigin}))

	select {
	case resp := <-got:
		require.Equal(t, "access-1", resp.Token)
	case <-time.After(5 * time.Second):
		t.Fatal("no token response over websocket")
	}
}

func TestWebsocketDropsUndecodableFrames(t *testing.T) {
	received := make(chan channel.Message, 2)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		// Wait for the child's first message so its subscriptions exist.
		_, _, err = conn.ReadMessage()
		require.NoError(t, err)
		// A garbage frame followed by a valid one.
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
		valid, err := channel.Encode(channel.Message{
			Type:    channel.TypeBalanceUpdate,
			ID:      "msg-1",
			Origin:  parentOrigin,
			Payload: &channel.BalanceUpdate{Balance: 400},
		})
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, valid))
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	transport, err := channel.DialWebsocket(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), channel.WebsocketOptions{
		Origin:  childOrigin,
		IsChild: true,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	defer transport.Close()

	childCh := channel.New(transport, channel.Options{AllowedOrigins: []string{parentOrigin}})
	childCh.SubscribeAll(func(m channel.Message) { received <- m })
	require.NoError(t, childCh.SendToParent(&channel.GetStatus{}))

	select {
	case m := <-received:
		require.Equal(t, channel.TypeBalanceUpdate, m.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("valid frame after garbage never arrived")
	}
}
