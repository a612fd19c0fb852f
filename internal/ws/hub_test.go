package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/models"
)

type staticUsers map[string]*models.User

func (s staticUsers) CurrentUser(_ context.Context, caller chat.Identity) (*models.User, error) {
	return s[caller.Subject], nil
}

type capturePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *capturePublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

func newTestServer(t *testing.T, hub *Hub, users UserResolver) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		if sub := c.Query("sub"); sub != "" {
			middleware.SetIdentity(c, chat.Identity{Subject: sub})
		}
		c.Next()
	}, NewHandler(hub, users).Handle)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, sub string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?sub=" + sub
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub(nil)
	c := newClient(nil, ConnInfo{UserID: "u1"})

	hub.add(c)
	assert.Equal(t, 1, hub.ConnectionCount("u1"))

	assert.True(t, hub.remove(c))
	assert.False(t, hub.remove(c))
	assert.Equal(t, 0, hub.ConnectionCount("u1"))
	assert.Empty(t, hub.clients)
}

func TestHandlerRejectsAnonymous(t *testing.T) {
	srv := newTestServer(t, NewHub(nil), staticUsers{})

	_, resp, err := dial(t, srv, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerRejectsUnsyncedUser(t *testing.T) {
	srv := newTestServer(t, NewHub(nil), staticUsers{})

	_, resp, err := dial(t, srv, "ghost")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotifyDeliversOnlyToRecipients(t *testing.T) {
	pub := &capturePublisher{}
	hub := NewHub(pub)
	srv := newTestServer(t, hub, staticUsers{
		"sub-a": {ID: "a"},
		"sub-b": {ID: "b"},
	})

	connA, _, err := dial(t, srv, "sub-a")
	require.NoError(t, err)
	defer connA.Close()
	connB, _, err := dial(t, srv, "sub-b")
	require.NoError(t, err)
	defer connB.Close()

	require.Eventually(t, func() bool {
		return hub.ConnectionCount("a") == 1 && hub.ConnectionCount("b") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Notify(context.Background(), chat.Event{
		Type:           chat.EventMessageCreated,
		ConversationID: "c1",
		MessageID:      "m1",
		UserIDs:        []string{"a", "a"},
		At:             time.Unix(100, 0).UTC(),
	})

	_ = connA.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := connA.ReadMessage()
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(payload, &frame))
	assert.Equal(t, chat.EventMessageCreated, frame.Type)
	assert.Equal(t, "c1", frame.ConversationID)
	assert.Equal(t, "m1", frame.MessageID)
	assert.NotContains(t, string(payload), "user_ids")

	_ = connB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err)

	assert.GreaterOrEqual(t, pub.count(), 2)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := NewHub(nil)
	srv := newTestServer(t, hub, staticUsers{"sub-a": {ID: "a"}})

	conn, _, err := dial(t, srv, "sub-a")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ConnectionCount("a") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	conn.Close()

	assert.Eventually(t, func() bool { return hub.ConnectionCount("a") == 0 }, time.Second, 10*time.Millisecond)
}
