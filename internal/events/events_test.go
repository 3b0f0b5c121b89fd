package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts an in-process Redis.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestPublisher_Publish(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewPublisher(client, "", logger.Nop())
	assert.Equal(t, DefaultChannel, pub.Channel())

	event := domain.Event{ID: "e1", Type: domain.EventSongCreated, SongID: "s1", OccurredAt: time.Now().UTC()}
	require.NoError(t, pub.Publish(ctx, event))

	select {
	case msg := <-sub.Channel():
		var got domain.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "e1", got.ID)
		assert.Equal(t, domain.EventSongCreated, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}

	assert.Equal(t, int64(1), pub.GetStats().TotalPublished)
}

func TestPublisher_FailureCounted(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	pub := NewPublisher(client, "songs:test", logger.Nop())
	err := pub.Publish(context.Background(), domain.Event{ID: "e1"})
	assert.Error(t, err)
	assert.Equal(t, int64(1), pub.GetStats().FailedPublished)
}

func TestSubscriber_ReceivesEvents(t *testing.T) {
	client, mr := setupTestRedis(t)

	var (
		mu       sync.Mutex
		received []domain.Event
	)
	handler := func(e domain.Event, raw []byte) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}

	sub := NewSubscriber(client, DefaultSubscriberConfig("songs:test"), handler, logger.Nop())
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Stop()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("songs:test")["songs:test"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Publish("songs:test", "not json")
	pub := NewPublisher(client, "songs:test", logger.Nop())
	require.NoError(t, pub.Publish(context.Background(), domain.Event{ID: "e2", Type: domain.EventSongDeleted}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "e2", received[0].ID)
	mu.Unlock()

	stats := sub.GetStats()
	assert.Equal(t, int64(2), stats.TotalReceived)
	assert.Equal(t, int64(1), stats.FailedMessages)
}

func TestSubscriber_RequiresHandler(t *testing.T) {
	client, _ := setupTestRedis(t)
	sub := NewSubscriber(client, SubscriberConfig{}, nil, logger.Nop())
	assert.Error(t, sub.Start(context.Background()))
}

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func startHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewConnection(r.URL.Query().Get("id"), conn, hub, logger.Nop())
		hub.Register(c)
		ctx := context.Background()
		go c.ReadPump(ctx)
		go c.WritePump(ctx)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastToListeners(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := startHubServer(t, hub)

	a := dial(t, srv, "a")
	b := dial(t, srv, "b")
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	n := hub.BroadcastEvent(domain.Event{ID: "e3", Type: domain.EventSongUpdated})
	assert.Equal(t, 2, n)

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var got domain.Event
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "e3", got.ID)
	}
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := startHubServer(t, hub)

	conn := dial(t, srv, "gone")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	stats := hub.GetStats()
	assert.Equal(t, int64(1), stats.TotalRegistered)
	assert.Equal(t, int64(1), stats.TotalUnregistered)
}

func TestHub_HandleEventForwardsRaw(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := startHubServer(t, hub)

	conn := dial(t, srv, "raw")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	raw := []byte(`{"id":"e4","type":"song.created"}`)
	hub.HandleEvent(domain.Event{ID: "e4"}, raw)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, raw, data)

	hub.CloseAll()
	assert.Equal(t, 0, hub.Count())
}
